/*
Package client provides a small JSON client for the disease-outbreak
prediction service.

	GET  /states              → {"states": [...]}
	GET  /districts/{state}   → {"districts": [...]}
	POST /predict             → {"predictions": [...]}

Non-2xx responses are returned as *StatusError, carrying the service's
"detail" message when present. IsServerError distinguishes a 5xx (a possible
backend regression, which the session answers with recovery) from a client
error such as an unknown state.

Calls take their deadline from the context:

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	records, err := client.NewClient(apiURL).Predict(ctx, types.PredictionRequest{
		State:    "Kerala",
		District: "Ernakulam",
	})
*/
package client
