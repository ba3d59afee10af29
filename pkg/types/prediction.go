package types

// PredictionRecord is the per-disease result returned by POST /predict.
// Optional fields are pointers because the service omits them (cases and
// deaths are only present when an outbreak is predicted).
type PredictionRecord struct {
	Disease     string  `json:"Disease"`
	Outbreak    bool    `json:"outbreak"`
	Probability float64 `json:"probability"`
	Cases       *int    `json:"cases,omitempty"`
	Deaths      *int    `json:"deaths,omitempty"`

	// Demographic and geographic context
	LAI               *float64 `json:"LAI,omitempty"`
	Population        *float64 `json:"Population,omitempty"`
	PopulationDensity *float64 `json:"Population_Density,omitempty"`
	Latitude          *float64 `json:"Latitude,omitempty"`
	Longitude         *float64 `json:"Longitude,omitempty"`
	AreaKm2           *float64 `json:"Area_km2,omitempty"`

	// Air quality
	PM25 *float64 `json:"PM2_5,omitempty"`
	NO2  *float64 `json:"NO2,omitempty"`
	O3   *float64 `json:"O3,omitempty"`
	AQI  *float64 `json:"AQI,omitempty"`

	// Weather
	Temperature        *float64 `json:"Temperature,omitempty"`
	Humidity           *float64 `json:"Humidity,omitempty"`
	WindSpeed          *float64 `json:"Wind_Speed,omitempty"`
	Pressure           *float64 `json:"Pressure,omitempty"`
	Precipitation      *float64 `json:"Precipitation,omitempty"`
	WeatherDescription string   `json:"Weather_Description,omitempty"`
}

// PredictionRequest is the body of POST /predict
type PredictionRequest struct {
	State    string `json:"state_ut"`
	District string `json:"district"`
}
