package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/dops/pkg/log"
	"github.com/cuemby/dops/pkg/session"
	"github.com/cuemby/dops/pkg/storage"
	"github.com/cuemby/dops/pkg/types"
	"github.com/cuemby/dops/pkg/view"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Warm up the prediction service and report its state",
	Long: `Warm up the prediction service and wait until it is ready.

With --serve the session keeps running after it is ready: the liveness
monitor stays active and the status endpoints (see --status-addr) keep
reporting until Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		rt, err := startSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		snap := rt.sess.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Service ready after %s (%d states",
			color.GreenString("✓"), time.Since(snap.StartedAt).Round(time.Millisecond), snap.States)
		if snap.State.LimitedMode {
			fmt.Fprint(cmd.OutOrStdout(), ", limited mode")
		}
		fmt.Fprintln(cmd.OutOrStdout(), ")")

		if serve, _ := cmd.Flags().GetBool("serve"); !serve {
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Session is running. Press Ctrl+C to stop.")
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
		case err := <-rt.errCh:
			return err
		}
		return nil
	},
}

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List the states known to the prediction service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		rt, err := startSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		catalog := rt.sess.Catalog()
		if catalog.Limited {
			return errors.New("failed to load states, running in limited mode")
		}
		for _, s := range catalog.States {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

var districtsCmd = &cobra.Command{
	Use:   "districts STATE",
	Short: "List the districts of a state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		rt, err := startSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		districts, err := rt.sess.Districts(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load districts: %w", err)
		}
		for _, d := range districts {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict STATE DISTRICT",
	Short: "Predict outbreak risk for a district",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		state, district := args[0], args[1]

		rt, err := startSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		records, err := rt.sess.Predict(ctx, state, district)
		if err != nil {
			if errors.Is(err, session.ErrRecoveryStarted) {
				return fmt.Errorf("prediction failed, try again later: %w", err)
			}
			return fmt.Errorf("prediction failed: %w", err)
		}

		view.RenderPredictions(cmd.OutOrStdout(), state, district, records)

		if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
			if err := saveHistory(dir, state, district, records); err != nil {
				// History is best effort; the prediction was already shown
				log.Logger.Warn().Err(err).Msg("Failed to save prediction history")
			}
		}
		return nil
	},
}

func saveHistory(dir, state, district string, records []types.PredictionRecord) error {
	store, err := storage.NewBoltStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Save(&storage.Entry{
		State:    state,
		District: district,
		Records:  records,
	})
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show saved predictions",
	Long: `Show predictions saved by "dops predict" when --data-dir is set.
This command does not contact the prediction service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("data-dir")
		if dir == "" {
			return errors.New("--data-dir (or DOPS_DATA_DIR) is required")
		}
		limit, _ := cmd.Flags().GetInt("limit")
		state, _ := cmd.Flags().GetString("state")
		district, _ := cmd.Flags().GetString("district")

		store, err := storage.NewBoltStore(dir)
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []*storage.Entry
		if state != "" || district != "" {
			if state == "" || district == "" {
				return errors.New("--state and --district must be used together")
			}
			entries, err = store.ListByLocation(state, district)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
		} else {
			entries, err = store.List(limit)
		}
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved predictions")
			return nil
		}

		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgHiBlack).Sprintf("%s  %s",
				e.CreatedAt.Local().Format(time.DateTime), e.ID))
			view.RenderPredictions(cmd.OutOrStdout(), e.State, e.District, e.Records)
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

func init() {
	warmupCmd.Flags().Bool("serve", false, "Keep the session running after it is ready")

	historyCmd.Flags().Int("limit", 10, "Maximum number of entries (0 for all)")
	historyCmd.Flags().String("state", "", "Only show entries for this state")
	historyCmd.Flags().String("district", "", "Only show entries for this district")
}
