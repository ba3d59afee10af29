package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/dops/pkg/api"
	"github.com/cuemby/dops/pkg/events"
	"github.com/cuemby/dops/pkg/log"
	"github.com/cuemby/dops/pkg/progress"
	"github.com/cuemby/dops/pkg/session"
	"github.com/cuemby/dops/pkg/types"
	"github.com/cuemby/dops/pkg/view"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// runtime is a started session plus the surfaces attached to it
type runtime struct {
	sess   *session.Session
	status *api.StatusServer
	errCh  chan error
	done   chan struct{}
}

// signalContext is canceled on Ctrl+C or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// startSession builds and starts a session from the command's flags and
// waits until it is ready or has failed
func startSession(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(cfg, session.Deps{})
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		sess:  sess,
		errCh: make(chan error, 1),
		done:  make(chan struct{}),
	}

	if addr, _ := cmd.Flags().GetString("status-addr"); addr != "" {
		rt.status = api.NewStatusServer(sess)
		go func() {
			if err := rt.status.Start(addr); err != nil {
				rt.errCh <- fmt.Errorf("status server error: %w", err)
			}
		}()
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	if quiet {
		close(rt.done)
	} else {
		sub := sess.Subscribe(
			events.EventProgressUpdated,
			events.EventPhaseChanged,
			events.EventRecoveryStarted,
			events.EventSessionReady,
			events.EventSessionFailed,
		)
		go func() {
			defer close(rt.done)
			render(cmd.ErrOrStderr(), progress.NewPlan(cfg.Timings), sub)
		}()
	}

	if err := sess.Start(); err != nil {
		rt.close()
		return nil, err
	}

	st, err := sess.WaitSettled(ctx)
	if err != nil {
		rt.close()
		return nil, err
	}
	if st.Phase == types.PhaseFailed {
		rt.close()
		return nil, session.ErrServiceUnavailable
	}

	return rt, nil
}

// close tears the session down and waits for the renderer to finish
func (rt *runtime) close() {
	// closes the renderer's subscription too
	rt.sess.Close()

	if rt.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.status.Shutdown(ctx); err != nil {
			log.Logger.Warn().Err(err).Msg("Status server shutdown failed")
		}
	}

	<-rt.done
}

// render prints warm-up progress until the subscription is closed. On a
// terminal the status line is redrawn in place; otherwise one line is
// written per phase change.
func render(w io.Writer, plan progress.Plan, sub events.Subscriber) {
	interactive := !color.NoColor
	lastPhase, lastIndex := types.Phase(""), -1

	for ev := range sub {
		st := ev.State
		if ev.Type == events.EventProgressUpdated {
			if interactive {
				fmt.Fprintf(w, "\r\033[K%s", view.StatusLine(plan, st))
				continue
			}
			if st.PhaseIndex == lastIndex && st.Phase == lastPhase {
				continue
			}
		}

		lastPhase, lastIndex = st.Phase, st.PhaseIndex
		if interactive {
			fmt.Fprintf(w, "\r\033[K%s", view.StatusLine(plan, st))
			if ev.Type == events.EventSessionReady || ev.Type == events.EventSessionFailed {
				fmt.Fprintln(w)
			}
			continue
		}
		fmt.Fprintln(w, view.StatusLine(plan, st))
	}
}
