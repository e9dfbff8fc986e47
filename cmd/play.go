package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vmacro/internal/action"
	"vmacro/internal/config"
	"vmacro/internal/history"
	"vmacro/internal/input"
	"vmacro/internal/osutils"
	"vmacro/internal/playback"
	"vmacro/internal/protocol"
	"vmacro/internal/queue"
	"vmacro/internal/tray"
)

// playFlags holds the play command's flag values
type playFlags struct {
	repeat    uint32
	forTime   string
	verify    bool
	onFailure string
	fallback  string
	dryRun    bool
	showTray  bool
	tolerance int
}

func (a *app) playCmd() *cobra.Command {
	var f playFlags
	cmd := &cobra.Command{
		Use:   "play <recording>...",
		Short: "Play one or more recordings in order",
		Long: `Play recordings one after another. Each file becomes a queue item
with the same repeat and failure policy.

Examples:
  vmacro play login.vmr
  vmacro play login.vmr export.vmr --repeat 3 --verify
  vmacro play farm.vmr --for 30m --on-failure fallback --fallback reset.vmr
  vmacro play login.vmr --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfgMgr.Get()
			if !cmd.Flags().Changed("verify") {
				f.verify = cfg.Playback.VerifyClickZones
			}
			if !cmd.Flags().Changed("on-failure") {
				f.onFailure = cfg.Playback.OnFailure
			}
			if !cmd.Flags().Changed("fallback") {
				f.fallback = cfg.Playback.FallbackPath
			}
			if !cmd.Flags().Changed("tolerance") {
				f.tolerance = cfg.Playback.Tolerance
			}
			if f.dryRun && f.verify {
				log.Println("Warning: --dry-run disables click-zone verification")
				f.verify = false
			}

			codec := protocol.Codec{Bounds: a.screenBounds(), AllowUnsampled: !f.verify}
			var fallback *action.Recording
			if policy, _ := playback.ParseFailurePolicy(f.onFailure); policy == playback.RunFallback && f.fallback != "" {
				// A fallback always plays with verification
				var err error
				fallback, err = loadRecording(f.fallback, protocol.Codec{Bounds: codec.Bounds})
				if err != nil {
					return fmt.Errorf("fallback: %w", err)
				}
			}
			opts, err := f.options(fallback)
			if err != nil {
				return err
			}

			devices := playback.Devices{Injector: input.NewInjector(), Colors: input.NewColorReader()}
			if f.dryRun {
				devices.Injector = input.NewDryRunInjector()
			}
			orch := queue.New(devices, queue.WithSessionOptions(
				playback.WithTolerance(f.tolerance),
				playback.WithPollInterval(cfg.Playback.PollInterval()),
			))

			for _, path := range args {
				rec, err := loadRecording(path, codec)
				if err != nil {
					return err
				}
				orch.Add(filepath.Base(path), rec, opts)
			}

			if cfg.History.Enabled {
				closeHistory, err := trackHistory(orch, cfg.History)
				if err != nil {
					log.Printf("Warning: history disabled: %v", err)
				} else {
					defer closeHistory()
				}
			}

			if !f.dryRun {
				if err := osutils.WakeDisplay(); err != nil && !errors.Is(err, osutils.ErrUnsupportedPlatform) {
					log.Printf("Warning: failed to wake display: %v", err)
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			start := time.Now()
			if f.showTray {
				err = runWithTray(ctx, orch)
			} else {
				err = orch.Run(ctx)
			}
			printPlaySummary(cmd, orch.Status(), time.Since(start))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().Uint32Var(&f.repeat, "repeat", 1, "Times to play each recording, 0 = until stopped")
	cmd.Flags().StringVar(&f.forTime, "for", "", "Keep replaying for a duration such as 90s, 5m or 2h (overrides --repeat)")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "Verify screen colors under clicks inside click zones")
	cmd.Flags().StringVar(&f.onFailure, "on-failure", "stop", "What to do when an item fails: stop, continue or fallback")
	cmd.Flags().StringVar(&f.fallback, "fallback", "", "Recording played once when an item fails with --on-failure fallback")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Log actions instead of injecting them")
	cmd.Flags().BoolVar(&f.showTray, "tray", false, "Show a tray icon with Pause, Resume and Stop")
	cmd.Flags().IntVar(&f.tolerance, "tolerance", playback.DefaultTolerance, "Per-channel color tolerance for verification")
	return cmd
}

// options builds the playback options shared by every queued item
func (f playFlags) options(fallback *action.Recording) (playback.Options, error) {
	opts := []playback.Option{playback.WithVerification(f.verify)}
	if f.forTime != "" {
		n, unit, err := playback.ParseRepeatFor(f.forTime)
		if err != nil {
			return playback.Options{}, err
		}
		opts = append(opts, playback.RepeatFor(n, unit))
	} else {
		opts = append(opts, playback.RepeatCount(f.repeat))
	}

	policy, err := playback.ParseFailurePolicy(f.onFailure)
	if err != nil {
		return playback.Options{}, err
	}
	switch policy {
	case playback.Continue:
		opts = append(opts, playback.OnFailureContinue())
	case playback.RunFallback:
		opts = append(opts, playback.OnFailureFallback(fallback))
	default:
		opts = append(opts, playback.OnFailureStop())
	}
	return playback.NewOptions(opts...)
}

// trackHistory records every queue item in the history database.
// The returned func marks an interrupted item as stopped and closes the store.
func trackHistory(orch *queue.Orchestrator, cfg config.HistoryConfig) (func(), error) {
	path, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	store, err := history.OpenAt(path)
	if err != nil {
		return nil, err
	}
	return recordRuns(orch, store), nil
}

func recordRuns(orch *queue.Orchestrator, store history.Store) func() {
	var (
		mu      sync.Mutex
		current string
	)
	settle := func(id, status string, err error) {
		mu.Lock()
		if current == id {
			current = ""
		}
		mu.Unlock()
		if ferr := store.Finish(id, status, err); ferr != nil {
			log.Printf("History: %v", ferr)
		}
	}

	orch.SetOnItemStarted(func(id, name string) {
		mu.Lock()
		current = id
		mu.Unlock()
		if _, err := store.Start(id, name); err != nil {
			log.Printf("History: %v", err)
		}
	})
	orch.SetOnItemFinished(func(id string) {
		settle(id, history.StatusSuccess, nil)
	})
	orch.SetOnItemFailed(func(id string, err error) {
		settle(id, history.StatusFailed, err)
	})

	return func() {
		mu.Lock()
		id := current
		mu.Unlock()
		if id != "" {
			settle(id, history.StatusStopped, nil)
		}
		if err := store.Close(); err != nil {
			log.Printf("History: %v", err)
		}
	}
}

// runWithTray runs the queue in the background while the tray owns the main goroutine
func runWithTray(ctx context.Context, orch *queue.Orchestrator) error {
	t := tray.NewPlayback(orch, 500*time.Millisecond)
	errCh := make(chan error, 1)
	go func() {
		err := orch.Run(ctx)
		t.Stop()
		errCh <- err
	}()
	t.Run()
	// The tray may quit before the queue, e.g. when its icon is closed
	if orch.Status().Running {
		orch.Stop()
	}
	return <-errCh
}

func printPlaySummary(cmd *cobra.Command, st queue.Status, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Playback finished"))
	fmt.Fprintln(out, field("succeeded", okStyle.Render(fmt.Sprint(st.Finished))))
	failed := fmt.Sprint(st.Failed)
	if st.Failed > 0 {
		failed = errStyle.Render(failed)
	}
	fmt.Fprintln(out, field("failed", failed))
	fmt.Fprintln(out, field("elapsed", formatDuration(elapsed)))
}
