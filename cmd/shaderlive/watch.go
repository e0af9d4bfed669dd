package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/shaderlive"
	"github.com/gogpu/shaderlive/program"
	"github.com/gogpu/shaderlive/reload"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		name   string
		frames int
	)
	cmd := &cobra.Command{
		Use:   "watch <vertex> <fragment>",
		Short: "Build a shader program and rebuild it on every edit",
		Long: `Watch loads a program and runs a frame loop that applies file changes
once per frame until interrupted. Every rebuild is reported; a failed one
keeps the previous program.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = programName(args[1])
			}
			fps := a.v.GetInt(keyFPS)
			if fps <= 0 {
				return fmt.Errorf("fps must be positive, got %d", fps)
			}

			out := cmd.OutOrStdout()
			ws, err := a.workspace(shaderlive.WithListener(program.ListenerFunc(func(e program.CompileEvent) {
				printEvent(out, e)
			})))
			if err != nil {
				return err
			}
			defer ws.Close()
			if !ws.Watching() {
				a.logger.Warn("file watching unavailable; edits will not be picked up")
			}

			ws.Load(name, args[0], args[1])
			ws.Registry().Use(name)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				sigs := make(chan os.Signal, 1)
				signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
				defer signal.Stop(sigs)
				select {
				case s := <-sigs:
					a.logger.Info("stopping", "signal", s.String())
					cancel()
				case <-ctx.Done():
				}
				return nil
			})

			g.Go(func() error {
				defer cancel()
				ticker := time.NewTicker(time.Second / time.Duration(fps))
				defer ticker.Stop()
				for n := 0; frames == 0 || n < frames; n++ {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if rebuilt := ws.Frame(); rebuilt > 0 {
							a.logger.Debug("frame applied changes", "frame", n, "programs", rebuilt)
						}
					}
				}
				return nil
			})

			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "program name (default: fragment file name)")
	cmd.Flags().Int("fps", 60, "frames per second of the reload loop")
	cmd.Flags().Int("queue-size", reload.DefaultQueueSize, "capacity of the reload queue")
	cmd.Flags().IntVar(&frames, "frames", 0, "stop after this many frames (0 runs until interrupted)")
	_ = a.v.BindPFlag(keyFPS, cmd.Flags().Lookup("fps"))
	_ = a.v.BindPFlag(keyQueueSize, cmd.Flags().Lookup("queue-size"))
	return cmd
}
