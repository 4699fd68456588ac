package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/recorderctl/internal/audio"
	"github.com/audiolibrelab/recorderctl/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record [path]",
	Short: "Record to a file until interrupted",
	Long: `Prepare the engine, start recording and wait for Ctrl+C.
On interrupt the recording is stopped and the recorder destroyed.
The command also returns when the engine ends the recording itself,
for example once max_duration is reached.
Without a path, a uuid-named file is created in the output directory.
SIGUSR1 toggles pause and resume.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if dir, _ := cmd.Flags().GetString("output"); dir != "" {
			cfg.Output.Directory = dir
		}
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		path := cfg.NewRecordingPath()
		if len(args) == 1 {
			path = args[0]
		}

		svc, _ := service.NewSimulated(cfg)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		defer func() {
			if err := svc.Close(context.Background()); err != nil {
				slog.Error("Failed to clean up recorder", "error", err)
			}
		}()

		resolved, err := svc.Prepare(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to prepare recording: %w", err)
		}
		if _, err := svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		slog.Info("Recording... Press Ctrl+C to stop", "path", resolved)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
		defer signal.Stop(sigChan)

	wait:
		for {
			select {
			case sig := <-sigChan:
				if sig != syscall.SIGUSR1 {
					break wait
				}
				if err := togglePause(ctx, svc); err != nil {
					slog.Error("Failed to toggle pause", "error", err)
				}
			case end := <-svc.Ended():
				if end.Path != resolved {
					continue
				}
				if end.Metadata == nil {
					return fmt.Errorf("recording aborted by engine: %s", end.Code)
				}
				printRecording(end.Metadata)
				return nil
			}
		}

		slog.Info("Stopping recording...")
		meta, err := svc.Stop(ctx)
		if err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		printRecording(meta)
		return nil
	},
}

func printRecording(meta *audio.RecordingMetadata) {
	fmt.Printf("Recorded %s (%s, %d bytes)\n", meta.Path, meta.Duration, meta.Size)
}

func togglePause(ctx context.Context, svc service.Service) error {
	if svc.GetStatus().State == audio.StatePaused {
		slog.Info("Resuming recording")
		return svc.Resume(ctx)
	}
	slog.Info("Pausing recording")
	return svc.Pause(ctx)
}

func init() {
	recordCmd.Flags().StringP("output", "o", "", "output directory (overrides config)")
}
