package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/face-attendance/internal/apiclient"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/kiosk"
	"github.com/kozaktomas/face-attendance/internal/quality"
	"github.com/spf13/cobra"
)

var kioskCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Run a kiosk terminal scan loop",
	Long: `Run the kiosk terminal loop: capture frames from the configured
camera source, gate them on quality, and submit them to the attendance
server for recognition. One recognition attempt is in flight at a time;
extra captures are dropped, never queued.`,
	RunE: runKiosk,
}

func init() {
	rootCmd.AddCommand(kioskCmd)
}

func runKiosk(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Server.URL == "" {
		return errors.New("ATTENDANCE_URL environment variable is required")
	}
	if cfg.Kiosk.DeviceID == "" {
		return errors.New("KIOSK_DEVICE_ID environment variable is required")
	}

	source := capture.ChainFromConfig(cfg.Kiosk.CaptureCommand, cfg.Kiosk.SnapshotURL, cfg.Kiosk.SpoolDir)
	evaluator := quality.NewEvaluator(cfg.Quality.MinFrameBytes, cfg.Quality.MaxFrameBytes)
	sequencer := capture.NewSequencer(source, evaluator, cfg.CaptureFlow)

	client := apiclient.New(cfg.Server.URL)
	if err := client.Health(cmd.Context()); err != nil {
		return fmt.Errorf("attendance server not reachable at %s: %w", cfg.Server.URL, err)
	}

	coordinator := kiosk.NewCoordinator(client, cfg.Kiosk.DeviceID, cfg.Kiosk.RecognitionTimeout, cfg.Kiosk.Cooldown)
	terminal := kiosk.New(sequencer, coordinator, cfg.Kiosk.ScanInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping kiosk...")
		cancel()
	}()

	fmt.Printf("Kiosk %s connected to %s\n", cfg.Kiosk.DeviceID, cfg.Server.URL)

	if err := terminal.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("kiosk loop: %w", err)
	}
	return nil
}
