package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/quality"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <employee-id>",
	Short: "Capture guided enrollment frames for an employee",
	Long: `Run the guided five-step capture session (neutral, left, right, up,
down) and write the frames to a directory for ingestion by the face
matching service. Any rejected frame aborts the whole session; partial
enrollments are never written.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("out", "enrollment", "Directory to write captured frames to")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	employeeID := args[0]
	outDir := mustGetString(cmd, "out")

	source := capture.ChainFromConfig(cfg.Kiosk.CaptureCommand, cfg.Kiosk.SnapshotURL, cfg.Kiosk.SpoolDir)
	evaluator := quality.NewEvaluator(cfg.Quality.MinFrameBytes, cfg.Quality.MaxFrameBytes)

	sequencer := capture.NewSequencer(source, evaluator, cfg.CaptureFlow)
	sequencer.OnPrompt = func(step config.CaptureStep) {
		fmt.Printf("  %s\n", step.Prompt)
	}

	fmt.Printf("Enrolling %s: %d guided captures\n", employeeID, len(cfg.CaptureFlow.Steps))

	frames, err := sequencer.Multi5(cmd.Context())
	if err != nil {
		var stepErr *capture.StepError
		if errors.As(err, &stepErr) {
			fmt.Printf("Session aborted at step %q\n", stepErr.Step)
			for _, hint := range quality.Suggestions(stepErr.Score) {
				fmt.Printf("  hint: %s\n", hint)
			}
		}
		return fmt.Errorf("enrollment capture failed: %w", err)
	}

	dir := filepath.Join(outDir, employeeID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating enrollment directory: %w", err)
	}

	for i, frame := range frames {
		name := filepath.Join(dir, fmt.Sprintf("%02d_%s.jpg", i+1, frame.Step))
		if err := os.WriteFile(name, frame.Data, 0o644); err != nil {
			return fmt.Errorf("writing frame %s: %w", name, err)
		}
		fmt.Printf("  %s (score %d, %s)\n", name, frame.Score.Value, frame.Score.Level)
	}

	fmt.Printf("Enrollment complete: %d frames in %s\n", len(frames), dir)
	return nil
}
