package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Kiosk.RecognitionTimeout != 3500*time.Millisecond {
		t.Errorf("expected default recognition timeout 3.5s, got %v", cfg.Kiosk.RecognitionTimeout)
	}
	if cfg.Kiosk.Cooldown != 1500*time.Millisecond {
		t.Errorf("expected default cooldown 1.5s, got %v", cfg.Kiosk.Cooldown)
	}
	if cfg.Kiosk.ScanInterval != 2500*time.Millisecond {
		t.Errorf("expected default scan interval 2.5s, got %v", cfg.Kiosk.ScanInterval)
	}
	if cfg.Quality.MinFrameBytes != 4096 {
		t.Errorf("expected default min frame bytes 4096, got %d", cfg.Quality.MinFrameBytes)
	}
	if cfg.Matcher.MinConfidence != 0.75 {
		t.Errorf("expected default min confidence 0.75, got %f", cfg.Matcher.MinConfidence)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KIOSK_RECOGNITION_TIMEOUT", "5s")
	t.Setenv("KIOSK_COOLDOWN", "2s")
	t.Setenv("QUALITY_MIN_FRAME_BYTES", "1024")

	cfg := Load()

	if cfg.Kiosk.RecognitionTimeout != 5*time.Second {
		t.Errorf("expected overridden timeout 5s, got %v", cfg.Kiosk.RecognitionTimeout)
	}
	if cfg.Kiosk.Cooldown != 2*time.Second {
		t.Errorf("expected overridden cooldown 2s, got %v", cfg.Kiosk.Cooldown)
	}
	if cfg.Quality.MinFrameBytes != 1024 {
		t.Errorf("expected overridden min frame bytes 1024, got %d", cfg.Quality.MinFrameBytes)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("KIOSK_COOLDOWN", "not-a-duration")
	t.Setenv("QUALITY_MIN_FRAME_BYTES", "-5")

	cfg := Load()

	if cfg.Kiosk.Cooldown != 1500*time.Millisecond {
		t.Errorf("expected fallback cooldown 1.5s, got %v", cfg.Kiosk.Cooldown)
	}
	if cfg.Quality.MinFrameBytes != 4096 {
		t.Errorf("expected fallback min frame bytes 4096, got %d", cfg.Quality.MinFrameBytes)
	}
}

func TestCaptureFlow_Embedded(t *testing.T) {
	cfg := Load()

	if len(cfg.CaptureFlow.Steps) != 5 {
		t.Fatalf("expected 5 capture steps, got %d", len(cfg.CaptureFlow.Steps))
	}
	if cfg.CaptureFlow.Steps[0].Name != "neutral" {
		t.Errorf("expected first step 'neutral', got '%s'", cfg.CaptureFlow.Steps[0].Name)
	}
	if cfg.CaptureFlow.SettleDelay() != 1200*time.Millisecond {
		t.Errorf("expected settle delay 1.2s, got %v", cfg.CaptureFlow.SettleDelay())
	}
}
