package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoSource is returned by a Chain when every configured source failed.
var ErrNoSource = errors.New("no capture source produced a frame")

// Source produces a single frame of raw image bytes from a camera device.
type Source interface {
	Name() string
	Capture(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc struct {
	SourceName string
	Fn         func(ctx context.Context) ([]byte, error)
}

func (s SourceFunc) Name() string { return s.SourceName }

func (s SourceFunc) Capture(ctx context.Context) ([]byte, error) {
	return s.Fn(ctx)
}

// ExecSource captures a frame by running an external command (fswebcam,
// libcamera-still, ...) that writes the image to stdout.
type ExecSource struct {
	Command string
}

func (s *ExecSource) Name() string { return "exec" }

func (s *ExecSource) Capture(ctx context.Context) ([]byte, error) {
	parts := strings.Fields(s.Command)
	if len(parts) == 0 {
		return nil, errors.New("capture command is empty")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...) //nolint:gosec // command comes from operator config
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("capture command failed: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("capture command produced no output")
	}
	return out, nil
}

// SnapshotSource captures a frame by fetching a still image from an IP
// camera's snapshot endpoint.
type SnapshotSource struct {
	URL    string
	Client *http.Client
}

func (s *SnapshotSource) Name() string { return "snapshot" }

func (s *SnapshotSource) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create snapshot request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read snapshot body: %w", err)
	}
	return data, nil
}

// SpoolSource consumes the newest frame dropped into a spool directory by
// an external capture daemon. The file is removed after a successful read.
type SpoolSource struct {
	Dir string
}

func (s *SpoolSource) Name() string { return "spool" }

func (s *SpoolSource) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("could not read spool directory: %w", err)
	}

	var newest string
	var newestTime time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = e.Name()
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return nil, errors.New("spool directory is empty")
	}

	path := filepath.Join(s.Dir, newest)
	data, err := os.ReadFile(path) //nolint:gosec // path constrained to the spool directory
	if err != nil {
		return nil, fmt.Errorf("could not read spooled frame: %w", err)
	}
	_ = os.Remove(path)
	return data, nil
}

// Chain tries a ranked list of sources in order and returns the first
// frame produced. Source failures are collected, not thrown through.
type Chain struct {
	sources []Source
}

// NewChain builds a source chain. Nil sources are skipped.
func NewChain(sources ...Source) *Chain {
	var out []Source
	for _, s := range sources {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Chain{sources: out}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Capture(ctx context.Context) ([]byte, error) {
	var errs []error
	for _, s := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.Capture(ctx)
		if err == nil {
			return data, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	if len(errs) == 0 {
		return nil, ErrNoSource
	}
	return nil, fmt.Errorf("%w: %w", ErrNoSource, errors.Join(errs...))
}

/// ChainFromConfig builds the standard ranked chain from kiosk settings:
// exec command first, snapshot URL second, spool directory last.
func ChainFromConfig(command, snapshotURL, spoolDir string) *Chain {
	var sources []Source
	if command != "" {
		sources = append(sources, &ExecSource{Command: command})
	}
	if snapshotURL != "" {
		sources = append(sources, &SnapshotSource{URL: snapshotURL})
	}
	if spoolDir != "" {
		sources = append(sources, &SpoolSource{Dir: spoolDir})
	}
	return NewChain(sources...)
}
