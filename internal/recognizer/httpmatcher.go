package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultMatcherURL = "http://localhost:8000"

// HTTPMatcher is a client for the face matching service's HTTP API.
// Requests carry the caller's context, so a timeout or cancel aborts the
// connection at the network level instead of leaving it dangling.
type HTTPMatcher struct {
	baseURL       string
	minConfidence float64
	client        *http.Client
}

// NewHTTPMatcher creates a matcher client. Matches below minConfidence
// are reported as ErrNoMatch.
func NewHTTPMatcher(baseURL string, minConfidence float64) *HTTPMatcher {
	if baseURL == "" {
		baseURL = defaultMatcherURL
	}
	return &HTTPMatcher{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		minConfidence: minConfidence,
		client:        &http.Client{},
	}
}

func (m *HTTPMatcher) Name() string {
	return "http"
}

// matchRequest is the wire format of the matching service.
type matchRequest struct {
	Image string `json:"image"` // base64 encoded frame
}

type matchResponse struct {
	Matched    bool    `json:"matched"`
	EmployeeID string  `json:"employee_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Match submits a frame and returns the resolved identity.
func (m *HTTPMatcher) Match(ctx context.Context, frame []byte) (*Match, error) {
	reqBody, err := json.Marshal(matchRequest{
		Image: base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal match request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/match", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("could not create match request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach matching service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("matching service returned status %d: %s", resp.StatusCode, body)
	}

	var result matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not decode match response: %w", err)
	}

	if !result.Matched || result.EmployeeID == "" {
		return nil, ErrNoMatch
	}
	if result.Confidence < m.minConfidence {
		return nil, fmt.Errorf("%w: confidence %.2f below threshold %.2f", ErrNoMatch, result.Confidence, m.minConfidence)
	}

	return &Match{EmployeeID: result.EmployeeID, Confidence: result.Confidence}, nil
}
