package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/quality"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

func newRecognizeHandler(ledger *mock.Ledger, directory database.EmployeeDirectory, matcher recognizer.Matcher) *RecognizeHandler {
	service := attendance.NewService(ledger, time.UTC)
	evaluator := quality.NewEvaluator(1, 8<<20)
	h := NewRecognizeHandler(evaluator, matcher, service, directory)
	h.now = func() time.Time { return testDay }
	return h
}

func postRecognize(t *testing.T, h *RecognizeHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", "/attendance/recognize", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	h.Recognize(recorder, req)
	return recorder
}

func TestRecognize_MatchRecordsCheckIn(t *testing.T) {
	ledger := mock.NewLedger()
	directory := mock.NewDirectory(database.Employee{
		ID: "E42", FullName: "JANA NOVAKOVA", DisplayName: "Jana Novakova", Active: true,
	})
	matcher := &fakeMatcher{match: &recognizer.Match{EmployeeID: "E42", Confidence: 0.93}}
	h := newRecognizeHandler(ledger, directory, matcher)

	frame := encodePNG(t, 320, 320)
	recorder := postRecognize(t, h, recognizeRequest{
		Frame:  base64.StdEncoding.EncodeToString(frame),
		Action: "auto",
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var result recognizeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !result.Matched || result.EmployeeID != "E42" {
		t.Fatalf("expected match for E42, got %+v", result)
	}
	if result.Employee != "Jana Novakova" {
		t.Errorf("expected display name, got %q", result.Employee)
	}
	if result.Attendance == nil || result.Attendance.Status != database.StatusCheckedIn {
		t.Errorf("expected checked-in record, got %+v", result.Attendance)
	}

	rec, _ := ledger.GetForDate(t.Context(), "E42", "2026-03-09")
	if rec == nil {
		t.Error("ledger record was not written")
	}
}

func TestRecognize_SecondAutoCompletesDay(t *testing.T) {
	ledger := mock.NewLedger()
	matcher := &fakeMatcher{match: &recognizer.Match{EmployeeID: "E42", Confidence: 0.93}}
	h := newRecognizeHandler(ledger, nil, matcher)

	frame := base64.StdEncoding.EncodeToString(encodePNG(t, 320, 320))
	postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})

	h.now = func() time.Time { return testDay.Add(8 * time.Hour) }
	recorder := postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})

	var result recognizeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result.Attendance == nil || result.Attendance.Status != database.StatusCompleted {
		t.Fatalf("expected completed record, got %+v", result.Attendance)
	}
	if result.Attendance.HoursWorked == nil || *result.Attendance.HoursWorked != 8.0 {
		t.Errorf("expected 8 hours worked, got %v", result.Attendance.HoursWorked)
	}
}

func TestRecognize_ThirdAutoIsConflict(t *testing.T) {
	ledger := mock.NewLedger()
	matcher := &fakeMatcher{match: &recognizer.Match{EmployeeID: "E42", Confidence: 0.93}}
	h := newRecognizeHandler(ledger, nil, matcher)

	frame := base64.StdEncoding.EncodeToString(encodePNG(t, 320, 320))
	postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})
	h.now = func() time.Time { return testDay.Add(8 * time.Hour) }
	postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})
	recorder := postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	var result recognizeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !result.Matched {
		t.Error("conflict response must still report the face as matched")
	}
	if result.Conflict != attendance.ConflictAlreadyCompleted {
		t.Errorf("expected alreadyCompleted conflict, got %+v", result)
	}
	if result.Attendance != nil {
		t.Error("conflict must not carry a mutated record")
	}
}

func TestRecognize_NoMatch(t *testing.T) {
	matcher := &fakeMatcher{err: recognizer.ErrNoMatch}
	h := newRecognizeHandler(mock.NewLedger(), nil, matcher)

	frame := base64.StdEncoding.EncodeToString(encodePNG(t, 320, 320))
	recorder := postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	var result recognizeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result.Matched {
		t.Error("expected matched false")
	}
	if len(result.Suggestions) == 0 {
		t.Error("no-match response should carry retry suggestions")
	}
}

func TestRecognize_PoorFrameRejectedBeforeMatching(t *testing.T) {
	matcher := &fakeMatcher{match: &recognizer.Match{EmployeeID: "E42", Confidence: 0.93}}
	h := newRecognizeHandler(mock.NewLedger(), nil, matcher)

	// Valid base64 but not a decodable image.
	recorder := postRecognize(t, h, recognizeRequest{
		Frame:  base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x7f}, 8192)),
		Action: "auto",
	})

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for rejected frame, got %d", recorder.Code)
	}
}

func TestRecognize_InvalidBase64(t *testing.T) {
	h := newRecognizeHandler(mock.NewLedger(), nil, &fakeMatcher{})

	recorder := postRecognize(t, h, recognizeRequest{Frame: "not base64!!!", Action: "auto"})

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", recorder.Code)
	}
}

func TestRecognize_InactiveEmployee(t *testing.T) {
	ledger := mock.NewLedger()
	directory := mock.NewDirectory(database.Employee{
		ID: "E13", FullName: "FORMER EMPLOYEE", DisplayName: "Former Employee", Active: false,
	})
	matcher := &fakeMatcher{match: &recognizer.Match{EmployeeID: "E13", Confidence: 0.95}}
	h := newRecognizeHandler(ledger, directory, matcher)

	frame := base64.StdEncoding.EncodeToString(encodePNG(t, 320, 320))
	recorder := postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	var result recognizeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result.Matched {
		t.Error("inactive employee must not be reported as matched")
	}

	rec, _ := ledger.GetForDate(t.Context(), "E13", "2026-03-09")
	if rec != nil {
		t.Error("inactive employee must not produce a ledger record")
	}
}

func TestRecognize_MatcherDown(t *testing.T) {
	matcher := &fakeMatcher{err: errors.New("connection refused")}
	h := newRecognizeHandler(mock.NewLedger(), nil, matcher)

	frame := base64.StdEncoding.EncodeToString(encodePNG(t, 320, 320))
	recorder := postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})

	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("matcher outage must be 503, got %d", recorder.Code)
	}
}

func TestRecognize_LedgerDown(t *testing.T) {
	ledger := mock.NewLedger()
	ledger.Fail = true
	matcher := &fakeMatcher{match: &recognizer.Match{EmployeeID: "E42", Confidence: 0.93}}
	h := newRecognizeHandler(ledger, nil, matcher)

	frame := base64.StdEncoding.EncodeToString(encodePNG(t, 320, 320))
	recorder := postRecognize(t, h, recognizeRequest{Frame: frame, Action: "auto"})

	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("ledger outage must be 503, got %d", recorder.Code)
	}
}
