package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func TestResolver_NoRecord(t *testing.T) {
	resolver := NewResolver(mock.NewLedger(), time.UTC)

	state, err := resolver.Today(context.Background(), "E1")
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}

	if !state.CanCheckIn || state.CanCheckOut {
		t.Errorf("expected canCheckIn only, got checkIn=%v checkOut=%v", state.CanCheckIn, state.CanCheckOut)
	}
	if state.Status != database.StatusNotChecked {
		t.Errorf("expected NOT_CHECKED, got %s", state.Status)
	}
	if state.Record != nil {
		t.Error("expected no record")
	}
}

func TestResolver_CheckedIn(t *testing.T) {
	ledger := mock.NewLedger()
	resolver := NewResolver(ledger, time.UTC)
	svc := NewService(ledger, time.UTC)

	now := time.Now().UTC()
	if _, err := svc.RecordCheckIn(context.Background(), "E1", now); err != nil {
		t.Fatal(err)
	}

	state, err := resolver.Today(context.Background(), "E1")
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}

	if state.CanCheckIn || !state.CanCheckOut {
		t.Errorf("expected canCheckOut only, got checkIn=%v checkOut=%v", state.CanCheckIn, state.CanCheckOut)
	}
	if state.Status != database.StatusCheckedIn {
		t.Errorf("expected CHECKED_IN, got %s", state.Status)
	}
	if state.Record == nil || state.Record.CheckInTime == nil {
		t.Error("expected record with check-in time")
	}
}

func TestResolver_Completed(t *testing.T) {
	ledger := mock.NewLedger()
	resolver := NewResolver(ledger, time.UTC)
	svc := NewService(ledger, time.UTC)

	now := time.Now().UTC().Add(-2 * time.Hour)
	ctx := context.Background()
	if _, err := svc.RecordCheckIn(ctx, "E1", now); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordCheckOut(ctx, "E1", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	state, err := resolver.Today(ctx, "E1")
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}

	if state.CanCheckIn || state.CanCheckOut {
		t.Error("completed day must allow neither action")
	}
	if state.Status != database.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", state.Status)
	}
}

func TestResolver_UnavailableIsExplicit(t *testing.T) {
	ledger := mock.NewLedger()
	ledger.Fail = true
	resolver := NewResolver(ledger, time.UTC)

	state, err := resolver.Today(context.Background(), "E1")

	// Callers must never see a guessed default on resolver failure.
	if !errors.Is(err, database.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if state.CanCheckIn || state.CanCheckOut {
		t.Error("failed resolution must not permit any action")
	}
}
