package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"portcontracts/models"
	"portcontracts/utils"
)

func warningFixture() (*memContractRepo, uuid.UUID) {
	id := uuid.New()
	repo := newMemContractRepo(models.Contract{
		ID:                     id,
		Code:                   "HD-100",
		StatusCode:             "in_progress",
		ExpectedAcceptanceDate: datePtr("2025-03-08"),
		PaymentTerms: []models.PaymentTerm{
			{ID: uuid.New(), BatchLabel: "Đợt 1", AmountValue: d("1000"), DueDate: datePtr("2025-02-15")},
			{ID: uuid.New(), BatchLabel: "Đợt 2", AmountValue: d("2000"), DueDate: datePtr("2025-06-01")},
		},
	})
	return repo, id
}

func TestWarningServiceListAndTriage(t *testing.T) {
	repo, contractID := warningFixture()
	store := newMemTriageStore()
	svc := NewWarningService(repo, testLookups(), store, 30, time.UTC, utils.NewMetrics())
	ctx := context.Background()

	warnings, err := svc.List(ctx, WarningQueryDTO{Date: "2025-03-01"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", warnings)
	}
	if warnings[0].Type != models.WarningPaymentOverdue || warnings[1].Type != models.WarningAcceptanceUpcoming {
		t.Errorf("warnings should be sorted by urgency: %s, %s", warnings[0].Type, warnings[1].Type)
	}

	triage, err := svc.Triage(ctx, TriageDTO{
		ContractID: contractID,
		Type:       string(models.WarningPaymentOverdue),
		Details:    "Đợt 1",
		Status:     "processing",
		Note:       "khách hẹn tuần sau",
	}, "alice")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if triage.UpdatedBy != "alice" {
		t.Errorf("UpdatedBy = %q", triage.UpdatedBy)
	}

	warnings, err = svc.List(ctx, WarningQueryDTO{Date: "2025-03-01", Status: "processing"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Note != "khách hẹn tuần sau" {
		t.Fatalf("triage should survive a rescan: %+v", warnings)
	}

	horizon := 5
	warnings, err = svc.List(ctx, WarningQueryDTO{Date: "2025-03-01", Horizon: &horizon, Type: "acceptance_upcoming"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("acceptance in 7 days is outside a 5 day horizon: %+v", warnings)
	}
}

func TestWarningServiceRejectsBadInput(t *testing.T) {
	repo, contractID := warningFixture()
	svc := NewWarningService(repo, testLookups(), newMemTriageStore(), 30, time.UTC, nil)
	ctx := context.Background()

	if _, err := svc.List(ctx, WarningQueryDTO{Date: "yesterday"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad date: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.List(ctx, WarningQueryDTO{Type: "late"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad type: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Triage(ctx, TriageDTO{ContractID: contractID, Type: "payment_overdue", Details: "Đợt 1", Status: "archived"}, "alice"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad status: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Triage(ctx, TriageDTO{ContractID: uuid.New(), Type: "payment_overdue", Details: "Đợt 1", Status: "resolved"}, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown contract: expected ErrNotFound, got %v", err)
	}
}

type recordingNotifier struct {
	calls    int
	warnings []models.Warning
	err      error
}

func (n *recordingNotifier) SendWarningDigest(warnings []models.Warning, _ time.Time) error {
	n.calls++
	n.warnings = warnings
	return n.err
}

func TestWarningSchedulerRunOnce(t *testing.T) {
	repo, _ := warningFixture()
	svc := NewWarningService(repo, testLookups(), newMemTriageStore(), 36500, time.UTC, nil)
	notifier := &recordingNotifier{}
	scheduler := NewWarningSchedulerService(svc, notifier, time.Hour)

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier called %d times", notifier.calls)
	}
	// горизонт в сто лет покрывает оба этапа и приемку, какая бы ни была текущая дата
	if len(notifier.warnings) != 3 {
		t.Errorf("expected 3 warnings, got %d", len(notifier.warnings))
	}

	notifier.err = errors.New("smtp down")
	if err := scheduler.RunOnce(context.Background()); err == nil {
		t.Error("notifier error should be returned")
	}
}

func TestWarningSchedulerStopsWithContext(t *testing.T) {
	repo, _ := warningFixture()
	svc := NewWarningService(repo, testLookups(), newMemTriageStore(), 30, time.UTC, nil)
	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewWarningSchedulerService(svc, nil, 10*time.Millisecond)
	scheduler.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
}
