package services

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"portcontracts/models"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func TestScanPaymentOverdue(t *testing.T) {
	contract := models.Contract{
		ID:         uuid.New(),
		Code:       "HD-01",
		StatusCode: "running",
		Customer:   &models.Customer{ID: 1, Name: "Cảng Hải Phòng"},
		PaymentTerms: []models.PaymentTerm{
			{ID: uuid.New(), BatchLabel: "Đợt 1", AmountValue: d("165000000"), DueDate: datePtr("2025-02-15")},
		},
		Members: []models.ProjectMember{
			{Name: "Minh", Role: models.RolePM},
			{Name: "Hoa", Role: models.RoleAM},
		},
	}

	warnings, err := ScanWarnings([]models.Contract{contract}, date("2025-03-01"), 30, testCatalog())
	if err != nil {
		t.Fatalf("ScanWarnings: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	w := warnings[0]
	if w.Type != models.WarningPaymentOverdue || w.DaysDiff != -14 {
		t.Errorf("got %s/%d, want payment_overdue/-14", w.Type, w.DaysDiff)
	}
	if w.Details != "Đợt 1" || !w.Amount.Equal(d("165000000")) {
		t.Errorf("unexpected details/amount: %q %s", w.Details, w.Amount)
	}
	if w.Pic != "Hoa" {
		t.Errorf("payment pic = %q, want the account manager", w.Pic)
	}
	if w.CustomerName != "Cảng Hải Phòng" || w.ContractCode != "HD-01" {
		t.Errorf("unexpected contract fields: %+v", w)
	}
	if w.Status != models.WarningPending || w.Note != "" {
		t.Errorf("fresh warning should be pending without note: %+v", w)
	}
}

func TestScanAcceptanceHorizon(t *testing.T) {
	members := []models.ProjectMember{{Name: "Hoa", Role: models.RoleAM}, {Name: "Minh", Role: models.RolePM}}
	near := models.Contract{ID: uuid.New(), Code: "HD-02", StatusCode: "running", ExpectedAcceptanceDate: datePtr("2025-03-08"), Members: members}
	far := models.Contract{ID: uuid.New(), Code: "HD-03", StatusCode: "running", ExpectedAcceptanceDate: datePtr("2025-03-20")}

	warnings, err := ScanWarnings([]models.Contract{near, far}, date("2025-03-01"), 10, testCatalog())
	if err != nil {
		t.Fatalf("ScanWarnings: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %+v", warnings)
	}
	w := warnings[0]
	if w.Type != models.WarningAcceptanceUpcoming || w.DaysDiff != 7 || w.ContractID != near.ID {
		t.Errorf("got %s/%d for %s, want acceptance_upcoming/7 for HD-02", w.Type, w.DaysDiff, w.ContractCode)
	}
	if w.Details != AcceptanceDetails || !w.Amount.IsZero() {
		t.Errorf("acceptance warning: details %q amount %s", w.Details, w.Amount)
	}
	if w.Pic != "Minh" {
		t.Errorf("acceptance pic = %q, want the project manager", w.Pic)
	}
}

func TestScanBoundaries(t *testing.T) {
	ref := date("2025-03-01")
	contract := models.Contract{
		ID:                     uuid.New(),
		StatusCode:             "running",
		ExpectedAcceptanceDate: datePtr("2025-02-28"),
		PaymentTerms: []models.PaymentTerm{
			{ID: uuid.New(), BatchLabel: "today", DueDate: datePtr("2025-03-01")},
			{ID: uuid.New(), BatchLabel: "edge", DueDate: datePtr("2025-03-11")},
			{ID: uuid.New(), BatchLabel: "beyond", DueDate: datePtr("2025-03-12")},
			{ID: uuid.New(), BatchLabel: "collected", IsCollected: true, DueDate: datePtr("2025-01-01")},
			{ID: uuid.New(), BatchLabel: "no date"},
		},
	}

	warnings, err := ScanWarnings([]models.Contract{contract}, ref, 10, testCatalog())
	if err != nil {
		t.Fatalf("ScanWarnings: %v", err)
	}
	got := map[string]models.Warning{}
	for _, w := range warnings {
		got[w.Details] = w
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 warnings, got %+v", warnings)
	}
	if w := got[AcceptanceDetails]; w.Type != models.WarningAcceptanceOverdue || w.DaysDiff != -1 {
		t.Errorf("acceptance: %s/%d", w.Type, w.DaysDiff)
	}
	if w := got["today"]; w.Type != models.WarningPaymentUpcoming || w.DaysDiff != 0 {
		t.Errorf("due today: %s/%d", w.Type, w.DaysDiff)
	}
	if w := got["edge"]; w.Type != models.WarningPaymentUpcoming || w.DaysDiff != 10 {
		t.Errorf("horizon edge: %s/%d", w.Type, w.DaysDiff)
	}
}

func TestScanSkipsCompletedAcceptance(t *testing.T) {
	contract := models.Contract{ID: uuid.New(), StatusCode: "accepted", ExpectedAcceptanceDate: datePtr("2025-02-01")}
	warnings, err := ScanWarnings([]models.Contract{contract}, date("2025-03-01"), 30, testCatalog())
	if err != nil {
		t.Fatalf("ScanWarnings: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("completed contract should not raise acceptance warnings: %+v", warnings)
	}
}

func TestScanEmptyContract(t *testing.T) {
	warnings, err := ScanWarnings([]models.Contract{{ID: uuid.New(), StatusCode: "new"}}, date("2025-03-01"), 30, testCatalog())
	if err != nil {
		t.Fatalf("ScanWarnings: %v", err)
	}
	if warnings == nil || len(warnings) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", warnings)
	}
}

func TestScanFallbackBatchLabel(t *testing.T) {
	contract := models.Contract{
		ID: uuid.New(),
		PaymentTerms: []models.PaymentTerm{
			{ID: uuid.New(), BatchLabel: "Tạm ứng", SortOrder: 0, DueDate: datePtr("2025-01-01")},
			{ID: uuid.New(), BatchLabel: "  ", SortOrder: 1, DueDate: datePtr("2025-01-01")},
		},
	}
	warnings, _ := ScanWarnings([]models.Contract{contract}, date("2025-03-01"), 0, testCatalog())
	if len(warnings) != 2 || warnings[1].Details != "Đợt 2" {
		t.Fatalf("expected fallback label Đợt 2, got %+v", warnings)
	}
}

func TestScanDuplicateBatchLabels(t *testing.T) {
	contract := models.Contract{
		ID: uuid.New(),
		PaymentTerms: []models.PaymentTerm{
			{ID: uuid.New(), BatchLabel: "Tạm ứng", SortOrder: 0, DueDate: datePtr("2025-01-01")},
			{ID: uuid.New(), BatchLabel: "Tạm ứng", SortOrder: 1, DueDate: datePtr("2025-02-01")},
		},
	}
	warnings, err := ScanWarnings([]models.Contract{contract}, date("2025-03-01"), 0, testCatalog())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", warnings)
	}
	if warnings[0].ID == warnings[1].ID {
		t.Error("terms with the same label must get distinct ids")
	}
	if warnings[0].TriageKey() != warnings[1].TriageKey() {
		t.Error("terms with the same label must share the triage key")
	}
}

func TestScanIdempotentAndPure(t *testing.T) {
	contracts := []models.Contract{
		{
			ID:                     uuid.New(),
			Code:                   "HD-10",
			StatusCode:             "running",
			ExpectedAcceptanceDate: datePtr("2025-03-05"),
			PaymentTerms: []models.PaymentTerm{
				{ID: uuid.New(), BatchLabel: "Đợt 2", SortOrder: 1, DueDate: datePtr("2025-02-01")},
				{ID: uuid.New(), BatchLabel: "Đợt 1", SortOrder: 0, DueDate: datePtr("2025-01-01")},
			},
		},
	}
	before := contracts[0].PaymentTerms[0].BatchLabel

	first, err := ScanWarnings(contracts, date("2025-03-01"), 30, testCatalog())
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := ScanWarnings(contracts, date("2025-03-01"), 30, testCatalog())
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	SortWarnings(first)
	SortWarnings(second)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("scans differ:\n%+v\n%+v", first, second)
	}
	if contracts[0].PaymentTerms[0].BatchLabel != before {
		t.Error("scan must not reorder or mutate the input")
	}

	ids := map[uuid.UUID]bool{}
	for _, w := range first {
		if w.ID == uuid.Nil {
			t.Errorf("warning without id: %+v", w)
		}
		ids[w.ID] = true
	}
	if len(ids) != len(first) {
		t.Error("warning ids must be unique")
	}
}

func TestScanNegativeHorizon(t *testing.T) {
	if _, err := ScanWarnings(nil, date("2025-03-01"), -1, testCatalog()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestScanWarningsParallel(t *testing.T) {
	var batches [][]models.Contract
	var all []models.Contract
	for b := 0; b < 4; b++ {
		var batch []models.Contract
		for i := 0; i < 5; i++ {
			c := models.Contract{
				ID:         uuid.New(),
				StatusCode: "running",
				PaymentTerms: []models.PaymentTerm{
					{ID: uuid.New(), BatchLabel: "Đợt 1", DueDate: datePtr("2025-02-20")},
				},
			}
			batch = append(batch, c)
			all = append(all, c)
		}
		batches = append(batches, batch)
	}

	parallel, err := ScanWarningsParallel(context.Background(), batches, date("2025-03-01"), 30, testCatalog())
	if err != nil {
		t.Fatalf("ScanWarningsParallel: %v", err)
	}
	sequential, _ := ScanWarnings(all, date("2025-03-01"), 30, testCatalog())
	if len(parallel) != len(sequential) {
		t.Fatalf("parallel %d warnings, sequential %d", len(parallel), len(sequential))
	}
	pIDs := make([]string, 0, len(parallel))
	sIDs := make([]string, 0, len(sequential))
	for i := range parallel {
		pIDs = append(pIDs, parallel[i].ID.String())
		sIDs = append(sIDs, sequential[i].ID.String())
	}
	sort.Strings(pIDs)
	sort.Strings(sIDs)
	if !reflect.DeepEqual(pIDs, sIDs) {
		t.Error("parallel and sequential scans produced different warnings")
	}
}

func TestScanWarningsParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batches := [][]models.Contract{{{ID: uuid.New()}}}
	if _, err := ScanWarningsParallel(ctx, batches, date("2025-03-01"), 30, testCatalog()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
