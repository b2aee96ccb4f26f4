package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"portcontracts/models"
)

func TestBuildInvoiceDocument(t *testing.T) {
	contract := &models.Contract{
		ID:         uuid.New(),
		Code:       "HD-2025-07",
		CustomerID: 12,
		Customer:   &models.Customer{ID: 12, Name: "Cảng Cát Lái"},
		VatRate:    d("10"),
	}
	term := &models.PaymentTerm{
		ID:           uuid.New(),
		BatchLabel:   "Đợt 1",
		Description:  "Tạm ứng",
		RatioPercent: d("30"),
		AmountValue:  d("165000000"),
	}

	doc, err := BuildInvoiceDocument(contract, term, time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("BuildInvoiceDocument: %v", err)
	}

	checks := map[string]string{
		"//TTChung/SHDong": "HD-2025-07",
		"//TTChung/NLap":   "2025-03-01",
		"//NMua/Ten":       "Cảng Cát Lái",
		"//NMua/MKHang":    "12",
		"//HHDVu/THHDVu":   "Đợt 1 - Tạm ứng",
		"//TToan/TgTCThue": "150000000",
		"//TToan/TgTThue":  "15000000",
		"//TToan/TgTTTBSo": "165000000",
		"//HHDVu/TSuat":    "10%",
	}
	for path, want := range checks {
		el := doc.FindElement(path)
		if el == nil {
			t.Errorf("%s: element missing", path)
			continue
		}
		if got := el.Text(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
}

func TestSplitVatSumsUp(t *testing.T) {
	for _, total := range []string{"1", "100", "333333333", "165000001"} {
		base, tax := splitVat(d(total), d("8"))
		if !base.Add(tax).Equal(d(total)) {
			t.Errorf("base %s + tax %s != %s", base, tax, total)
		}
	}
}

type invoiceRepo struct {
	ContractRepository
	contract *models.Contract
	exported []uuid.UUID
}

func (r *invoiceRepo) GetContract(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	if r.contract == nil || r.contract.ID != id {
		return nil, ErrNotFound
	}
	return r.contract, nil
}

func (r *invoiceRepo) UpdateInvoiceStatus(_ context.Context, _, termID uuid.UUID, _ models.InvoiceStatus) error {
	r.exported = append(r.exported, termID)
	return nil
}

func TestExportPaymentTermMarksExported(t *testing.T) {
	termID := uuid.New()
	repo := &invoiceRepo{contract: &models.Contract{
		ID:           uuid.New(),
		Code:         "HD-1",
		VatRate:      d("10"),
		PaymentTerms: []models.PaymentTerm{{ID: termID, BatchLabel: "Đợt 1", AmountValue: d("110")}},
	}}
	svc := NewInvoiceService(repo)

	data, err := svc.ExportPaymentTerm(context.Background(), repo.contract.ID, termID)
	if err != nil {
		t.Fatalf("ExportPaymentTerm: %v", err)
	}
	if !strings.HasPrefix(string(data), "<?xml") {
		t.Errorf("unexpected output: %s", data)
	}
	parsed := etree.NewDocument()
	if err := parsed.ReadFromBytes(data); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	if len(repo.exported) != 1 || repo.exported[0] != termID {
		t.Errorf("term should be marked exported, got %v", repo.exported)
	}

	if _, err := svc.ExportPaymentTerm(context.Background(), repo.contract.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown term: expected ErrNotFound, got %v", err)
	}
}
