package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portcontracts/models"
	"portcontracts/utils"
)

// InvoiceService выгружает счет по этапу оплаты в XML электронного счета-фактуры
type InvoiceService struct {
	repo ContractRepository
	now  func() time.Time
}

// NewInvoiceService создает новый экземпляр InvoiceService
func NewInvoiceService(repo ContractRepository) *InvoiceService {
	return &InvoiceService{repo: repo, now: time.Now}
}

// ExportPaymentTerm формирует XML счета по этапу и отмечает этап как выгруженный
func (s *InvoiceService) ExportPaymentTerm(ctx context.Context, contractID, termID uuid.UUID) ([]byte, error) {
	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	var term *models.PaymentTerm
	for i := range contract.PaymentTerms {
		if contract.PaymentTerms[i].ID == termID {
			term = &contract.PaymentTerms[i]
			break
		}
	}
	if term == nil {
		return nil, fmt.Errorf("%w: этап оплаты %s", ErrNotFound, termID)
	}

	doc, err := BuildInvoiceDocument(contract, term, s.now())
	if err != nil {
		return nil, err
	}
	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования XML счета: %w", err)
	}

	if term.InvoiceStatus != models.InvoiceStatusExported {
		if err := s.repo.UpdateInvoiceStatus(ctx, contractID, termID, models.InvoiceStatusExported); err != nil {
			return nil, err
		}
		utils.LogInfo("счет по договору %s, %s выгружен", contract.Code, term.BatchLabel)
	}
	return data, nil
}

// BuildInvoiceDocument строит XML счета по этапу оплаты.
// Сумма этапа включает НДС, поэтому база и налог выделяются из нее по ставке договора.
func BuildInvoiceDocument(contract *models.Contract, term *models.PaymentTerm, issued time.Time) (*etree.Document, error) {
	if term.AmountValue.IsNegative() {
		return nil, invalidArgument("отрицательная сумма этапа: %s", term.AmountValue)
	}
	base, tax := splitVat(term.AmountValue, contract.VatRate)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("HDon")
	data := root.CreateElement("DLHDon")
	data.CreateAttr("Id", term.ID.String())

	general := data.CreateElement("TTChung")
	general.CreateElement("THDon").SetText("Hóa đơn giá trị gia tăng")
	general.CreateElement("NLap").SetText(utils.TruncateToDate(issued).Format(utils.DateLayout))
	general.CreateElement("DVTTe").SetText("VND")
	general.CreateElement("SHDong").SetText(contract.Code)

	content := data.CreateElement("NDHDon")
	buyer := content.CreateElement("NMua")
	buyer.CreateElement("MKHang").SetText(strconv.FormatUint(uint64(contract.CustomerID), 10))
	buyer.CreateElement("Ten").SetText(contract.CustomerName())

	items := content.CreateElement("DSHHDVu")
	item := items.CreateElement("HHDVu")
	item.CreateElement("STT").SetText("1")
	name := term.BatchLabel
	if term.Description != "" {
		name += " - " + term.Description
	}
	item.CreateElement("THHDVu").SetText(name)
	item.CreateElement("TLe").SetText(term.RatioPercent.String())
	item.CreateElement("ThTien").SetText(base.StringFixed(MinorUnitScale))
	item.CreateElement("TSuat").SetText(contract.VatRate.String() + "%")

	totals := content.CreateElement("TToan")
	totals.CreateElement("TgTCThue").SetText(base.StringFixed(MinorUnitScale))
	totals.CreateElement("TgTThue").SetText(tax.StringFixed(MinorUnitScale))
	totals.CreateElement("TgTTTBSo").SetText(term.AmountValue.StringFixed(MinorUnitScale))

	return doc, nil
}

// splitVat делит сумму с НДС на базу и налог; налог получается вычитанием, чтобы сумма сходилась
func splitVat(total, vatRate decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	divisor := decimal.NewFromInt(1).Add(vatRate.Shift(-2))
	if divisor.IsZero() {
		return total, decimal.Zero
	}
	base := total.Div(divisor).Round(MinorUnitScale)
	return base, total.Sub(base)
}
