package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portcontracts/models"
	"portcontracts/utils"
)

// PaymentTermDTO этап оплаты в запросе на сохранение договора
type PaymentTermDTO struct {
	ID             *uuid.UUID       `json:"id,omitempty"`
	BatchLabel     string           `json:"batchLabel" validate:"max=100"`
	Description    string           `json:"description"`
	RatioPercent   decimal.Decimal  `json:"ratioPercent"`
	AmountValue    *decimal.Decimal `json:"amountValue,omitempty"`
	IsCollected    bool             `json:"isCollected"`
	CollectionDate string           `json:"collectionDate"`
	DueDate        string           `json:"dueDate"`
	InvoiceStatus  string           `json:"invoiceStatus" validate:"omitempty,oneof=not_exported exported"`
}

// ExpenseDTO расход в запросе на сохранение договора
type ExpenseDTO struct {
	ID            *uuid.UUID          `json:"id,omitempty"`
	SupplierID    *uint               `json:"supplierId,omitempty"`
	Category      string              `json:"category" validate:"max=100"`
	Description   string              `json:"description"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	PaymentStatus string              `json:"paymentStatus" validate:"omitempty,oneof=unpaid paid"`
	Pic           string              `json:"pic" validate:"max=100"`
	Note          string              `json:"note"`
	Attachments   []models.Attachment `json:"attachments"`
}

// MemberDTO участник проекта в запросе на сохранение договора
type MemberDTO struct {
	ID         *uuid.UUID `json:"id,omitempty"`
	MemberCode string     `json:"memberCode" validate:"max=32"`
	Name       string     `json:"name" validate:"max=255"`
	Role       string     `json:"role" validate:"required"`
}

// ContractDTO договор целиком, как его присылает форма.
// Сумма с НДС не принимается: она вычисляется при сохранении.
type ContractDTO struct {
	Code                   string              `json:"code" validate:"max=64"`
	CustomerID             *uint               `json:"customerId"`
	SignDate               string              `json:"signDate"`
	Content                string              `json:"content"`
	ContractTypeID         *uint               `json:"contractTypeId"`
	StatusCode             models.StatusRef    `json:"statusCode"`
	ValuePreVat            decimal.Decimal     `json:"valuePreVat"`
	VatRate                *decimal.Decimal    `json:"vatRate"`
	Duration               string              `json:"duration" validate:"max=100"`
	AcceptanceDate         string              `json:"acceptanceDate"`
	ExpectedAcceptanceDate string              `json:"expectedAcceptanceDate"`
	SoftwareIDs            []uint              `json:"softwareIds"`
	Attachments            []models.Attachment `json:"attachments"`
	PaymentTerms           []PaymentTermDTO    `json:"paymentTerms" validate:"dive"`
	Expenses               []ExpenseDTO        `json:"expenses" validate:"dive"`
	Members                []MemberDTO         `json:"members" validate:"dive"`
}

// ContractService предоставляет методы для работы с договорами
type ContractService struct {
	repo      ContractRepository
	lookups   LookupProvider
	validator *validator.Validate
	metrics   *utils.Metrics
}

// NewContractService создает новый экземпляр ContractService
func NewContractService(repo ContractRepository, lookups LookupProvider, metrics *utils.Metrics) *ContractService {
	return &ContractService{
		repo:      repo,
		lookups:   lookups,
		validator: validator.New(),
		metrics:   metrics,
	}
}

// Catalog загружает актуальный справочник статусов
func (s *ContractService) Catalog(ctx context.Context) (*StatusCatalog, error) {
	return LoadStatusCatalog(ctx, s.lookups)
}

// NewSession открывает черновик нового договора
func (s *ContractService) NewSession(ctx context.Context) (*ContractSession, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return NewContractSession(catalog), nil
}

// OpenSession открывает черновик сохраненного договора
func (s *ContractService) OpenSession(ctx context.Context, id uuid.UUID) (*ContractSession, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	contract, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	return SessionFromContract(contract, catalog), nil
}

// SaveSession проверяет черновик и сохраняет договор
func (s *ContractService) SaveSession(ctx context.Context, session *ContractSession) (*models.Contract, error) {
	startTime := time.Now()
	operation := "create"
	if _, ok := session.ContractID(); ok {
		operation = "update"
	}

	clean, err := session.PrepareForSave()
	if err == nil {
		var contract *models.Contract
		contract, err = s.repo.SaveContract(ctx, clean)
		if err == nil {
			s.record(operation, nil)
			utils.LogOperation("сохранение договора "+contract.Code, startTime, nil)
			return contract, nil
		}
	}
	s.record(operation, err)
	utils.LogOperation("сохранение договора", startTime, err)
	return nil, err
}

// Create создает договор из полного описания формы
func (s *ContractService) Create(ctx context.Context, dto ContractDTO) (*models.Contract, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionFromDTO(dto, nil, nil, catalog)
	if err != nil {
		return nil, err
	}
	return s.SaveSession(ctx, session)
}

// Update заменяет договор полным описанием формы.
// ID дочерних строк, которых нет у договора, считаются новыми строками.
func (s *ContractService) Update(ctx context.Context, id uuid.UUID, dto ContractDTO) (*models.Contract, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]struct{})
	for _, t := range existing.PaymentTerms {
		known[t.ID] = struct{}{}
	}
	for _, e := range existing.Expenses {
		known[e.ID] = struct{}{}
	}
	for _, m := range existing.Members {
		known[m.ID] = struct{}{}
	}

	session, err := s.sessionFromDTO(dto, &existing.ID, known, catalog)
	if err != nil {
		return nil, err
	}
	return s.SaveSession(ctx, session)
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return s.repo.GetContract(ctx, id)
}

func (s *ContractService) List(ctx context.Context, filter ContractFilter) ([]models.Contract, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, invalidArgument("неверный фильтр: %v", err)
	}
	return s.repo.ListContracts(ctx, filter)
}

// CanDelete проверяет правило удаления для сохраненного договора
func (s *ContractService) CanDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return false, err
	}
	contract, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return false, err
	}
	return CanDelete(contract, catalog), nil
}

// Delete удаляет договор, если это разрешено; иначе ErrDeleteForbidden
func (s *ContractService) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.CanDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		err = fmt.Errorf("%w: по договору есть этапы оплаты или расходы либо он уже начат, используйте отмену", ErrDeleteForbidden)
		s.record("delete", err)
		return err
	}
	err = s.repo.DeleteContract(ctx, id)
	s.record("delete", err)
	return err
}

// Cancel переводит договор в статус отмены. Повторная отмена ничего не меняет.
func (s *ContractService) Cancel(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	contract, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if catalog.IsCancelled(contract.StatusCode) {
		return contract, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, catalog.CancelledCode()); err != nil {
		s.record("cancel", err)
		return nil, err
	}
	s.record("cancel", nil)
	utils.LogInfo("договор %s отменен", contract.Code)
	return s.repo.GetContract(ctx, id)
}

func (s *ContractService) record(operation string, err error) {
	if s.metrics != nil {
		s.metrics.RecordContractOperation(operation, err)
	}
}

// sessionFromDTO собирает черновик из описания формы
func (s *ContractService) sessionFromDTO(dto ContractDTO, id *uuid.UUID, known map[uuid.UUID]struct{}, catalog *StatusCatalog) (*ContractSession, error) {
	if err := s.validator.Struct(dto); err != nil {
		return nil, invalidArgument("неверный запрос: %v", err)
	}
	if dto.ValuePreVat.IsNegative() {
		return nil, invalidArgument("%s: отрицательное значение %s", FieldValuePreVat, dto.ValuePreVat)
	}

	vatRate := DefaultVatRate
	if dto.VatRate != nil {
		vatRate = *dto.VatRate
	}
	total, err := ComputeVatTotal(dto.ValuePreVat, vatRate)
	if err != nil {
		return nil, err
	}

	status := string(dto.StatusCode)
	if status == "" {
		status = catalog.InitialCode()
	}

	draft := DraftContract{
		ID:                     id,
		Code:                   dto.Code,
		CustomerID:             dto.CustomerID,
		SignDate:               dto.SignDate,
		Content:                dto.Content,
		ContractTypeID:         dto.ContractTypeID,
		StatusCode:             catalog.Normalize(status),
		ValuePreVat:            dto.ValuePreVat,
		VatRate:                vatRate,
		ValuePostVat:           total,
		Duration:               dto.Duration,
		AcceptanceDate:         dto.AcceptanceDate,
		ExpectedAcceptanceDate: dto.ExpectedAcceptanceDate,
		SoftwareIDs:            dto.SoftwareIDs,
		Attachments:            dto.Attachments,
	}

	ref := func(rowID *uuid.UUID) models.EntityRef {
		if rowID == nil {
			return models.NewDraftRef()
		}
		if _, ok := known[*rowID]; !ok {
			return models.NewDraftRef()
		}
		return models.SavedRef(*rowID)
	}

	for _, t := range dto.PaymentTerms {
		t.RatioPercent = RoundRatio(t.RatioPercent)
		if !ratioInRange(t.RatioPercent) {
			return nil, invalidArgument("%s: доля должна быть от 0 до 100, получено %s", TermFieldRatioPercent, t.RatioPercent)
		}
		amount, err := ComputeInstallmentAmount(total, t.RatioPercent)
		if err != nil {
			return nil, err
		}
		// сумма, введенная вручную, важнее вычисленной
		if t.AmountValue != nil {
			if t.AmountValue.IsNegative() {
				return nil, invalidArgument("%s: отрицательное значение %s", TermFieldAmountValue, *t.AmountValue)
			}
			amount = *t.AmountValue
		}
		draft.PaymentTerms = append(draft.PaymentTerms, DraftPaymentTerm{
			Ref:            ref(t.ID),
			BatchLabel:     t.BatchLabel,
			Description:    t.Description,
			RatioPercent:   t.RatioPercent,
			AmountValue:    amount,
			IsCollected:    t.IsCollected,
			CollectionDate: t.CollectionDate,
			DueDate:        t.DueDate,
			InvoiceStatus:  models.ParseInvoiceStatus(t.InvoiceStatus),
		})
	}
	for i, t := range draft.PaymentTerms {
		if t.BatchLabel == "" {
			draft.PaymentTerms[i].BatchLabel = defaultBatchLabel(i + 1)
		}
	}

	for _, e := range dto.Expenses {
		if e.TotalAmount.IsNegative() {
			return nil, invalidArgument("%s: отрицательное значение %s", ExpenseFieldTotalAmount, e.TotalAmount)
		}
		draft.Expenses = append(draft.Expenses, DraftExpense{
			Ref:           ref(e.ID),
			SupplierID:    e.SupplierID,
			Category:      e.Category,
			Description:   e.Description,
			TotalAmount:   e.TotalAmount,
			PaymentStatus: models.ParseExpensePaymentStatus(e.PaymentStatus),
			Pic:           e.Pic,
			Note:          e.Note,
			Attachments:   e.Attachments,
		})
	}

	for _, m := range dto.Members {
		role := models.ParseMemberRole(m.Role)
		if role == models.RoleUnknown {
			return nil, invalidArgument("%s: неизвестная роль %q", MemberFieldRole, m.Role)
		}
		draft.Members = append(draft.Members, DraftMember{
			Ref:        ref(m.ID),
			MemberCode: m.MemberCode,
			Name:       m.Name,
			Role:       role,
		})
	}

	return RestoreSession(draft, catalog), nil
}
