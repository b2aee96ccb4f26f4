package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portcontracts/models"
	"portcontracts/utils"
)

// Поля этапа оплаты
const (
	TermFieldBatchLabel     = "batchLabel"
	TermFieldDescription    = "description"
	TermFieldRatioPercent   = "ratioPercent"
	TermFieldAmountValue    = "amountValue"
	TermFieldIsCollected    = "isCollected"
	TermFieldCollectionDate = "collectionDate"
	TermFieldDueDate        = "dueDate"
	TermFieldInvoiceStatus  = "invoiceStatus"
)

// Поля расхода
const (
	ExpenseFieldSupplierID    = "supplierId"
	ExpenseFieldCategory      = "category"
	ExpenseFieldDescription   = "description"
	ExpenseFieldTotalAmount   = "totalAmount"
	ExpenseFieldPaymentStatus = "paymentStatus"
	ExpenseFieldPic           = "pic"
	ExpenseFieldNote          = "note"
	ExpenseFieldAttachments   = "attachments"
)

// Поля участника проекта
const (
	MemberFieldCode = "memberCode"
	MemberFieldName = "name"
	MemberFieldRole = "role"
)

// DraftPaymentTerm этап оплаты в черновике
type DraftPaymentTerm struct {
	Ref            models.EntityRef     `json:"ref"`
	BatchLabel     string               `json:"batchLabel"`
	Description    string               `json:"description"`
	RatioPercent   decimal.Decimal      `json:"ratioPercent"`
	AmountValue    decimal.Decimal      `json:"amountValue"`
	IsCollected    bool                 `json:"isCollected"`
	CollectionDate string               `json:"collectionDate"`
	DueDate        string               `json:"dueDate"`
	InvoiceStatus  models.InvoiceStatus `json:"invoiceStatus"`
}

// DraftExpense расход в черновике
type DraftExpense struct {
	Ref           models.EntityRef            `json:"ref"`
	SupplierID    *uint                       `json:"supplierId,omitempty"`
	Category      string                      `json:"category"`
	Description   string                      `json:"description"`
	TotalAmount   decimal.Decimal             `json:"totalAmount"`
	PaymentStatus models.ExpensePaymentStatus `json:"paymentStatus"`
	Pic           string                      `json:"pic"`
	Note          string                      `json:"note"`
	Attachments   []models.Attachment         `json:"attachments"`

	// ContractStatus только для отображения, повторяет статус договора
	ContractStatus string `json:"contractStatus,omitempty"`
}

// DraftMember участник проекта в черновике
type DraftMember struct {
	Ref        models.EntityRef  `json:"ref"`
	MemberCode string            `json:"memberCode"`
	Name       string            `json:"name"`
	Role       models.MemberRole `json:"role"`
}

// DraftContract состояние черновика договора. Сериализуется в JSON для хранения черновиков.
type DraftContract struct {
	ID                     *uuid.UUID          `json:"id,omitempty"`
	Code                   string              `json:"code"`
	CustomerID             *uint               `json:"customerId,omitempty"`
	SignDate               string              `json:"signDate"`
	Content                string              `json:"content"`
	ContractTypeID         *uint               `json:"contractTypeId,omitempty"`
	StatusCode             string              `json:"statusCode"`
	ValuePreVat            decimal.Decimal     `json:"valuePreVat"`
	VatRate                decimal.Decimal     `json:"vatRate"`
	ValuePostVat           decimal.Decimal     `json:"valuePostVat"`
	Duration               string              `json:"duration"`
	AcceptanceDate         string              `json:"acceptanceDate"`
	ExpectedAcceptanceDate string              `json:"expectedAcceptanceDate"`
	SoftwareIDs            []uint              `json:"softwareIds"`
	Attachments            []models.Attachment `json:"attachments"`
	PaymentTerms           []DraftPaymentTerm  `json:"paymentTerms"`
	Expenses               []DraftExpense      `json:"expenses"`
	Members                []DraftMember       `json:"members"`
}

func (d DraftContract) clone() DraftContract {
	out := d
	if d.ID != nil {
		id := *d.ID
		out.ID = &id
	}
	out.CustomerID = cloneUintPtr(d.CustomerID)
	out.ContractTypeID = cloneUintPtr(d.ContractTypeID)
	out.SoftwareIDs = append([]uint(nil), d.SoftwareIDs...)
	out.Attachments = append([]models.Attachment(nil), d.Attachments...)
	out.PaymentTerms = append([]DraftPaymentTerm(nil), d.PaymentTerms...)
	out.Expenses = make([]DraftExpense, len(d.Expenses))
	for i, e := range d.Expenses {
		e.SupplierID = cloneUintPtr(e.SupplierID)
		e.Attachments = append([]models.Attachment(nil), e.Attachments...)
		out.Expenses[i] = e
	}
	out.Members = append([]DraftMember(nil), d.Members...)
	return out
}

// CleanContract договор, готовый к сохранению: временные ссылки убраны (ID == nil у новых строк),
// даты нормализованы, сумма с НДС пересчитана.
type CleanContract struct {
	ID                     *uuid.UUID          `json:"id,omitempty"`
	Code                   string              `json:"code"`
	CustomerID             uint                `json:"customerId"`
	SignDate               time.Time           `json:"signDate"`
	Content                string              `json:"content"`
	ContractTypeID         *uint               `json:"contractTypeId,omitempty"`
	StatusCode             string              `json:"statusCode"`
	ValuePreVat            decimal.Decimal     `json:"valuePreVat"`
	VatRate                decimal.Decimal     `json:"vatRate"`
	ValuePostVat           decimal.Decimal     `json:"valuePostVat"`
	Duration               string              `json:"duration"`
	AcceptanceDate         *time.Time          `json:"acceptanceDate,omitempty"`
	ExpectedAcceptanceDate *time.Time          `json:"expectedAcceptanceDate,omitempty"`
	SoftwareIDs            []uint              `json:"softwareIds"`
	Attachments            []models.Attachment `json:"attachments"`
	PaymentTerms           []CleanPaymentTerm  `json:"paymentTerms"`
	Expenses               []CleanExpense      `json:"expenses"`
	Members                []CleanMember       `json:"members"`
}

type CleanPaymentTerm struct {
	ID             *uuid.UUID           `json:"id,omitempty"`
	BatchLabel     string               `json:"batchLabel"`
	Description    string               `json:"description"`
	RatioPercent   decimal.Decimal      `json:"ratioPercent"`
	AmountValue    decimal.Decimal      `json:"amountValue"`
	IsCollected    bool                 `json:"isCollected"`
	CollectionDate *time.Time           `json:"collectionDate,omitempty"`
	DueDate        *time.Time           `json:"dueDate,omitempty"`
	InvoiceStatus  models.InvoiceStatus `json:"invoiceStatus"`
}

type CleanExpense struct {
	ID            *uuid.UUID                  `json:"id,omitempty"`
	SupplierID    *uint                       `json:"supplierId,omitempty"`
	Category      string                      `json:"category"`
	Description   string                      `json:"description"`
	TotalAmount   decimal.Decimal             `json:"totalAmount"`
	PaymentStatus models.ExpensePaymentStatus `json:"paymentStatus"`
	Pic           string                      `json:"pic"`
	Note          string                      `json:"note"`
	Attachments   []models.Attachment         `json:"attachments"`
}

type CleanMember struct {
	ID         *uuid.UUID        `json:"id,omitempty"`
	MemberCode string            `json:"memberCode"`
	Name       string            `json:"name"`
	Role       models.MemberRole `json:"role"`
}

// ContractSession черновик одного договора с тремя дочерними коллекциями.
// Правки применяются сразу, производные значения пересчитываются на месте.
// Сессия принадлежит одному пользователю и не синхронизирована.
type ContractSession struct {
	catalog *StatusCatalog
	draft   DraftContract
}

// NewContractSession создает черновик нового договора
func NewContractSession(catalog *StatusCatalog) *ContractSession {
	return &ContractSession{
		catalog: catalog,
		draft: DraftContract{
			StatusCode:   catalog.InitialCode(),
			ValuePreVat:  decimal.Zero,
			VatRate:      DefaultVatRate,
			ValuePostVat: decimal.Zero,
		},
	}
}

// SessionFromContract открывает сохраненный договор на редактирование
func SessionFromContract(c *models.Contract, catalog *StatusCatalog) *ContractSession {
	id := c.ID
	d := DraftContract{
		ID:                     &id,
		Code:                   c.Code,
		SignDate:               utils.FormatCalendarDate(&c.SignDate),
		Content:                c.Content,
		ContractTypeID:         cloneUintPtr(c.ContractTypeID),
		StatusCode:             catalog.Normalize(c.StatusCode),
		ValuePreVat:            c.ValuePreVat,
		VatRate:                c.VatRate,
		ValuePostVat:           c.ValuePostVat,
		Duration:               c.Duration,
		AcceptanceDate:         utils.FormatCalendarDate(c.AcceptanceDate),
		ExpectedAcceptanceDate: utils.FormatCalendarDate(c.ExpectedAcceptanceDate),
		SoftwareIDs:            append([]uint(nil), c.SoftwareIDs...),
		Attachments:            append([]models.Attachment(nil), c.Attachments...),
	}
	if c.CustomerID != 0 {
		customerID := c.CustomerID
		d.CustomerID = &customerID
	}

	terms := append([]models.PaymentTerm(nil), c.PaymentTerms...)
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].SortOrder < terms[j].SortOrder })
	for _, t := range terms {
		d.PaymentTerms = append(d.PaymentTerms, DraftPaymentTerm{
			Ref:            models.SavedRef(t.ID),
			BatchLabel:     t.BatchLabel,
			Description:    t.Description,
			RatioPercent:   t.RatioPercent,
			AmountValue:    t.AmountValue,
			IsCollected:    t.IsCollected,
			CollectionDate: utils.FormatCalendarDate(t.CollectionDate),
			DueDate:        utils.FormatCalendarDate(t.DueDate),
			InvoiceStatus:  t.InvoiceStatus,
		})
	}

	expenses := append([]models.Expense(nil), c.Expenses...)
	sort.SliceStable(expenses, func(i, j int) bool { return expenses[i].SortOrder < expenses[j].SortOrder })
	for _, e := range expenses {
		d.Expenses = append(d.Expenses, DraftExpense{
			Ref:           models.SavedRef(e.ID),
			SupplierID:    cloneUintPtr(e.SupplierID),
			Category:      e.Category,
			Description:   e.Description,
			TotalAmount:   e.TotalAmount,
			PaymentStatus: e.PaymentStatus,
			Pic:           e.Pic,
			Note:          e.Note,
			Attachments:   append([]models.Attachment(nil), e.Attachments...),
		})
	}

	members := append([]models.ProjectMember(nil), c.Members...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].SortOrder < members[j].SortOrder })
	for _, m := range members {
		d.Members = append(d.Members, DraftMember{
			Ref:        models.SavedRef(m.ID),
			MemberCode: m.MemberCode,
			Name:       m.Name,
			Role:       m.Role,
		})
	}

	return &ContractSession{catalog: catalog, draft: d}
}

// SessionFromClean восстанавливает сессию из подготовленного к сохранению договора.
// Строки без ID получают новые временные ссылки.
func SessionFromClean(clean *CleanContract, catalog *StatusCatalog) *ContractSession {
	d := DraftContract{
		Code:                   clean.Code,
		SignDate:               utils.FormatCalendarDate(&clean.SignDate),
		Content:                clean.Content,
		ContractTypeID:         cloneUintPtr(clean.ContractTypeID),
		StatusCode:             catalog.Normalize(clean.StatusCode),
		ValuePreVat:            clean.ValuePreVat,
		VatRate:                clean.VatRate,
		ValuePostVat:           clean.ValuePostVat,
		Duration:               clean.Duration,
		AcceptanceDate:         utils.FormatCalendarDate(clean.AcceptanceDate),
		ExpectedAcceptanceDate: utils.FormatCalendarDate(clean.ExpectedAcceptanceDate),
		SoftwareIDs:            append([]uint(nil), clean.SoftwareIDs...),
		Attachments:            append([]models.Attachment(nil), clean.Attachments...),
	}
	if clean.ID != nil {
		id := *clean.ID
		d.ID = &id
	}
	if clean.CustomerID != 0 {
		customerID := clean.CustomerID
		d.CustomerID = &customerID
	}
	for _, t := range clean.PaymentTerms {
		d.PaymentTerms = append(d.PaymentTerms, DraftPaymentTerm{
			Ref:            refFromID(t.ID),
			BatchLabel:     t.BatchLabel,
			Description:    t.Description,
			RatioPercent:   t.RatioPercent,
			AmountValue:    t.AmountValue,
			IsCollected:    t.IsCollected,
			CollectionDate: utils.FormatCalendarDate(t.CollectionDate),
			DueDate:        utils.FormatCalendarDate(t.DueDate),
			InvoiceStatus:  t.InvoiceStatus,
		})
	}
	for _, e := range clean.Expenses {
		d.Expenses = append(d.Expenses, DraftExpense{
			Ref:           refFromID(e.ID),
			SupplierID:    cloneUintPtr(e.SupplierID),
			Category:      e.Category,
			Description:   e.Description,
			TotalAmount:   e.TotalAmount,
			PaymentStatus: e.PaymentStatus,
			Pic:           e.Pic,
			Note:          e.Note,
			Attachments:   append([]models.Attachment(nil), e.Attachments...),
		})
	}
	for _, m := range clean.Members {
		d.Members = append(d.Members, DraftMember{
			Ref:        refFromID(m.ID),
			MemberCode: m.MemberCode,
			Name:       m.Name,
			Role:       m.Role,
		})
	}
	return &ContractSession{catalog: catalog, draft: d}
}

// RestoreSession восстанавливает сессию из снимка
func RestoreSession(snapshot DraftContract, catalog *StatusCatalog) *ContractSession {
	d := snapshot.clone()
	for i := range d.Expenses {
		d.Expenses[i].ContractStatus = ""
	}
	return &ContractSession{catalog: catalog, draft: d}
}

// Snapshot возвращает копию состояния черновика.
// У расходов заполняется статус договора для отображения.
func (s *ContractSession) Snapshot() DraftContract {
	d := s.draft.clone()
	for i := range d.Expenses {
		d.Expenses[i].ContractStatus = d.StatusCode
	}
	return d
}

// ContractID возвращает идентификатор договора, если черновик открыт для сохраненного договора
func (s *ContractSession) ContractID() (uuid.UUID, bool) {
	if s.draft.ID == nil {
		return uuid.Nil, false
	}
	return *s.draft.ID, true
}

func (s *ContractSession) ValuePostVat() decimal.Decimal {
	return s.draft.ValuePostVat
}

func (s *ContractSession) PaymentTerms() []DraftPaymentTerm {
	return append([]DraftPaymentTerm(nil), s.draft.PaymentTerms...)
}

func (s *ContractSession) Expenses() []DraftExpense {
	return s.Snapshot().Expenses
}

func (s *ContractSession) Members() []DraftMember {
	return append([]DraftMember(nil), s.draft.Members...)
}

// AddPaymentTerm добавляет этап с временной ссылкой и подписью "Đợt N".
// Доля и сумма нулевые, поэтому пересчет не нужен.
func (s *ContractSession) AddPaymentTerm() DraftPaymentTerm {
	term := DraftPaymentTerm{
		Ref:           models.NewDraftRef(),
		BatchLabel:    defaultBatchLabel(len(s.draft.PaymentTerms) + 1),
		RatioPercent:  decimal.Zero,
		AmountValue:   decimal.Zero,
		IsCollected:   false,
		InvoiceStatus: models.InvoiceStatusNotExported,
	}
	s.draft.PaymentTerms = append(s.draft.PaymentTerms, term)
	return term
}

// UpdatePaymentTerm меняет поле этапа. Изменение доли всегда пересчитывает сумму
// от текущей суммы договора с НДС; ручная правка суммы допустима.
// Неизвестная ссылка не является ошибкой: правка пришла из устаревшего состояния формы.
func (s *ContractSession) UpdatePaymentTerm(ref models.EntityRef, field string, value interface{}) error {
	i := s.findTerm(ref)
	if i < 0 {
		utils.LogDebug("этап оплаты %s не найден в черновике, правка %s пропущена", ref, field)
		return nil
	}
	term := s.draft.PaymentTerms[i]

	switch field {
	case TermFieldBatchLabel:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		term.BatchLabel = v
	case TermFieldDescription:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		term.Description = v
	case TermFieldRatioPercent:
		ratio, err := decimalValue(field, value)
		if err != nil {
			return err
		}
		ratio = RoundRatio(ratio)
		if !ratioInRange(ratio) {
			return invalidArgument("%s: доля должна быть от 0 до 100, получено %s", field, ratio)
		}
		amount, err := ComputeInstallmentAmount(s.draft.ValuePostVat, ratio)
		if err != nil {
			return err
		}
		term.RatioPercent = ratio
		term.AmountValue = amount
	case TermFieldAmountValue:
		amount, err := nonNegativeDecimal(field, value)
		if err != nil {
			return err
		}
		term.AmountValue = amount
	case TermFieldIsCollected:
		v, err := boolValue(field, value)
		if err != nil {
			return err
		}
		term.IsCollected = v
	case TermFieldCollectionDate:
		v, err := dateValue(field, value)
		if err != nil {
			return err
		}
		term.CollectionDate = v
	case TermFieldDueDate:
		v, err := dateValue(field, value)
		if err != nil {
			return err
		}
		term.DueDate = v
	case TermFieldInvoiceStatus:
		raw, err := stringValue(field, value)
		if err != nil {
			return err
		}
		status := models.ParseInvoiceStatus(raw)
		if status == models.InvoiceStatusUnknown {
			return invalidArgument("%s: неизвестный статус счета %q", field, raw)
		}
		term.InvoiceStatus = status
	default:
		return invalidArgument("неизвестное поле этапа оплаты %q", field)
	}

	s.draft.PaymentTerms[i] = term
	return nil
}

// DeletePaymentTerm удаляет этап; отсутствие этапа не является ошибкой
func (s *ContractSession) DeletePaymentTerm(ref models.EntityRef) {
	i := s.findTerm(ref)
	if i < 0 {
		utils.LogDebug("этап оплаты %s не найден в черновике, удаление пропущено", ref)
		return
	}
	s.draft.PaymentTerms = append(s.draft.PaymentTerms[:i], s.draft.PaymentTerms[i+1:]...)
}

// AddExpense добавляет неоплаченный расход с нулевой суммой
func (s *ContractSession) AddExpense() DraftExpense {
	expense := DraftExpense{
		Ref:           models.NewDraftRef(),
		TotalAmount:   decimal.Zero,
		PaymentStatus: models.ExpenseUnpaid,
	}
	s.draft.Expenses = append(s.draft.Expenses, expense)
	expense.ContractStatus = s.draft.StatusCode
	return expense
}

// UpdateExpense меняет поле расхода; поля расхода не влияют на другие поля
func (s *ContractSession) UpdateExpense(ref models.EntityRef, field string, value interface{}) error {
	i := s.findExpense(ref)
	if i < 0 {
		utils.LogDebug("расход %s не найден в черновике, правка %s пропущена", ref, field)
		return nil
	}
	expense := s.draft.Expenses[i]

	switch field {
	case ExpenseFieldSupplierID:
		v, err := optionalUintValue(field, value)
		if err != nil {
			return err
		}
		expense.SupplierID = v
	case ExpenseFieldCategory:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		expense.Category = v
	case ExpenseFieldDescription:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		expense.Description = v
	case ExpenseFieldTotalAmount:
		v, err := nonNegativeDecimal(field, value)
		if err != nil {
			return err
		}
		expense.TotalAmount = v
	case ExpenseFieldPaymentStatus:
		raw, err := stringValue(field, value)
		if err != nil {
			return err
		}
		status := models.ParseExpensePaymentStatus(raw)
		if status == models.ExpenseUnknown {
			return invalidArgument("%s: неизвестный статус оплаты %q", field, raw)
		}
		expense.PaymentStatus = status
	case ExpenseFieldPic:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		expense.Pic = v
	case ExpenseFieldNote:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		expense.Note = v
	case ExpenseFieldAttachments:
		v, err := attachmentsValue(field, value)
		if err != nil {
			return err
		}
		expense.Attachments = v
	default:
		return invalidArgument("неизвестное поле расхода %q", field)
	}

	s.draft.Expenses[i] = expense
	return nil
}

// DeleteExpense удаляет расход; отсутствие расхода не является ошибкой
func (s *ContractSession) DeleteExpense(ref models.EntityRef) {
	i := s.findExpense(ref)
	if i < 0 {
		utils.LogDebug("расход %s не найден в черновике, удаление пропущено", ref)
		return
	}
	s.draft.Expenses = append(s.draft.Expenses[:i], s.draft.Expenses[i+1:]...)
}

// AddMember добавляет участника с ролью Dev
func (s *ContractSession) AddMember() DraftMember {
	member := DraftMember{
		Ref:  models.NewDraftRef(),
		Role: models.RoleDev,
	}
	s.draft.Members = append(s.draft.Members, member)
	return member
}

func (s *ContractSession) UpdateMember(ref models.EntityRef, field string, value interface{}) error {
	i := s.findMember(ref)
	if i < 0 {
		utils.LogDebug("участник %s не найден в черновике, правка %s пропущена", ref, field)
		return nil
	}
	member := s.draft.Members[i]

	switch field {
	case MemberFieldCode:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		member.MemberCode = v
	case MemberFieldName:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		member.Name = v
	case MemberFieldRole:
		raw, err := stringValue(field, value)
		if err != nil {
			return err
		}
		role := models.ParseMemberRole(raw)
		if role == models.RoleUnknown {
			return invalidArgument("%s: неизвестная роль %q", field, raw)
		}
		member.Role = role
	default:
		return invalidArgument("неизвестное поле участника %q", field)
	}

	s.draft.Members[i] = member
	return nil
}

func (s *ContractSession) DeleteMember(ref models.EntityRef) {
	i := s.findMember(ref)
	if i < 0 {
		utils.LogDebug("участник %s не найден в черновике, удаление пропущено", ref)
		return
	}
	s.draft.Members = append(s.draft.Members[:i], s.draft.Members[i+1:]...)
}

// SetScalarField меняет поле договора.
//
// Изменение суммы без НДС или ставки сразу пересчитывает сумму с НДС, но суммы
// уже существующих этапов не трогает: сумма этапа пересчитывается только когда
// пользователь меняет долю этого этапа. Согласованные суммы этапов не переписываются
// задним числом.
//
// Ручная правка суммы с НДС меняет только отображаемое значение и базу для новых
// пересчетов долей; при сохранении сумма с НДС снова вычисляется из суммы и ставки.
func (s *ContractSession) SetScalarField(field string, value interface{}) error {
	d := &s.draft

	switch field {
	case FieldCode:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		d.Code = v
	case FieldCustomerID:
		v, err := optionalUintValue(field, value)
		if err != nil {
			return err
		}
		d.CustomerID = v
	case FieldSignDate:
		v, err := dateValue(field, value)
		if err != nil {
			return err
		}
		d.SignDate = v
	case FieldContent:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		d.Content = v
	case FieldContractTypeID:
		v, err := optionalUintValue(field, value)
		if err != nil {
			return err
		}
		d.ContractTypeID = v
	case FieldStatusCode:
		v, err := statusCodeValue(field, value)
		if err != nil {
			return err
		}
		d.StatusCode = s.catalog.Normalize(v)
	case FieldValuePreVat:
		v, err := nonNegativeDecimal(field, value)
		if err != nil {
			return err
		}
		total, err := ComputeVatTotal(v, d.VatRate)
		if err != nil {
			return err
		}
		d.ValuePreVat, d.ValuePostVat = v, total
	case FieldVatRate:
		v, err := nonNegativeDecimal(field, value)
		if err != nil {
			return err
		}
		total, err := ComputeVatTotal(d.ValuePreVat, v)
		if err != nil {
			return err
		}
		d.VatRate, d.ValuePostVat = v, total
	case FieldValuePostVat:
		v, err := nonNegativeDecimal(field, value)
		if err != nil {
			return err
		}
		d.ValuePostVat = v
	case FieldDuration:
		v, err := stringValue(field, value)
		if err != nil {
			return err
		}
		d.Duration = v
	case FieldAcceptanceDate:
		v, err := dateValue(field, value)
		if err != nil {
			return err
		}
		d.AcceptanceDate = v
	case FieldExpectedAcceptanceDate:
		v, err := dateValue(field, value)
		if err != nil {
			return err
		}
		d.ExpectedAcceptanceDate = v
	case FieldSoftwareIDs:
		v, err := uintSliceValue(field, value)
		if err != nil {
			return err
		}
		d.SoftwareIDs = v
	case FieldAttachments:
		v, err := attachmentsValue(field, value)
		if err != nil {
			return err
		}
		d.Attachments = v
	default:
		return invalidArgument("неизвестное поле договора %q", field)
	}
	return nil
}

// Validate проверяет черновик без подготовки к сохранению
func (s *ContractSession) Validate() []FieldError {
	return ValidateForSave(s.fields(), s.catalog)
}

// PrepareForSave проверяет черновик и собирает договор для сохранения.
// При ошибках проверки возвращает *ValidationFailedError со всеми полями.
func (s *ContractSession) PrepareForSave() (*CleanContract, error) {
	if errs := s.Validate(); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}
	d := s.draft

	signDate, _ := utils.ParseCalendarDate(d.SignDate)
	total, err := ComputeVatTotal(d.ValuePreVat, d.VatRate)
	if err != nil {
		return nil, err
	}

	status := s.catalog.Normalize(d.StatusCode)
	if status == "" {
		status = s.catalog.InitialCode()
	}

	clean := &CleanContract{
		Code:                   strings.TrimSpace(d.Code),
		CustomerID:             *d.CustomerID,
		SignDate:               signDate,
		Content:                d.Content,
		ContractTypeID:         cloneUintPtr(d.ContractTypeID),
		StatusCode:             status,
		ValuePreVat:            d.ValuePreVat,
		VatRate:                d.VatRate,
		ValuePostVat:           total,
		Duration:               d.Duration,
		AcceptanceDate:         optionalDate(d.AcceptanceDate),
		ExpectedAcceptanceDate: optionalDate(d.ExpectedAcceptanceDate),
		SoftwareIDs:            append([]uint{}, d.SoftwareIDs...),
		Attachments:            append([]models.Attachment{}, d.Attachments...),
		PaymentTerms:           make([]CleanPaymentTerm, 0, len(d.PaymentTerms)),
		Expenses:               make([]CleanExpense, 0, len(d.Expenses)),
		Members:                make([]CleanMember, 0, len(d.Members)),
	}
	if d.ID != nil {
		id := *d.ID
		clean.ID = &id
	}

	for _, t := range d.PaymentTerms {
		term := CleanPaymentTerm{
			ID:            idFromRef(t.Ref),
			BatchLabel:    t.BatchLabel,
			Description:   t.Description,
			RatioPercent:  t.RatioPercent,
			AmountValue:   t.AmountValue,
			IsCollected:   t.IsCollected,
			DueDate:       optionalDate(t.DueDate),
			InvoiceStatus: t.InvoiceStatus,
		}
		// дата поступления имеет смысл только для полученного платежа
		if t.IsCollected {
			term.CollectionDate = optionalDate(t.CollectionDate)
		}
		if term.InvoiceStatus == "" {
			term.InvoiceStatus = models.InvoiceStatusNotExported
		}
		clean.PaymentTerms = append(clean.PaymentTerms, term)
	}
	for _, e := range d.Expenses {
		expense := CleanExpense{
			ID:            idFromRef(e.Ref),
			SupplierID:    cloneUintPtr(e.SupplierID),
			Category:      e.Category,
			Description:   e.Description,
			TotalAmount:   e.TotalAmount,
			PaymentStatus: e.PaymentStatus,
			Pic:           e.Pic,
			Note:          e.Note,
			Attachments:   append([]models.Attachment{}, e.Attachments...),
		}
		if expense.PaymentStatus == "" {
			expense.PaymentStatus = models.ExpenseUnpaid
		}
		clean.Expenses = append(clean.Expenses, expense)
	}
	for _, m := range d.Members {
		clean.Members = append(clean.Members, CleanMember{
			ID:         idFromRef(m.Ref),
			MemberCode: m.MemberCode,
			Name:       m.Name,
			Role:       m.Role,
		})
	}

	return clean, nil
}

// CanDelete см. пакетную функцию CanDelete
func (s *ContractSession) CanDelete() bool {
	return canDelete(s.draft.StatusCode, len(s.draft.PaymentTerms), len(s.draft.Expenses), s.catalog)
}

func (s *ContractSession) fields() ContractFields {
	return ContractFields{
		CustomerID:     s.draft.CustomerID,
		Code:           s.draft.Code,
		SignDate:       s.draft.SignDate,
		SoftwareIDs:    s.draft.SoftwareIDs,
		StatusCode:     s.draft.StatusCode,
		AcceptanceDate: s.draft.AcceptanceDate,
	}
}

func (s *ContractSession) findTerm(ref models.EntityRef) int {
	for i, t := range s.draft.PaymentTerms {
		if t.Ref == ref {
			return i
		}
	}
	return -1
}

func (s *ContractSession) findExpense(ref models.EntityRef) int {
	for i, e := range s.draft.Expenses {
		if e.Ref == ref {
			return i
		}
	}
	return -1
}

func (s *ContractSession) findMember(ref models.EntityRef) int {
	for i, m := range s.draft.Members {
		if m.Ref == ref {
			return i
		}
	}
	return -1
}

func defaultBatchLabel(n int) string {
	return fmt.Sprintf("Đợt %d", n)
}

func optionalDate(raw string) *time.Time {
	t, ok := utils.ParseCalendarDate(raw)
	if !ok {
		return nil
	}
	return &t
}

func idFromRef(ref models.EntityRef) *uuid.UUID {
	id, ok := ref.SavedID()
	if !ok {
		return nil
	}
	return &id
}

func refFromID(id *uuid.UUID) models.EntityRef {
	if id == nil {
		return models.NewDraftRef()
	}
	return models.SavedRef(*id)
}

func cloneUintPtr(p *uint) *uint {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
