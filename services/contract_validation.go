package services

import (
	"strings"

	"portcontracts/models"
	"portcontracts/utils"
)

// Имена полей договора, используемые в ошибках проверки и при редактировании
const (
	FieldCode                   = "code"
	FieldCustomerID             = "customerId"
	FieldSignDate               = "signDate"
	FieldContent                = "content"
	FieldContractTypeID         = "contractTypeId"
	FieldStatusCode             = "statusCode"
	FieldValuePreVat            = "valuePreVat"
	FieldVatRate                = "vatRate"
	FieldValuePostVat           = "valuePostVat"
	FieldDuration               = "duration"
	FieldAcceptanceDate         = "acceptanceDate"
	FieldExpectedAcceptanceDate = "expectedAcceptanceDate"
	FieldSoftwareIDs            = "softwareIds"
	FieldAttachments            = "attachments"
)

// ContractFields поля договора, которые проверяются перед сохранением.
// Даты приходят строками, как их ввел пользователь.
type ContractFields struct {
	CustomerID     *uint
	Code           string
	SignDate       string
	SoftwareIDs    []uint
	StatusCode     string
	AcceptanceDate string
}

// FieldsFromContract собирает проверяемые поля из сохраненного договора
func FieldsFromContract(c *models.Contract) ContractFields {
	fields := ContractFields{
		Code:           c.Code,
		SoftwareIDs:    c.SoftwareIDs,
		StatusCode:     c.StatusCode,
		AcceptanceDate: utils.FormatCalendarDate(c.AcceptanceDate),
	}
	if c.CustomerID != 0 {
		id := c.CustomerID
		fields.CustomerID = &id
	}
	if !c.SignDate.IsZero() {
		fields.SignDate = c.SignDate.Format(utils.DateLayout)
	}
	return fields
}

// ValidateForSave проверяет договор перед сохранением.
// Проверки выполняются все и в фиксированном порядке, чтобы клиент подсветил сразу все поля.
// Уникальность кода здесь не проверяется.
func ValidateForSave(fields ContractFields, catalog *StatusCatalog) []FieldError {
	var errs []FieldError

	if fields.CustomerID == nil || *fields.CustomerID == 0 {
		errs = append(errs, FieldError{Field: FieldCustomerID, Message: "Vui lòng chọn khách hàng"})
	}

	if strings.TrimSpace(fields.Code) == "" {
		errs = append(errs, FieldError{Field: FieldCode, Message: "Vui lòng nhập số hợp đồng"})
	}

	if utils.IsBlankDate(fields.SignDate) {
		errs = append(errs, FieldError{Field: FieldSignDate, Message: "Vui lòng nhập ngày ký"})
	} else if _, ok := utils.ParseCalendarDate(fields.SignDate); !ok {
		errs = append(errs, FieldError{Field: FieldSignDate, Message: "Ngày ký không hợp lệ"})
	}

	if len(fields.SoftwareIDs) == 0 {
		errs = append(errs, FieldError{Field: FieldSoftwareIDs, Message: "Vui lòng chọn ít nhất một phần mềm"})
	}

	if catalog.IsCompleted(fields.StatusCode) {
		if _, ok := utils.ParseCalendarDate(fields.AcceptanceDate); !ok {
			errs = append(errs, FieldError{
				Field:   FieldAcceptanceDate,
				Message: "Hợp đồng đã hoàn thành phải có ngày nghiệm thu",
			})
		}
	}

	return errs
}

// CanDelete сообщает, можно ли удалить договор: статус "не начат",
// нет этапов оплаты и нет расходов. Иначе допустима только отмена.
func CanDelete(contract *models.Contract, catalog *StatusCatalog) bool {
	if contract == nil {
		return false
	}
	return canDelete(contract.StatusCode, len(contract.PaymentTerms), len(contract.Expenses), catalog)
}

func canDelete(statusCode string, terms, expenses int, catalog *StatusCatalog) bool {
	return catalog.IsNotStarted(statusCode) && terms == 0 && expenses == 0
}
