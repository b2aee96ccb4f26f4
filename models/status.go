package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// StatusKind нормализованный вид статуса договора.
// Справочник статусов хранит произвольные коды, но каждому коду сопоставлен один из видов.
type StatusKind string

const (
	StatusKindNotStarted StatusKind = "not_started"
	StatusKindInProgress StatusKind = "in_progress"
	StatusKindCompleted  StatusKind = "completed"
	StatusKindCancelled  StatusKind = "cancelled"
	StatusKindUnknown    StatusKind = "unknown" // устаревшие или неизвестные коды
)

// ParseStatusKind приводит строку к виду статуса, неизвестные значения дают StatusKindUnknown
func ParseStatusKind(raw string) StatusKind {
	switch normalizeCode(raw) {
	case "not_started", "notstarted", "new", "chua_bat_dau":
		return StatusKindNotStarted
	case "in_progress", "inprogress", "active", "dang_thuc_hien":
		return StatusKindInProgress
	case "completed", "complete", "done", "hoan_thanh":
		return StatusKindCompleted
	case "cancelled", "canceled", "huy":
		return StatusKindCancelled
	default:
		return StatusKindUnknown
	}
}

// InvoiceStatus статус выгрузки счета по этапу оплаты
type InvoiceStatus string

const (
	InvoiceStatusNotExported InvoiceStatus = "not_exported"
	InvoiceStatusExported    InvoiceStatus = "exported"
	InvoiceStatusUnknown     InvoiceStatus = "unknown"
)

func ParseInvoiceStatus(raw string) InvoiceStatus {
	switch normalizeCode(raw) {
	case "not_exported", "", "none":
		return InvoiceStatusNotExported
	case "exported":
		return InvoiceStatusExported
	default:
		return InvoiceStatusUnknown
	}
}

// ExpensePaymentStatus статус оплаты расхода
type ExpensePaymentStatus string

const (
	ExpenseUnpaid  ExpensePaymentStatus = "unpaid"
	ExpensePaid    ExpensePaymentStatus = "paid"
	ExpenseUnknown ExpensePaymentStatus = "unknown"
)

func ParseExpensePaymentStatus(raw string) ExpensePaymentStatus {
	switch normalizeCode(raw) {
	case "unpaid", "":
		return ExpenseUnpaid
	case "paid":
		return ExpensePaid
	default:
		return ExpenseUnknown
	}
}

// MemberRole роль участника проекта
type MemberRole string

const (
	RolePM      MemberRole = "PM"
	RoleBA      MemberRole = "BA"
	RoleDev     MemberRole = "Dev"
	RoleTester  MemberRole = "Tester"
	RoleAM      MemberRole = "AM"
	RoleUnknown MemberRole = "unknown"
)

func ParseMemberRole(raw string) MemberRole {
	switch normalizeCode(raw) {
	case "pm":
		return RolePM
	case "ba":
		return RoleBA
	case "dev", "developer":
		return RoleDev
	case "tester", "qa":
		return RoleTester
	case "am":
		return RoleAM
	default:
		return RoleUnknown
	}
}

// WarningType вид предупреждения: источник обязательства и его срочность
type WarningType string

const (
	WarningAcceptanceOverdue  WarningType = "acceptance_overdue"
	WarningAcceptanceUpcoming WarningType = "acceptance_upcoming"
	WarningPaymentOverdue     WarningType = "payment_overdue"
	WarningPaymentUpcoming    WarningType = "payment_upcoming"
	WarningTypeUnknown        WarningType = "unknown"
)

func ParseWarningType(raw string) WarningType {
	switch t := WarningType(normalizeCode(raw)); t {
	case WarningAcceptanceOverdue, WarningAcceptanceUpcoming, WarningPaymentOverdue, WarningPaymentUpcoming:
		return t
	default:
		return WarningTypeUnknown
	}
}

// IsOverdue сообщает, что срок обязательства уже прошел
func (t WarningType) IsOverdue() bool {
	return t == WarningAcceptanceOverdue || t == WarningPaymentOverdue
}

// WarningStatus статус разбора предупреждения
type WarningStatus string

const (
	WarningPending    WarningStatus = "pending"
	WarningProcessing WarningStatus = "processing"
	WarningResolved   WarningStatus = "resolved"
	WarningUnknown    WarningStatus = "unknown"
)

func ParseWarningStatus(raw string) WarningStatus {
	switch s := WarningStatus(normalizeCode(raw)); s {
	case WarningPending, WarningProcessing, WarningResolved:
		return s
	default:
		return WarningUnknown
	}
}

// StatusRef код статуса, пришедший с клиента.
// Клиент присылает либо строку "completed", либо объект {"code": "completed", ...}.
type StatusRef string

func (s *StatusRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*s = StatusRef(strings.TrimSpace(obj.Code))
		return nil
	}
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	*s = StatusRef(strings.TrimSpace(code))
	return nil
}

func normalizeCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	code = strings.ReplaceAll(code, "-", "_")
	return strings.ReplaceAll(code, " ", "_")
}
