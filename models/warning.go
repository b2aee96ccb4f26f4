package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Warning предупреждение о приближающемся или пропущенном сроке.
// Вычисляется при каждом сканировании и в базе не хранится.
type Warning struct {
	ID           uuid.UUID       `json:"id"`
	ContractID   uuid.UUID       `json:"contractId"`
	ContractCode string          `json:"contractCode"`
	CustomerName string          `json:"customerName"`
	Type         WarningType     `json:"type"`
	DueDate      time.Time       `json:"dueDate"`
	DaysDiff     int             `json:"daysDiff"`
	Amount       decimal.Decimal `json:"amount"`
	Pic          string          `json:"pic"`
	Status       WarningStatus   `json:"status"`
	Note         string          `json:"note"`
	Details      string          `json:"details"`
}

// TriageKey ключ, по которому разбор предупреждения переживает повторные сканирования
type TriageKey struct {
	ContractID uuid.UUID   `json:"contractId"`
	Type       WarningType `json:"type"`
	Details    string      `json:"details"`
}

func (w Warning) TriageKey() TriageKey {
	return TriageKey{ContractID: w.ContractID, Type: w.Type, Details: w.Details}
}

// WarningTriage сохраненный статус и заметка по предупреждению
type WarningTriage struct {
	ID         uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_warning_triage_key,priority:1" json:"contractId"`
	Type       WarningType   `gorm:"column:type;type:varchar(32);not null;uniqueIndex:idx_warning_triage_key,priority:2" json:"type"`
	Details    string        `gorm:"column:details;size:255;not null;uniqueIndex:idx_warning_triage_key,priority:3" json:"details"`
	Status     WarningStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	Note       string        `gorm:"column:note;type:text" json:"note"`
	UpdatedBy  string        `gorm:"column:updated_by;size:100" json:"updatedBy"`
	UpdatedAt  time.Time     `gorm:"column:updated_at" json:"updatedAt"`
}

func (WarningTriage) TableName() string {
	return "warning_triages"
}

func (t WarningTriage) Key() TriageKey {
	return TriageKey{ContractID: t.ContractID, Type: t.Type, Details: t.Details}
}
