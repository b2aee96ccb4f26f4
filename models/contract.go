package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Attachment описание вложенного файла. Содержимое хранится во внешнем хранилище.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// Contract представляет договор с заказчиком
type Contract struct {
	ID                     uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	Code                   string                          `gorm:"column:code;uniqueIndex;not null;size:64" json:"code"`
	CustomerID             uint                            `gorm:"column:customer_id;not null;index" json:"customerId"`
	Customer               *Customer                       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	SignDate               time.Time                       `gorm:"column:sign_date;type:date;not null" json:"signDate"`
	Content                string                          `gorm:"column:content;type:text" json:"content"`
	ContractTypeID         *uint                           `gorm:"column:contract_type_id" json:"contractTypeId,omitempty"`
	StatusCode             string                          `gorm:"column:status_code;size:32;not null;index" json:"statusCode"`
	ValuePreVat            decimal.Decimal                 `gorm:"column:value_pre_vat;type:decimal(20,2);not null;default:0" json:"valuePreVat"`
	VatRate                decimal.Decimal                 `gorm:"column:vat_rate;type:decimal(5,2);not null;default:10" json:"vatRate"`
	ValuePostVat           decimal.Decimal                 `gorm:"column:value_post_vat;type:decimal(20,2);not null;default:0" json:"valuePostVat"`
	Duration               string                          `gorm:"column:duration;size:100" json:"duration"`
	AcceptanceDate         *time.Time                      `gorm:"column:acceptance_date;type:date" json:"acceptanceDate,omitempty"`
	ExpectedAcceptanceDate *time.Time                      `gorm:"column:expected_acceptance_date;type:date;index" json:"expectedAcceptanceDate,omitempty"`
	SoftwareIDs            datatypes.JSONSlice[uint]       `gorm:"column:software_ids" json:"softwareIds"`
	Attachments            datatypes.JSONSlice[Attachment] `gorm:"column:attachments" json:"attachments"`
	PaymentTerms           []PaymentTerm                   `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"paymentTerms"`
	Expenses               []Expense                       `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"expenses"`
	Members                []ProjectMember                 `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"members"`
	CreatedAt              time.Time                       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt              time.Time                       `gorm:"column:updated_at" json:"updatedAt"`
}

func (Contract) TableName() string {
	return "contracts"
}

// CustomerName возвращает имя заказчика, если связь загружена
func (c *Contract) CustomerName() string {
	if c.Customer == nil {
		return ""
	}
	return c.Customer.Name
}

// PaymentTerm этап оплаты по договору
type PaymentTerm struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"contractId"`
	BatchLabel     string          `gorm:"column:batch_label;size:100;not null" json:"batchLabel"`
	Description    string          `gorm:"column:description;type:text" json:"description"`
	RatioPercent   decimal.Decimal `gorm:"column:ratio_percent;type:decimal(5,2);not null;default:0" json:"ratioPercent"`
	AmountValue    decimal.Decimal `gorm:"column:amount_value;type:decimal(20,2);not null;default:0" json:"amountValue"`
	IsCollected    bool            `gorm:"column:is_collected;not null;default:false" json:"isCollected"`
	CollectionDate *time.Time      `gorm:"column:collection_date;type:date" json:"collectionDate,omitempty"`
	DueDate        *time.Time      `gorm:"column:due_date;type:date;index" json:"dueDate,omitempty"`
	InvoiceStatus  InvoiceStatus   `gorm:"column:invoice_status;type:varchar(20);not null;default:'not_exported'" json:"invoiceStatus"`
	SortOrder      int             `gorm:"column:sort_order;not null;default:0" json:"sortOrder"`
}

func (PaymentTerm) TableName() string {
	return "payment_terms"
}

// Expense расход по проекту
type Expense struct {
	ID            uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID    uuid.UUID                       `gorm:"type:uuid;not null;index" json:"contractId"`
	SupplierID    *uint                           `gorm:"column:supplier_id" json:"supplierId,omitempty"`
	Category      string                          `gorm:"column:category;size:100" json:"category"`
	Description   string                          `gorm:"column:description;type:text" json:"description"`
	TotalAmount   decimal.Decimal                 `gorm:"column:total_amount;type:decimal(20,2);not null;default:0" json:"totalAmount"`
	PaymentStatus ExpensePaymentStatus            `gorm:"column:payment_status;type:varchar(20);not null;default:'unpaid'" json:"paymentStatus"`
	Pic           string                          `gorm:"column:pic;size:100" json:"pic"`
	Note          string                          `gorm:"column:note;type:text" json:"note"`
	Attachments   datatypes.JSONSlice[Attachment] `gorm:"column:attachments" json:"attachments"`
	SortOrder     int                             `gorm:"column:sort_order;not null;default:0" json:"sortOrder"`

	// ContractStatus не хранится: при выдаче копируется статус договора
	ContractStatus string `gorm:"-" json:"contractStatus,omitempty"`
}

func (Expense) TableName() string {
	return "expenses"
}

// ProjectMember участник проекта по договору
type ProjectMember struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID uuid.UUID  `gorm:"type:uuid;not null;index" json:"contractId"`
	MemberCode string     `gorm:"column:member_code;size:32" json:"memberCode"`
	Name       string     `gorm:"column:name;size:255" json:"name"`
	Role       MemberRole `gorm:"column:role;type:varchar(16);not null" json:"role"`
	SortOrder  int        `gorm:"column:sort_order;not null;default:0" json:"sortOrder"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}
