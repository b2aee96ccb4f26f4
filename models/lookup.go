package models

// Customer заказчик
type Customer struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;not null;size:255" json:"name"`
}

func (Customer) TableName() string {
	return "customers"
}

// Supplier поставщик
type Supplier struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;not null;size:255" json:"name"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// SoftwareType вид программного обеспечения
type SoftwareType struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;not null;size:255" json:"name"`
}

func (SoftwareType) TableName() string {
	return "software_types"
}

// ContractType тип договора
type ContractType struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;not null;size:255" json:"name"`
}

func (ContractType) TableName() string {
	return "contract_types"
}

// ContractStatus запись справочника статусов договора
type ContractStatus struct {
	ID    uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code  string     `gorm:"column:code;unique;not null;size:32" json:"code"`
	Name  string     `gorm:"column:name;not null;size:100" json:"name"`
	Color string     `gorm:"column:color;size:16" json:"color"`
	Kind  StatusKind `gorm:"column:kind;type:varchar(20);not null;default:'unknown'" json:"kind"`
}

func (ContractStatus) TableName() string {
	return "contract_statuses"
}
