package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portcontracts/models"
)

// ContractFilter фильтры списка договоров
type ContractFilter struct {
	StatusCode string `form:"status" validate:"omitempty,max=32"`
	CustomerID uint   `form:"customerId"`
	Query      string `form:"q" validate:"omitempty,max=100"`
}

// ContractRepository хранилище договоров вместе с дочерними коллекциями
type ContractRepository interface {
	SaveContract(ctx context.Context, clean *CleanContract) (*models.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter) ([]models.Contract, error)
	DeleteContract(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, statusCode string) error
	UpdateInvoiceStatus(ctx context.Context, contractID, termID uuid.UUID, status models.InvoiceStatus) error
	ForEachContractBatch(ctx context.Context, size int, fn func([]models.Contract) error) error
}

// GormContractRepository хранит договоры в базе через gorm
type GormContractRepository struct {
	db *gorm.DB
}

func NewGormContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db}
}

func (r *GormContractRepository) withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("PaymentTerms", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Expenses", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") })
}

// SaveContract создает договор или полностью заменяет сохраненный вместе с коллекциями.
// Строки без ID получают новые идентификаторы, строки с ID сохраняют свои.
func (r *GormContractRepository) SaveContract(ctx context.Context, clean *CleanContract) (*models.Contract, error) {
	var id uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clean.ID == nil {
			contract := ContractFromClean(clean, uuid.New())
			id = contract.ID
			return tx.Create(&contract).Error
		}

		var existing models.Contract
		if err := tx.Select("id", "created_at").First(&existing, "id = ?", *clean.ID).Error; err != nil {
			return err
		}
		contract := ContractFromClean(clean, existing.ID)
		contract.CreatedAt = existing.CreatedAt
		id = contract.ID

		if err := tx.Omit(clause.Associations).Save(&contract).Error; err != nil {
			return err
		}
		if err := deleteChildren(tx, contract.ID); err != nil {
			return err
		}
		if len(contract.PaymentTerms) > 0 {
			if err := tx.Create(&contract.PaymentTerms).Error; err != nil {
				return err
			}
		}
		if len(contract.Expenses) > 0 {
			if err := tx.Create(&contract.Expenses).Error; err != nil {
				return err
			}
		}
		if len(contract.Members) > 0 {
			if err := tx.Create(&contract.Members).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return r.GetContract(ctx, id)
}

func (r *GormContractRepository) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.withChildren(r.db.WithContext(ctx)).First(&contract, "id = ?", id).Error; err != nil {
		return nil, mapStoreError(err)
	}
	mirrorExpenseStatus(&contract)
	return &contract, nil
}

func (r *GormContractRepository) ListContracts(ctx context.Context, filter ContractFilter) ([]models.Contract, error) {
	query := r.withChildren(r.db.WithContext(ctx)).Order("sign_date DESC, code")
	if filter.StatusCode != "" {
		query = query.Where("LOWER(status_code) = ?", strings.ToLower(filter.StatusCode))
	}
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(content) LIKE ?", like, like)
	}

	var contracts []models.Contract
	if err := query.Find(&contracts).Error; err != nil {
		return nil, mapStoreError(err)
	}
	for i := range contracts {
		mirrorExpenseStatus(&contracts[i])
	}
	return contracts, nil
}

// DeleteContract удаляет договор с коллекциями. Правило удаления проверяет ContractService.
func (r *GormContractRepository) DeleteContract(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChildren(tx, id); err != nil {
			return err
		}
		if err := tx.Where("contract_id = ?", id).Delete(&models.WarningTriage{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Contract{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return mapStoreError(err)
}

func (r *GormContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, statusCode string) error {
	res := r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id).Update("status_code", statusCode)
	if res.Error != nil {
		return mapStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return mapStoreError(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *GormContractRepository) UpdateInvoiceStatus(ctx context.Context, contractID, termID uuid.UUID, status models.InvoiceStatus) error {
	res := r.db.WithContext(ctx).Model(&models.PaymentTerm{}).
		Where("id = ? AND contract_id = ?", termID, contractID).
		Update("invoice_status", status)
	if res.Error != nil {
		return mapStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return mapStoreError(gorm.ErrRecordNotFound)
	}
	return nil
}

// ForEachContractBatch читает договоры пачками вместе с коллекциями
func (r *GormContractRepository) ForEachContractBatch(ctx context.Context, size int, fn func([]models.Contract) error) error {
	if size <= 0 {
		size = 100
	}
	var batch []models.Contract
	res := r.withChildren(r.db.WithContext(ctx)).Order("id").FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
		out := make([]models.Contract, len(batch))
		copy(out, batch)
		return fn(out)
	})
	return mapStoreError(res.Error)
}

func deleteChildren(tx *gorm.DB, contractID uuid.UUID) error {
	for _, model := range []interface{}{&models.PaymentTerm{}, &models.Expense{}, &models.ProjectMember{}} {
		if err := tx.Where("contract_id = ?", contractID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func mirrorExpenseStatus(c *models.Contract) {
	for i := range c.Expenses {
		c.Expenses[i].ContractStatus = c.StatusCode
	}
}

// ContractFromClean строит модель договора из очищенного черновика; новые строки получают ID
func ContractFromClean(clean *CleanContract, id uuid.UUID) models.Contract {
	contract := models.Contract{
		ID:                     id,
		Code:                   clean.Code,
		CustomerID:             clean.CustomerID,
		SignDate:               clean.SignDate,
		Content:                clean.Content,
		ContractTypeID:         cloneUintPtr(clean.ContractTypeID),
		StatusCode:             clean.StatusCode,
		ValuePreVat:            clean.ValuePreVat,
		VatRate:                clean.VatRate,
		ValuePostVat:           clean.ValuePostVat,
		Duration:               clean.Duration,
		AcceptanceDate:         clean.AcceptanceDate,
		ExpectedAcceptanceDate: clean.ExpectedAcceptanceDate,
		SoftwareIDs:            append([]uint{}, clean.SoftwareIDs...),
		Attachments:            append([]models.Attachment{}, clean.Attachments...),
	}
	for i, t := range clean.PaymentTerms {
		contract.PaymentTerms = append(contract.PaymentTerms, models.PaymentTerm{
			ID:             idOrNew(t.ID),
			ContractID:     id,
			BatchLabel:     t.BatchLabel,
			Description:    t.Description,
			RatioPercent:   t.RatioPercent,
			AmountValue:    t.AmountValue,
			IsCollected:    t.IsCollected,
			CollectionDate: t.CollectionDate,
			DueDate:        t.DueDate,
			InvoiceStatus:  t.InvoiceStatus,
			SortOrder:      i,
		})
	}
	for i, e := range clean.Expenses {
		contract.Expenses = append(contract.Expenses, models.Expense{
			ID:            idOrNew(e.ID),
			ContractID:    id,
			SupplierID:    cloneUintPtr(e.SupplierID),
			Category:      e.Category,
			Description:   e.Description,
			TotalAmount:   e.TotalAmount,
			PaymentStatus: e.PaymentStatus,
			Pic:           e.Pic,
			Note:          e.Note,
			Attachments:   append([]models.Attachment{}, e.Attachments...),
			SortOrder:     i,
		})
	}
	for i, m := range clean.Members {
		contract.Members = append(contract.Members, models.ProjectMember{
			ID:         idOrNew(m.ID),
			ContractID: id,
			MemberCode: m.MemberCode,
			Name:       m.Name,
			Role:       m.Role,
			SortOrder:  i,
		})
	}
	return contract
}

func idOrNew(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.New()
	}
	return *id
}
