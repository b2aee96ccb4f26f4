package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portcontracts/models"
	"portcontracts/utils"
)

// LookupProvider справочники, которые договор использует только для чтения
type LookupProvider interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	ListSoftwareTypes(ctx context.Context) ([]models.SoftwareType, error)
	ListContractTypes(ctx context.Context) ([]models.ContractType, error)
	ListStatuses(ctx context.Context) ([]models.ContractStatus, error)
}

// LoadStatusCatalog загружает справочник статусов и оборачивает его в StatusCatalog
func LoadStatusCatalog(ctx context.Context, lookups LookupProvider) (*StatusCatalog, error) {
	statuses, err := lookups.ListStatuses(ctx)
	if err != nil {
		return nil, err
	}
	return NewStatusCatalog(statuses), nil
}

// DefaultStatuses статусы договора, которыми заполняется пустой справочник
func DefaultStatuses() []models.ContractStatus {
	return []models.ContractStatus{
		{Code: string(models.StatusKindNotStarted), Name: "Chưa thực hiện", Color: "#9e9e9e", Kind: models.StatusKindNotStarted},
		{Code: string(models.StatusKindInProgress), Name: "Đang thực hiện", Color: "#1976d2", Kind: models.StatusKindInProgress},
		{Code: string(models.StatusKindCompleted), Name: "Đã hoàn thành", Color: "#388e3c", Kind: models.StatusKindCompleted},
		{Code: string(models.StatusKindCancelled), Name: "Đã hủy", Color: "#d32f2f", Kind: models.StatusKindCancelled},
	}
}

// DefaultContractTypes типы договоров по умолчанию
func DefaultContractTypes() []models.ContractType {
	return []models.ContractType{
		{Name: "Hợp đồng phần mềm"},
		{Name: "Hợp đồng bảo trì"},
		{Name: "Hợp đồng dịch vụ"},
	}
}

// DefaultSoftwareTypes виды программного обеспечения по умолчанию
func DefaultSoftwareTypes() []models.SoftwareType {
	return []models.SoftwareType{
		{Name: "Hệ thống quản lý khai thác cảng (TOS)"},
		{Name: "Cổng thông tin điện tử"},
		{Name: "Hóa đơn điện tử"},
	}
}

// GormLookupProvider читает справочники из базы данных
type GormLookupProvider struct {
	db *gorm.DB
}

func NewGormLookupProvider(db *gorm.DB) *GormLookupProvider {
	return &GormLookupProvider{db: db}
}

func (p *GormLookupProvider) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var out []models.Customer
	err := p.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, mapStoreError(err)
}

func (p *GormLookupProvider) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var out []models.Supplier
	err := p.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, mapStoreError(err)
}

func (p *GormLookupProvider) ListSoftwareTypes(ctx context.Context) ([]models.SoftwareType, error) {
	var out []models.SoftwareType
	err := p.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, mapStoreError(err)
}

func (p *GormLookupProvider) ListContractTypes(ctx context.Context) ([]models.ContractType, error) {
	var out []models.ContractType
	err := p.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, mapStoreError(err)
}

func (p *GormLookupProvider) ListStatuses(ctx context.Context) ([]models.ContractStatus, error) {
	var out []models.ContractStatus
	err := p.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, mapStoreError(err)
}

// StaticLookupProvider справочники в памяти: для тестов и локального запуска без базы
type StaticLookupProvider struct {
	Customers     []models.Customer
	Suppliers     []models.Supplier
	SoftwareTypes []models.SoftwareType
	ContractTypes []models.ContractType
	Statuses      []models.ContractStatus
}

// NewStaticLookupProvider создает провайдер со справочниками по умолчанию
func NewStaticLookupProvider() *StaticLookupProvider {
	p := &StaticLookupProvider{
		Statuses:      DefaultStatuses(),
		ContractTypes: DefaultContractTypes(),
		SoftwareTypes: DefaultSoftwareTypes(),
	}
	for i := range p.Statuses {
		p.Statuses[i].ID = uint(i + 1)
	}
	for i := range p.ContractTypes {
		p.ContractTypes[i].ID = uint(i + 1)
	}
	for i := range p.SoftwareTypes {
		p.SoftwareTypes[i].ID = uint(i + 1)
	}
	return p
}

func (p *StaticLookupProvider) ListCustomers(context.Context) ([]models.Customer, error) {
	return append([]models.Customer(nil), p.Customers...), nil
}

func (p *StaticLookupProvider) ListSuppliers(context.Context) ([]models.Supplier, error) {
	return append([]models.Supplier(nil), p.Suppliers...), nil
}

func (p *StaticLookupProvider) ListSoftwareTypes(context.Context) ([]models.SoftwareType, error) {
	return append([]models.SoftwareType(nil), p.SoftwareTypes...), nil
}

func (p *StaticLookupProvider) ListContractTypes(context.Context) ([]models.ContractType, error) {
	return append([]models.ContractType(nil), p.ContractTypes...), nil
}

func (p *StaticLookupProvider) ListStatuses(context.Context) ([]models.ContractStatus, error) {
	return append([]models.ContractStatus(nil), p.Statuses...), nil
}

const lookupKeyPrefix = "lookups:"

// CachedLookupProvider кэширует справочники в Redis.
// Ошибки Redis не ломают запрос: данные читаются напрямую из источника.
type CachedLookupProvider struct {
	next   LookupProvider
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCachedLookupProvider(next LookupProvider, client redis.UniversalClient, ttl time.Duration) *CachedLookupProvider {
	return &CachedLookupProvider{next: next, client: client, ttl: ttl}
}

func (p *CachedLookupProvider) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return cachedList(ctx, p, "customers", p.next.ListCustomers)
}

func (p *CachedLookupProvider) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	return cachedList(ctx, p, "suppliers", p.next.ListSuppliers)
}

func (p *CachedLookupProvider) ListSoftwareTypes(ctx context.Context) ([]models.SoftwareType, error) {
	return cachedList(ctx, p, "software_types", p.next.ListSoftwareTypes)
}

func (p *CachedLookupProvider) ListContractTypes(ctx context.Context) ([]models.ContractType, error) {
	return cachedList(ctx, p, "contract_types", p.next.ListContractTypes)
}

func (p *CachedLookupProvider) ListStatuses(ctx context.Context) ([]models.ContractStatus, error) {
	return cachedList(ctx, p, "statuses", p.next.ListStatuses)
}

// Invalidate сбрасывает кэш всех справочников
func (p *CachedLookupProvider) Invalidate(ctx context.Context) error {
	keys := []string{"customers", "suppliers", "software_types", "contract_types", "statuses"}
	for i, k := range keys {
		keys[i] = lookupKeyPrefix + k
	}
	return p.client.Del(ctx, keys...).Err()
}

func cachedList[T any](ctx context.Context, p *CachedLookupProvider, name string, load func(context.Context) ([]T, error)) ([]T, error) {
	key := lookupKeyPrefix + name

	data, err := p.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []T
		if jsonErr := json.Unmarshal(data, &out); jsonErr == nil {
			return out, nil
		}
		utils.LogWarn("поврежденная запись кэша %s, читаем из источника", key)
	case !errors.Is(err, redis.Nil):
		utils.LogWarn("ошибка чтения кэша %s: %v", key, err)
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(out); err == nil {
		if err := p.client.Set(ctx, key, data, p.ttl).Err(); err != nil {
			utils.LogWarn("ошибка записи кэша %s: %v", key, err)
		}
	}
	return out, nil
}
