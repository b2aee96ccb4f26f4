package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portcontracts/models"
)

// ApplyTriage меняет статус и заметку предупреждения.
// Переходы не ограничены: решенное предупреждение можно вернуть в работу.
func ApplyTriage(warning models.Warning, status models.WarningStatus, note string) (models.Warning, error) {
	parsed := models.ParseWarningStatus(string(status))
	if parsed == models.WarningUnknown {
		return warning, invalidArgument("неизвестный статус предупреждения %q", status)
	}
	warning.Status = parsed
	warning.Note = note
	return warning, nil
}

// MergeTriage накладывает сохраненный разбор на свежие предупреждения по ключу
// (договор, тип, подпись обязательства). Без сохраненного разбора остается pending.
func MergeTriage(warnings []models.Warning, triages []models.WarningTriage) []models.Warning {
	byKey := make(map[models.TriageKey]models.WarningTriage, len(triages))
	for _, t := range triages {
		byKey[t.Key()] = t
	}

	out := make([]models.Warning, len(warnings))
	for i, w := range warnings {
		if t, ok := byKey[w.TriageKey()]; ok {
			if merged, err := ApplyTriage(w, t.Status, t.Note); err == nil {
				w = merged
			}
		}
		out[i] = w
	}
	return out
}

// TriageStore хранилище статусов разбора предупреждений
type TriageStore interface {
	LoadWarningTriage(ctx context.Context, key models.TriageKey) (models.WarningTriage, bool, error)
	SaveWarningTriage(ctx context.Context, triage *models.WarningTriage) error
	ListWarningTriage(ctx context.Context, contractIDs []uuid.UUID) ([]models.WarningTriage, error)
}

// GormTriageStore хранит разбор предупреждений в таблице warning_triages
type GormTriageStore struct {
	db *gorm.DB
}

func NewGormTriageStore(db *gorm.DB) *GormTriageStore {
	return &GormTriageStore{db: db}
}

func (s *GormTriageStore) LoadWarningTriage(ctx context.Context, key models.TriageKey) (models.WarningTriage, bool, error) {
	var triage models.WarningTriage
	err := s.db.WithContext(ctx).
		Where("contract_id = ? AND type = ? AND details = ?", key.ContractID, key.Type, key.Details).
		First(&triage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.WarningTriage{}, false, nil
	}
	if err != nil {
		return models.WarningTriage{}, false, mapStoreError(err)
	}
	return triage, true, nil
}

// SaveWarningTriage создает или обновляет запись по ключу разбора
func (s *GormTriageStore) SaveWarningTriage(ctx context.Context, triage *models.WarningTriage) error {
	if triage.UpdatedAt.IsZero() {
		triage.UpdatedAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_id"}, {Name: "type"}, {Name: "details"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "note", "updated_by", "updated_at"}),
	}).Create(triage).Error
	return mapStoreError(err)
}

func (s *GormTriageStore) ListWarningTriage(ctx context.Context, contractIDs []uuid.UUID) ([]models.WarningTriage, error) {
	if len(contractIDs) == 0 {
		return nil, nil
	}
	var triages []models.WarningTriage
	if err := s.db.WithContext(ctx).Where("contract_id IN ?", contractIDs).Find(&triages).Error; err != nil {
		return nil, mapStoreError(err)
	}
	return triages, nil
}
