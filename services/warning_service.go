package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"portcontracts/models"
	"portcontracts/utils"
)

// WarningQueryDTO параметры списка предупреждений
type WarningQueryDTO struct {
	Date    string `form:"date"`
	Horizon *int   `form:"horizon" validate:"omitempty,min=0,max=3650"`
	Type    string `form:"type" validate:"omitempty,oneof=acceptance_overdue acceptance_upcoming payment_overdue payment_upcoming"`
	Status  string `form:"status" validate:"omitempty,oneof=pending processing resolved"`
}

// TriageDTO запрос на изменение статуса и заметки предупреждения
type TriageDTO struct {
	ContractID uuid.UUID `json:"contractId" validate:"required"`
	Type       string    `json:"type" validate:"required,oneof=acceptance_overdue acceptance_upcoming payment_overdue payment_upcoming"`
	Details    string    `json:"details" validate:"required,max=255"`
	Status     string    `json:"status" validate:"required,oneof=pending processing resolved"`
	Note       string    `json:"note" validate:"max=2000"`
}

// WarningService собирает предупреждения по всем договорам и хранит их разбор
type WarningService struct {
	repo        ContractRepository
	lookups     LookupProvider
	triage      TriageStore
	validator   *validator.Validate
	metrics     *utils.Metrics
	horizonDays int
	loc         *time.Location
	batchSize   int
}

// NewWarningService создает новый экземпляр WarningService
func NewWarningService(repo ContractRepository, lookups LookupProvider, triage TriageStore, horizonDays int, loc *time.Location, metrics *utils.Metrics) *WarningService {
	if loc == nil {
		loc = time.UTC
	}
	return &WarningService{
		repo:        repo,
		lookups:     lookups,
		triage:      triage,
		validator:   validator.New(),
		metrics:     metrics,
		horizonDays: horizonDays,
		loc:         loc,
		batchSize:   200,
	}
}

// HorizonDays горизонт предупреждений по умолчанию
func (s *WarningService) HorizonDays() int {
	return s.horizonDays
}

// Today текущая дата в часовом поясе сервиса
func (s *WarningService) Today() time.Time {
	return utils.Today(s.loc)
}

// Scan сканирует все договоры и накладывает сохраненный разбор
func (s *WarningService) Scan(ctx context.Context, referenceDate time.Time, horizonDays int) ([]models.Warning, error) {
	startTime := time.Now()

	catalog, err := LoadStatusCatalog(ctx, s.lookups)
	if err != nil {
		return nil, err
	}

	var batches [][]models.Contract
	err = s.repo.ForEachContractBatch(ctx, s.batchSize, func(batch []models.Contract) error {
		batches = append(batches, batch)
		return nil
	})
	if err != nil {
		return nil, err
	}

	warnings, err := ScanWarningsParallel(ctx, batches, referenceDate, horizonDays, catalog)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	var contractIDs []uuid.UUID
	for _, w := range warnings {
		if _, ok := seen[w.ContractID]; !ok {
			seen[w.ContractID] = struct{}{}
			contractIDs = append(contractIDs, w.ContractID)
		}
	}
	triages, err := s.triage.ListWarningTriage(ctx, contractIDs)
	if err != nil {
		return nil, err
	}
	warnings = MergeTriage(warnings, triages)
	SortWarnings(warnings)

	if s.metrics != nil {
		counts := make(map[[2]string]int)
		for _, w := range warnings {
			counts[[2]string{string(w.Type), string(w.Status)}]++
		}
		s.metrics.RecordScan(time.Since(startTime), counts)
	}
	utils.LogDebug("сканирование сроков: %d предупреждений на %s", len(warnings), referenceDate.Format(utils.DateLayout))
	return warnings, nil
}

// List возвращает предупреждения с учетом фильтров запроса
func (s *WarningService) List(ctx context.Context, query WarningQueryDTO) ([]models.Warning, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, invalidArgument("неверные параметры: %v", err)
	}

	referenceDate := s.Today()
	if strings.TrimSpace(query.Date) != "" {
		parsed, ok := utils.ParseCalendarDate(query.Date)
		if !ok {
			return nil, invalidArgument("неверная дата %q", query.Date)
		}
		referenceDate = parsed
	}
	horizon := s.horizonDays
	if query.Horizon != nil {
		horizon = *query.Horizon
	}

	warnings, err := s.Scan(ctx, referenceDate, horizon)
	if err != nil {
		return nil, err
	}

	filtered := warnings[:0]
	for _, w := range warnings {
		if query.Type != "" && string(w.Type) != query.Type {
			continue
		}
		if query.Status != "" && string(w.Status) != query.Status {
			continue
		}
		filtered = append(filtered, w)
	}
	return filtered, nil
}

// Triage сохраняет статус и заметку предупреждения по ключу разбора
func (s *WarningService) Triage(ctx context.Context, dto TriageDTO, updatedBy string) (*models.WarningTriage, error) {
	if err := s.validator.Struct(dto); err != nil {
		return nil, invalidArgument("неверный запрос: %v", err)
	}
	if _, err := s.repo.GetContract(ctx, dto.ContractID); err != nil {
		return nil, err
	}

	key := models.TriageKey{
		ContractID: dto.ContractID,
		Type:       models.ParseWarningType(dto.Type),
		Details:    strings.TrimSpace(dto.Details),
	}
	current, _, err := s.triage.LoadWarningTriage(ctx, key)
	if err != nil {
		return nil, err
	}

	warning, err := ApplyTriage(models.Warning{
		ContractID: key.ContractID,
		Type:       key.Type,
		Details:    key.Details,
		Status:     current.Status,
		Note:       current.Note,
	}, models.WarningStatus(dto.Status), dto.Note)
	if err != nil {
		return nil, err
	}

	triage := &models.WarningTriage{
		ContractID: key.ContractID,
		Type:       key.Type,
		Details:    key.Details,
		Status:     warning.Status,
		Note:       warning.Note,
		UpdatedBy:  updatedBy,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.triage.SaveWarningTriage(ctx, triage); err != nil {
		return nil, err
	}
	utils.LogInfo("разбор предупреждения %s/%s/%s: %s", key.ContractID, key.Type, key.Details, triage.Status)
	return triage, nil
}
