package services

import (
	"context"
	"time"

	"portcontracts/utils"
)

// WarningSchedulerService периодически сканирует сроки и рассылает сводку
type WarningSchedulerService struct {
	warnings *WarningService
	notifier Notifier
	interval time.Duration
}

// NewWarningSchedulerService создает новый экземпляр WarningSchedulerService
func NewWarningSchedulerService(warnings *WarningService, notifier Notifier, interval time.Duration) *WarningSchedulerService {
	return &WarningSchedulerService{
		warnings: warnings,
		notifier: notifier,
		interval: interval,
	}
}

// Start запускает планировщик; он останавливается при отмене ctx
func (s *WarningSchedulerService) Start(ctx context.Context) {
	if s.interval <= 0 {
		utils.LogWarn("интервал сканирования не задан, планировщик предупреждений не запущен")
		return
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.RunOnce(ctx); err != nil {
					utils.LogError("Ошибка при сканировании сроков по договорам: %v", err)
				}
			}
		}
	}()
}

// RunOnce сканирует сроки на сегодня и отправляет сводку
func (s *WarningSchedulerService) RunOnce(ctx context.Context) error {
	startTime := time.Now()
	today := s.warnings.Today()

	warnings, err := s.warnings.Scan(ctx, today, s.warnings.HorizonDays())
	if err != nil {
		utils.LogOperation("сканирование сроков", startTime, err)
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.SendWarningDigest(warnings, today); err != nil {
			utils.LogOperation("рассылка сводки предупреждений", startTime, err)
			return err
		}
	}
	utils.LogOperation("сканирование сроков", startTime, nil)
	return nil
}
