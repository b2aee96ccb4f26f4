package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portcontracts/config"
	"portcontracts/models"
	"portcontracts/services"
	"portcontracts/utils"
)

// Database представляет подключение к базе данных
type Database struct {
	DB *gorm.DB
}

// Connect устанавливает соединение с базой данных, выполняет миграции
// и заполняет пустые справочники значениями по умолчанию
func Connect(cfg *config.Config) (*Database, error) {
	// Логгер gorm пишет через zap
	gormLogger := logger.New(
		zap.NewStdLog(utils.Logger().Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(cfg.Log.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.SQLitePath + "?_foreign_keys=on")
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	// Устанавливаем соединение
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	// Настраиваем пул соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %v", err)
	}
	if cfg.DB.Driver == "sqlite" {
		// sqlite не допускает параллельной записи
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if cfg.DB.Driver == "sqlite" {
		// Для sqlite схема строится по моделям
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("ошибка автоматической миграции моделей: %v", err)
		}
	} else {
		// Выполняем SQL миграции
		if err := runMigrations(cfg); err != nil {
			return nil, fmt.Errorf("ошибка выполнения SQL миграций: %v", err)
		}
	}

	if err := Seed(context.Background(), db); err != nil {
		return nil, fmt.Errorf("ошибка заполнения справочников: %v", err)
	}

	utils.LogInfo("подключение к базе данных установлено (%s)", cfg.DB.Driver)
	return &Database{DB: db}, nil
}

// Ping проверяет доступность базы данных
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// runMigrations выполняет SQL миграции
func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.DB.MigrationsPath, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %v", err)
	}

	return nil
}

// AutoMigrate создает таблицы по моделям
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Customer{},
		&models.Supplier{},
		&models.SoftwareType{},
		&models.ContractType{},
		&models.ContractStatus{},
		&models.Contract{},
		&models.PaymentTerm{},
		&models.Expense{},
		&models.ProjectMember{},
		&models.WarningTriage{},
	)
	if err != nil {
		return fmt.Errorf("ошибка автоматической миграции: %v", err)
	}

	return nil
}

// Seed заполняет пустые справочники статусов, типов договоров и видов ПО
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := seedIfEmpty(tx, &models.ContractStatus{}, services.DefaultStatuses()); err != nil {
			return err
		}
		if err := seedIfEmpty(tx, &models.ContractType{}, services.DefaultContractTypes()); err != nil {
			return err
		}
		return seedIfEmpty(tx, &models.SoftwareType{}, services.DefaultSoftwareTypes())
	})
}

func seedIfEmpty[T any](tx *gorm.DB, model interface{}, rows []T) error {
	var count int64
	if err := tx.Model(model).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	default:
		return logger.Warn
	}
}
