package database

import (
	"fmt"
	"strings"

	"localglobal-go/internal/config"
	logging "localglobal-go/internal/logging"
	"localglobal-go/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init opens the configured database, runs migrations and stores the handle in DB.
func Init(dbConf config.DatabaseConfig, log *zap.Logger) error {
	db, err := Open(dbConf, log)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to the database described by dbConf and migrates the schema.
func Open(dbConf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(dbConf)
	if err != nil {
		return nil, err
	}

	// Create our custom GORM logger
	gormLogger := logging.NewGormZapLogger(log)
	gormLogger.LogLevel = logging.ParseGormLevel(dbConf.LogLevel)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if isInMemory(dbConf) {
		// Every new connection to an in-memory database starts empty.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("Database connection established successfully.", zap.String("driver", dbConf.Driver))
	if err := runMigrations(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorFor(dbConf config.DatabaseConfig) (gorm.Dialector, error) {
	switch dbConf.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)
		return postgres.Open(dsn), nil
	case "sqlite", "":
		return sqlite.Open(dbConf.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbConf.Driver)
	}
}

func isInMemory(dbConf config.DatabaseConfig) bool {
	if dbConf.Driver != "sqlite" && dbConf.Driver != "" {
		return false
	}
	return dbConf.Path == ":memory:" || strings.Contains(dbConf.Path, "mode=memory")
}

func runMigrations(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&models.TaskRun{},
		&models.TrialResponse{},
		&models.SwitchCostResult{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	log.Info("Database migrations completed successfully.")

	runIndex := `CREATE INDEX IF NOT EXISTS idx_task_runs_created_at ON task_runs (created_at);`
	if err := db.Exec(runIndex).Error; err != nil {
		return fmt.Errorf("failed to create index on task_runs: %w", err)
	}
	return nil
}
