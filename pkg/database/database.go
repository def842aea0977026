package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/config"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	schema = "scheduling"

	// NoOverlapConstraint rejects two rows of one doctor whose
	// [start_time, end_time) ranges intersect.
	NoOverlapConstraint = "appointments_no_overlap"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return Open(cfg.DSN(), cfg)
}

// Open connects to dsn with the pool settings from cfg.
func Open(dsn string, cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:          true,
		DisableAutomaticPing: false,
		NowFunc:              func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
		return fmt.Errorf("creating schema %s: %w", schema, err)
	}

	if err := db.AutoMigrate(&appointment.Appointment{}); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	createConstraints(db, log)

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// createConstraints installs the database-side overlap guard. It needs the
// btree_gist extension; without it the application lock still holds the
// invariant, so failures are logged and skipped.
func createConstraints(db *gorm.DB, log *zap.Logger) {
	statements := []struct {
		name  string
		query string
	}{
		{
			name:  "btree_gist",
			query: `CREATE EXTENSION IF NOT EXISTS btree_gist`,
		},
		{
			name: NoOverlapConstraint,
			query: `DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '` + NoOverlapConstraint + `') THEN
		ALTER TABLE scheduling.appointments
			ADD CONSTRAINT ` + NoOverlapConstraint + `
			EXCLUDE USING gist (doctor_name WITH =, tstzrange(start_time, end_time, '[)') WITH &&);
	END IF;
END $$`,
		},
	}

	for _, st := range statements {
		if err := db.Exec(st.query).Error; err != nil {
			log.Warn("skipping database constraint", zap.String("name", st.name), zap.Error(err))
		}
	}
}
