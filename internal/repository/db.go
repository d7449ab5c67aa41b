package repository

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	puresqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhub/internal/model"
)

// Supported values of the driver argument to NewDB.
const (
	DriverSQLite     = "sqlite"
	DriverPureSQLite = "sqlite-pure"
)

// ErrNotFound is returned by lookups that match no visible row.
var ErrNotFound = gorm.ErrRecordNotFound

// NewDB opens a SQLite database with the given driver and runs migrations.
func NewDB(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "taskhub.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPureSQLite:
		dialector = puresqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: dbLogger,
		// Timestamps are compared as text by sqlite, so keep them in one zone.
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.ProjectAssignment{},
		&model.Task{},
		&model.TaskAssignment{},
		&model.TaskComment{},
		&model.ActivityLog{},
		&model.Notification{},
		&model.PasswordResetCode{},
	); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the row is absent or not visible.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
