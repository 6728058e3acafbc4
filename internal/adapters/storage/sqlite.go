package storage

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
)

// Ensure compliance
var _ ports.AuditRepository = (*SQLiteAdapter)(nil)

// SQLiteAdapter implements the append-only event history using GORM and
// SQLite. Roam events and auth attempts land here for the dashboard and the
// report exporter; nothing in the engine reads them back for decisions.
type SQLiteAdapter struct {
	db *gorm.DB
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening event database: %w", err)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("attaching tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&domain.RoamEvent{}, &domain.AuthAttempt{}); err != nil {
		return nil, fmt.Errorf("migrating event schema: %w", err)
	}
	return &SQLiteAdapter{db: db}, nil
}

// SaveRoamEvent appends one roam record.
func (a *SQLiteAdapter) SaveRoamEvent(event domain.RoamEvent) error {
	return a.db.Create(&event).Error
}

// SaveAuthAttempt appends one bad-client attempt record.
func (a *SQLiteAdapter) SaveAuthAttempt(attempt domain.AuthAttempt) error {
	return a.db.Create(&attempt).Error
}

// ListRoamEvents returns the newest events for one interface.
func (a *SQLiteAdapter) ListRoamEvents(iface string, limit int) ([]domain.RoamEvent, error) {
	var events []domain.RoamEvent
	err := a.db.Where("interface = ?", iface).
		Order("timestamp desc").Limit(limit).Find(&events).Error
	return events, err
}

// ListAuthAttempts returns the newest attempts for one interface.
func (a *SQLiteAdapter) ListAuthAttempts(iface string, limit int) ([]domain.AuthAttempt, error) {
	var attempts []domain.AuthAttempt
	err := a.db.Where("interface = ?", iface).
		Order("timestamp desc").Limit(limit).Find(&attempts).Error
	return attempts, err
}
