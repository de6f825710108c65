// Package archive persists lot outcomes. Rooms stay in memory; this is an
// event sink that keeps a durable record of what was sold to whom.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/events"
)

type LotResult struct {
	ID         uint   `gorm:"primaryKey"`
	EventID    string `gorm:"uniqueIndex;not null"`
	RoomID     string `gorm:"index:idx_room_lot;not null"`
	Lot        int    `gorm:"index:idx_room_lot;not null"`
	ItemID     string `gorm:"not null"`
	ItemName   string
	ItemRole   string
	Status     string `gorm:"not null"`
	Skipped    bool
	WinnerID   string
	Price      int64
	ResolvedAt time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

type Store struct {
	db *gorm.DB
}

// Open connects using dsn: postgres:// and postgresql:// URLs go to Postgres,
// anything else (optionally prefixed with sqlite:) is a SQLite path.
func Open(dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&LotResult{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Publish stores sold and unsold outcomes and ignores every other event.
func (s *Store) Publish(ctx context.Context, ev events.Event) error {
	var status engine.Outcome
	switch ev.Type {
	case engine.EvtLotSold:
		status = engine.OutcomeSold
	case engine.EvtLotUnsold:
		status = engine.OutcomeUnsold
	default:
		return nil
	}

	row := LotResult{
		EventID:    ev.ID,
		RoomID:     ev.RoomID,
		Lot:        ev.Lot,
		Status:     string(status),
		Skipped:    ev.Skipped,
		ResolvedAt: ev.Timestamp,
	}
	if ev.Item != nil {
		row.ItemID = ev.Item.ID
		row.ItemName = ev.Item.Name
		row.ItemRole = ev.Item.Role
	}
	if status == engine.OutcomeSold {
		row.WinnerID = ev.TeamID
		row.Price = ev.Amount
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to insert lot result: %w", err)
	}
	return nil
}

// ListByRoom returns a room's outcomes in lot order.
func (s *Store) ListByRoom(ctx context.Context, roomID string) ([]LotResult, error) {
	var rows []LotResult
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("lot ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query lot results: %w", err)
	}
	return rows, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
