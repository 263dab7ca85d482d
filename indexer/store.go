// Package indexer persists committed ledger events into a SQL database so
// they can be listed by owner, record or type without replaying state.
package indexer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stakeledger/core/events"
	"stakeledger/core/types"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// EventRecord is one persisted event.
type EventRecord struct {
	ID         uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID    uuid.UUID         `gorm:"type:uuid;uniqueIndex" json:"eventId"`
	Type       string            `gorm:"size:64;index" json:"type"`
	Owner      string            `gorm:"size:96;index" json:"owner,omitempty"`
	Record     string            `gorm:"size:96;index" json:"record,omitempty"`
	Class      string            `gorm:"size:16" json:"class,omitempty"`
	Attributes map[string]string `gorm:"serializer:json" json:"attributes"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// TableName pins the table name.
func (EventRecord) TableName() string { return "stake_events" }

// Filter narrows List results. Zero fields match everything; AfterID pages
// forward through the ascending id order.
type Filter struct {
	Type    string
	Owner   string
	Record  string
	AfterID uint64
	Limit   int
}

// Store writes events into the database and serves queries over them. It
// implements events.Emitter.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

// Open connects to a sqlite database at dsn and migrates the schema. Use
// "file::memory:" for an ephemeral index.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("indexer: dsn required")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open sqlite: %w", err)
	}
	// sqlite serialises writers and each ":memory:" connection is its own
	// database, so one connection serves the whole pool.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("indexer: open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: database required")
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Store{db: db, logger: slog.Default(), nowFn: time.Now}, nil
}

// SetLogger overrides the logger used to report write failures.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Emit persists evt. Events without a structured payload are ignored. Write
// failures are logged because the ledger has already committed.
func (s *Store) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	typed, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	payload := typed.Event()
	if payload == nil {
		return
	}
	if err := s.Insert(payload); err != nil {
		s.logger.Error("index event", slog.String("type", payload.Type), slog.Any("error", err))
	}
}

// Insert stores a single event payload.
func (s *Store) Insert(payload *types.Event) error {
	if payload == nil {
		return errors.New("indexer: nil event")
	}
	attrs := make(map[string]string, len(payload.Attributes))
	for k, v := range payload.Attributes {
		attrs[k] = v
	}
	row := EventRecord{
		EventID:    uuid.New(),
		Type:       payload.Type,
		Owner:      attrs["owner"],
		Record:     attrs["record"],
		Class:      attrs["class"],
		Attributes: attrs,
		CreatedAt:  s.nowFn().UTC(),
	}
	return s.db.Create(&row).Error
}

// List returns events matching filter in ascending id order.
func (s *Store) List(filter Filter) ([]EventRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	query := s.db.Model(&EventRecord{}).Where("id > ?", filter.AfterID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Owner != "" {
		query = query.Where("owner = ?", filter.Owner)
	}
	if filter.Record != "" {
		query = query.Where("record = ?", filter.Record)
	}
	var rows []EventRecord
	if err := query.Order("id asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: list: %w", err)
	}
	return rows, nil
}

// Count returns the number of stored events of the given type, or of all
// types when eventType is empty.
func (s *Store) Count(eventType string) (int64, error) {
	query := s.db.Model(&EventRecord{})
	if eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
