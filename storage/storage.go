// Package storage keeps the audit trail in SQLite: session metadata, the
// message transcript, and completion snapshots. Checkpoints are the source
// of truth for live state; these tables only serve listings and history.
package storage

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbxark/fieldagent/errx"
)

// Config is the envconfig-tagged storage configuration.
type Config struct {
	Path string `envconfig:"SQLITE_PATH" default:"fieldagent.db"`
}

// SessionRecord is one row per session.
type SessionRecord struct {
	ID        string `gorm:"primaryKey"`
	AgentID   string `gorm:"index"`
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRecord is one row per message, both directions.
type MessageRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index"`
	Role      string
	Content   string
	Turn      int
	CreatedAt time.Time
}

// CompletionRecord is written once when a session completes.
type CompletionRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"uniqueIndex"`
	AgentID   string `gorm:"index"`
	Fields    string
	Action    string
	Result    string
	CreatedAt time.Time
}

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Store wraps the gorm connection.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite file and migrates the schema.
func Open(cfg Config) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errx.Wrap(errx.KindBackend, "open sqlite", err)
	}
	if err := db.AutoMigrate(&SessionRecord{}, &MessageRecord{}, &CompletionRecord{}); err != nil {
		return nil, errx.Wrap(errx.KindBackend, "migrate schema", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateSession(ctx context.Context, sessionID, agentID string) error {
	record := SessionRecord{ID: sessionID, AgentID: agentID, Status: SessionActive}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errx.Wrap(errx.KindBackend, "create session record", err)
	}
	return nil
}

func (s *Store) SetSessionStatus(ctx context.Context, sessionID, status string) error {
	err := s.db.WithContext(ctx).
		Model(&SessionRecord{}).
		Where("id = ?", sessionID).
		Update("status", status).Error
	if err != nil {
		return errx.Wrap(errx.KindBackend, "update session status", err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string, turn int) error {
	record := MessageRecord{SessionID: sessionID, Role: role, Content: content, Turn: turn}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errx.Wrap(errx.KindBackend, "append message", err)
	}
	return nil
}

// History returns the transcript in send order.
func (s *Store) History(ctx context.Context, sessionID string) ([]MessageRecord, error) {
	var records []MessageRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&records).Error
	if err != nil {
		return nil, errx.Wrap(errx.KindBackend, "load history", err)
	}
	return records, nil
}

func (s *Store) RecordCompletion(ctx context.Context, record *CompletionRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return errx.Wrap(errx.KindBackend, "record completion", err)
	}
	return nil
}

// Completions lists completions for one agent, newest first.
func (s *Store) Completions(ctx context.Context, agentID string) ([]CompletionRecord, error) {
	var records []CompletionRecord
	err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("id desc").
		Find(&records).Error
	if err != nil {
		return nil, errx.Wrap(errx.KindBackend, "list completions", err)
	}
	return records, nil
}

// Sessions lists sessions, newest first, optionally filtered by status.
func (s *Store) Sessions(ctx context.Context, status string) ([]SessionRecord, error) {
	query := s.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var records []SessionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, errx.Wrap(errx.KindBackend, "list sessions", err)
	}
	return records, nil
}
