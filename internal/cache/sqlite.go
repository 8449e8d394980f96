package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/contentplan-agent/pkg/logger"
)

// Entry is the persisted form of one cache record
type Entry struct {
	Key       string    `gorm:"primaryKey"`
	Payload   []byte    `gorm:"type:blob"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName keeps the table name stable across gorm versions
func (Entry) TableName() string {
	return "cache_entries"
}

// Sqlite is the on-device Store, surviving process restarts
type Sqlite struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
	log *logger.Logger
}

// NewSqlite opens (creating if needed) the cache database at dsn
func NewSqlite(dsn string, ttl time.Duration, log *logger.Logger) (*Sqlite, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Sqlite{
		db:  db,
		ttl: ttl,
		now: time.Now,
		log: log.WithComponent("cache"),
	}, nil
}

// Get returns the payload for key if it exists and is younger than the TTL.
// Expired entries are deleted on the way out so they cannot resurrect.
func (s *Sqlite) Get(key string) ([]byte, bool) {
	var entry Entry
	if err := s.db.First(&entry, "key = ?", key).Error; err != nil {
		return nil, false
	}
	if s.now().Sub(entry.CreatedAt) > s.ttl {
		if err := s.db.Delete(&Entry{}, "key = ?", key).Error; err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to drop expired cache entry")
		}
		return nil, false
	}
	return entry.Payload, true
}

// Set upserts the payload under key. Cache writes are best-effort: failures
// are logged, never returned.
func (s *Sqlite) Set(key string, value []byte) {
	entry := Entry{Key: key, Payload: value, CreatedAt: s.now()}
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Invalidate removes key, logging (not returning) any failure
func (s *Sqlite) Invalidate(key string) {
	if err := s.db.Delete(&Entry{}, "key = ?", key).Error; err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache invalidation failed")
	}
}

// Sweep removes every expired entry. Run periodically by the notifier
// daemon's maintenance cron.
func (s *Sqlite) Sweep() error {
	cutoff := s.now().Add(-s.ttl)
	res := s.db.Delete(&Entry{}, "created_at < ?", cutoff)
	if res.Error != nil {
		return fmt.Errorf("cache sweep failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Debug().Int64("removed", res.RowsAffected).Msg("Swept expired cache entries")
	}
	return nil
}

// Close closes the underlying database handle
func (s *Sqlite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
