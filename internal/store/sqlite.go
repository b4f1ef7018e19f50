package store

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/notifyhub/notifyhub-go/internal/errors"
)

// stateEntry is one persisted key-value row.
type stateEntry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

// TableName keeps the table name stable across gorm naming strategy changes.
func (stateEntry) TableName() string {
	return "hub_state"
}

// SQLiteStore is a KeyValueStore persisted in a local SQLite database, so
// the registration cache survives process restarts.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// migrates the state table.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Newf("failed to open SQLite store at %s: %w", path, err).
			Category(errors.CategoryStorage).
			Context("path", path).
			Component("store").
			Build()
	}

	if err := db.AutoMigrate(&stateEntry{}); err != nil {
		return nil, errors.Newf("failed to migrate SQLite store: %w", err).
			Category(errors.CategoryStorage).
			Context("path", path).
			Component("store").
			Build()
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the value for key and whether it was present.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var entry stateEntry
	err := s.db.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("failed to read key", key, err)
	}
	return entry.Value, true, nil
}

// Set stores value under key, overwriting any previous value.
func (s *SQLiteStore) Set(key, value string) error {
	entry := stateEntry{Key: key, Value: value}
	if err := s.db.Save(&entry).Error; err != nil {
		return storageErr("failed to write key", key, err)
	}
	return nil
}

// Delete removes key.
func (s *SQLiteStore) Delete(key string) error {
	if err := s.db.Delete(&stateEntry{}, "key = ?", key).Error; err != nil {
		return storageErr("failed to delete key", key, err)
	}
	return nil
}

// Keys returns all keys starting with prefix.
func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.Model(&stateEntry{}).
		Where("key LIKE ?", prefix+"%").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, storageErr("failed to enumerate keys", prefix, err)
	}
	return keys, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storageErr("failed to access underlying database", "", err)
	}
	return sqlDB.Close()
}

func storageErr(msg, key string, err error) error {
	return errors.Newf("%s: %w", msg, err).
		Category(errors.CategoryStorage).
		Context("key", key).
		Component("store").
		Build()
}
