package store

import (
	"database/sql"
	"errors"
	"strconv"
	"time"
)

// Well-known state keys.
const (
	KeyUnreadTotal = "unread_total"
	KeyLastPollAt  = "last_poll_at"
)

// SetState upserts a key/value pair.
func (db *DB) SetState(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// GetState returns the value for key and whether it was present.
func (db *DB) GetState(key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetInt stores an integer value.
func (db *DB) SetInt(key string, v int64) error {
	return db.SetState(key, strconv.FormatInt(v, 10))
}

// GetInt reads an integer value, returning 0 when absent.
func (db *DB) GetInt(key string) (int64, error) {
	s, ok, err := db.GetState(key)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

// SetTime stores a timestamp with millisecond precision.
func (db *DB) SetTime(key string, t time.Time) error {
	return db.SetInt(key, t.UnixMilli())
}

// GetTime reads a timestamp, returning the zero time when absent.
func (db *DB) GetTime(key string) (time.Time, error) {
	ms, err := db.GetInt(key)
	if err != nil || ms == 0 {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
