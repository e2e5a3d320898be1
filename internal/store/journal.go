package store

import (
	"database/sql"
	"errors"
	"time"
)

// BeginSend journals a send that is about to hit the network.
func (db *DB) BeginSend(clientMsgID, partnerID, body string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO send_journal (client_msg_id, partner_id, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		clientMsgID, partnerID, body, JournalSending, now, now)
	return err
}

// MarkSent records the server-assigned id for a journaled send.
func (db *DB) MarkSent(clientMsgID, serverMsgID string) error {
	return db.finishSend(clientMsgID, JournalSent, serverMsgID, "")
}

// MarkSendFailed records why a journaled send did not go through.
func (db *DB) MarkSendFailed(clientMsgID, errMsg string) error {
	return db.finishSend(clientMsgID, JournalFailed, "", errMsg)
}

func (db *DB) finishSend(clientMsgID, status, serverMsgID, errMsg string) error {
	res, err := db.Exec(`
		UPDATE send_journal SET status = ?, server_msg_id = ?, error_message = ?, updated_at = ?
		WHERE client_msg_id = ? AND status = ?`,
		status, serverMsgID, errMsg, time.Now().UnixMilli(), clientMsgID, JournalSending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetJournalEntry returns one entry by its client id.
func (db *DB) GetJournalEntry(clientMsgID string) (*JournalEntry, error) {
	row := db.QueryRow(`
		SELECT id, client_msg_id, partner_id, body, status, server_msg_id, error_message, created_at, updated_at
		FROM send_journal WHERE client_msg_id = ?`, clientMsgID)
	e, err := scanJournal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// ListJournal returns the newest entries first. An empty partnerID lists all partners.
func (db *DB) ListJournal(partnerID string, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, client_msg_id, partner_id, body, status, server_msg_id, error_message, created_at, updated_at
		FROM send_journal
		WHERE (? = '' OR partner_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, partnerID, partnerID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// FailStaleSends marks entries still "sending" as failed. Called at daemon
// start, since a send interrupted by a crash never got its answer.
func (db *DB) FailStaleSends() (int64, error) {
	res, err := db.Exec(`
		UPDATE send_journal SET status = ?, error_message = 'interrupted', updated_at = ?
		WHERE status = ?`, JournalFailed, time.Now().UnixMilli(), JournalSending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJournal(s scanner) (*JournalEntry, error) {
	var e JournalEntry
	var created, updated int64
	if err := s.Scan(&e.ID, &e.ClientMsgID, &e.PartnerID, &e.Body, &e.Status, &e.ServerMsgID, &e.ErrorMessage, &created, &updated); err != nil {
		return nil, err
	}
	e.CreatedAt = time.UnixMilli(created)
	e.UpdatedAt = time.UnixMilli(updated)
	return &e, nil
}
