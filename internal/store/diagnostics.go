package store

import "time"

// RecordDiagnostic persists one background failure.
func (db *DB) RecordDiagnostic(d *Diagnostic) error {
	at := d.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	res, err := db.Exec(`
		INSERT INTO diagnostics (kind, partner_id, op, error, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.Kind, d.PartnerID, d.Op, d.Error, at.UnixMilli())
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

// ListDiagnostics returns the newest diagnostics first, optionally filtered by kind.
func (db *DB) ListDiagnostics(kind string, limit int) ([]Diagnostic, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, kind, partner_id, op, error, occurred_at
		FROM diagnostics
		WHERE (? = '' OR kind = ?)
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Diagnostic
	for rows.Next() {
		var d Diagnostic
		var at int64
		if err := rows.Scan(&d.ID, &d.Kind, &d.PartnerID, &d.Op, &d.Error, &at); err != nil {
			return nil, err
		}
		d.OccurredAt = time.UnixMilli(at)
		out = append(out, d)
	}
	return out, rows.Err()
}

// PruneDiagnostics deletes diagnostics older than the cutoff.
func (db *DB) PruneDiagnostics(before time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM diagnostics WHERE occurred_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
