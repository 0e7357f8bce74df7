package eventlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Entry is one audited mutation: who did what to which entity.
type Entry struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Detail     string
}

// Recorder appends membership and visibility mutations to a local sqlite
// audit trail. It is best-effort end to end: a failed write is logged and the
// request proceeds. A nil Recorder is valid and records nothing.
type Recorder struct {
	db  *sql.DB
	log *logrus.Entry
}

// Open creates (or reuses) the audit database at path.
func Open(path string, log *logrus.Entry) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	const createTable = `
        CREATE TABLE IF NOT EXISTS audit_events (
            id TEXT PRIMARY KEY,
            actor TEXT NOT NULL,
            action TEXT NOT NULL,
            entity_type TEXT NOT NULL,
            entity_id TEXT NOT NULL,
            detail TEXT NOT NULL DEFAULT '',
            recorded_at TIMESTAMP NOT NULL
        )`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, err
	}
	return &Recorder{db: db, log: log}, nil
}

// Enabled reports whether the recorder will persist anything.
func (r *Recorder) Enabled() bool {
	return r != nil && r.db != nil
}

// Record appends one entry. Failures never propagate to the caller.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if !r.Enabled() {
		return
	}
	const insert = `
        INSERT INTO audit_events (id, actor, action, entity_type, entity_id, detail, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, insert,
		uuid.NewString(), e.Actor, e.Action, e.EntityType, e.EntityID, e.Detail, time.Now().UTC())
	if err != nil && r.log != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"action": e.Action,
			"entity": e.EntityID,
		}).Warn("audit write failed")
	}
}

// Recent returns up to limit entries, newest first. Used by operators, not by
// the request path.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if !r.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT actor, action, entity_type, entity_id, detail
        FROM audit_events
        ORDER BY recorded_at DESC, id
        LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Actor, &e.Action, &e.EntityType, &e.EntityID, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Recorder) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.db.Close()
}
