// internal/audit/journal.go
//
// Mutation journal for scan-report status and archive changes.
//
// Context
// -------
// Every settled mutation, successful or rolled back, is appended to one
// MySQL table so operators can answer "who moved report 42 to BLOCKED, and
// did it stick?" without trawling logs:
//
//	CREATE TABLE scanreport_mutation (
//	    id          BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    report_id   INT           NOT NULL,
//	    field       VARCHAR(16)   NOT NULL,
//	    from_value  VARCHAR(16)   NOT NULL,
//	    to_value    VARCHAR(16)   NOT NULL,
//	    ok          TINYINT(1)    NOT NULL,
//	    error       VARCHAR(512)  NOT NULL DEFAULT '',
//	    created_at  TIMESTAMP     NOT NULL,
//	    KEY idx_report (report_id, created_at)
//	);
//
// Notes
// -----
//   - *Journal satisfies scanreport.Journal.
//   - Error text is truncated to the column width before insert.
//   - Oxford commas, two spaces after periods.
package audit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/scanconsole/internal/scanreport"
)

var _ scanreport.Journal = (*Journal)(nil)

const (
	maxErrorLen  = 512
	defaultLimit = 20
	maxLimit     = 200
)

// Entry mirrors one row in scanreport_mutation.
type Entry struct {
	ID        uint64    `db:"id"         json:"id"`
	ReportID  int       `db:"report_id"  json:"report_id"`
	Field     string    `db:"field"      json:"field"`
	From      string    `db:"from_value" json:"from"`
	To        string    `db:"to_value"   json:"to"`
	OK        bool      `db:"ok"         json:"ok"`
	Error     string    `db:"error"      json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Journal writes and reads mutation entries.
type Journal struct {
	db *sqlx.DB
}

// New wraps an open pool.
func New(db *sqlx.DB) *Journal { return &Journal{db: db} }

// Record appends one settled mutation.
func (j *Journal) Record(ctx context.Context, rec scanreport.MutationRecord) error {
	const q = `
        INSERT INTO scanreport_mutation
               (report_id, field, from_value, to_value, ok, error, created_at)
        VALUES (:report_id, :field, :from_value, :to_value, :ok, :error, :created_at)`

	msg := rec.Error
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	row := Entry{
		ReportID:  rec.ReportID,
		Field:     rec.Field,
		From:      rec.From,
		To:        rec.To,
		OK:        rec.OK,
		Error:     msg,
		CreatedAt: rec.At,
	}
	_, err := j.db.NamedExecContext(ctx, q, row)
	return err
}

// Recent returns the newest entries for one report, newest first.
func (j *Journal) Recent(ctx context.Context, reportID, limit int) ([]Entry, error) {
	const q = `
        SELECT id, report_id, field, from_value, to_value, ok, error, created_at
        FROM   scanreport_mutation
        WHERE  report_id = ?
        ORDER  BY created_at DESC, id DESC
        LIMIT  ?`

	switch {
	case limit < 1:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	rows := make([]Entry, 0, limit)
	if err := j.db.SelectContext(ctx, &rows, q, reportID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}
