// internal/scanreport/lifecycle.go
//
// Status and archive mutations.
//
// Context
// -------
// Both operations follow the same shape:
//
//  1. Mark the target record busy (StatusLoading or Loading) in the store,
//     which recomputes the views immediately.
//  2. PATCH the single changed attribute.
//  3. On success write the new value; on failure leave the attribute as
//     it is.  The attribute is never changed before the response, so a
//     failed PATCH cannot undo a newer success on the same report.
//  4. Drop the in-flight count for the field.  The busy flag clears when
//     no other mutation of that field is pending.
//
// Only the target record is touched.  A response that arrives after the
// store was closed or reloaded is dropped.  Mutations on different reports
// run side by side; two successful mutations on the same report are
// last-writer-wins.
//
// Notes
// -----
//   - Every settled mutation is journaled and counted.  Journal failures
//     are logged and never fail the mutation.
//   - Oxford commas, two spaces after periods.
package scanreport

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/scanconsole/internal/metrics"
)

// Patch is the body of PATCH /scanreports/<id>/.  Exactly one field is set.
type Patch struct {
	Status *Status `json:"status,omitempty"`
	Hidden *bool   `json:"hidden,omitempty"`
}

// Patcher sends a partial update for one report.
type Patcher interface {
	PatchReport(ctx context.Context, id int, p Patch) error
}

// MutationRecord is one settled mutation as written to the journal.
type MutationRecord struct {
	ReportID int
	Field    string
	From     string
	To       string
	OK       bool
	Error    string
	At       time.Time
}

// Journal persists mutation outcomes.
type Journal interface {
	Record(ctx context.Context, rec MutationRecord) error
}

// MutationError identifies the report and attribute whose update failed.
type MutationError struct {
	ReportID int
	Field    string
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("scan report %d: update %s: %v", e.ReportID, e.Field, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Controller drives the per-report lifecycle against one store.
type Controller struct {
	store   *Store
	api     Patcher
	journal Journal
}

// NewController wires a controller.  journal may be nil.
func NewController(store *Store, api Patcher, journal Journal) *Controller {
	return &Controller{store: store, api: api, journal: journal}
}

// SetStatus changes the status code of report id.
func (c *Controller) SetStatus(ctx context.Context, id int, status Status) error {
	if !status.Valid() {
		return &MutationError{ReportID: id, Field: "status",
			Err: fmt.Errorf("%w: %q", ErrUnknownStatus, string(status))}
	}

	before, gen, err := c.store.begin(id, func(r *Report) {
		r.statusPending++
		r.StatusLoading = true
	})
	if err != nil {
		return &MutationError{ReportID: id, Field: "status", Err: err}
	}

	perr := c.api.PatchReport(ctx, id, Patch{Status: &status})
	c.store.settle(id, gen, func(r *Report) {
		r.statusPending--
		r.StatusLoading = r.statusPending > 0
		if perr == nil {
			r.Status = status
		}
	})

	c.finish(ctx, id, "status", string(before.Status), string(status), perr)
	if perr != nil {
		return &MutationError{ReportID: id, Field: "status", Err: perr}
	}
	return nil
}

// SetArchived moves report id between the active and archived partitions.
func (c *Controller) SetArchived(ctx context.Context, id int, hidden bool) error {
	before, gen, err := c.store.begin(id, func(r *Report) {
		r.hiddenPending++
		r.Loading = true
	})
	if err != nil {
		return &MutationError{ReportID: id, Field: "hidden", Err: err}
	}

	perr := c.api.PatchReport(ctx, id, Patch{Hidden: &hidden})
	c.store.settle(id, gen, func(r *Report) {
		r.hiddenPending--
		r.Loading = r.hiddenPending > 0
		if perr == nil {
			r.Hidden = hidden
		}
	})

	c.finish(ctx, id, "hidden", strconv.FormatBool(before.Hidden), strconv.FormatBool(hidden), perr)
	if perr != nil {
		return &MutationError{ReportID: id, Field: "hidden", Err: perr}
	}
	return nil
}

// finish logs, counts, and journals one settled mutation.
func (c *Controller) finish(ctx context.Context, id int, field, from, to string, err error) {
	outcome := "ok"
	rec := MutationRecord{ReportID: id, Field: field, From: from, To: to, OK: true, At: time.Now().UTC()}
	if err != nil {
		outcome = "rolled_back"
		rec.OK = false
		rec.Error = err.Error()
		zap.S().Warnw("scan report mutation rolled back",
			"report", id, "field", field, "from", from, "to", to, "err", err)
	} else {
		zap.S().Infow("scan report updated", "report", id, "field", field, "from", from, "to", to)
	}
	metrics.MutationsTotal.WithLabelValues(field, outcome).Inc()

	if c.journal == nil {
		return
	}
	// The caller's context may already be done; the journal write should
	// still happen.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if jerr := c.journal.Record(jctx, rec); jerr != nil {
		zap.S().Errorw("mutation journal write failed", "report", id, "field", field, "err", jerr)
	}
}
