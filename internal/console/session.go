// internal/console/session.go
//
// One operator session of the scan-report console.
//
// Context
// -------
// A Session bundles everything the listing page needs: the store and its
// loader, the lifecycle controller, the in-memory navigation history with
// its History-Sync, and the three column filters.  The HTTP handlers and
// the CLI both drive a Session; neither touches the store directly.
//
// Workflow
// --------
//  1. s, err := console.NewSession(ctx, deps)
//  2. go s.Reload()                // first load, or after POST /reload.
//  3. page := s.Page()             // cached view + filters + options.
//  4. s.Close()                    // drops late responses.
//
// Notes
// -----
//   - The console serves a single operator, so filters and history live in
//     the session rather than in a cookie.
//   - Oxford commas, two spaces after periods.
package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yanizio/scanconsole/internal/audit"
	"github.com/yanizio/scanconsole/internal/scanreport"
)

// BasePath is where the listing lives; history entries hang off it.
const BasePath = "/scanreports/"

// ErrNotAuthor is returned when the console user tries to archive a report
// somebody else added.
var ErrNotAuthor = errors.New("only the report's author may archive it")

// AuditReader lists journaled mutations for one report.
type AuditReader interface {
	Recent(ctx context.Context, reportID, limit int) ([]audit.Entry, error)
}

// Deps wires a Session.  Journal and Audit may be nil.
type Deps struct {
	Source    scanreport.Source
	Patcher   scanreport.Patcher
	Journal   scanreport.Journal
	Audit     AuditReader
	BatchSize int
	Username  string
	StartURL  string // initial location; BasePath when empty
}

// Session is safe for concurrent use.
type Session struct {
	ctx      context.Context
	store    *scanreport.Store
	loader   *scanreport.Loader
	ctrl     *scanreport.Controller
	nav      *scanreport.MemoryNavigator
	history  *scanreport.HistorySync
	audit    AuditReader
	username string

	view  atomic.Pointer[scanreport.View] // newest view delivered by the store
	unsub func()

	mu      sync.Mutex
	filters scanreport.Filters
	notice  string
}

// NewSession builds a session whose background work is bound to ctx.
func NewSession(ctx context.Context, d Deps) (*Session, error) {
	start := d.StartURL
	if start == "" {
		start = BasePath
	}
	nav, err := scanreport.NewMemoryNavigator(start)
	if err != nil {
		return nil, err
	}

	store := scanreport.NewStore(scanreport.ModeFromURL(nav.Location()))
	s := &Session{
		ctx:      ctx,
		store:    store,
		loader:   scanreport.NewLoader(d.Source, store, d.BatchSize),
		ctrl:     scanreport.NewController(store, d.Patcher, d.Journal),
		nav:      nav,
		history:  scanreport.NewHistorySync(nav, store),
		audit:    d.Audit,
		username: d.Username,
		filters:  scanreport.NewFilters(),
	}
	s.unsub = store.Subscribe(s.observe)
	v := store.Snapshot()
	s.view.Store(&v)
	return s, nil
}

/*──────────────────────────── loading ──────────────────────────────────────*/

// Load runs the three-stage load and waits for it.
func (s *Session) Load(ctx context.Context) error { return s.loader.Load(ctx) }

// Reload starts a load in the background.  Overlapping calls share one run.
func (s *Session) Reload() {
	go func() {
		if err := s.loader.Load(s.ctx); err != nil {
			zap.S().Warnw("console reload failed", "err", err)
		}
	}()
}

// Close stops history listening and discards in-flight responses.
func (s *Session) Close() {
	s.unsub()
	s.history.Close()
	s.store.Close()
}

// observe caches each view the store publishes.
func (s *Session) observe(v scanreport.View) {
	prev := s.view.Swap(&v)
	if prev != nil && v.State.Phase != prev.State.Phase {
		zap.S().Debugw("console view advanced", "phase", v.State.Phase.String(),
			"active", len(v.Active), "archived", len(v.Archived))
	}
}

/*──────────────────────────── navigation ───────────────────────────────────*/

// Visit syncs the mode from a requested URL.
func (s *Session) Visit(path, rawQuery string) {
	u := s.nav.Location()
	u.Path = path
	u.RawQuery = rawQuery
	s.history.Visit(u)
}

// Show switches partitions, pushing a history entry.
func (s *Session) Show(m scanreport.Mode) { s.history.Show(m) }

// Back and Forward replay history.  They report false at either end.
func (s *Session) Back() bool    { return s.nav.Back() }
func (s *Session) Forward() bool { return s.nav.Forward() }

// canStep reports whether history holds an entry delta steps away.
func (s *Session) canStep(delta int) bool {
	_, ok := s.nav.Peek(delta)
	return ok
}

// Location is the URL the browser should be showing.
func (s *Session) Location() string {
	u := s.nav.Location()
	u.Scheme, u.Host = "", ""
	return u.String()
}

/*──────────────────────────── filters ──────────────────────────────────────*/

// SetFilter sets one column filter.
func (s *Session) SetFilter(c scanreport.Column, v string) {
	s.mu.Lock()
	s.filters.Set(c, v)
	s.mu.Unlock()
}

// RemoveFilter resets the filters named by a chip label.
func (s *Session) RemoveFilter(label string) {
	s.mu.Lock()
	s.filters.Remove(label)
	s.mu.Unlock()
}

// Filters returns a copy of the current filters.
func (s *Session) Filters() scanreport.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

/*──────────────────────────── mutations ────────────────────────────────────*/

// SetStatus changes one report's status.  A failure is also kept as a
// one-shot notice for the next page render.
func (s *Session) SetStatus(ctx context.Context, id int, st scanreport.Status) error {
	err := s.ctrl.SetStatus(ctx, id, st)
	s.remember(err)
	return err
}

// SetArchived archives or restores one report.  Only the report's author
// may do so.
func (s *Session) SetArchived(ctx context.Context, id int, hidden bool) error {
	r, ok := s.store.Report(id)
	if !ok {
		return &scanreport.MutationError{ReportID: id, Field: "hidden", Err: scanreport.ErrNotFound}
	}
	if !s.canArchive(r) {
		return &scanreport.MutationError{ReportID: id, Field: "hidden", Err: ErrNotAuthor}
	}
	err := s.ctrl.SetArchived(ctx, id, hidden)
	s.remember(err)
	return err
}

// Audit lists the journal entries of one report.
func (s *Session) Audit(ctx context.Context, id, limit int) ([]audit.Entry, error) {
	if s.audit == nil {
		return nil, errAuditDisabled
	}
	return s.audit.Recent(ctx, id, limit)
}

var errAuditDisabled = errors.New("audit journal disabled")

func (s *Session) canArchive(r scanreport.Report) bool {
	return s.username != "" && r.Author != nil && r.Author.Username == s.username
}

func (s *Session) remember(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.notice = err.Error()
	s.mu.Unlock()
}

func (s *Session) takeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notice
	s.notice = ""
	return n
}
