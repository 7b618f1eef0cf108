// internal/scanreport/store.go
//
// Enriched collection and its derived views.
//
// Context
// -------
// Store owns the one mutable copy of the enriched report collection.  The
// active and archived partitions, and the displayed view chosen by the
// mode, are recomputed from scratch after every change and handed to
// subscribers.  Nothing outside this file holds a writable reference to a
// partition.
//
// Workflow
// --------
//  1. The loader calls BeginLoad, then Replace once references resolve,
//     then enrich for the table and field stages (or Fail).
//  2. The lifecycle controller calls begin and settle around each PATCH.
//  3. History-Sync calls SetMode on navigation.
//  4. Readers call Snapshot, Report, or Subscribe.
//
// Notes
// -----
//   - A generation counter is bumped by Replace and Close.  A settle call
//     carrying an older generation is dropped, so responses that target a
//     discarded collection are no-ops.
//   - Subscribers run outside the data lock, one delivery at a time, and
//     always receive the newest view.  They must not write to the store
//     synchronously.
//   - View slices are shared between readers; treat them as read-only.
//   - Oxford commas, two spaces after periods.
package scanreport

import (
	"errors"
	"sync"

	"github.com/yanizio/scanconsole/internal/metrics"
)

var (
	// ErrNotFound is returned when no report carries the requested id.
	ErrNotFound = errors.New("scan report not found")
	// ErrClosed is returned once the store has been torn down.
	ErrClosed = errors.New("scan report store closed")
)

// Phase records how far enrichment has progressed.
type Phase int

const (
	PhasePending    Phase = iota // nothing published yet
	PhaseReferences              // partners and authors resolved
	PhaseTables                  // tables counted
	PhaseComplete                // fields counted
)

func (p Phase) String() string {
	switch p {
	case PhaseReferences:
		return "references"
	case PhaseTables:
		return "tables"
	case PhaseComplete:
		return "complete"
	}
	return "pending"
}

// LoadState is the loading / error surface shown next to the views.
type LoadState struct {
	Phase   Phase
	Loading bool
	Err     error
}

// Ready reports whether reports may be rendered.
func (s LoadState) Ready() bool { return s.Phase >= PhaseReferences }

// View is an immutable snapshot of the derived collections.
type View struct {
	Mode      Mode
	State     LoadState
	Active    []Report
	Archived  []Report
	Displayed []Report
}

// Store is safe for concurrent use.  The zero value is not usable; call
// NewStore.
type Store struct {
	mu     sync.Mutex
	data   []Report
	mode   Mode
	state  LoadState
	view   View
	gen    uint64
	closed bool

	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[int]func(View)
	nextSub  int
}

// NewStore returns an empty store displaying mode.
func NewStore(mode Mode) *Store {
	s := &Store{mode: mode, subs: make(map[int]func(View))}
	s.recomputeLocked()
	return s
}

/*──────────────────────────── readers ──────────────────────────────────────*/

// Snapshot returns the current derived views.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Mode returns the displayed partition selector.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Report returns a copy of one record.
func (s *Store) Report(id int) (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.data[i], true
	}
	return Report{}, false
}

// Subscribe registers fn for every future view and returns a cancel func.
func (s *Store) Subscribe(fn func(View)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

/*──────────────────────────── writers ──────────────────────────────────────*/

// SetMode switches the displayed partition.
func (s *Store) SetMode(m Mode) {
	s.mutate(func() bool {
		if s.mode == m {
			return false
		}
		s.mode = m
		return true
	})
}

// BeginLoad marks a load in flight.  Already published data stays visible.
func (s *Store) BeginLoad() {
	s.mutate(func() bool {
		s.state.Loading = true
		s.state.Err = nil
		return true
	})
}

// Replace publishes a freshly loaded collection with resolved references.
// In-flight mutations against the previous collection are orphaned.
func (s *Store) Replace(reports []Report) {
	s.mutate(func() bool {
		s.data = append(make([]Report, 0, len(reports)), reports...)
		s.gen++
		s.state = LoadState{Phase: PhaseReferences, Loading: true}
		return true
	})
}

// Fail ends the current load with err.
func (s *Store) Fail(err error) {
	s.mutate(func() bool {
		s.state.Loading = false
		s.state.Err = err
		return true
	})
}

// Close tears the store down.  Pending settles become no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	s.mu.Unlock()

	s.subsMu.Lock()
	s.subs = make(map[int]func(View))
	s.subsMu.Unlock()
}

// enrich applies fn to the live collection and advances the phase.  It
// does not bump the generation, so in-flight mutations survive it.
func (s *Store) enrich(phase Phase, fn func([]Report)) {
	s.mutate(func() bool {
		fn(s.data)
		s.state.Phase = phase
		s.state.Loading = phase < PhaseComplete
		return true
	})
}

// begin applies the optimistic change to record id and returns its prior
// value along with the generation the change belongs to.
func (s *Store) begin(id int, fn func(*Report)) (before Report, gen uint64, err error) {
	s.mutate(func() bool {
		if s.closed {
			err = ErrClosed
			return false
		}
		i := s.indexLocked(id)
		if i < 0 {
			err = ErrNotFound
			return false
		}
		before = s.data[i]
		gen = s.gen
		fn(&s.data[i])
		return true
	})
	return before, gen, err
}

// settle applies the reconciling change when gen is still current.  It
// reports whether the change was applied.
func (s *Store) settle(id int, gen uint64, fn func(*Report)) (applied bool) {
	s.mutate(func() bool {
		if s.closed || gen != s.gen {
			return false
		}
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		fn(&s.data[i])
		applied = true
		return true
	})
	return applied
}

/*──────────────────────────── internals ────────────────────────────────────*/

// mutate runs fn under the data lock.  When fn reports a change the views
// are recomputed and subscribers notified.
func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	if changed {
		s.recomputeLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// recomputeLocked rebuilds every derived view from s.data.
func (s *Store) recomputeLocked() {
	active := make([]Report, 0, len(s.data))
	archived := make([]Report, 0, len(s.data))
	for _, r := range s.data {
		if r.Hidden {
			archived = append(archived, r)
		} else {
			active = append(active, r)
		}
	}

	displayed := active
	if s.mode == ModeArchived {
		displayed = archived
	}

	s.view = View{
		Mode:      s.mode,
		State:     s.state,
		Active:    active,
		Archived:  archived,
		Displayed: displayed,
	}
	metrics.ReportsLoaded.WithLabelValues("active").Set(float64(len(active)))
	metrics.ReportsLoaded.WithLabelValues("archived").Set(float64(len(archived)))
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subsMu.Lock()
	fns := make([]func(View), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	if len(fns) == 0 {
		return
	}

	v := s.Snapshot()
	for _, fn := range fns {
		fn(v)
	}
}

func (s *Store) indexLocked(id int) int {
	for i := range s.data {
		if s.data[i].ID == id {
			return i
		}
	}
	return -1
}
