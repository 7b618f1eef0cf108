// internal/scanreport/history.go
//
// Active/archived mode mirrored into navigation history.
//
// Context
// -------
// The archived view lives at `?filter=archived`; the active view carries no
// flag.  HistorySync reads the flag once at construction, listens for pop
// events (back and forward), and pushes a new entry whenever the user
// switches partitions.  Neither path re-fetches data; both only move the
// store's mode and the page title.
//
// Navigator abstracts the browser history.  MemoryNavigator implements it
// with an in-process entry stack and serves the HTTP console and tests.
//
// Notes
// -----
//   - Pop handlers run synchronously inside Back and Forward.
//   - Oxford commas, two spaces after periods.
package scanreport

import (
	"fmt"
	"net/url"
	"sync"
)

const (
	// ArchivedQueryKey and ArchivedQueryValue form the archived-mode flag.
	ArchivedQueryKey   = "filter"
	ArchivedQueryValue = "archived"

	TitleActive   = "Scan Reports Active"
	TitleArchived = "Scan Reports Archived"
)

// TitleFor returns the page title of mode m.
func TitleFor(m Mode) string {
	if m == ModeArchived {
		return TitleArchived
	}
	return TitleActive
}

// ModeFromURL reads the archived flag from u's query.
func ModeFromURL(u *url.URL) Mode {
	if u != nil && u.Query().Get(ArchivedQueryKey) == ArchivedQueryValue {
		return ModeArchived
	}
	return ModeActive
}

// URLForMode returns a copy of u whose query encodes m.  Other query
// parameters are left alone.
func URLForMode(u *url.URL, m Mode) *url.URL {
	out := *u
	q := out.Query()
	if m == ModeArchived {
		q.Set(ArchivedQueryKey, ArchivedQueryValue)
	} else {
		q.Del(ArchivedQueryKey)
	}
	out.RawQuery = q.Encode()
	return &out
}

/*──────────────────────────── Navigator ────────────────────────────────────*/

// Navigator is the history surface HistorySync depends on.
type Navigator interface {
	Location() *url.URL
	Push(u *url.URL)
	OnPop(fn func(*url.URL)) (cancel func())
}

// MemoryNavigator is a history stack held in memory.
type MemoryNavigator struct {
	mu      sync.Mutex
	entries []*url.URL
	idx     int
	subs    map[int]func(*url.URL)
	nextSub int
}

// NewMemoryNavigator starts a history whose only entry is start.
func NewMemoryNavigator(start string) (*MemoryNavigator, error) {
	u, err := url.Parse(start)
	if err != nil {
		return nil, fmt.Errorf("navigator start url: %w", err)
	}
	return &MemoryNavigator{entries: []*url.URL{u}, subs: make(map[int]func(*url.URL))}, nil
}

// Location returns a copy of the current entry.
func (n *MemoryNavigator) Location() *url.URL {
	n.mu.Lock()
	defer n.mu.Unlock()
	u := *n.entries[n.idx]
	return &u
}

// Push drops any forward entries and appends u.  Pop handlers are not
// called, matching browser pushState.
func (n *MemoryNavigator) Push(u *url.URL) {
	cp := *u
	n.mu.Lock()
	n.entries = append(n.entries[:n.idx+1], &cp)
	n.idx = len(n.entries) - 1
	n.mu.Unlock()
}

// Peek returns a copy of the entry delta steps from the current one
// without moving.  ok is false past either end.
func (n *MemoryNavigator) Peek(delta int) (u *url.URL, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	i := n.idx + delta
	if i < 0 || i >= len(n.entries) {
		return nil, false
	}
	cp := *n.entries[i]
	return &cp, true
}

// Back moves one entry back and fires pop handlers.  It reports false at
// the start of history.
func (n *MemoryNavigator) Back() bool { return n.move(-1) }

// Forward moves one entry forward and fires pop handlers.
func (n *MemoryNavigator) Forward() bool { return n.move(+1) }

// OnPop registers fn for back and forward moves.
func (n *MemoryNavigator) OnPop(fn func(*url.URL)) (cancel func()) {
	n.mu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *MemoryNavigator) move(delta int) bool {
	n.mu.Lock()
	next := n.idx + delta
	if next < 0 || next >= len(n.entries) {
		n.mu.Unlock()
		return false
	}
	n.idx = next
	u := *n.entries[next]
	fns := make([]func(*url.URL), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		loc := u
		fn(&loc)
	}
	return true
}

/*──────────────────────────── HistorySync ──────────────────────────────────*/

// HistorySync keeps the store's mode and the page title in step with nav.
type HistorySync struct {
	nav   Navigator
	store *Store

	mu     sync.Mutex
	title  string
	cancel func()
}

// NewHistorySync reads the initial mode from nav and starts listening for
// pop events.
func NewHistorySync(nav Navigator, store *Store) *HistorySync {
	h := &HistorySync{nav: nav, store: store}
	h.apply(ModeFromURL(nav.Location()))
	h.cancel = nav.OnPop(func(u *url.URL) { h.apply(ModeFromURL(u)) })
	return h
}

// ShowActive switches to the active partition.
func (h *HistorySync) ShowActive() { h.Show(ModeActive) }

// ShowArchived switches to the archived partition.
func (h *HistorySync) ShowArchived() { h.Show(ModeArchived) }

// Show pushes a history entry for m unless m is already displayed.
func (h *HistorySync) Show(m Mode) {
	if h.store.Mode() == m {
		return
	}
	h.nav.Push(URLForMode(h.nav.Location(), m))
	h.apply(m)
}

// stepper is implemented by navigators that can replay adjacent entries.
type stepper interface {
	Peek(delta int) (*url.URL, bool)
	Back() bool
	Forward() bool
}

// Visit treats u as a navigation the client made on its own, e.g. a typed
// URL or the browser's back button.  When an adjacent entry already shows
// u's mode the navigator steps onto it; otherwise a mode change pushes an
// entry.  The same mode leaves history untouched.
func (h *HistorySync) Visit(u *url.URL) {
	m := ModeFromURL(u)
	if h.store.Mode() == m {
		return
	}
	if st, ok := h.nav.(stepper); ok {
		if prev, ok := st.Peek(-1); ok && ModeFromURL(prev) == m {
			st.Back()
			return
		}
		if next, ok := st.Peek(+1); ok && ModeFromURL(next) == m {
			st.Forward()
			return
		}
	}
	h.Show(m)
}

// Title returns the title of the displayed partition.
func (h *HistorySync) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.title
}

// Close stops listening for pop events.
func (h *HistorySync) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *HistorySync) apply(m Mode) {
	h.mu.Lock()
	h.title = TitleFor(m)
	h.mu.Unlock()
	h.store.SetMode(m)
}
