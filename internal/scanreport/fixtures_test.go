// internal/scanreport/fixtures_test.go
//
// Shared fixtures for the scanreport tests: a small report set, a fake
// Source, a scriptable Patcher, and an in-memory Journal.

package scanreport

import (
	"context"
	"sync"
	"time"
)

var fixtureTime = time.Date(2024, time.March, 4, 9, 15, 0, 0, time.UTC)

// rawReports returns unresolved reports in API order (ascending id).
func rawReports() []Report {
	return []Report{
		{ID: 1, Status: StatusComplete, Dataset: "COVID", DataPartnerID: 10, AuthorID: 100, CreatedAt: NewTimestamp(fixtureTime)},
		{ID: 2, Status: StatusPending, Dataset: "Cancer", DataPartnerID: 11, AuthorID: 101, CreatedAt: NewTimestamp(fixtureTime)},
		{ID: 3, Status: StatusBlocked, Hidden: true, Dataset: "COVID", DataPartnerID: 10, AuthorID: 100, CreatedAt: NewTimestamp(fixtureTime)},
		{ID: 4, Status: StatusUploadComplete, Dataset: "Diabetes", DataPartnerID: 12, AuthorID: 102, CreatedAt: NewTimestamp(fixtureTime)},
	}
}

func fixturePartners() []DataPartner {
	return []DataPartner{{ID: 10, Name: "Nottingham"}, {ID: 11, Name: "bristol"}, {ID: 12, Name: "Leeds"}}
}

func fixtureAuthors() []Author {
	return []Author{{ID: 100, Username: "alice"}, {ID: 101, Username: "bob"}, {ID: 102, Username: "carol"}}
}

func fixtureTables() []Table {
	return []Table{{ID: 1000, ScanReportID: 1}, {ID: 1001, ScanReportID: 1}, {ID: 1002, ScanReportID: 2}}
}

func fixtureFields() []Field {
	return []Field{
		{ID: 1, ScanReportTableID: 1000},
		{ID: 2, ScanReportTableID: 1000},
		{ID: 3, ScanReportTableID: 1001},
		{ID: 4, ScanReportTableID: 1002},
	}
}

// resolvedReports returns the fixture with partners and authors joined.
func resolvedReports() []Report {
	rs := rawReports()
	JoinDataPartners(rs, fixturePartners())
	JoinAuthors(rs, fixtureAuthors())
	return rs
}

// loadedStore returns a store holding the resolved fixture.
func loadedStore(mode Mode) *Store {
	s := NewStore(mode)
	s.Replace(resolvedReports())
	return s
}

/*──────────────────────────── fake Source ──────────────────────────────────*/

type fakeSource struct {
	mu sync.Mutex

	reports  []Report
	partners []DataPartner
	authors  []Author
	tables   []Table
	fields   []Field

	errReports, errPartners, errAuthors, errTables, errFields error

	partnerCalls [][]int
	authorCalls  [][]int
	listCalls    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		reports:  rawReports(),
		partners: fixturePartners(),
		authors:  fixtureAuthors(),
		tables:   fixtureTables(),
		fields:   fixtureFields(),
	}
}

func (f *fakeSource) ListReports(context.Context) ([]Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.errReports != nil {
		return nil, f.errReports
	}
	return append([]Report(nil), f.reports...), nil
}

func (f *fakeSource) DataPartners(_ context.Context, ids []int) ([]DataPartner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partnerCalls = append(f.partnerCalls, ids)
	if f.errPartners != nil {
		return nil, f.errPartners
	}
	return pick(f.partners, ids, func(p DataPartner) int { return p.ID }), nil
}

func (f *fakeSource) Authors(_ context.Context, ids []int) ([]Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorCalls = append(f.authorCalls, ids)
	if f.errAuthors != nil {
		return nil, f.errAuthors
	}
	return pick(f.authors, ids, func(a Author) int { return a.ID }), nil
}

func (f *fakeSource) Tables(context.Context) ([]Table, error) {
	if f.errTables != nil {
		return nil, f.errTables
	}
	return f.tables, nil
}

func (f *fakeSource) Fields(context.Context) ([]Field, error) {
	if f.errFields != nil {
		return nil, f.errFields
	}
	return f.fields, nil
}

func pick[T any](all []T, ids []int, id func(T) int) []T {
	want := make(map[int]bool, len(ids))
	for _, i := range ids {
		want[i] = true
	}
	var out []T
	for _, v := range all {
		if want[id(v)] {
			out = append(out, v)
		}
	}
	return out
}

/*──────────────────────────── fake Patcher ─────────────────────────────────*/

type patchCall struct {
	ID    int
	Patch Patch
}

// fakePatcher records calls and runs hook (if any) while the PATCH is in
// flight, then returns errFor's answer when set, err otherwise.
type fakePatcher struct {
	mu     sync.Mutex
	calls  []patchCall
	err    error
	errFor func(id int, p Patch) error
	hook   func(id int, p Patch)
}

func (f *fakePatcher) PatchReport(_ context.Context, id int, p Patch) error {
	f.mu.Lock()
	f.calls = append(f.calls, patchCall{ID: id, Patch: p})
	hook, err, errFor := f.hook, f.err, f.errFor
	f.mu.Unlock()
	if hook != nil {
		hook(id, p)
	}
	if errFor != nil {
		return errFor(id, p)
	}
	return err
}

/*──────────────────────────── memory Journal ───────────────────────────────*/

type memJournal struct {
	mu   sync.Mutex
	recs []MutationRecord
}

func (j *memJournal) Record(_ context.Context, rec MutationRecord) error {
	j.mu.Lock()
	j.recs = append(j.recs, rec)
	j.mu.Unlock()
	return nil
}

func ids(rs []Report) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
