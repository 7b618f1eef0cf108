// internal/console/handlers_test.go
//
// End-to-end handler tests: a real Session behind NewRouter, fed by an
// in-memory Source and a scriptable Patcher.
//
// Run: go test ./internal/console -v

package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yanizio/scanconsole/internal/audit"
	"github.com/yanizio/scanconsole/internal/scanreport"
)

/*──────────────────────────── fakes ────────────────────────────────────────*/

var created = scanreport.NewTimestamp(time.Date(2024, time.March, 4, 9, 15, 0, 0, time.UTC))

type memSource struct{}

func (memSource) ListReports(context.Context) ([]scanreport.Report, error) {
	return []scanreport.Report{
		{ID: 1, Status: scanreport.StatusComplete, Dataset: "COVID", DataPartnerID: 10, AuthorID: 100, CreatedAt: created},
		{ID: 2, Status: scanreport.StatusPending, Dataset: "Cancer", DataPartnerID: 11, AuthorID: 101, CreatedAt: created},
		{ID: 3, Status: scanreport.StatusBlocked, Hidden: true, Dataset: "COVID", DataPartnerID: 10, AuthorID: 100, CreatedAt: created},
	}, nil
}

func (memSource) DataPartners(context.Context, []int) ([]scanreport.DataPartner, error) {
	return []scanreport.DataPartner{{ID: 10, Name: "Nottingham"}, {ID: 11, Name: "Leeds"}}, nil
}

func (memSource) Authors(context.Context, []int) ([]scanreport.Author, error) {
	return []scanreport.Author{{ID: 100, Username: "alice"}, {ID: 101, Username: "bob"}}, nil
}

func (memSource) Tables(context.Context) ([]scanreport.Table, error) {
	return []scanreport.Table{{ID: 50, ScanReportID: 1}}, nil
}

func (memSource) Fields(context.Context) ([]scanreport.Field, error) {
	return []scanreport.Field{{ID: 90, ScanReportTableID: 50}, {ID: 91, ScanReportTableID: 50}}, nil
}

type stubPatcher struct {
	mu    sync.Mutex
	err   error
	calls []scanreport.Patch
}

func (p *stubPatcher) PatchReport(_ context.Context, _ int, patch scanreport.Patch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, patch)
	return p.err
}

type stubAudit struct{ entries []audit.Entry }

func (a stubAudit) Recent(_ context.Context, id, _ int) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range a.entries {
		if e.ReportID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

type harness struct {
	t       *testing.T
	s       *Session
	h       http.Handler
	patcher *stubPatcher
}

func newHarness(t *testing.T, load bool, aud AuditReader) *harness {
	t.Helper()
	p := &stubPatcher{}
	s, err := NewSession(context.Background(), Deps{
		Source:   memSource{},
		Patcher:  p,
		Audit:    aud,
		Username: "alice",
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	if load {
		if err := s.Load(context.Background()); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	return &harness{t: t, s: s, h: NewRouter(s), patcher: p}
}

func (hs *harness) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	return rec
}

func (hs *harness) post(target string, form url.Values, asJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) Page {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var p Page
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return p
}

func rowIDs(p Page) []int {
	out := make([]int, 0, len(p.Rows))
	for _, r := range p.Rows {
		out = append(out, r.ID)
	}
	return out
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

/*──────────────────────────── listing ──────────────────────────────────────*/

func TestList_BeforeLoadShowsLoading(t *testing.T) {
	hs := newHarness(t, false, nil)

	p := decodePage(t, hs.get("/scanreports/"))
	if p.Ready || p.Message != MsgLoading || len(p.Rows) != 0 {
		t.Fatalf("page = %+v", p)
	}
}

func TestList_ActiveJSON(t *testing.T) {
	hs := newHarness(t, true, nil)

	p := decodePage(t, hs.get("/scanreports/?format=json"))
	if p.Title != scanreport.TitleActive || p.Mode != "active" {
		t.Fatalf("title=%q mode=%q", p.Title, p.Mode)
	}
	if !sameInts(rowIDs(p), []int{2, 1}) {
		t.Fatalf("rows = %v, want [2 1]", rowIDs(p))
	}
	r1 := p.Rows[1]
	if r1.DataPartner != "Nottingham" || r1.Author != "alice" || !r1.CanArchive {
		t.Fatalf("row 1 = %+v", r1)
	}
	if r1.Tables == nil || *r1.Tables != 1 || r1.Fields == nil || *r1.Fields != 2 {
		t.Fatalf("row 1 counts = %v/%v", r1.Tables, r1.Fields)
	}
	if p.Rows[0].CanArchive {
		t.Fatalf("bob's report offered archive to alice")
	}
	if len(p.Statuses) != len(scanreport.Statuses) {
		t.Fatalf("status menu has %d entries", len(p.Statuses))
	}
}

func TestList_ArchivedFromURL(t *testing.T) {
	hs := newHarness(t, true, nil)

	p := decodePage(t, hs.get("/scanreports/?filter=archived"))
	if p.Title != scanreport.TitleArchived || !sameInts(rowIDs(p), []int{3}) {
		t.Fatalf("title=%q rows=%v", p.Title, rowIDs(p))
	}
}

func TestList_RendersHTML(t *testing.T) {
	hs := newHarness(t, true, nil)

	req := httptest.NewRequest(http.MethodGet, "/scanreports/", nil)
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{scanreport.TitleActive, "Nottingham", "Leeds"} {
		if !strings.Contains(body, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("security headers missing")
	}
}

/*──────────────────────────── navigation ───────────────────────────────────*/

func TestMode_RedirectsAndBackRestores(t *testing.T) {
	hs := newHarness(t, true, nil)

	rec := hs.post("/scanreports/mode", url.Values{"mode": {"archived"}}, false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/scanreports/?filter=archived" {
		t.Fatalf("location = %q", loc)
	}

	rec = hs.post("/scanreports/back", nil, false)
	if loc := rec.Header().Get("Location"); loc != "/scanreports/" {
		t.Fatalf("location after back = %q", loc)
	}
	p := decodePage(t, hs.post("/scanreports/forward", nil, true))
	if p.Mode != "archived" {
		t.Fatalf("mode after forward = %q", p.Mode)
	}
}

func TestMode_RejectsUnknown(t *testing.T) {
	hs := newHarness(t, true, nil)
	if rec := hs.post("/scanreports/mode", url.Values{"mode": {"deleted"}}, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

/*──────────────────────────── filters ──────────────────────────────────────*/

func TestFilters_ApplyAndRemoveChip(t *testing.T) {
	hs := newHarness(t, true, nil)

	p := decodePage(t, hs.post("/scanreports/filters", url.Values{"column": {"dataset"}, "value": {"COVID"}}, true))
	if !sameInts(rowIDs(p), []int{1}) {
		t.Fatalf("rows = %v, want [1]", rowIDs(p))
	}
	if len(p.Chips) != 1 || p.Chips[0].Label != "Dataset - COVID" {
		t.Fatalf("chips = %+v", p.Chips)
	}
	if len(p.Options.Datasets) != 2 {
		t.Fatalf("options narrowed by the filter: %v", p.Options.Datasets)
	}

	p = decodePage(t, hs.post("/scanreports/filters/remove", url.Values{"label": {"Dataset - COVID"}}, true))
	if len(p.Chips) != 0 || len(p.Rows) != 2 {
		t.Fatalf("after remove: chips=%v rows=%v", p.Chips, rowIDs(p))
	}
}

func TestFilters_NoMatchShowsEmptyMessage(t *testing.T) {
	hs := newHarness(t, true, nil)

	p := decodePage(t, hs.post("/scanreports/filters", url.Values{"column": {"author"}, "value": {"nobody"}}, true))
	if len(p.Rows) != 0 || p.Message != MsgEmpty || !p.Ready {
		t.Fatalf("page = %+v", p)
	}
}

func TestFilters_UnknownColumn(t *testing.T) {
	hs := newHarness(t, true, nil)
	if rec := hs.post("/scanreports/filters", url.Values{"column": {"colour"}}, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

/*──────────────────────────── mutations ────────────────────────────────────*/

func TestStatus_Success(t *testing.T) {
	hs := newHarness(t, true, nil)

	p := decodePage(t, hs.post("/scanreports/2/status", url.Values{"status": {"COMPLET"}}, true))
	if p.Rows[0].ID != 2 || p.Rows[0].Status != "COMPLET" || p.Rows[0].StatusBusy {
		t.Fatalf("row 2 = %+v", p.Rows[0])
	}
	if len(hs.patcher.calls) != 1 || hs.patcher.calls[0].Status == nil {
		t.Fatalf("patch calls = %+v", hs.patcher.calls)
	}
}

func TestStatus_FailureRollsBack(t *testing.T) {
	hs := newHarness(t, true, nil)
	hs.patcher.err = errors.New("upstream down")

	rec := hs.post("/scanreports/1/status", url.Values{"status": {"BLOCKED"}}, true)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	p := decodePage(t, hs.get("/scanreports/"))
	if p.Rows[1].ID != 1 || p.Rows[1].Status != "COMPLET" {
		t.Fatalf("row 1 not rolled back: %+v", p.Rows[1])
	}
	if !strings.Contains(p.Notice, "upstream down") {
		t.Fatalf("notice = %q", p.Notice)
	}
	if again := decodePage(t, hs.get("/scanreports/")); again.Notice != "" {
		t.Fatalf("notice shown twice")
	}
}

func TestStatus_BadInput(t *testing.T) {
	hs := newHarness(t, true, nil)

	if rec := hs.post("/scanreports/1/status", url.Values{"status": {"DONE"}}, true); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status: %d", rec.Code)
	}
	if rec := hs.post("/scanreports/abc/status", url.Values{"status": {"COMPLET"}}, true); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: %d", rec.Code)
	}
	if rec := hs.post("/scanreports/99/status", url.Values{"status": {"COMPLET"}}, true); rec.Code != http.StatusNotFound {
		t.Errorf("unknown report: %d", rec.Code)
	}
	if len(hs.patcher.calls) != 0 {
		t.Fatalf("API called for rejected input")
	}
}

func TestHidden_AuthorArchives(t *testing.T) {
	hs := newHarness(t, true, nil)

	p := decodePage(t, hs.post("/scanreports/1/hidden", url.Values{"hidden": {"true"}}, true))
	if !sameInts(rowIDs(p), []int{2}) {
		t.Fatalf("active rows = %v, want [2]", rowIDs(p))
	}

	p = decodePage(t, hs.get("/scanreports/?filter=archived"))
	if !sameInts(rowIDs(p), []int{3, 1}) {
		t.Fatalf("archived rows = %v, want [3 1]", rowIDs(p))
	}
}

func TestHidden_NonAuthorForbidden(t *testing.T) {
	hs := newHarness(t, true, nil)

	rec := hs.post("/scanreports/2/hidden", url.Values{"hidden": {"true"}}, true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(hs.patcher.calls) != 0 {
		t.Fatalf("API called for a forbidden archive")
	}
}

func TestHidden_BadValue(t *testing.T) {
	hs := newHarness(t, true, nil)
	if rec := hs.post("/scanreports/1/hidden", url.Values{"hidden": {"maybe"}}, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

/*──────────────────────────── audit / health ───────────────────────────────*/

func TestAudit_Disabled(t *testing.T) {
	hs := newHarness(t, true, nil)
	if rec := hs.get("/scanreports/1/audit"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAudit_ListsEntries(t *testing.T) {
	hs := newHarness(t, true, stubAudit{entries: []audit.Entry{
		{ID: 1, ReportID: 1, Field: "status", From: "PENDING", To: "COMPLET", OK: true},
		{ID: 2, ReportID: 2, Field: "hidden", From: "false", To: "true", OK: true},
	}})

	rec := hs.get("/scanreports/1/audit")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []audit.Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].To != "COMPLET" {
		t.Fatalf("entries = %+v", got)
	}
}

func TestHealthz(t *testing.T) {
	hs := newHarness(t, false, nil)
	rec := hs.get("/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body)
	}
}

func TestRootRedirects(t *testing.T) {
	hs := newHarness(t, false, nil)
	rec := hs.get("/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != BasePath {
		t.Fatalf("root = %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestList_BrowserBackStepsHistory(t *testing.T) {
	hs := newHarness(t, true, nil)

	hs.post("/scanreports/mode", url.Values{"mode": {"archived"}}, false)

	// A browser back press re-requests the previous URL with a GET.
	p := decodePage(t, hs.get("/scanreports/"))
	if p.Mode != "active" || p.CanBack || !p.CanForward {
		t.Fatalf("after back: mode=%q back=%v forward=%v", p.Mode, p.CanBack, p.CanForward)
	}

	p = decodePage(t, hs.get("/scanreports/?filter=archived"))
	if p.Mode != "archived" || !p.CanBack || p.CanForward {
		t.Fatalf("after forward: mode=%q back=%v forward=%v", p.Mode, p.CanBack, p.CanForward)
	}
}

func TestPage_FollowsBackgroundReload(t *testing.T) {
	hs := newHarness(t, false, nil)

	hs.post("/scanreports/reload", nil, false)

	deadline := time.Now().Add(2 * time.Second)
	for {
		p := decodePage(t, hs.get("/scanreports/"))
		if p.Ready && p.Phase == "complete" {
			if !sameInts(rowIDs(p), []int{2, 1}) {
				t.Fatalf("rows = %v", rowIDs(p))
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("page never saw the reload: %+v", p)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
