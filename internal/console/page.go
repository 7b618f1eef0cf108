// internal/console/page.go
//
// Page model shared by the HTML template, the JSON encoder, and the CLI.
//
// Context
// -------
// Page flattens the newest view the store published, after filters are
// applied.  Option lists come from the displayed view before filtering, so
// every menu still offers the values the other filters hide.  Counts are
// nil until their load stage finishes, which the template renders as
// "counting".
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package console

import (
	"strconv"
	"time"

	"github.com/yanizio/scanconsole/internal/scanreport"
)

// Messages shown in place of the table.
const (
	MsgLoading  = "Loading Scan Reports"
	MsgEmpty    = "No Scan Reports available"
	MsgCounting = "counting"
)

// Page is one render of the listing.
type Page struct {
	Title      string                 `json:"title"`
	Mode       string                 `json:"mode"`
	Loading    bool                   `json:"loading"`
	Ready      bool                   `json:"ready"`
	Phase      string                 `json:"phase"`
	Error      string                 `json:"error,omitempty"`
	Notice     string                 `json:"notice,omitempty"`
	CanBack    bool                   `json:"can_back"`
	CanForward bool                   `json:"can_forward"`
	Message    string                 `json:"message,omitempty"`
	Filters    map[string]string      `json:"filters"`
	Chips      []Chip                 `json:"applied_filters"`
	Options    scanreport.OptionLists `json:"options"`
	Statuses   []StatusOption         `json:"statuses"`
	Rows       []Row                  `json:"rows"`
}

// Chip is one removable applied filter.
type Chip struct {
	Column string `json:"column"`
	Value  string `json:"value"`
	Label  string `json:"label"`
}

// StatusOption is one entry of the status menu.
type StatusOption struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Row is one displayed report.
type Row struct {
	ID          int       `json:"id"`
	DataPartner string    `json:"data_partner"`
	Dataset     string    `json:"dataset"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	Created     string    `json:"created_display"`
	Status      string    `json:"status"`
	StatusLabel string    `json:"status_label"`
	Hidden      bool      `json:"hidden"`
	Tables      *int      `json:"tables"`
	Fields      *int      `json:"fields"`
	StatusBusy  bool      `json:"status_loading"`
	ArchiveBusy bool      `json:"loading"`
	CanArchive  bool      `json:"can_archive"`
}

// TablesText and FieldsText render a count or the placeholder.
func (r Row) TablesText() string { return countText(r.Tables) }
func (r Row) FieldsText() string { return countText(r.Fields) }

func countText(n *int) string {
	if n == nil {
		return MsgCounting
	}
	return strconv.Itoa(*n)
}

// Page snapshots the session.  The one-shot notice is consumed.
func (s *Session) Page() Page {
	v := *s.view.Load()
	f := s.Filters()

	p := Page{
		Title:      scanreport.TitleFor(v.Mode),
		Mode:       v.Mode.String(),
		Loading:    v.State.Loading,
		Ready:      v.State.Ready(),
		Phase:      v.State.Phase.String(),
		Notice:     s.takeNotice(),
		CanBack:    s.canStep(-1),
		CanForward: s.canStep(+1),
		Filters:    make(map[string]string, 3),
		Chips:      make([]Chip, 0, 3),
		Statuses:   statusOptions(),
		Rows:       make([]Row, 0),
	}
	if v.State.Err != nil {
		p.Error = v.State.Err.Error()
	}
	for _, c := range []scanreport.Column{scanreport.ColumnDataPartner, scanreport.ColumnDataset, scanreport.ColumnAuthor} {
		p.Filters[c.String()] = f.Get(c)
	}
	for _, c := range f.Applied() {
		p.Chips = append(p.Chips, Chip{Column: c.Column.String(), Value: c.Value, Label: c.Label()})
	}

	if !p.Ready {
		p.Options = scanreport.Options(nil)
		if p.Error == "" {
			p.Message = MsgLoading
		}
		return p
	}

	p.Options = scanreport.Options(v.Displayed)
	for _, r := range f.Apply(v.Displayed) {
		p.Rows = append(p.Rows, s.row(r))
	}
	if len(p.Rows) == 0 {
		p.Message = MsgEmpty
	}
	return p
}

func (s *Session) row(r scanreport.Report) Row {
	out := Row{
		ID:          r.ID,
		DataPartner: r.PartnerName(),
		Dataset:     r.Dataset,
		Author:      r.AuthorName(),
		CreatedAt:   r.CreatedAt.Raw,
		Created:     r.CreatedAt.Display,
		Status:      string(r.Status),
		StatusLabel: r.Status.Label(),
		Hidden:      r.Hidden,
		StatusBusy:  r.StatusLoading,
		ArchiveBusy: r.Loading,
		CanArchive:  s.canArchive(r),
	}
	if r.Tables != nil {
		n := len(r.Tables)
		out.Tables = &n
	}
	if r.Fields != nil {
		n := len(r.Fields)
		out.Fields = &n
	}
	return out
}

func statusOptions() []StatusOption {
	out := make([]StatusOption, 0, len(scanreport.Statuses))
	for _, st := range scanreport.Statuses {
		out = append(out, StatusOption{Code: string(st), Label: st.Label()})
	}
	return out
}
