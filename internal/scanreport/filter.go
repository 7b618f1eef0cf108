package scanreport

import (
	"fmt"
	"sort"
	"strings"
)

// All is the "no restriction" filter value.
const All = "All"

// Column names a filterable report column.
type Column int

const (
	ColumnDataPartner Column = iota
	ColumnDataset
	ColumnAuthor
)

// Title is the chip label prefix used when the filter is applied.
func (c Column) Title() string {
	switch c {
	case ColumnDataPartner:
		return "Data Partner"
	case ColumnDataset:
		return "Dataset"
	default:
		return "Added By"
	}
}

func (c Column) String() string {
	switch c {
	case ColumnDataPartner:
		return "data_partner"
	case ColumnDataset:
		return "dataset"
	default:
		return "author"
	}
}

// ParseColumn accepts the String form of a column.
func ParseColumn(s string) (Column, error) {
	for _, c := range []Column{ColumnDataPartner, ColumnDataset, ColumnAuthor} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown filter column %q", s)
}

// value extracts the column's filter key from r.  Unresolved references
// yield ok == false and never match a concrete filter.
func (c Column) value(r Report) (v string, ok bool) {
	switch c {
	case ColumnDataPartner:
		return r.PartnerName(), r.DataPartner != nil
	case ColumnDataset:
		return r.Dataset, true
	default:
		return r.AuthorName(), r.Author != nil
	}
}

// Filters holds three independent equality constraints.  An empty value is
// treated like All, so the zero value restricts nothing.
type Filters struct {
	DataPartner string
	Dataset     string
	Author      string
}

// NewFilters returns filters with every column set to All.
func NewFilters() Filters {
	return Filters{DataPartner: All, Dataset: All, Author: All}
}

// Get returns the current value of column c.
func (f Filters) Get(c Column) string {
	var v string
	switch c {
	case ColumnDataPartner:
		v = f.DataPartner
	case ColumnDataset:
		v = f.Dataset
	default:
		v = f.Author
	}
	if v == "" {
		return All
	}
	return v
}

// Set replaces the value of column c.
func (f *Filters) Set(c Column, v string) {
	switch c {
	case ColumnDataPartner:
		f.DataPartner = v
	case ColumnDataset:
		f.Dataset = v
	default:
		f.Author = v
	}
}

// Remove resets every filter whose title appears in label, e.g. the chip
// text "Added By - alice".  Other filters keep their values.
func (f *Filters) Remove(label string) {
	for _, c := range []Column{ColumnDataPartner, ColumnDataset, ColumnAuthor} {
		if strings.Contains(label, c.Title()) {
			f.Set(c, All)
		}
	}
}

// Apply returns the reports of view that satisfy every non-All filter, in
// their original order.
func (f Filters) Apply(view []Report) []Report {
	out := make([]Report, 0, len(view))
	for _, r := range view {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f Filters) match(r Report) bool {
	for _, c := range []Column{ColumnDataPartner, ColumnDataset, ColumnAuthor} {
		want := f.Get(c)
		if want == All {
			continue
		}
		if got, ok := c.value(r); !ok || got != want {
			return false
		}
	}
	return true
}

// Chip is one applied filter as shown above the table.
type Chip struct {
	Column Column
	Value  string
}

// Label is the removable chip text ("Dataset - COVID").
func (c Chip) Label() string { return c.Column.Title() + " - " + c.Value }

// Applied lists the active filters in column order.
func (f Filters) Applied() []Chip {
	var out []Chip
	for _, c := range []Column{ColumnDataPartner, ColumnDataset, ColumnAuthor} {
		if v := f.Get(c); v != All {
			out = append(out, Chip{Column: c, Value: v})
		}
	}
	return out
}

// OptionLists are the values offered in each column's filter menu.
type OptionLists struct {
	DataPartners []string `json:"data_partners"`
	Datasets     []string `json:"datasets"`
	Authors      []string `json:"authors"`
}

// Options derives the filter menus from the displayed, pre-filter view.
func Options(view []Report) OptionLists {
	return OptionLists{
		DataPartners: distinct(view, ColumnDataPartner),
		Datasets:     distinct(view, ColumnDataset),
		Authors:      distinct(view, ColumnAuthor),
	}
}

func distinct(view []Report, c Column) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range view {
		v, ok := c.value(r)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}
