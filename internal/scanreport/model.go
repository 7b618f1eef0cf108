// internal/scanreport/model.go
//
// Scan-report data model.
//
// Context
// -------
// The remote API returns scan reports with raw foreign keys (`data_partner`,
// `author`).  The console keeps the raw key next to a separate, nullable
// resolved pointer so a record never changes shape during enrichment:
//
//   - `DataPartnerID` + `DataPartner` (nil until joined, or unresolved).
//   - `AuthorID`      + `Author`      (same rules).
//
// `Tables` and `Fields` are populated lazily by the second and third load
// stages.  A nil slice means "not counted yet"; an empty, non-nil slice
// means "counted, none found".
//
// Notes
// -----
//   - `Loading` and `StatusLoading` are in-flight markers owned by the
//     lifecycle controller.  They are never sent to the API.
//   - Oxford commas, two spaces after periods.
package scanreport

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DisplayLayout renders CreatedAt the way the legacy table did
// ("Mar. 04, 2024, 9:15 am").
const DisplayLayout = "Jan. 02, 2006, 3:04 pm"

//
// Status vocabulary
//

// Status is a scan-report lifecycle code.  The set is flat: any code may
// follow any other, the server decides what is allowed.
type Status string

const (
	StatusUploadInProgress Status = "UPINPRO"
	StatusUploadComplete   Status = "UPCOMPL"
	StatusUploadFailed     Status = "UPFAILE"
	StatusPending          Status = "PENDING"
	StatusInProgress25     Status = "INPRO25"
	StatusInProgress50     Status = "INPRO50"
	StatusInProgress75     Status = "INPRO75"
	StatusComplete         Status = "COMPLET"
	StatusBlocked          Status = "BLOCKED"
)

// ErrUnknownStatus is returned by ParseStatus for codes outside the vocabulary.
var ErrUnknownStatus = errors.New("unknown scan report status")

// Statuses lists every valid code in menu order.
var Statuses = []Status{
	StatusUploadInProgress,
	StatusUploadComplete,
	StatusUploadFailed,
	StatusPending,
	StatusInProgress25,
	StatusInProgress50,
	StatusInProgress75,
	StatusComplete,
	StatusBlocked,
}

var statusLabels = map[Status]string{
	StatusUploadInProgress: "Upload in Progress",
	StatusUploadComplete:   "Upload Complete",
	StatusUploadFailed:     "Upload Failed",
	StatusPending:          "Mapping Pending",
	StatusInProgress25:     "In Progress (25%)",
	StatusInProgress50:     "In Progress (50%)",
	StatusInProgress75:     "In Progress (75%)",
	StatusComplete:         "Complete",
	StatusBlocked:          "Blocked",
}

// ParseStatus validates a raw code.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := statusLabels[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Valid reports whether s belongs to the vocabulary.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human-readable menu text.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Does not recognise label"
}

//
// Reference entities
//

// DataPartner is read-only from the console's point of view.
type DataPartner struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Author is a user as returned by /usersfilter/.
type Author struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Table is one scan-report table.
type Table struct {
	ID           int `json:"id"`
	ScanReportID int `json:"scan_report"`
}

// Field is one column of a scan-report table.
type Field struct {
	ID                int `json:"id"`
	ScanReportTableID int `json:"scan_report_table"`
}

//
// Report
//

// Timestamp carries the raw creation time and its precomputed display form.
type Timestamp struct {
	Raw     time.Time
	Display string
}

// NewTimestamp fills Display from t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Raw: t, Display: t.Format(DisplayLayout)}
}

// Report is one enriched scan report.
type Report struct {
	ID      int
	Status  Status
	Hidden  bool
	Dataset string

	DataPartnerID int
	DataPartner   *DataPartner // nil = unresolved

	AuthorID int
	Author   *Author // nil = unresolved

	CreatedAt Timestamp

	Tables []Table // nil = not counted yet
	Fields []Field // nil = not counted yet

	Loading       bool // archive toggle in flight
	StatusLoading bool // status change in flight

	// Mutations in flight per field.  A flag clears when its count hits 0.
	hiddenPending int
	statusPending int
}

// wireReport is the shape served by GET /scanreports/.
type wireReport struct {
	ID          int       `json:"id"`
	Status      Status    `json:"status"`
	Hidden      bool      `json:"hidden"`
	Dataset     string    `json:"dataset"`
	DataPartner int       `json:"data_partner"`
	Author      int       `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
}

// UnmarshalJSON decodes the API representation; foreign keys land in the
// raw ID fields and the display timestamp is computed once here.
func (r *Report) UnmarshalJSON(b []byte) error {
	var w wireReport
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Report{
		ID:            w.ID,
		Status:        w.Status,
		Hidden:        w.Hidden,
		Dataset:       w.Dataset,
		DataPartnerID: w.DataPartner,
		AuthorID:      w.Author,
		CreatedAt:     NewTimestamp(w.CreatedAt),
	}
	return nil
}

// PartnerName returns the resolved name or "" when unresolved.
func (r Report) PartnerName() string {
	if r.DataPartner == nil {
		return ""
	}
	return r.DataPartner.Name
}

// AuthorName returns the resolved username or "" when unresolved.
func (r Report) AuthorName() string {
	if r.Author == nil {
		return ""
	}
	return r.Author.Username
}

//
// View mode
//

// Mode selects which partition is displayed.
type Mode int

const (
	ModeActive Mode = iota
	ModeArchived
)

func (m Mode) String() string {
	if m == ModeArchived {
		return "archived"
	}
	return "active"
}

// ParseMode accepts "active" or "archived".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "active":
		return ModeActive, nil
	case "archived":
		return ModeArchived, nil
	}
	return ModeActive, fmt.Errorf("unknown mode %q", s)
}
