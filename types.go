package seedtrace

import (
	"time"
)

const (
	StatusDiscarded string = "Discarded"
	StatusPending   string = "Pending"
)

const (
	OptionTypeFarm    string = "farm"
	OptionTypeSection string = "section"
	OptionTypeField   string = "field"
)

// Scope partitions every record query. All three members are required.
type Scope struct {
	Site       string `json:"site"`
	Year       string `json:"year"`
	RecordType string `json:"recordType"`
}

// Missing reports every absent member, not just the first.
func (s Scope) Missing() []string {
	var missing []string
	if s.Site == "" {
		missing = append(missing, "site")
	}
	if s.Year == "" {
		missing = append(missing, "year")
	}
	if s.RecordType == "" {
		missing = append(missing, "recordType")
	}
	return missing
}

func (s Scope) IsComplete() bool {
	return len(s.Missing()) == 0
}

// Channel returns the pub/sub channel carrying events for a scope.
func (s Scope) Channel() string {
	return "discards:" + s.Site + ":" + s.Year + ":" + s.RecordType
}

// Record is one discardable unit of material. ID and PostID are the same
// identity seen through two names; either may arrive from legacy callers.
type Record struct {
	ID     int64 `json:"id"`
	PostID int64 `json:"post_id,omitempty"`

	Barcode    string `json:"barcd"`
	Field      string `json:"field"`
	Range      string `json:"range"`
	Row        string `json:"row"`
	PlotID     string `json:"plot"`
	SubplotID  string `json:"subplot"`
	MaterialID string `json:"matid"`

	// Status is derived from IsDiscarded on every normalization pass and is
	// never stored independently.
	Status string `json:"status,omitempty"`

	IsDiscarded bool       `json:"isDiscarded"`
	DiscardedAt *time.Time `json:"discarded_at,omitempty"`
	DiscardedBy string     `json:"discarded_by,omitempty"`

	// Extra carries attributes outside the fixed schema untouched.
	Extra map[string]any `json:"extra,omitempty"`
}

// Identity resolves the record id, preferring ID over the PostID alias.
func (r Record) Identity() int64 {
	if r.ID != 0 {
		return r.ID
	}
	return r.PostID
}

// Option is one node of the farm/section/field tree.
type Option struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Type       string  `json:"type"`
	ParentRefs []int64 `json:"parentRefs,omitempty"`
}

// HasParent reports whether the option descends from the given option id.
func (o Option) HasParent(id int64) bool {
	for _, ref := range o.ParentRefs {
		if ref == id {
			return true
		}
	}
	return false
}

// StatusResult is the read-only duplicate-check answer.
type StatusResult struct {
	Exists    bool    `json:"exists"`
	Discarded bool    `json:"discarded"`
	Record    *Record `json:"record,omitempty"`
}

const (
	EventTypeDiscard string = "discard"
	EventTypeUnmark  string = "unmark"
)

// Event is broadcast over the realtime feed whenever a record's discard
// state changes, so loaded tables can patch a single row instead of
// reloading.
type Event struct {
	Type     string    `json:"type"`
	Scope    Scope     `json:"scope"`
	RecordID int64     `json:"recordID"`
	Barcode  string    `json:"barcode"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
	By       string    `json:"by,omitempty"`
}
