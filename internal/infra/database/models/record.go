package models

import (
	"encoding/json"
	"time"

	"github.com/plotwise/seedtrace"
)

type Record struct {
	ID int64 `json:"id" gorm:"primaryKey;autoIncrement"`

	Site       string `json:"site" gorm:"type:text;not null;index:idx_record_scope,priority:1"`
	Year       string `json:"year" gorm:"type:text;not null;index:idx_record_scope,priority:2"`
	RecordType string `json:"recordType" gorm:"type:text;not null;index:idx_record_scope,priority:3"`

	Barcode string `json:"barcd" gorm:"type:text"`
	// BarcodeNorm is the trimmed upper-cased form every lookup runs against.
	BarcodeNorm string `json:"-" gorm:"type:text;index:idx_record_barcode"`

	Field      string `json:"field" gorm:"type:text;index"`
	RangeNo    string `json:"range" gorm:"column:range_no;type:text"`
	RowNo      string `json:"row" gorm:"column:row_no;type:text"`
	PlotID     string `json:"plot" gorm:"type:text"`
	SubplotID  string `json:"subplot" gorm:"type:text"`
	MaterialID string `json:"matid" gorm:"type:text"`

	IsDiscarded bool       `json:"isDiscarded" gorm:"type:boolean;not null;default:false"`
	DiscardedAt *time.Time `json:"discarded_at" gorm:"type:timestamp with time zone"`
	DiscardedBy string     `json:"discarded_by" gorm:"type:text"`

	// Extra holds attributes outside the fixed schema as a JSON object.
	Extra string `json:"extra,omitempty" gorm:"type:text"`

	CDate time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp();autoUpdateTime"`
}

// ToDomain converts the persistence row into the wire record, status derived.
func (m Record) ToDomain() seedtrace.Record {
	var extra map[string]any
	if m.Extra != "" {
		// tolerated: a malformed extra bag must not drop the row
		_ = json.Unmarshal([]byte(m.Extra), &extra)
	}
	return seedtrace.Normalize(seedtrace.Record{
		ID:          m.ID,
		PostID:      m.ID,
		Barcode:     m.Barcode,
		Field:       m.Field,
		Range:       m.RangeNo,
		Row:         m.RowNo,
		PlotID:      m.PlotID,
		SubplotID:   m.SubplotID,
		MaterialID:  m.MaterialID,
		IsDiscarded: m.IsDiscarded,
		DiscardedAt: m.DiscardedAt,
		DiscardedBy: m.DiscardedBy,
		Extra:       extra,
	})
}

// FromDomain builds a persistence row from a wire record within a scope.
func FromDomain(scope seedtrace.Scope, r seedtrace.Record) Record {
	extra := ""
	if len(r.Extra) > 0 {
		if b, err := json.Marshal(r.Extra); err == nil {
			extra = string(b)
		}
	}
	return Record{
		ID:          r.Identity(),
		Site:        scope.Site,
		Year:        scope.Year,
		RecordType:  scope.RecordType,
		Barcode:     r.Barcode,
		BarcodeNorm: seedtrace.NormalizeBarcode(r.Barcode),
		Field:       r.Field,
		RangeNo:     r.Range,
		RowNo:       r.Row,
		PlotID:      r.PlotID,
		SubplotID:   r.SubplotID,
		MaterialID:  r.MaterialID,
		IsDiscarded: r.IsDiscarded,
		DiscardedAt: r.DiscardedAt,
		DiscardedBy: r.DiscardedBy,
		Extra:       extra,
	}
}
