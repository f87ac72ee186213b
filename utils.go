package seedtrace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// NormalizeBarcode is the canonical barcode form used for every comparison:
// surrounding whitespace stripped, upper-cased. Two codes differing only in
// case or whitespace are the same barcode.
func NormalizeBarcode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SameBarcode compares two raw codes under the canonical form.
func SameBarcode(a, b string) bool {
	return NormalizeBarcode(a) == NormalizeBarcode(b) && NormalizeBarcode(a) != ""
}

// DeriveStatus recomputes the display status from the discard flag.
func DeriveStatus(isDiscarded bool) string {
	if isDiscarded {
		return StatusDiscarded
	}
	return StatusPending
}

// FallbackID synthesizes a stable row id from a record's attributes for rows
// that arrive without id or post_id. The hash is negated so synthesized ids
// can never collide with store-assigned positive ids.
func FallbackID(r Record) int64 {
	parts := []string{
		NormalizeBarcode(r.Barcode),
		r.Field, r.Range, r.Row, r.PlotID, r.SubplotID, r.MaterialID,
	}
	if len(r.Extra) > 0 {
		keys := make([]string, 0, len(r.Extra))
		for k := range r.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k, fmt.Sprint(r.Extra[k]))
		}
	}
	h := xxh3.HashString(strings.Join(parts, "\x1f"))
	id := int64(h & 0x7fffffffffffffff)
	if id == 0 {
		id = 1
	}
	return -id
}

// Normalize returns the record with all display fields trimmed, the status
// rederived, and both identity aliases resolved to the same value. Rows are
// never dropped: a record with no identity at all gets a synthesized one.
func Normalize(r Record) Record {
	r.Barcode = strings.TrimSpace(r.Barcode)
	r.Field = strings.TrimSpace(r.Field)
	r.Range = strings.TrimSpace(r.Range)
	r.Row = strings.TrimSpace(r.Row)
	r.PlotID = strings.TrimSpace(r.PlotID)
	r.SubplotID = strings.TrimSpace(r.SubplotID)
	r.MaterialID = strings.TrimSpace(r.MaterialID)
	r.Status = DeriveStatus(r.IsDiscarded)

	id := r.Identity()
	if id == 0 {
		id = FallbackID(r)
	}
	r.ID = id
	r.PostID = id
	return r
}
