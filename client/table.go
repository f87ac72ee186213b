package client

import (
	"encoding/json"
	"sync"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
)

// RowView is what the rendering layer receives. Cells holds only the
// visible columns: the barcode and raw record id stay off the UI surface
// and travel as data attributes.
type RowView struct {
	ID      int64
	Barcode string
	Cells   []string
}

// RowRenderer is the view side of the table. Implementations draw rows;
// the Table owns the data and the indexes. A nil renderer is valid for
// headless use.
type RowRenderer interface {
	RenderAll(rows []RowView)
	RenderRow(row RowView)
	Clear()
}

func viewOf(r seedtrace.Record) RowView {
	return RowView{
		ID:      r.ID,
		Barcode: seedtrace.NormalizeBarcode(r.Barcode),
		Cells:   []string{r.Field, r.Range, r.Row, r.PlotID, r.SubplotID, r.MaterialID, r.Status},
	}
}

// Table keeps an indexed in-memory view of the loaded record set and two
// coherent lookup indexes: normalized barcode to ids, and id to row. The
// displayed set is always a projection of the store's response, never the
// source of truth.
type Table struct {
	mu        sync.RWMutex
	rows      []seedtrace.Record
	byID      map[int64]int
	byBarcode map[string][]int64
	renderer  RowRenderer
}

func NewTable(renderer RowRenderer) *Table {
	return &Table{
		byID:      map[int64]int{},
		byBarcode: map[string][]int64{},
		renderer:  renderer,
	}
}

// Load replaces the displayed set. Every record is normalized and kept:
// rows without any identity get a synthesized one, and empty input clears
// the table. Both indexes are rebuilt from scratch.
func (t *Table) Load(records []seedtrace.Record) {
	t.mu.Lock()

	t.rows = make([]seedtrace.Record, 0, len(records))
	t.byID = make(map[int64]int, len(records))
	t.byBarcode = make(map[string][]int64, len(records))

	for _, record := range records {
		r := seedtrace.Normalize(record)
		idx := len(t.rows)
		t.rows = append(t.rows, r)

		if _, exists := t.byID[r.ID]; !exists {
			t.byID[r.ID] = idx
		}
		if norm := seedtrace.NormalizeBarcode(r.Barcode); norm != "" {
			t.byBarcode[norm] = append(t.byBarcode[norm], r.ID)
		}
	}

	views := make([]RowView, len(t.rows))
	for i, r := range t.rows {
		views[i] = viewOf(r)
	}
	t.mu.Unlock()

	if t.renderer != nil {
		t.renderer.RenderAll(views)
	}
}

// LoadJSON decodes a raw record-list payload and loads it. A malformed
// payload fails without touching the prior table state.
func (t *Table) LoadJSON(data []byte) error {
	var records []seedtrace.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return domain.ValidationError{Missing: []string{"records"}}
	}
	t.Load(records)
	return nil
}

// Clear empties the displayed rows and both indexes.
func (t *Table) Clear() {
	t.mu.Lock()
	t.rows = nil
	t.byID = map[int64]int{}
	t.byBarcode = map[string][]int64{}
	t.mu.Unlock()

	if t.renderer != nil {
		t.renderer.Clear()
	}
}

// UpdateStatusByID patches one row's status in place and re-renders just
// that row. The index lookup is O(1); a linear scan is the fallback for
// rows that were indexed under a synthesized id. Returning false means the
// record is not currently visible, not that anything failed.
func (t *Table) UpdateStatusByID(id int64, newStatus string) bool {
	t.mu.Lock()

	idx, found := t.byID[id]
	if !found {
		for i := range t.rows {
			if t.rows[i].Identity() == id {
				idx = i
				found = true
				break
			}
		}
	}
	if !found {
		t.mu.Unlock()
		return false
	}

	t.rows[idx].Status = newStatus
	t.rows[idx].IsDiscarded = newStatus == seedtrace.StatusDiscarded
	t.byID[t.rows[idx].ID] = idx
	view := viewOf(t.rows[idx])
	t.mu.Unlock()

	if t.renderer != nil {
		t.renderer.RenderRow(view)
	}
	return true
}

// UpdateStatusByBarcode resolves the normalized barcode to a row id and
// delegates to the id-based update.
func (t *Table) UpdateStatusByBarcode(code string, newStatus string) bool {
	t.mu.RLock()
	ids := t.byBarcode[seedtrace.NormalizeBarcode(code)]
	t.mu.RUnlock()

	updated := false
	for _, id := range ids {
		if t.UpdateStatusByID(id, newStatus) {
			updated = true
		}
	}
	return updated
}

// FindByBarcode returns every loaded record carrying the barcode. One match
// is the normal case; collisions are returned, not an error.
func (t *Table) FindByBarcode(code string) []seedtrace.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matches []seedtrace.Record
	for _, id := range t.byBarcode[seedtrace.NormalizeBarcode(code)] {
		if idx, ok := t.byID[id]; ok {
			matches = append(matches, t.rows[idx])
		}
	}
	return matches
}

// Len reports the displayed row count.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Rows returns a copy of the displayed set in display order.
func (t *Table) Rows() []seedtrace.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]seedtrace.Record, len(t.rows))
	copy(out, t.rows)
	return out
}
