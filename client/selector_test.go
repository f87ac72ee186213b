package client

import (
	"context"
	"testing"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/usecase"
)

type mockService struct {
	options     []seedtrace.Option
	optionsErr  error
	records     []seedtrace.Record
	recordsErr  error
	status      seedtrace.StatusResult
	statusErr   error
	submitted   []usecase.SubmitInput
	submitErr   error
	fetchCalls  int
	checkCalls  int
	recordCalls int
}

func (m *mockService) FetchOptions(ctx context.Context, site string) ([]seedtrace.Option, error) {
	m.fetchCalls++
	return m.options, m.optionsErr
}

func (m *mockService) FetchRecords(ctx context.Context, scope seedtrace.Scope, field string) ([]seedtrace.Record, error) {
	m.recordCalls++
	return m.records, m.recordsErr
}

func (m *mockService) CheckDuplicate(ctx context.Context, scope seedtrace.Scope, code string) (seedtrace.StatusResult, error) {
	m.checkCalls++
	return m.status, m.statusErr
}

func (m *mockService) SubmitDiscard(ctx context.Context, input usecase.SubmitInput) (*seedtrace.Record, error) {
	m.submitted = append(m.submitted, input)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	record := seedtrace.Record{ID: 900, Barcode: input.ScannedCode, IsDiscarded: true}
	return &record, nil
}

type recordingView struct {
	populated map[Level][]seedtrace.Option
	selected  map[Level]Selection
	disabled  map[Level]int
}

func newRecordingView() *recordingView {
	return &recordingView{
		populated: map[Level][]seedtrace.Option{},
		selected:  map[Level]Selection{},
		disabled:  map[Level]int{},
	}
}

func (v *recordingView) Populate(level Level, options []seedtrace.Option) {
	v.populated[level] = options
}

func (v *recordingView) Select(level Level, sel Selection) {
	v.selected[level] = sel
}

func (v *recordingView) Disable(level Level) {
	v.disabled[level]++
}

func treeOptions() []seedtrace.Option {
	return []seedtrace.Option{
		{ID: 1, Title: "North Farm", Type: seedtrace.OptionTypeFarm},
		{ID: 2, Title: "South Farm", Type: seedtrace.OptionTypeFarm},
		{ID: 10, Title: "Section A", Type: seedtrace.OptionTypeSection, ParentRefs: []int64{1}},
		{ID: 11, Title: "Section B", Type: seedtrace.OptionTypeSection, ParentRefs: []int64{2}},
		{ID: 100, Title: "Field A1", Type: seedtrace.OptionTypeField, ParentRefs: []int64{10}},
		{ID: 101, Title: "Field A2", Type: seedtrace.OptionTypeField, ParentRefs: []int64{10}},
		{ID: 110, Title: "Field B1", Type: seedtrace.OptionTypeField, ParentRefs: []int64{11}},
	}
}

func TestSelectorRefreshPopulatesFarms(t *testing.T) {
	svc := &mockService{options: treeOptions()}
	view := newRecordingView()
	sel := NewSelector(svc, "PRSA", view, nil)

	if err := sel.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(view.populated[LevelFarm]); got != 2 {
		t.Fatalf("expected 2 farm options, got %d", got)
	}
	if sel.Selected(LevelFarm).ID != 0 {
		t.Error("two farms must wait for the user, not self-select")
	}
}

func TestSelectorChooseCascades(t *testing.T) {
	svc := &mockService{options: treeOptions()}
	view := newRecordingView()
	var fieldID int64
	sel := NewSelector(svc, "PRSA", view, func(id int64, title string) { fieldID = id })
	if err := sel.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sel.Choose(LevelFarm, Selection{ID: 2, Title: "South Farm"})

	// South Farm has one section which has one field, so the cascade
	// settles all the way down without user input.
	if got := sel.Selected(LevelSection); got.ID != 11 {
		t.Errorf("expected section 11 auto-selected, got %d", got.ID)
	}
	if got := sel.Selected(LevelField); got.ID != 110 {
		t.Errorf("expected field 110 auto-selected, got %d", got.ID)
	}
	if fieldID != 110 {
		t.Errorf("field listener should fire with 110, got %d", fieldID)
	}
}

func TestSelectorMultipleChildrenWait(t *testing.T) {
	svc := &mockService{options: treeOptions()}
	view := newRecordingView()
	fired := false
	sel := NewSelector(svc, "PRSA", view, func(int64, string) { fired = true })
	if err := sel.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sel.Choose(LevelFarm, Selection{ID: 1, Title: "North Farm"})

	// North Farm's single section self-selects, but its two fields wait.
	if got := sel.Selected(LevelSection); got.ID != 10 {
		t.Errorf("expected section 10 auto-selected, got %d", got.ID)
	}
	if got := len(view.populated[LevelField]); got != 2 {
		t.Errorf("expected 2 field options, got %d", got)
	}
	if sel.Selected(LevelField).ID != 0 {
		t.Error("two fields must wait for the user")
	}
	if fired {
		t.Error("field listener must not fire before a field is settled")
	}
}

func TestSelectorNoChildrenDisables(t *testing.T) {
	svc := &mockService{options: []seedtrace.Option{
		{ID: 1, Title: "Lone Farm", Type: seedtrace.OptionTypeFarm},
	}}
	view := newRecordingView()
	sel := NewSelector(svc, "PRSA", view, nil)
	if err := sel.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The lone farm self-selects and finds no sections beneath it.
	if sel.Selected(LevelFarm).ID != 1 {
		t.Fatal("single farm should self-select")
	}
	if view.disabled[LevelSection] == 0 || view.disabled[LevelField] == 0 {
		t.Error("levels without options should be disabled")
	}
}

func TestSelectorChooseResetsDownstream(t *testing.T) {
	svc := &mockService{options: treeOptions()}
	sel := NewSelector(svc, "PRSA", newRecordingView(), nil)
	if err := sel.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sel.Choose(LevelFarm, Selection{ID: 1, Title: "North Farm"})
	sel.Choose(LevelField, Selection{ID: 100, Title: "Field A1"})

	sel.Choose(LevelFarm, Selection{ID: 2, Title: "South Farm"})

	if got := sel.Selected(LevelField); got.ID != 110 {
		t.Errorf("switching farm should rebuild the field level, got %d", got.ID)
	}
}

func TestSelectorStaleSnapshot(t *testing.T) {
	svc := &mockService{options: treeOptions()}
	sel := NewSelector(svc, "PRSA", newRecordingView(), nil)
	if err := sel.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sel.Choose(LevelFarm, Selection{ID: 1, Title: "North Farm"})
	snapshot := sel.Generation()

	if sel.Stale(snapshot) {
		t.Fatal("snapshot should be current before any new choice")
	}

	sel.Choose(LevelField, Selection{ID: 101, Title: "Field A2"})

	if !sel.Stale(snapshot) {
		t.Error("a newer choice must mark the old snapshot stale")
	}
}

func TestSelectorStaleFetchDropped(t *testing.T) {
	// Simulates the racing-table-load pattern: the loader for field A1
	// snapshots the generation, the operator picks A2 before the fetch
	// resolves, and the late response is discarded.
	svc := &mockService{options: treeOptions(), records: []seedtrace.Record{{ID: 1, Barcode: "BC-1"}}}
	table := NewTable(nil)
	sel := NewSelector(svc, "PRSA", newRecordingView(), nil)
	if err := sel.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel.Choose(LevelFarm, Selection{ID: 1, Title: "North Farm"})

	sel.Choose(LevelField, Selection{ID: 100, Title: "Field A1"})
	staleSnapshot := sel.Generation()

	sel.Choose(LevelField, Selection{ID: 101, Title: "Field A2"})
	freshSnapshot := sel.Generation()
	freshRecords := []seedtrace.Record{{ID: 2, Barcode: "BC-2"}}
	if !sel.Stale(freshSnapshot) {
		table.Load(freshRecords)
	}

	// The A1 fetch resolves last. Its snapshot is stale, so it must not
	// overwrite the A2 rows.
	staleRecords := []seedtrace.Record{{ID: 1, Barcode: "BC-1"}}
	if !sel.Stale(staleSnapshot) {
		table.Load(staleRecords)
	}

	rows := table.Rows()
	if len(rows) != 1 || rows[0].ID != 2 {
		t.Fatalf("stale response overwrote the fresh rows: %+v", rows)
	}
}
