package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/plotwise/seedtrace"
)

// Level identifies one dropdown in the cascade.
type Level int

const (
	LevelFarm Level = iota
	LevelSection
	LevelField
)

func (l Level) optionType() string {
	switch l {
	case LevelFarm:
		return seedtrace.OptionTypeFarm
	case LevelSection:
		return seedtrace.OptionTypeSection
	default:
		return seedtrace.OptionTypeField
	}
}

// Selection is the current value of one level. A zero ID means nothing
// chosen.
type Selection struct {
	ID    int64
	Title string
}

// SelectorView is the rendering side of the cascade. Populate replaces a
// level's option list, Select marks a choice, Disable greys a level out.
type SelectorView interface {
	Populate(level Level, options []seedtrace.Option)
	Select(level Level, sel Selection)
	Disable(level Level)
}

// FieldListener fires when the field level settles on a value, which is
// the trigger for reloading the record table.
type FieldListener func(fieldID int64, fieldTitle string)

// Selector drives the farm, section and field dropdowns. Each choice
// resets and repopulates everything downstream of it; a level left with a
// single option selects itself and cascades; a level left with none is
// disabled. Fetches are tagged with a generation counter so a slow
// response for a superseded choice is dropped instead of clobbering the
// newer one.
type Selector struct {
	svc      Service
	site     string
	view     SelectorView
	onField  FieldListener
	gen      atomic.Uint64
	mu       sync.Mutex
	options  []seedtrace.Option
	selected [3]Selection
}

func NewSelector(svc Service, site string, view SelectorView, onField FieldListener) *Selector {
	return &Selector{svc: svc, site: site, view: view, onField: onField}
}

// Refresh reloads the option catalogue and rebuilds the cascade from the
// farm level down. Prior selections are discarded.
func (s *Selector) Refresh(ctx context.Context) error {
	gen := s.gen.Add(1)

	options, err := s.svc.FetchOptions(ctx, s.site)
	if err != nil {
		return err
	}
	if s.gen.Load() != gen {
		return nil
	}

	s.mu.Lock()
	s.options = options
	s.selected = [3]Selection{}
	s.mu.Unlock()

	s.populate(LevelFarm, 0)
	return nil
}

// Choose records the user's pick at a level and cascades below it. Every
// pick advances the generation, so fetches still in flight for the prior
// selection land stale.
func (s *Selector) Choose(level Level, sel Selection) {
	s.gen.Add(1)

	s.mu.Lock()
	s.selected[level] = sel
	for l := level + 1; l <= LevelField; l++ {
		s.selected[l] = Selection{}
	}
	s.mu.Unlock()

	if s.view != nil {
		s.view.Select(level, sel)
	}

	if level == LevelField {
		if s.onField != nil && sel.ID != 0 {
			s.onField(sel.ID, sel.Title)
		}
		return
	}
	s.populate(level+1, sel.ID)
}

// Selected returns the current value at a level.
func (s *Selector) Selected(level Level) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected[level]
}

func (s *Selector) childOptions(level Level, parentID int64) []seedtrace.Option {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []seedtrace.Option
	for _, opt := range s.options {
		if opt.Type != level.optionType() {
			continue
		}
		if level == LevelFarm || opt.HasParent(parentID) {
			out = append(out, opt)
		}
	}
	return out
}

// populate fills a level from the catalogue and applies the settling
// rules: none disables, exactly one self-selects and cascades, more than
// one waits for the user.
func (s *Selector) populate(level Level, parentID int64) {
	options := s.childOptions(level, parentID)

	if s.view != nil {
		s.view.Populate(level, options)
	}

	switch len(options) {
	case 0:
		s.mu.Lock()
		for l := level; l <= LevelField; l++ {
			s.selected[l] = Selection{}
		}
		s.mu.Unlock()
		if s.view != nil {
			for l := level; l <= LevelField; l++ {
				s.view.Disable(l)
			}
		}
	case 1:
		only := options[0]
		s.autoChoose(level, Selection{ID: only.ID, Title: only.Title})
	}
}

func (s *Selector) autoChoose(level Level, sel Selection) {
	s.mu.Lock()
	s.selected[level] = sel
	s.mu.Unlock()

	if s.view != nil {
		s.view.Select(level, sel)
	}

	if level == LevelField {
		if s.onField != nil {
			s.onField(sel.ID, sel.Title)
		}
		return
	}
	s.populate(level+1, sel.ID)
}

// Reset clears every level back to unselected, keeping the catalogue.
func (s *Selector) Reset() {
	s.gen.Add(1)
	s.mu.Lock()
	s.selected = [3]Selection{}
	s.mu.Unlock()
	s.populate(LevelFarm, 0)
}

// Generation exposes the current request generation. Callers loading
// dependent data snapshot it before the fetch and compare after, dropping
// responses that raced a newer selection.
func (s *Selector) Generation() uint64 {
	return s.gen.Load()
}

// Stale reports whether a snapshot taken before an async fetch has been
// superseded by a newer selection.
func (s *Selector) Stale(snapshot uint64) bool {
	return s.gen.Load() != snapshot
}
