package models

import (
	"encoding/json"

	"github.com/plotwise/seedtrace"
)

// Option is one node of the farm/section/field tree, flattened per site.
type Option struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Site       string `json:"site" gorm:"type:text;not null;index:idx_option_site"`
	Title      string `json:"title" gorm:"type:text;not null"`
	Type       string `json:"type" gorm:"type:text;not null;index:idx_option_site,priority:2"`
	ParentRefs string `json:"parentRefs" gorm:"type:text"`
}

func (m Option) ToDomain() seedtrace.Option {
	var refs []int64
	if m.ParentRefs != "" {
		_ = json.Unmarshal([]byte(m.ParentRefs), &refs)
	}
	return seedtrace.Option{
		ID:         m.ID,
		Title:      m.Title,
		Type:       m.Type,
		ParentRefs: refs,
	}
}
