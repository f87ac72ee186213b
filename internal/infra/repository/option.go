package repository

import (
	"context"
	"encoding/json"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/infra/database/models"
)

const optionCacheTTL = 300 // seconds

// OptionRepository reads the farm/section/field tree from Postgres behind a
// memcached TTL cache. The tree changes rarely and is fetched on every page
// load.
type OptionRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewOptionRepository(db *gorm.DB, mc *memcache.Client) *OptionRepository {
	return &OptionRepository{db: db, mc: mc}
}

func (r *OptionRepository) ListBySite(ctx context.Context, site string) ([]seedtrace.Option, error) {
	cacheKey := "options:" + site

	if r.mc != nil {
		if item, err := r.mc.Get(cacheKey); err == nil {
			var cached []seedtrace.Option
			if err := json.Unmarshal(item.Value, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var rows []models.Option
	err := r.db.WithContext(ctx).
		Where("site = ?", site).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	options := make([]seedtrace.Option, 0, len(rows))
	for _, row := range rows {
		options = append(options, row.ToDomain())
	}

	if r.mc != nil {
		if b, err := json.Marshal(options); err == nil {
			// cache failures are invisible to callers
			_ = r.mc.Set(&memcache.Item{Key: cacheKey, Value: b, Expiration: optionCacheTTL})
		}
	}

	return options, nil
}
