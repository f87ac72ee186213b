package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
	"github.com/plotwise/seedtrace/internal/infra/database/models"
)

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// QueryByScope returns every record in the (site, year, recordType)
// partition, optionally narrowed to one field. The displayed row set is
// always a projection of this response.
func (r *RecordRepository) QueryByScope(ctx context.Context, scope seedtrace.Scope, field string) ([]seedtrace.Record, error) {
	q := r.db.WithContext(ctx).
		Where("site = ? AND year = ? AND record_type = ?", scope.Site, scope.Year, scope.RecordType)
	if field != "" {
		q = q.Where("field = ?", field)
	}

	var rows []models.Record
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]seedtrace.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToDomain())
	}
	return records, nil
}

// FindByBarcode resolves a scanned code within a scope under the canonical
// normalized form. A duplicate active barcode yields the lowest id, never an
// error.
func (r *RecordRepository) FindByBarcode(ctx context.Context, scope seedtrace.Scope, code string) (*seedtrace.Record, error) {
	norm := seedtrace.NormalizeBarcode(code)
	if norm == "" {
		return nil, domain.NotFoundError{Barcode: code}
	}

	var row models.Record
	err := r.db.WithContext(ctx).
		Where("site = ? AND year = ? AND record_type = ? AND barcode_norm = ?",
			scope.Site, scope.Year, scope.RecordType, norm).
		Order("id ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError{Barcode: code}
		}
		return nil, err
	}

	record := row.ToDomain()
	return &record, nil
}

// DiscardPatch is the only mutation the workflow applies to a record.
type DiscardPatch struct {
	IsDiscarded bool
	DiscardedAt *time.Time
	DiscardedBy string
}

// UpdateByID applies the patch in a single statement; the store either
// applies it fully or not at all.
func (r *RecordRepository) UpdateByID(ctx context.Context, id int64, patch DiscardPatch) error {
	res := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_discarded": patch.IsDiscarded,
			"discarded_at": patch.DiscardedAt,
			"discarded_by": patch.DiscardedBy,
		})
	if res.Error != nil {
		return domain.PersistenceError{Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError{}
	}
	return nil
}

// Create persists a new record within the scope and returns it with its
// store-assigned id.
func (r *RecordRepository) Create(ctx context.Context, scope seedtrace.Scope, record seedtrace.Record) (seedtrace.Record, error) {
	row := models.FromDomain(scope, record)
	row.ID = 0
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return seedtrace.Record{}, domain.PersistenceError{Err: err}
	}
	return row.ToDomain(), nil
}
