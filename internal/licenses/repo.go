package licenses

import (
	"context"
	"time"

	"github.com/notelift/notelift-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes license-key persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a license repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new license-key row.
func (r *Repository) Create(ctx context.Context, key *models.LicenseKey) (*models.LicenseKey, error) {
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, err
	}
	return key, nil
}

// FindByKey loads a license row by its normalized code.
func (r *Repository) FindByKey(ctx context.Context, key string) (*models.LicenseKey, error) {
	var row models.LicenseKey
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns the ledger with owners preloaded, newest first.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.LicenseKey, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LicenseKey{}).
		Preload("UsedBy").
		Order("created_at DESC").Order("id DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var rows []models.LicenseKey
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Revoke deactivates the key and stamps the revocation time. The usage
// linkage is intentionally left untouched. Returns whether a row matched.
func (r *Repository) Revoke(ctx context.Context, key string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LicenseKey{}).
		Where("key = ?", key).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Claim atomically links the key to the user. The conditional update is
// the at-most-one-owner guard under concurrent activation: only an
// active key that is unused, or already owned by this same user, matches.
func (r *Repository) Claim(ctx context.Context, key string, userID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LicenseKey{}).
		Where("key = ? AND is_active = ? AND (used_by_user_id IS NULL OR used_by_user_id = ?)", key, true, userID).
		Updates(map[string]any{
			"used_by_user_id": userID,
			"activated_at":    gorm.Expr("COALESCE(activated_at, ?)", at),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// HasActiveLicense reports whether the user currently owns an active key.
func (r *Repository) HasActiveLicense(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LicenseKey{}).
		Where("used_by_user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Stats aggregates ledger counters in a single scan.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	var rows []models.LicenseKey
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := &Stats{Total: int64(len(rows))}
	for _, row := range rows {
		if row.IsActive {
			stats.Active++
		} else {
			stats.Revoked++
		}
		if row.IsUsed() {
			stats.Used++
		} else if row.IsActive {
			stats.Available++
		}
	}
	return stats, nil
}
