package licenses

import (
	"time"

	"github.com/notelift/notelift-backend/pkg/db/models"
)

// Validity classifies a key lookup.
type Validity string

const (
	ValidityInvalid     Validity = "invalid"
	ValidityRevoked     Validity = "revoked"
	ValidityValidUnused Validity = "valid_unused"
	ValidityValidUsed   Validity = "valid_used"
)

// ValidationResult is the outcome of validating a key against the
// ledger.
type ValidationResult struct {
	Validity    Validity
	Valid       bool
	IsUsed      bool
	Message     string
	OwnerUserID *uint
}

// CanBeUsedBy reports whether the key can authorize the given user:
// either unused, or already owned by that same user.
func (r ValidationResult) CanBeUsedBy(userID uint) bool {
	switch r.Validity {
	case ValidityValidUnused:
		return true
	case ValidityValidUsed:
		return r.OwnerUserID != nil && *r.OwnerUserID == userID
	}
	return false
}

// CreateInput holds the metadata recorded alongside a new key.
type CreateInput struct {
	Key       string
	CreatedBy string
	Notes     string
}

// ListItem is one row of the administrative listing, with the owning
// workspace resolved when the key is used.
type ListItem struct {
	Key           string     `json:"key"`
	IsActive      bool       `json:"is_active"`
	IsUsed        bool       `json:"is_used"`
	WorkspaceName string     `json:"workspace_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	CreatedBy     string     `json:"created_by,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Stats aggregates the ledger for administrative display.
type Stats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Revoked   int64 `json:"revoked"`
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
}

func toListItem(row models.LicenseKey) ListItem {
	item := ListItem{
		Key:         row.Key,
		IsActive:    row.IsActive,
		IsUsed:      row.IsUsed(),
		CreatedAt:   row.CreatedAt,
		ActivatedAt: row.ActivatedAt,
		RevokedAt:   row.RevokedAt,
		CreatedBy:   row.CreatedBy,
		Notes:       row.Notes,
	}
	if row.UsedBy != nil {
		item.WorkspaceName = row.UsedBy.WorkspaceName
	}
	return item
}
