package models

import (
	"time"
)

// LicenseKey gates workspace access behind a single-use code. A key is
// claimed at most once; revocation keeps the usage link for auditability.
type LicenseKey struct {
	ID           uint       `gorm:"column:id;primaryKey;autoIncrement"`
	Key          string     `gorm:"column:key;size:50;not null;uniqueIndex"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	UsedByUserID *uint      `gorm:"column:used_by_user_id;index"`
	UsedBy       *User      `gorm:"foreignKey:UsedByUserID;constraint:OnDelete:SET NULL"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	ActivatedAt  *time.Time `gorm:"column:activated_at"`
	RevokedAt    *time.Time `gorm:"column:revoked_at"`
	CreatedBy    string     `gorm:"column:created_by;size:255"`
	Notes        string     `gorm:"column:notes;size:1000"`
}

func (LicenseKey) TableName() string {
	return "license_keys"
}

// IsUsed reports whether the key has been claimed by a user.
func (k *LicenseKey) IsUsed() bool {
	return k != nil && k.UsedByUserID != nil
}
