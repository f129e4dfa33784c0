package models

import (
	"time"
)

// User represents one Notion workspace connection authenticated via OAuth.
// The bot_id issued by Notion is the stable external identity.
type User struct {
	ID            uint       `gorm:"column:id;primaryKey;autoIncrement"`
	BotID         string     `gorm:"column:bot_id;size:255;not null;uniqueIndex"`
	WorkspaceID   string     `gorm:"column:workspace_id;size:255;not null"`
	WorkspaceName string     `gorm:"column:workspace_name;size:500"`
	AccessToken   string     `gorm:"column:access_token;size:1000;not null"`
	RefreshToken  *string    `gorm:"column:refresh_token;size:1000"`
	NotionPageID  *string    `gorm:"column:notion_page_id;size:255"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// HasPageID reports whether a default publish target is configured.
func (u *User) HasPageID() bool {
	return u != nil && u.NotionPageID != nil && *u.NotionPageID != ""
}
