package users

import "github.com/notelift/notelift-backend/pkg/db/models"

// UpsertUserDTO carries the workspace identity returned by an OAuth
// exchange.
type UpsertUserDTO struct {
	BotID         string
	WorkspaceID   string
	WorkspaceName string
	AccessToken   string
	RefreshToken  *string
}

// ToModel maps the DTO onto a fresh user row.
func (d UpsertUserDTO) ToModel() *models.User {
	return &models.User{
		BotID:         d.BotID,
		WorkspaceID:   d.WorkspaceID,
		WorkspaceName: d.WorkspaceName,
		AccessToken:   d.AccessToken,
		RefreshToken:  d.RefreshToken,
	}
}

// Info is the profile payload returned to the frontend.
type Info struct {
	WorkspaceName string `json:"workspace_name"`
	HasPageID     bool   `json:"has_page_id"`
	BotID         string `json:"bot_id"`
}

// ToInfo projects a user row onto the public profile shape.
func ToInfo(user *models.User) Info {
	return Info{
		WorkspaceName: user.WorkspaceName,
		HasPageID:     user.HasPageID(),
		BotID:         user.BotID,
	}
}
