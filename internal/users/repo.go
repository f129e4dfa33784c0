package users

import (
	"context"
	"errors"

	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByBotID retrieves the user matching the provided Notion bot ID.
func (r *Repository) FindByBotID(ctx context.Context, botID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// Upsert creates or refreshes the user row keyed by bot ID. Credentials
// and workspace identity always update; an existing publish target is
// never cleared here.
func (r *Repository) Upsert(ctx context.Context, dto UpsertUserDTO) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("bot_id = ?", dto.BotID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := dto.ToModel()
		if createErr := r.db.WithContext(ctx).Create(fresh).Error; createErr != nil {
			return nil, createErr
		}
		return fresh, nil
	}
	if err != nil {
		return nil, err
	}

	user.AccessToken = dto.AccessToken
	user.WorkspaceID = dto.WorkspaceID
	if dto.WorkspaceName != "" {
		user.WorkspaceName = dto.WorkspaceName
	}
	if dto.RefreshToken != nil {
		user.RefreshToken = dto.RefreshToken
	}
	if err := r.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPageID stores the user's default publish target.
func (r *Repository) SetPageID(ctx context.Context, botID, pageID string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("bot_id = ?", botID).
		UpdateColumn("notion_page_id", pageID).Error
}

// ClearPageID removes the user's default publish target after the remote
// system reports it gone.
func (r *Repository) ClearPageID(ctx context.Context, botID string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("bot_id = ?", botID).
		UpdateColumn("notion_page_id", nil).Error
}

// UpdateTokens replaces the stored credential pair after a refresh.
func (r *Repository) UpdateTokens(ctx context.Context, botID, accessToken string, refreshToken *string) error {
	updates := map[string]any{"access_token": accessToken}
	if refreshToken != nil {
		updates["refresh_token"] = refreshToken
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("bot_id = ?", botID).
		Updates(updates).Error
}
