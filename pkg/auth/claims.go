package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the typed session credential issued after OAuth login.
// The bot ID is the stable external identity assigned by Notion.
type SessionClaims struct {
	BotID string `json:"bot_id"`
	jwt.RegisteredClaims
}
