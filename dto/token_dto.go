package dto

import "github.com/princinho/sahoauth/models"

// SessionResponse is returned by login and refresh. Tokens are also set as
// cookies.
type SessionResponse struct {
	User         *models.PublicUser `json:"user,omitempty"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}
