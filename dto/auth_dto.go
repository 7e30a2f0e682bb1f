package dto

import "strings"

// LoginDTO accepts either a username or an email.
type LoginDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokenDTO is the body fallback when the refreshToken cookie is absent.
type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type UpdateAccountDTO struct {
	FullName string `json:"fullName"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// RegisterForm is bound from the multipart registration form. Files are read
// separately. The full name is sent as "fullname"; "fullName" is accepted too.
type RegisterForm struct {
	Username      string `form:"username"`
	FullName      string `form:"fullname"`
	FullNameCamel string `form:"fullName"`
	Email         string `form:"email"`
	Password      string `form:"password"`
}

func (f RegisterForm) Name() string {
	if strings.TrimSpace(f.FullName) != "" {
		return f.FullName
	}
	return f.FullNameCamel
}
