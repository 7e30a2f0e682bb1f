package models

import (
	"time"
)

type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email" json:"email"`
	FullName     string    `bson:"fullName" json:"fullName"`
	Avatar       string    `bson:"avatar" json:"avatar"`
	CoverImage   string    `bson:"coverImage" json:"coverImage"`
	PasswordHash string    `bson:"passwordHash" json:"-"` // never expose
	RefreshToken string    `bson:"refreshToken,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the outward view of a User: no password hash, no session
// credential.
type PublicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	FullName     *string
	Email        *string
	Avatar       *string
	CoverImage   *string
	PasswordHash *string
}

func (u UserUpdate) Empty() bool {
	return u.FullName == nil && u.Email == nil && u.Avatar == nil &&
		u.CoverImage == nil && u.PasswordHash == nil
}

// Apply copies the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.FullName != nil {
		user.FullName = *u.FullName
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.Avatar != nil {
		user.Avatar = *u.Avatar
	}
	if u.CoverImage != nil {
		user.CoverImage = *u.CoverImage
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
}
