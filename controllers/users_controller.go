package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/accounts"
	"github.com/princinho/sahoauth/apperror"
	"github.com/princinho/sahoauth/dto"
	"github.com/princinho/sahoauth/middleware"
	"github.com/princinho/sahoauth/utils"
)

// POST /api/v1/users/register
func Register(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form dto.RegisterForm
		if err := c.ShouldBind(&form); err != nil {
			utils.RespondError(c, d.Log, apperror.Validation("Invalid registration form", err.Error()))
			return
		}

		avatar, err := formFile(c, d.Files, "avatar")
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}
		cover, err := formFile(c, d.Files, "coverImage")
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		user, err := d.Accounts.Register(c.Request.Context(), accounts.RegisterInput{
			Username:   form.Username,
			FullName:   form.Name(),
			Email:      form.Email,
			Password:   form.Password,
			Avatar:     avatar,
			CoverImage: cover,
		})
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		utils.Respond(c, http.StatusCreated, user, "User registered successfully")
	}
}

// GET /api/v1/users/current-user
func CurrentUser(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := d.Accounts.CurrentUser(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}
		utils.Respond(c, http.StatusOK, user, "Current user fetched successfully")
	}
}

// POST /api/v1/users/change-password
func ChangePassword(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangePasswordDTO
		if err := bindJSON(c, &body); err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		err := d.Accounts.ChangePassword(c.Request.Context(), middleware.UserID(c), body.OldPassword, body.NewPassword)
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}
		utils.Respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
	}
}

// PATCH /api/v1/users/update-account
func UpdateAccount(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateAccountDTO
		if err := bindJSON(c, &body); err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		user, err := d.Accounts.UpdateProfile(c.Request.Context(), middleware.UserID(c), body.FullName, body.Email)
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}
		utils.Respond(c, http.StatusOK, user, "Account details updated successfully")
	}
}

// PATCH /api/v1/users/avatar
func UpdateAvatar(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := formFile(c, d.Files, "avatar")
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		user, err := d.Accounts.UpdateAvatar(c.Request.Context(), middleware.UserID(c), fh)
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}
		utils.Respond(c, http.StatusOK, user, "Avatar updated successfully")
	}
}

// PATCH /api/v1/users/cover-image
func UpdateCoverImage(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := formFile(c, d.Files, "coverImage")
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		user, err := d.Accounts.UpdateCoverImage(c.Request.Context(), middleware.UserID(c), fh)
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}
		utils.Respond(c, http.StatusOK, user, "Cover image updated successfully")
	}
}
