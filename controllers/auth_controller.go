package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/accounts"
	"github.com/princinho/sahoauth/dto"
	"github.com/princinho/sahoauth/middleware"
	"github.com/princinho/sahoauth/utils"
)

// POST /api/v1/users/login
func Login(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := bindJSON(c, &body); err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		user, pair, err := d.Accounts.Login(c.Request.Context(), accounts.LoginInput{
			Username: body.Username,
			Email:    body.Email,
			Password: body.Password,
		})
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		d.Cookies.SetTokens(c, pair.AccessToken, pair.RefreshToken, d.AccessTTL, d.RefreshTTL)
		utils.Respond(c, http.StatusOK, dto.SessionResponse{
			User:         user,
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}, "User logged in successfully")
	}
}

// POST /api/v1/users/refresh-token
func Refresh(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented, _ := c.Cookie(utils.RefreshTokenCookie)
		if presented == "" {
			var body dto.RefreshTokenDTO
			// an empty body just means no token was sent
			_ = c.ShouldBindJSON(&body)
			presented = body.RefreshToken
		}

		pair, err := d.Sessions.Rotate(c.Request.Context(), presented)
		if err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		d.Cookies.SetTokens(c, pair.AccessToken, pair.RefreshToken, d.AccessTTL, d.RefreshTTL)
		utils.Respond(c, http.StatusOK, dto.SessionResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}, "Access token refreshed")
	}
}

// POST /api/v1/users/logout
func Logout(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Accounts.Logout(c.Request.Context(), middleware.UserID(c)); err != nil {
			utils.RespondError(c, d.Log, err)
			return
		}

		d.Cookies.ClearTokens(c)
		utils.Respond(c, http.StatusOK, gin.H{}, "User logged out")
	}
}
