package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/accounts"
	"github.com/princinho/sahoauth/apperror"
	"github.com/princinho/sahoauth/session"
	"github.com/princinho/sahoauth/storage"
	"github.com/princinho/sahoauth/utils"
	"go.uber.org/zap"
)

// Deps carries what the handlers need. It is built once in main.
type Deps struct {
	Accounts   *accounts.Service
	Sessions   *session.Service
	Files      *storage.FileValidator
	Cookies    utils.CookieWriter
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Log        *zap.Logger
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperror.Validation("Invalid request body", err.Error())
	}
	return nil
}

// formFile returns the named upload, or nil when the field is absent.
// Present files must pass the validator.
func formFile(c *gin.Context, v *storage.FileValidator, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperror.Validation("Invalid multipart form", err.Error())
	}
	if v != nil {
		if _, err := v.ValidateFile(fh); err != nil {
			return nil, apperror.Validation("Invalid "+field+" file", err.Error())
		}
	}
	return fh, nil
}
