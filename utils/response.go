package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/apperror"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type APIError struct {
	Status  int      `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Success bool     `json:"success"`
}

func Respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, APIResponse{
		Status:  status,
		Data:    data,
		Message: message,
		Success: status < 400,
	})
}

// RespondError writes err as an error envelope and aborts the chain.
// Unclassified errors are logged and reported as internal errors.
func RespondError(c *gin.Context, log *zap.Logger, err error) {
	e := apperror.As(err)
	status := e.Status()

	if e.Kind == apperror.KindInternal {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	} else if e.Err != nil {
		log.Debug("request rejected",
			zap.String("kind", e.Kind.String()),
			zap.String("path", c.FullPath()),
			zap.Error(e.Err),
		)
	}

	c.AbortWithStatusJSON(status, APIError{
		Status:  status,
		Message: e.Message,
		Errors:  e.Errors,
		Success: false,
	})
}
