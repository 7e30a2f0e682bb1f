// Package session issues, validates, rotates and revokes access/refresh
// token pairs.
//
// The refresh token stored on the user record is the single source of truth:
// a refresh token is usable only while it equals the stored value, so a
// rotated-away or logged-out token is rejected even before its own expiry.
package session

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/princinho/sahoauth/apperror"
	"github.com/princinho/sahoauth/database"
	"github.com/princinho/sahoauth/metrics"
	"github.com/princinho/sahoauth/models"
	"github.com/princinho/sahoauth/token"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("sahoauth/session")

const (
	msgUnauthorized   = "Unauthorized request"
	msgInvalidAccess  = "Invalid access token"
	msgInvalidRefresh = "Invalid refresh token"
	msgRefreshUsed    = "Refresh token is expired or used"
)

// Store is the slice of the user store the session lifecycle needs.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	SwapRefreshToken(ctx context.Context, id, expected, next string) error
}

type Service struct {
	codec *token.Codec
	users Store
	log   *zap.Logger
}

func NewService(codec *token.Codec, users Store, log *zap.Logger) *Service {
	return &Service{codec: codec, users: users, log: log.Named("session")}
}

// Issue mints a new pair for userID and stores its refresh half as the
// user's only live session credential.
func (s *Service) Issue(ctx context.Context, userID string) (*token.Pair, error) {
	ctx, span := tracer.Start(ctx, "Issue")
	defer span.End()

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperror.NotFound("User does not exist")
		}
		return nil, apperror.Internal("Something went wrong while generating tokens", err)
	}

	pair, err := s.mint(userID)
	if err != nil {
		return nil, apperror.Internal("Something went wrong while generating tokens", err)
	}

	if err := s.users.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		s.log.Error("persist refresh token failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperror.Internal("Something went wrong while generating tokens", err)
	}

	s.countIssued()
	return pair, nil
}

// Authorize resolves the user behind an access token. The returned record
// has its password hash and refresh token cleared.
func (s *Service) Authorize(ctx context.Context, accessToken string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "Authorize")
	defer span.End()

	if accessToken == "" {
		return nil, apperror.Unauthorized(msgUnauthorized)
	}

	claims, err := s.codec.Decode(token.Access, accessToken)
	if err != nil {
		s.log.Debug("access token rejected", zap.Error(err))
		return nil, apperror.Unauthorized(msgInvalidAccess)
	}
	span.SetAttributes(attribute.String("user.id", claims.UserID))

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperror.NotFound("User does not exist")
		}
		return nil, apperror.Internal("Failed to load user", err)
	}

	user.PasswordHash = ""
	user.RefreshToken = ""
	return user, nil
}

// Rotate exchanges a live refresh token for a new pair. The presented token
// stops being usable once this returns successfully.
func (s *Service) Rotate(ctx context.Context, presented string) (*token.Pair, error) {
	ctx, span := tracer.Start(ctx, "Rotate")
	defer span.End()

	if presented == "" {
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		return nil, apperror.Unauthorized(msgUnauthorized)
	}

	claims, err := s.codec.Decode(token.Refresh, presented)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		s.log.Warn("refresh token rejected", zap.Error(err))
		return nil, apperror.Unauthorized(msgInvalidRefresh)
	}
	span.SetAttributes(attribute.String("user.id", claims.UserID))

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("fail").Inc()
		if !errors.Is(err, database.ErrNotFound) {
			s.log.Error("refresh user lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return nil, apperror.Wrap(apperror.KindUnauthorized, msgInvalidRefresh, err)
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshToken)) != 1 {
		metrics.RefreshTotal.WithLabelValues("mismatch").Inc()
		s.log.Warn("refresh token is not the current one", zap.String("user_id", user.ID))
		return nil, apperror.Unauthorized(msgRefreshUsed)
	}

	pair, err := s.mint(user.ID)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("fail").Inc()
		s.log.Error("mint token pair failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, apperror.Wrap(apperror.KindUnauthorized, msgInvalidRefresh, err)
	}

	if err := s.users.SwapRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, database.ErrStaleToken) {
			metrics.RefreshTotal.WithLabelValues("mismatch").Inc()
			s.log.Warn("refresh token superseded concurrently", zap.String("user_id", user.ID))
			return nil, apperror.Unauthorized(msgRefreshUsed)
		}
		metrics.RefreshTotal.WithLabelValues("fail").Inc()
		s.log.Error("store rotated refresh token failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, apperror.Wrap(apperror.KindUnauthorized, msgInvalidRefresh, err)
	}

	metrics.RefreshTotal.WithLabelValues("ok").Inc()
	s.countIssued()
	return pair, nil
}

// Revoke clears the user's stored refresh token, ending the session.
func (s *Service) Revoke(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Revoke")
	defer span.End()

	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperror.NotFound("User does not exist")
		}
		return apperror.Internal("Failed to log out", err)
	}
	return nil
}

func (s *Service) mint(userID string) (*token.Pair, error) {
	access, _, err := s.codec.Encode(token.Access, userID)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.codec.Encode(token.Refresh, userID)
	if err != nil {
		return nil, err
	}
	return &token.Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) countIssued() {
	metrics.TokensIssued.WithLabelValues(string(token.Access)).Inc()
	metrics.TokensIssued.WithLabelValues(string(token.Refresh)).Inc()
}
