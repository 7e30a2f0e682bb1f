// Package accounts implements registration, login and profile management on
// top of the session lifecycle.
package accounts

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/princinho/sahoauth/apperror"
	"github.com/princinho/sahoauth/database"
	"github.com/princinho/sahoauth/metrics"
	"github.com/princinho/sahoauth/models"
	"github.com/princinho/sahoauth/storage"
	"github.com/princinho/sahoauth/token"
	"github.com/princinho/sahoauth/utils"
	"go.uber.org/zap"
)

type Store interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
}

type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type Sessions interface {
	Issue(ctx context.Context, userID string) (*token.Pair, error)
	Revoke(ctx context.Context, userID string) error
}

type Service struct {
	users    Store
	hasher   Hasher
	uploader storage.Uploader
	sessions Sessions
	log      *zap.Logger
}

func NewService(users Store, hasher Hasher, uploader storage.Uploader, sessions Sessions, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		uploader: uploader,
		sessions: sessions,
		log:      log.Named("accounts"),
	}
}

type RegisterInput struct {
	Username   string
	FullName   string
	Email      string
	Password   string
	Avatar     *multipart.FileHeader
	CoverImage *multipart.FileHeader
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	if utils.AnyBlank(in.Username, in.FullName, in.Email, in.Password) {
		return nil, apperror.Validation("All fields are required")
	}

	username := utils.NormalizeUsername(in.Username)
	email := strings.TrimSpace(in.Email)

	_, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("User with email or username already exists")
	case !errors.Is(err, database.ErrNotFound):
		return nil, apperror.Internal("Something went wrong while registering the user", err)
	}

	if in.Avatar == nil {
		return nil, apperror.Validation("Avatar file is required")
	}

	avatarURL, err := s.uploader.Upload(ctx, storage.FolderAvatars, in.Avatar)
	if err != nil || avatarURL == "" {
		return nil, apperror.Upload("Avatar file is required", err)
	}

	var coverURL string
	if in.CoverImage != nil {
		coverURL, err = s.uploader.Upload(ctx, storage.FolderCovers, in.CoverImage)
		if err != nil {
			s.log.Warn("cover image upload failed", zap.String("username", username), zap.Error(err))
			coverURL = ""
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.Internal("Failed to hash password", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.log.Warn("uploaded media left without owner",
			zap.String("username", username),
			zap.String("avatar", avatarURL),
			zap.String("cover_image", coverURL),
			zap.Error(err),
		)
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperror.Conflict("User with email or username already exists")
		}
		return nil, apperror.Internal("Something went wrong while registering the user", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user.Public(), nil
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Login verifies credentials and starts a new session, replacing any
// previous one.
func (s *Service) Login(ctx context.Context, in LoginInput) (*models.PublicUser, *token.Pair, error) {
	username := utils.NormalizeUsername(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" && email == "" {
		return nil, nil, apperror.Validation("username or email is required")
	}
	if in.Password == "" {
		return nil, nil, apperror.Validation("password is required")
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.LoginTotal.WithLabelValues("unknown_user").Inc()
			return nil, nil, apperror.NotFound("User does not exist")
		}
		metrics.LoginTotal.WithLabelValues("fail").Inc()
		return nil, nil, apperror.Internal("Failed to load user", err)
	}

	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		metrics.LoginTotal.WithLabelValues("bad_password").Inc()
		return nil, nil, apperror.Unauthorized("Invalid user credentials")
	}

	pair, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		metrics.LoginTotal.WithLabelValues("fail").Inc()
		return nil, nil, err
	}

	metrics.LoginTotal.WithLabelValues("ok").Inc()
	return user.Public(), pair, nil
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.sessions.Revoke(ctx, userID)
}

// ChangePassword replaces the password hash. Existing sessions stay valid.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperror.Validation("New password is required")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(user.PasswordHash, oldPassword) {
		return apperror.Unauthorized("Invalid old password").WithStatus(http.StatusBadRequest)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.Internal("Failed to hash password", err)
	}

	_, err = s.update(ctx, userID, models.UserUpdate{PasswordHash: &hash})
	return err
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	if utils.AnyBlank(fullName, email) {
		return nil, apperror.Validation("All fields are required")
	}
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	return s.update(ctx, userID, models.UserUpdate{FullName: &fullName, Email: &email})
}

func (s *Service) UpdateAvatar(ctx context.Context, userID string, fh *multipart.FileHeader) (*models.PublicUser, error) {
	if fh == nil {
		return nil, apperror.Validation("Avatar file is missing")
	}
	url, err := s.uploader.Upload(ctx, storage.FolderAvatars, fh)
	if err != nil || url == "" {
		return nil, apperror.Upload("Error while uploading avatar", err)
	}
	return s.update(ctx, userID, models.UserUpdate{Avatar: &url})
}

func (s *Service) UpdateCoverImage(ctx context.Context, userID string, fh *multipart.FileHeader) (*models.PublicUser, error) {
	if fh == nil {
		return nil, apperror.Validation("Cover image file is missing")
	}
	url, err := s.uploader.Upload(ctx, storage.FolderCovers, fh)
	if err != nil || url == "" {
		return nil, apperror.Upload("Error while uploading cover image", err)
	}
	return s.update(ctx, userID, models.UserUpdate{CoverImage: &url})
}

func (s *Service) load(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperror.NotFound("User does not exist")
		}
		return nil, apperror.Internal("Failed to load user", err)
	}
	return user, nil
}

func (s *Service) update(ctx context.Context, userID string, upd models.UserUpdate) (*models.PublicUser, error) {
	if upd.Empty() {
		return nil, apperror.Validation("Nothing to update")
	}
	user, err := s.users.UpdateFields(ctx, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return nil, apperror.NotFound("User does not exist")
		case errors.Is(err, database.ErrDuplicate):
			return nil, apperror.Conflict("Email is already in use")
		default:
			return nil, apperror.Internal("Failed to update user", err)
		}
	}
	return user.Public(), nil
}
