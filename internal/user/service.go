// File: internal/user/service.go
package user

import (
	"context"
	"errors"
	"mime/multipart"
	"regexp"
	"time"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/filestorage"
	"gatortrader_backend/internal/session"
	"gatortrader_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]{3,30}$`)

// ValidUsername reports whether s is an acceptable username.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// Service defines the interface for user-related business logic.
type Service interface {
	shared.Service
	CreateProfile(ctx context.Context, firebaseUID, email, username string) (*shared.User, error)
	IsEmailRegistered(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*shared.User, error)
	UpdateProfilePicture(ctx context.Context, id uuid.UUID, file *multipart.FileHeader) (*shared.User, error)
	HandleSessionEvent(ctx context.Context, ev session.Event)
}

// ServiceImplementation implements the user Service interface.
type ServiceImplementation struct {
	repo   Repository
	images filestorage.Uploader
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, images filestorage.Uploader, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, images: images, logger: logger}
}

func (s *ServiceImplementation) toShared(u *User) *shared.User {
	return &shared.User{
		ID:                u.ID,
		FirebaseUID:       u.FirebaseUID,
		Email:             u.Email,
		Username:          u.Username,
		ProfilePicture:    u.ProfilePicture,
		ProfilePictureURL: s.images.PublicURL(filestorage.BucketProfilePictures, u.ProfilePicture),
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
		LastLoginAt:       u.LastLoginAt,
	}
}

// GetUserByID retrieves a user by their ID.
func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toShared(u), nil
}

// GetUserByUsername resolves a username to a profile.
func (s *ServiceImplementation) GetUserByUsername(ctx context.Context, username string) (*shared.User, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.toShared(u), nil
}

// GetUserByFirebaseUID retrieves a user by the identity provider's UID.
func (s *ServiceImplementation) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*shared.User, error) {
	u, err := s.repo.FindByFirebaseUID(ctx, firebaseUID)
	if err != nil {
		return nil, err
	}
	return s.toShared(u), nil
}

// CreateProfile inserts the profile row for a freshly created identity.
func (s *ServiceImplementation) CreateProfile(ctx context.Context, firebaseUID, email, username string) (*shared.User, error) {
	if !ValidUsername(username) {
		return nil, common.NewValidationAPIError(map[string]string{"Username": "The username field may only contain letters, digits, dots and underscores."})
	}
	u := &User{FirebaseUID: firebaseUID, Email: email, Username: username}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("User profile created", zap.String("userID", u.ID.String()), zap.String("username", u.Username))
	return s.toShared(u), nil
}

func (s *ServiceImplementation) IsEmailRegistered(ctx context.Context, email string) (bool, error) {
	return s.repo.IsRegistered(ctx, email)
}

// UpdateProfile changes the caller's username.
func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*shared.User, error) {
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"username": req.Username}); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// UpdateProfilePicture uploads the picture to profile_pictures/<userID>/avatar.<ext>, replacing any previous one.
func (s *ServiceImplementation) UpdateProfilePicture(ctx context.Context, id uuid.UUID, file *multipart.FileHeader) (*shared.User, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	objectPath, err := s.images.Upload(ctx, filestorage.BucketProfilePictures, id.String()+"/avatar", file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"profile_picture": objectPath}); err != nil {
		return nil, err
	}
	// A new extension leaves the old avatar under a different name.
	if current.ProfilePicture != "" && current.ProfilePicture != objectPath {
		if err := s.images.Remove(ctx, filestorage.BucketProfilePictures, current.ProfilePicture); err != nil {
			s.logger.Warn("Failed to remove previous profile picture", zap.Error(err), zap.String("userID", id.String()))
		}
	}
	return s.GetUserByID(ctx, id)
}

// HandleSessionEvent stamps last_login_at on sign-in.
func (s *ServiceImplementation) HandleSessionEvent(ctx context.Context, ev session.Event) {
	if ev.Type != session.SignedIn || ev.Session.UserID == uuid.Nil {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := s.repo.UpdateFields(ctx, ev.Session.UserID, map[string]interface{}{"last_login_at": at}); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return
		}
		s.logger.Warn("Failed to record last login", zap.Error(err), zap.String("userID", ev.Session.UserID.String()))
	}
}
