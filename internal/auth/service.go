package auth

import (
	"context"
	"errors"
	"strings"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/config"
	"gatortrader_backend/internal/session"
	"gatortrader_backend/internal/shared"

	"go.uber.org/zap"
)

// ProfileStore is the part of the user service signup and login rely on.
type ProfileStore interface {
	shared.Service
	CreateProfile(ctx context.Context, firebaseUID, email, username string) (*shared.User, error)
	IsEmailRegistered(ctx context.Context, email string) (bool, error)
}

// Publisher broadcasts session changes.
type Publisher interface {
	Publish(ctx context.Context, ev session.Event)
}

// Service defines account operations.
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*shared.User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, s *session.Session) error
	RequestPasswordReset(ctx context.Context, email string)
	ChangePassword(ctx context.Context, s *session.Session, req ChangePasswordRequest) error
}

type ServiceImplementation struct {
	idp               IdentityProvider
	profiles          ProfileStore
	sessions          Publisher
	domain            string
	requireRegistered bool
	resetRedirectURL  string
	logger            *zap.Logger
}

func NewService(idp IdentityProvider, profiles ProfileStore, sessions Publisher, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		idp:               idp,
		profiles:          profiles,
		sessions:          sessions,
		domain:            cfg.UniversityEmailDomain,
		requireRegistered: cfg.SignupRequireRegistered,
		resetRedirectURL:  cfg.PasswordResetRedirectURL,
		logger:            logger.Named("AuthService"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates the identity and then the profile. A failed profile insert deletes the identity again.
func (s *ServiceImplementation) Signup(ctx context.Context, req SignupRequest) (*shared.User, error) {
	email := normalizeEmail(req.Email)
	if !strings.HasSuffix(email, "@"+s.domain) {
		return nil, common.ErrForbidden.WithMessage("Only university email addresses are allowed.")
	}
	if s.requireRegistered {
		ok, err := s.profiles.IsEmailRegistered(ctx, email)
		if err != nil {
			s.logger.Error("Registered-user lookup failed", zap.Error(err))
			return nil, common.ErrInternalServer
		}
		if !ok {
			return nil, common.ErrForbidden.WithMessage("This email is not registered with the university.")
		}
	}

	if _, err := s.profiles.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, common.ErrConflict.WithMessage("Username is already taken.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	uid, err := s.idp.CreateUser(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			return nil, common.ErrConflict.WithMessage("An account with this email already exists.")
		}
		s.logger.Error("Identity provider rejected signup", zap.Error(err))
		return nil, common.ErrUpstreamUnavailable.WithDetails("Could not create account.")
	}

	u, err := s.profiles.CreateProfile(ctx, uid, email, req.Username)
	if err != nil {
		if delErr := s.idp.DeleteUser(ctx, uid); delErr != nil {
			s.logger.Error("Orphaned identity after failed profile insert", zap.String("uid", uid), zap.Error(delErr))
		}
		return nil, err
	}
	s.logger.Info("User signed up", zap.String("userID", u.ID.String()))
	return u, nil
}

func (s *ServiceImplementation) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	tokens, err := s.idp.SignIn(ctx, normalizeEmail(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			return nil, common.ErrUnauthorized.WithMessage("Invalid email or password.")
		}
		s.logger.Error("Password sign-in failed", zap.Error(err))
		return nil, common.ErrUpstreamUnavailable.WithDetails("Could not sign in.")
	}

	u, err := s.profiles.GetUserByFirebaseUID(ctx, tokens.UID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound.WithMessage("No profile exists for this account.")
		}
		return nil, err
	}

	s.sessions.Publish(ctx, session.Event{
		Type:    session.SignedIn,
		Session: session.Session{UserID: u.ID, FirebaseUID: u.FirebaseUID, Email: u.Email, Username: u.Username},
	})

	return &LoginResponse{
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    common.AuthorizationTypeBearer,
		User:         shared.ToUserResponse(u),
	}, nil
}

func (s *ServiceImplementation) Logout(ctx context.Context, sess *session.Session) error {
	if err := s.idp.SignOut(ctx, sess.FirebaseUID); err != nil {
		s.logger.Error("Token revocation failed", zap.String("userID", sess.UserID.String()), zap.Error(err))
		return common.ErrUpstreamUnavailable.WithDetails("Could not sign out.")
	}
	s.sessions.Publish(ctx, session.Event{Type: session.SignedOut, Session: *sess})
	return nil
}

// RequestPasswordReset never reports failure to the caller.
func (s *ServiceImplementation) RequestPasswordReset(ctx context.Context, email string) {
	if err := s.idp.SendPasswordReset(ctx, normalizeEmail(email), s.resetRedirectURL); err != nil {
		s.logger.Error("Password reset mail failed", zap.Error(err))
	}
}

func (s *ServiceImplementation) ChangePassword(ctx context.Context, sess *session.Session, req ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return common.NewValidationAPIError(map[string]string{"ConfirmPassword": "The confirmpassword field must match newpassword."})
	}
	if len(req.NewPassword) < 6 {
		return common.NewValidationAPIError(map[string]string{"NewPassword": "The newpassword field must be at least 6 characters long."})
	}
	if err := s.idp.UpdatePassword(ctx, sess.FirebaseUID, req.NewPassword); err != nil {
		s.logger.Error("Password update failed", zap.String("userID", sess.UserID.String()), zap.Error(err))
		return common.ErrUpstreamUnavailable.WithDetails("Could not change password.")
	}
	return nil
}
