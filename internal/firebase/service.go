package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"gatortrader_backend/internal/config"
	"gatortrader_backend/internal/shared"
)

var (
	// ErrInvalidCredentials is returned when email/password sign-in is refused.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailExists is returned when creating a user whose email is taken.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidToken is returned for missing, malformed, expired or revoked ID tokens.
	ErrInvalidToken = errors.New("invalid or revoked ID token")
)

// SignInResult carries the tokens issued by a password sign-in.
type SignInResult struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// FirebaseService provides methods to interact with Firebase services: authentication,
// the Identity Toolkit REST API, and Cloud Storage.
type FirebaseService struct {
	app           *firebase.App
	authClient    *auth.Client
	toolkit       *identitytoolkit.Service
	storageBucket string
	logger        *zap.Logger
}

// NewFirebaseService initializes the Firebase Admin SDK and creates a new FirebaseService.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	ctx := context.Background()
	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	conf := &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID, // empty lets the SDK infer it from credentials
		StorageBucket: cfg.FirebaseStorageBucket,
	}
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	// Password sign-in and reset mails are end-user operations; they go through
	// the Identity Toolkit API with the web API key rather than the service account.
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(cfg.FirebaseWebAPIKey))
	if err != nil {
		logger.Error("Failed to create Identity Toolkit client", zap.Error(err))
		return nil, fmt.Errorf("error creating identity toolkit client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &FirebaseService{
		app:           app,
		authClient:    authClient,
		toolkit:       toolkit,
		storageBucket: cfg.FirebaseStorageBucket,
		logger:        logger,
	}, nil
}

// VerifyToken verifies a Firebase ID token, rejecting tokens revoked by sign-out.
func (s *FirebaseService) VerifyToken(ctx context.Context, idToken string) (*shared.Identity, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}

	token, err := s.authClient.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		s.logger.Debug("Firebase ID token verification failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := token.Claims["email"].(string)
	return &shared.Identity{UID: token.UID, Email: email}, nil
}

// RevokeRefreshTokens revokes all refresh tokens for a given user.
func (s *FirebaseService) RevokeRefreshTokens(ctx context.Context, uid string) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, uid); err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", uid))
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.logger.Info("Successfully revoked refresh tokens for user", zap.String("uid", uid))
	return nil
}

// CreateUser registers a new email/password account and returns its UID.
func (s *FirebaseService) CreateUser(ctx context.Context, email, password string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	rec, err := s.authClient.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("failed to create firebase user: %w", err)
	}
	return rec.UID, nil
}

// DeleteUser removes an account. Used to undo CreateUser when the profile insert fails.
func (s *FirebaseService) DeleteUser(ctx context.Context, uid string) error {
	if err := s.authClient.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("failed to delete firebase user: %w", err)
	}
	return nil
}

// UpdatePassword sets a new password for uid.
func (s *FirebaseService) UpdatePassword(ctx context.Context, uid, password string) error {
	params := (&auth.UserToUpdate{}).Password(password)
	if _, err := s.authClient.UpdateUser(ctx, uid, params); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SignInWithPassword exchanges email and password for an ID token.
func (s *FirebaseService) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	resp, err := s.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		if isClientError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("password sign-in failed: %w", err)
	}

	return &SignInResult{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// SendPasswordReset asks Firebase to mail a reset link that continues to redirectURL.
// Unknown emails are not reported as errors.
func (s *FirebaseService) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	_, err := s.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
		ContinueUrl: redirectURL,
	}).Context(ctx).Do()
	if err != nil {
		if isClientError(err) && strings.Contains(err.Error(), "EMAIL_NOT_FOUND") {
			s.logger.Debug("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

// Bucket returns the configured default Cloud Storage bucket.
func (s *FirebaseService) Bucket(ctx context.Context) (*gcs.BucketHandle, error) {
	client, err := s.app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firebase Storage client: %w", err)
	}
	return client.DefaultBucket()
}

// StorageBucketName is the name of the default bucket.
func (s *FirebaseService) StorageBucketName() string {
	return s.storageBucket
}

func isClientError(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusBadRequest
	}
	return false
}
