package auth

import (
	"context"
	"errors"

	"gatortrader_backend/internal/firebase"
	"gatortrader_backend/internal/shared"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errEmailTaken         = errors.New("email already registered")
)

// IdentityProvider is the account backend: token verification, password sign-in and account management.
type IdentityProvider interface {
	shared.TokenVerifier
	SignIn(ctx context.Context, email, password string) (*Tokens, error)
	// SignOut revokes every refresh token held by uid.
	SignOut(ctx context.Context, uid string) error
	SendPasswordReset(ctx context.Context, email, redirectURL string) error
	CreateUser(ctx context.Context, email, password string) (uid string, err error)
	DeleteUser(ctx context.Context, uid string) error
	UpdatePassword(ctx context.Context, uid, password string) error
}

// FirebaseProvider adapts FirebaseService to IdentityProvider.
type FirebaseProvider struct {
	fb *firebase.FirebaseService
}

func NewFirebaseProvider(fb *firebase.FirebaseService) *FirebaseProvider {
	return &FirebaseProvider{fb: fb}
}

func (p *FirebaseProvider) VerifyToken(ctx context.Context, idToken string) (*shared.Identity, error) {
	return p.fb.VerifyToken(ctx, idToken)
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	res, err := p.fb.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, firebase.ErrInvalidCredentials) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	return &Tokens{UID: res.UID, IDToken: res.IDToken, RefreshToken: res.RefreshToken, ExpiresIn: res.ExpiresIn}, nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	return p.fb.RevokeRefreshTokens(ctx, uid)
}

func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	return p.fb.SendPasswordReset(ctx, email, redirectURL)
}

func (p *FirebaseProvider) CreateUser(ctx context.Context, email, password string) (string, error) {
	uid, err := p.fb.CreateUser(ctx, email, password)
	if errors.Is(err, firebase.ErrEmailExists) {
		return "", errEmailTaken
	}
	return uid, err
}

func (p *FirebaseProvider) DeleteUser(ctx context.Context, uid string) error {
	return p.fb.DeleteUser(ctx, uid)
}

func (p *FirebaseProvider) UpdatePassword(ctx context.Context, uid, password string) error {
	return p.fb.UpdatePassword(ctx, uid, password)
}
