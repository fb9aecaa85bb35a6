package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/velora-app/auth-service/internal/config"
	"github.com/velora-app/auth-service/internal/dto"
	"github.com/velora-app/auth-service/internal/models"
	"github.com/velora-app/auth-service/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingFields      = errors.New("all fields are required")
	ErrTermsNotAgreed     = errors.New("terms must be agreed")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrDuplicateUser      = errors.New("email or username already exists")
	ErrMissingCredentials = errors.New("identifier and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidGoogleToken = errors.New("invalid google identity token")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the data-access capability the auth logic depends on.
// Connection management lives entirely behind it.
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	LinkGoogle(ctx context.Context, id uuid.UUID, googleID, avatar string) error
}

// GoogleVerifier checks a Google ID token against the configured client ID.
type GoogleVerifier interface {
	VerifyToken(idToken, clientID string) (*GoogleIDClaims, error)
}

// Claims is the session-token payload. Verification returns exactly these
// fields as embedded at issuance; they are never re-read from storage.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users  UserStore
	google GoogleVerifier
	cfg    *config.Config
}

func NewAuthService(users UserStore, google GoogleVerifier, cfg *config.Config) *AuthService {
	return &AuthService{users: users, google: google, cfg: cfg}
}

// Signup creates a local-credential user. It does not log the user in; the
// caller gets the new ID only.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (uuid.UUID, error) {
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return uuid.Nil, ErrMissingFields
	}
	if !req.AgreedToTerms {
		return uuid.Nil, ErrTermsNotAgreed
	}
	if len(req.Password) < 8 {
		return uuid.Nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.New(),
		Email:    req.Email,
		Username: req.Username,
		Password: string(hash),
		Verified: false,
		Role:     "user",
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return uuid.Nil, ErrDuplicateUser
		}
		return uuid.Nil, err
	}

	return user.ID, nil
}

// Login authenticates against email or username. A missing user and a wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if req.Identifier == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.authResponse(user, false)
}

// GoogleSignIn verifies the provider token, provisions the user on first
// sight and issues the same session token shape as Login.
func (s *AuthService) GoogleSignIn(ctx context.Context, req *dto.GoogleSignInRequest) (*dto.AuthResponse, error) {
	claims, err := s.google.VerifyToken(req.Token, s.cfg.GoogleClientID)
	if err != nil {
		slog.Error("google token verification failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidGoogleToken, err)
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	switch {
	case err == nil:
		if user.GoogleID == nil {
			// First federated sign-in on an existing account: link it
			// explicitly instead of silently reusing the record.
			if err := s.users.LinkGoogle(ctx, user.ID, claims.Sub, claims.Picture); err != nil {
				return nil, err
			}
			sub := claims.Sub
			user.GoogleID = &sub
			if user.Avatar == "" {
				user.Avatar = claims.Picture
			}
		}
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.provisionGoogleUser(ctx, claims)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.authResponse(user, true)
}

func (s *AuthService) provisionGoogleUser(ctx context.Context, claims *GoogleIDClaims) (*models.User, error) {
	sub := claims.Sub
	user := models.User{
		ID:       uuid.New(),
		Email:    claims.Email,
		Username: usernameFromName(claims.Name, claims.Email),
		GoogleID: &sub,
		Avatar:   claims.Picture,
		Verified: true,
		Role:     "user",
	}

	err := s.users.Create(ctx, &user)
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent first sign-in may have won the email index.
		if existing, ferr := s.users.FindByEmail(ctx, claims.Email); ferr == nil {
			return existing, nil
		}
		// Otherwise the derived username collided with another account;
		// retry once with a random suffix.
		user.ID = uuid.New()
		user.Username = user.Username + "_" + uuid.NewString()[:8]
		err = s.users.Create(ctx, &user)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// usernameFromName lower-cases the display name and collapses whitespace to
// underscores. Falls back to the email local part when the name is empty.
func usernameFromName(name, email string) string {
	username := strings.Join(strings.Fields(strings.ToLower(name)), "_")
	if username == "" {
		username = strings.Split(email, "@")[0]
	}
	return username
}

// authResponse builds the token-plus-projection payload. Only the Google
// sign-in projection carries the avatar; login returns id/username/email.
func (s *AuthService) authResponse(user *models.User, withAvatar bool) (*dto.AuthResponse, error) {
	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	resp := &dto.AuthResponse{
		Token: token,
		User: dto.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	}
	if withAvatar {
		resp.User.Avatar = user.Avatar
	}
	return resp, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// VerifyToken validates signature and expiry against the shared secret and
// returns the claims embedded at issuance.
func (s *AuthService) VerifyToken(tokenStr string) (*dto.TokenUser, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &dto.TokenUser{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}
