package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vikasavnish/listinghub/internal/config"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/query"
	"github.com/vikasavnish/listinghub/internal/store"
)

const minPasswordLength = 6

// Session is an authenticated user's token and identity.
type Session struct {
	UserID    uuid.UUID   `json:"user_id"`
	Role      models.Role `json:"role"`
	TokenID   string      `json:"-"`
	Token     string      `json:"-"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// SignUpMetadata is stored on the users row.
type SignUpMetadata struct {
	FirstName string
	LastName  string
	Role      models.Role
}

// AuthService defines the interface for authentication operations
type AuthService interface {
	SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (models.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// GetSession returns nil, nil for an empty token.
	GetSession(ctx context.Context, token string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	// Profile joins the users row for the session.
	Profile(ctx context.Context, session *Session) (*models.User, error)
}

// authService implements the AuthService interface
type authService struct {
	users       store.Table[models.User]
	revocations Revocations
	secretKey   []byte
	ttl         time.Duration
	log         logging.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(users store.Table[models.User], revocations Revocations, cfg config.JWTConfig, log logging.Logger) AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &authService{
		users:       users,
		revocations: revocations,
		secretKey:   cfg.SecretKey,
		ttl:         ttl,
		log:         log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (models.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, invalid("email", "Enter a valid email address")
	}
	if len(password) < minPasswordLength {
		return models.User{}, invalid("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	role := meta.Role
	if role == "" {
		role = models.RoleAgent
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return models.User{}, invalid("role", err.Error())
	}
	if !role.SelfAssignable() {
		return models.User{}, invalid("role", fmt.Sprintf("Role %s cannot be chosen at sign-up", role))
	}

	taken, err := store.Exists(ctx, s.users, query.Where(query.Eq("email", email)))
	if err != nil {
		return models.User{}, err
	}
	if taken {
		return models.User{}, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:          email,
		HashedPassword: string(hashed),
		FirstName:      strings.TrimSpace(meta.FirstName),
		LastName:       strings.TrimSpace(meta.LastName),
		Role:           role,
	}
	if err := s.users.Insert(ctx, &user); err != nil {
		return models.User{}, err
	}
	s.log.Info(ctx, "user signed up", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *authService) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, err := store.First(ctx, s.users, query.Where(query.Eq("email", normalizeEmail(email))))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// issue creates a signed token for the user
func (s *authService) issue(user models.User) (*Session, error) {
	now := time.Now()
	expirationTime := now.Add(s.ttl)
	claims := &models.Claims{
		UserID: user.ID.String(),
		Role:   user.Role,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   user.ID.String(),
			ExpiresAt: expirationTime.Unix(),
			IssuedAt:  now.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return nil, err
	}

	return &Session{
		UserID:    user.ID,
		Role:      user.Role,
		TokenID:   claims.Id,
		Token:     tokenString,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

func (s *authService) parse(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func (s *authService) GetSession(ctx context.Context, tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, nil
	}
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidSession
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidSession
	}
	return &Session{
		UserID:    userID,
		Role:      claims.Role,
		TokenID:   claims.Id,
		Token:     tokenString,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

// SignOut revokes the token until it would have expired. Unknown tokens are ignored.
func (s *authService) SignOut(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.Id, time.Unix(claims.ExpiresAt, 0)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.log.Info(ctx, "user signed out", "user_id", claims.UserID)
	return nil
}

func (s *authService) Profile(ctx context.Context, session *Session) (*models.User, error) {
	if session == nil {
		return nil, ErrSignInRequired
	}
	user, err := store.First(ctx, s.users, query.Where(query.Eq("id", session.UserID)))
	if err != nil {
		return nil, err
	}
	return &user, nil
}
