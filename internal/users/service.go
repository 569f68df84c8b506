package users

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

const (
	minUsernameLength = 4
	maxUsernameLength = 32
	minPasswordLength = 8

	approvalCodeLength = 12
	apiKeyLength       = 32

	sessionKeyPrefix = "showtimes:session:"
)

// TokenClaims is the JWT payload issued at login.
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Privilege string `json:"privilege"`
	jwt.RegisteredClaims
}

// Service manages accounts: registration lands in a pending state that
// an approval code promotes to a full account, logins exchange
// credentials for a JWT plus a Redis-backed session.
type Service struct {
	repo        *repository.UserRepository
	rdb         *redis.Client
	jwtSecret   []byte
	tokenExpiry time.Duration
}

func NewService(repo *repository.UserRepository, rdb *redis.Client, jwtSecret string, tokenExpiry time.Duration) *Service {
	return &Service{
		repo:        repo,
		rdb:         rdb,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
	}
}

// ValidateUsername enforces the account naming rules: lowercase
// alphanumerics plus underscore, length bounded.
func ValidateUsername(username string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return showerrors.Newf(showerrors.CodeUserBadUsername,
			"username must be %d to %d characters", minUsernameLength, maxUsernameLength)
	}
	for _, ch := range username {
		if ch == '_' || unicode.IsLower(ch) || unicode.IsDigit(ch) {
			continue
		}
		return showerrors.New(showerrors.CodeUserBadUsername,
			"username may only contain lowercase letters, digits and underscores")
	}
	return nil
}

// ValidatePassword requires a minimum length and at least one letter
// plus one digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return showerrors.Newf(showerrors.CodeUserWeakPassword,
			"password must be at least %d characters", minPasswordLength)
	}
	var hasLetter, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return showerrors.New(showerrors.CodeUserWeakPassword,
			"password must mix letters and digits")
	}
	return nil
}

// Register creates a pending account and returns it together with the
// approval code an administrator hands back to the registrant.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, showerrors.New(showerrors.CodeUserExists, "username is taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Privilege:    models.PrivilegeUser,
		Kind:         models.UserPending,
		Password:     string(hashed),
		ApprovalCode: models.GenerateCode(approvalCodeLength, true, true),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Approve promotes a pending account to a full one when the code
// matches, minting its API key.
func (s *Service) Approve(ctx context.Context, username, code string) (*models.User, error) {
	user, err := s.repo.GetByUsername(strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, showerrors.New(showerrors.CodeUserNotFound, "no such account")
	}
	if user.Kind != models.UserPending {
		return user, nil
	}
	if user.ApprovalCode == "" || user.ApprovalCode != code {
		return nil, showerrors.New(showerrors.CodeInvalidApproval, "approval code does not match")
	}

	user.Kind = models.UserFull
	user.ApprovalCode = ""
	user.APIKey = models.GenerateCode(apiKeyLength, true, false)
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a signed token. Pending
// accounts cannot log in until approved.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.repo.GetByUsername(strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", showerrors.New(showerrors.CodeUserBadLogin, "invalid credentials")
	}
	if user.Kind == models.UserPending {
		return nil, "", showerrors.New(showerrors.CodeUserNotApproved, "account is awaiting approval")
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", showerrors.New(showerrors.CodeUserBadLogin, "invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	if err := s.storeSession(ctx, user, token); err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout discards the server-side session for a token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+token).Err()
}

// VerifyToken checks signature, expiry and that the session has not
// been logged out, then returns the account.
func (s *Service) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, showerrors.Wrap(showerrors.CodeUserBadLogin, "invalid token", err)
	}

	if err := s.rdb.Get(ctx, sessionKeyPrefix+token).Err(); err == redis.Nil {
		return nil, showerrors.New(showerrors.CodeUserBadLogin, "session expired")
	} else if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeUserBadLogin, "malformed token subject", err)
	}
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, showerrors.New(showerrors.CodeUserNotFound, "account no longer exists")
	}
	return user, nil
}

// VerifyAPIKey resolves an account from its static API key.
func (s *Service) VerifyAPIKey(ctx context.Context, key string) (*models.User, error) {
	if key == "" {
		return nil, showerrors.New(showerrors.CodeUserBadLogin, "missing api key")
	}
	user, err := s.repo.GetByAPIKey(key)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, showerrors.New(showerrors.CodeUserBadLogin, "invalid api key")
	}
	return user, nil
}

// RotateAPIKey replaces the account's API key.
func (s *Service) RotateAPIKey(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, showerrors.New(showerrors.CodeUserNotFound, "no such account")
	}
	user.APIKey = models.GenerateCode(apiKeyLength, true, false)
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := TokenClaims{
		UserID:    user.ID.String(),
		Privilege: string(user.Privilege),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) storeSession(ctx context.Context, user *models.User, token string) error {
	if err := s.rdb.Set(ctx, sessionKeyPrefix+token, user.ID.String(), s.tokenExpiry).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
