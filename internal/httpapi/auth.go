package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"crmlite/backend/internal/domain"
	"crmlite/backend/internal/store"
)

// UserDirectory is the slice of the repository the auth manager needs.
type UserDirectory interface {
	Users() store.Collection[domain.User]
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// AuthManager registers users, verifies credentials and issues bearer tokens.
// Tokens are HS256 JWTs carrying the subject email and the role claim; the
// role is always read back from the verified token, never from request
// headers, so it cannot be spoofed without the signing secret.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserDirectory
}

type crmClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserDirectory) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}
}

// Register stores a new user with a bcrypt password hash. A duplicate email
// is rejected with store.ErrDuplicate.
func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("a valid email is required")
	}
	if len(strings.TrimSpace(req.Password)) < 6 {
		return domain.User{}, fmt.Errorf("password must be at least 6 characters")
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleSales
	}
	if role != domain.RoleAdmin && role != domain.RoleSales {
		return domain.User{}, fmt.Errorf("role must be %s or %s", domain.RoleAdmin, domain.RoleSales)
	}

	if _, err := a.users.UserByEmail(ctx, email); err == nil {
		return domain.User{}, store.ErrDuplicate
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password")
	}

	saved, err := a.users.Users().Save(ctx, domain.User{
		FullName:  strings.TrimSpace(req.FullName),
		Email:     email,
		Password:  hash,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.User{}, err
	}
	return *saved, nil
}

// Login verifies the email/password pair. An unknown email and a wrong
// password yield the same error so the two cases are indistinguishable to the
// caller.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if !verifyPassword(user.Password, req.Password) {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user.Email, user.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		Token:     token,
		Role:      user.Role,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

// ParseToken verifies the signature and expiry of a bearer token and returns
// the actor it encodes. A malformed or unsigned token fails here; a valid
// token whose subject no longer exists fails later, at lookup.
func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &crmClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Email: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(email, role string, expiresAt time.Time) (string, error) {
	claims := crmClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "crmlite",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(storedHash string, input string) bool {
	if storedHash == "" || strings.TrimSpace(input) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
