package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/model"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("token is invalid or expired")
	ErrWrongType    = errors.New("token has wrong type")
)

// Claims is the JWT payload of both access and refresh tokens.
type Claims struct {
	UserID   uint       `json:"user_id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	FullName string     `json:"full_name"`
	Type     string     `json:"typ"`
	jwt.RegisteredClaims
}

// Lifetimes configures how long tokens live.
type Lifetimes struct {
	Access   time.Duration
	Refresh  time.Duration
	Remember time.Duration
}

// Pair is an issued access/refresh couple.
type Pair struct {
	Access  string
	Refresh string
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    Lifetimes
	now    func() time.Time
}

func NewIssuer(secret string, ttl Lifetimes) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// IssuePair signs a token pair for user; remember stretches both lifetimes.
func (i *Issuer) IssuePair(user *model.User, remember bool) (Pair, error) {
	accessTTL, refreshTTL := i.ttl.Access, i.ttl.Refresh
	if remember {
		accessTTL, refreshTTL = i.ttl.Remember, i.ttl.Remember
	}
	access, err := i.sign(user, TypeAccess, accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(user, TypeRefresh, refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// IssueAccess signs a fresh access token with the default lifetime.
func (i *Issuer) IssueAccess(user *model.User) (string, error) {
	return i.sign(user, TypeAccess, i.ttl.Access)
}

// Parse verifies a token and checks its type.
func (i *Issuer) Parse(raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType {
		return nil, ErrWrongType
	}
	return claims, nil
}

func (i *Issuer) sign(user *model.User, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		FullName: user.FullName(),
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
