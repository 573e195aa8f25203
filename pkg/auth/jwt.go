package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"

	// TokenTypeBearer is the OAuth2 token_type returned alongside a pair.
	TokenTypeBearer = "bearer"
)

var (
	ErrSigningMisconfigured = errors.New("token signing is misconfigured")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrWrongTokenType       = errors.New("wrong token type")
)

// Claims is the payload of both token variants. Subject carries the email.
// Role is only present on access tokens.
type Claims struct {
	UserID int64     `json:"user_id"`
	Role   string    `json:"role,omitempty"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Identity is what the issuer needs to know about a user.
type Identity struct {
	Email  string
	UserID int64
	Role   string
}

type IssuerConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Audience   string
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	audience   string
	now        func() time.Time
}

// NewIssuer validates cfg once at start-up; a nil error means signing cannot
// fail for configuration reasons later.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: secret is empty", ErrSigningMisconfigured)
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("%w: access ttl must be positive", ErrSigningMisconfigured)
	}
	if cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: refresh ttl must be positive", ErrSigningMisconfigured)
	}
	return &Issuer{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		audience:   cfg.Audience,
		now:        time.Now,
	}, nil
}

// IssueAccess signs a short-lived token carrying the role claim. A
// non-positive ttl selects the configured access ttl.
func (i *Issuer) IssueAccess(id Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = i.accessTTL
	}
	return i.sign(Claims{
		UserID: id.UserID,
		Role:   id.Role,
		Type:   TokenAccess,
	}, id.Email, ttl)
}

// IssueRefresh signs a long-lived token with subject and user id only.
func (i *Issuer) IssueRefresh(id Identity) (string, error) {
	return i.sign(Claims{
		UserID: id.UserID,
		Type:   TokenRefresh,
	}, id.Email, i.refreshTTL)
}

func (i *Issuer) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := i.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningMisconfigured, err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and checks the token is of the
// expected type. Expiry is the only invalidation mechanism.
func (i *Issuer) Parse(tokenString string, expected TokenType) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}

	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expected {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
