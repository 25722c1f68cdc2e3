package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims はArtifyが受け付けるJWTのクレーム。
type Claims struct {
	jwt.RegisteredClaims
	// UserID は sub の代わりに使われることがある利用者ID。
	UserID string `json:"user_id,omitempty"`
	// Email は利用者のメールアドレス。
	Email string `json:"email"`
}

// JWTVerifier はHS256で署名されたJWTを検証する。
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

type jwtConfig struct {
	issuer   string
	audience string
}

// JWTOption はJWTの検証条件を追加する。
type JWTOption func(*jwtConfig)

// WithIssuer は iss クレームが一致することを要求する。
func WithIssuer(issuer string) JWTOption {
	return func(c *jwtConfig) { c.issuer = issuer }
}

// WithAudience は aud クレームに含まれることを要求する。
func WithAudience(audience string) JWTOption {
	return func(c *jwtConfig) { c.audience = audience }
}

// NewJWTVerifier は共有シークレットでJWTを検証するVerifierを生成する。
// 有効期限 (exp) の無いトークンは受け付けない。
func NewJWTVerifier(secret string, opts ...JWTOption) *JWTVerifier {
	var cfg jwtConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.issuer))
	}
	if cfg.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.audience))
	}

	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(parserOpts...),
	}
}

// Verify はトークンの署名とクレームを検証し、利用者を返す。
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Subject, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject := &Subject{ID: claims.Subject, Email: claims.Email}
	if subject.ID == "" {
		subject.ID = claims.UserID
	}
	if subject.ID == "" && subject.Email == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, errors.New("no subject in claims"))
	}
	return subject, nil
}

// GenerateToken は利用者のJWTを発行する。ローカル開発とテストで使用する。
// audienceを指定した場合は aud クレームに設定する。
func GenerateToken(secret, issuer string, subject Subject, ttl time.Duration, audience ...string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		Email: subject.Email,
	}
	if len(audience) > 0 {
		claims.Audience = jwt.ClaimStrings(audience)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}
