// Package config は環境変数からArtifyサーバーの設定を読み込む。
//
// カレントディレクトリの .env が存在すればその値も使う。
// 同じキーがプロセスの環境変数にもある場合は環境変数を優先する。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// 保存先の種類。
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// トークン検証の方式。
const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
)

// EnvDevelopment は開発環境を表すAPP_ENVの値。
const EnvDevelopment = "development"

// StoreConfig は保存先の設定。
type StoreConfig struct {
	Backend       string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string
}

// AuthConfig はトークン検証の設定。
type AuthConfig struct {
	Mode        string
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	VerifierURL string
}

// RateLimitConfig はクライアントIPごとのレート制限の設定。RPSが0なら無効。
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Config はアプリケーション全体の設定。
type Config struct {
	Port        string
	Env         string
	Store       StoreConfig
	Auth        AuthConfig
	CORSOrigins []string
	RateLimit   RateLimitConfig
	// PublicRoutes は認証を外すルート（"GET /my-artworks" 形式）。
	PublicRoutes []string
	// TrustedProxies はX-Forwarded-Forを信頼するプロキシのIPまたはCIDR。空なら信頼しない。
	TrustedProxies []string
	SentryDSN      string
}

// IsDevelopment は開発環境で動作しているかどうかを返す。
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Addr はHTTPサーバーの待ち受けアドレスを返す。
func (c *Config) Addr() string {
	return ":" + c.Port
}

// lookupFunc は環境変数を1つ引く。
type lookupFunc func(key string) (string, bool)

// Load は環境変数と.envファイルから設定を読み込む。
// envFilesを省略した場合はカレントディレクトリの .env を読む。存在しないファイルは無視する。
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	fileEnv := make(map[string]string)
	for _, name := range envFiles {
		values, err := godotenv.Read(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%sの読み込みに失敗: %w", name, err)
		}
		for k, v := range values {
			if _, ok := fileEnv[k]; !ok {
				fileEnv[k] = v
			}
		}
	}

	return load(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	})
}

func load(lookup lookupFunc) (*Config, error) {
	var err error
	cfg := &Config{
		Port: getEnvAsString(lookup, "PORT", "3000"),
		Env:  getEnvAsString(lookup, "APP_ENV", "production"),
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnvAsString(lookup, "STORE_BACKEND", BackendMongo)),
			MongoURI:      getEnvAsString(lookup, "MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnvAsString(lookup, "MONGO_DATABASE", "artify"),
			SQLitePath:    getEnvAsString(lookup, "SQLITE_PATH", "artify.db"),
		},
		Auth: AuthConfig{
			Mode:        strings.ToLower(getEnvAsString(lookup, "AUTH_MODE", AuthModeJWT)),
			JWTSecret:   getEnvAsString(lookup, "JWT_SECRET", ""),
			JWTIssuer:   getEnvAsString(lookup, "JWT_ISSUER", ""),
			JWTAudience: getEnvAsString(lookup, "JWT_AUDIENCE", ""),
			VerifierURL: getEnvAsString(lookup, "VERIFIER_URL", ""),
		},
		CORSOrigins:    getEnvAsList(lookup, "CORS_ORIGINS"),
		PublicRoutes:   getEnvAsList(lookup, "PUBLIC_ROUTES"),
		TrustedProxies: getEnvAsList(lookup, "TRUSTED_PROXIES"),
		SentryDSN:      getEnvAsString(lookup, "SENTRY_DSN", ""),
	}

	if cfg.RateLimit.RPS, err = getEnvAsFloat(lookup, "RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = getEnvAsInt(lookup, "RATE_LIMIT_BURST", 40); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORTは数値で指定してください: %q", c.Port)
	}

	switch c.Store.Backend {
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return errors.New("mongoバックエンドでは環境変数MONGO_URIが必要です")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("sqliteバックエンドでは環境変数SQLITE_PATHが必要です")
		}
	default:
		return fmt.Errorf("STORE_BACKENDの値 %q は不明です（%q または %q を指定）", c.Store.Backend, BackendMongo, BackendSQLite)
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("AUTH_MODEがjwtの場合は環境変数JWT_SECRETが必要です")
		}
	case AuthModeRemote:
		if c.Auth.VerifierURL == "" {
			return errors.New("AUTH_MODEがremoteの場合は環境変数VERIFIER_URLが必要です")
		}
	default:
		return fmt.Errorf("AUTH_MODEの値 %q は不明です（%q または %q を指定）", c.Auth.Mode, AuthModeJWT, AuthModeRemote)
	}

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("RATE_LIMIT_RPSとRATE_LIMIT_BURSTに負の値は指定できません")
	}
	return nil
}

func getEnvAsString(lookup lookupFunc, key, defaultValue string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(lookup lookupFunc, key string, defaultValue int) (int, error) {
	value, ok := lookup(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%sは整数で指定してください: %q", key, value)
	}
	return n, nil
}

func getEnvAsFloat(lookup lookupFunc, key string, defaultValue float64) (float64, error) {
	value, ok := lookup(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%sは数値で指定してください: %q", key, value)
	}
	return f, nil
}

// getEnvAsList はカンマ区切りの値を返す。空要素は捨てる。
func getEnvAsList(lookup lookupFunc, key string) []string {
	value, ok := lookup(key)
	if !ok {
		return nil
	}
	var list []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
