package identity

import (
	"context"
	"errors"
)

// ErrInvalidToken はトークンが検証できなかったことを表す。
var ErrInvalidToken = errors.New("invalid token")

// Subject は検証済みトークンが表す利用者。
type Subject struct {
	// ID は認証サービス上の一意識別子。
	ID string `json:"uid"`
	// Email は利用者のメールアドレス。
	Email string `json:"email"`
}

// Verifier はトークンを検証する。
type Verifier interface {
	Verify(ctx context.Context, token string) (*Subject, error)
}

// VerifierFunc は関数をVerifierとして扱うためのアダプタ。
type VerifierFunc func(ctx context.Context, token string) (*Subject, error)

// Verify はf(ctx, token)を呼び出す。
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Subject, error) {
	return f(ctx, token)
}
