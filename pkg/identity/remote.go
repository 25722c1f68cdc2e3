package identity

import (
	"context"
	"fmt"

	"github.com/nao1215/artify/pkg/httpclient"
)

// DefaultVerifyPath は認証サービスのトークン検証エンドポイント。
const DefaultVerifyPath = "/verify"

// RemoteVerifier は外部の認証サービスにトークンを問い合わせて検証する。
// 結果はキャッシュせず、呼び出しのたびに問い合わせる。
type RemoteVerifier struct {
	client *httpclient.Client
	path   string
}

// NewRemoteVerifier は新しいRemoteVerifierを生成する。
func NewRemoteVerifier(client *httpclient.Client) *RemoteVerifier {
	return &RemoteVerifier{client: client, path: DefaultVerifyPath}
}

type verifyRequest struct {
	Token string `json:"token"`
}

// Verify は認証サービスが2xxと利用者情報を返した場合のみ成功する。
// 認証サービスに到達できない場合も検証失敗として扱う。
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Subject, error) {
	var subject Subject
	if err := v.client.PostJSON(ctx, v.path, verifyRequest{Token: token}, &subject); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if subject.ID == "" && subject.Email == "" {
		return nil, fmt.Errorf("%w: empty subject from identity service", ErrInvalidToken)
	}
	return &subject, nil
}
