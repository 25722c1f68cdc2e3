// artify-tokenはローカル開発用に、AUTH_MODE=jwtのArtifyサーバーが受け付けるトークンを発行する。
//
//	artify-token -email monet@example.com -ttl 1h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nao1215/artify/pkg/identity"
)

func main() {
	var (
		secret   = flag.String("secret", os.Getenv("JWT_SECRET"), "HS256の署名鍵（既定はJWT_SECRET）")
		issuer   = flag.String("issuer", os.Getenv("JWT_ISSUER"), "issクレーム（既定はJWT_ISSUER）")
		audience = flag.String("audience", os.Getenv("JWT_AUDIENCE"), "audクレーム（既定はJWT_AUDIENCE）")
		uid      = flag.String("uid", "", "subクレーム（省略時はemail）")
		email    = flag.String("email", "", "利用者のメールアドレス")
		ttl      = flag.Duration("ttl", time.Hour, "有効期間")
	)
	flag.Parse()

	if *secret == "" || *email == "" {
		fmt.Fprintln(os.Stderr, "usage: artify-token -email <address> [-secret <key>] [-audience <aud>] [-uid <id>] [-ttl 1h]")
		os.Exit(2)
	}
	if *uid == "" {
		*uid = *email
	}

	var aud []string
	if *audience != "" {
		aud = []string{*audience}
	}

	token, err := identity.GenerateToken(*secret, *issuer, identity.Subject{ID: *uid, Email: *email}, *ttl, aud...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "トークンの発行に失敗: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
