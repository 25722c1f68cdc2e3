// Package httpclient は外部サービスとJSONでやり取りするHTTPクライアントを提供する。
//
// 外部の認証サービスへのトークン検証の問い合わせなどに使用する。
// 2xx以外のレスポンスは *StatusError として返す。
package httpclient
