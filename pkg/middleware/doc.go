// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// ベアラートークンの検証（AuthGate）、リクエストID、アクセスログ、
// パニックリカバリ、CORS、クライアントごとのレート制限を含む。
// エラー時のレスポンスは {"success": false, "message": "..."} の形で返す。
package middleware
