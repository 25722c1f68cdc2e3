// Package identity はベアラートークンを検証して利用者を特定する仕組みを提供する。
//
// 共有シークレットで署名されたJWTを自前で検証するJWTVerifierと、
// 外部の認証サービスに問い合わせるRemoteVerifierの2種類がある。
// 検証に失敗した理由は呼び出し元に区別させず、すべて ErrInvalidToken を含むエラーとして返す。
package identity
