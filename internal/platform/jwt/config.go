package jwtmw

// EnvKeyJWTSecret は署名検証に使うHMACシークレットの環境変数キーです。
// トークンの発行は外部の認証サービスが行い、本システムは検証のみを行います。
const EnvKeyJWTSecret = "JWT_SECRET"
