// Package dto defines data transfer objects for the quotation API responses.
package dto

// TokenResponse represents the JSON response from the oauth2 token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// QuoteResponse represents the current-price endpoint response.
// 数値はすべて文字列で返るため、クライアント側でパースします。
type QuoteResponse struct {
	RtCd   string `json:"rt_cd"` // "0" on success
	MsgCd  string `json:"msg_cd"`
	Msg1   string `json:"msg1"`
	Output struct {
		Price  string `json:"stck_prpr"` // 現在価格
		Open   string `json:"stck_oprc"` // 当日始値
		High   string `json:"stck_hgpr"` // 当日高値
		Low    string `json:"stck_lwpr"` // 当日安値
		Volume string `json:"acml_vol"`  // 累積出来高（当日の積算）
	} `json:"output"`
}

// DailyPriceResponse represents the daily-price endpoint response.
type DailyPriceResponse struct {
	RtCd   string `json:"rt_cd"`
	MsgCd  string `json:"msg_cd"`
	Msg1   string `json:"msg1"`
	Output []struct {
		Date   string `json:"stck_bsop_date"` // 営業日 "20250630"
		Open   string `json:"stck_oprc"`
		High   string `json:"stck_hgpr"`
		Low    string `json:"stck_lwpr"`
		Close  string `json:"stck_clpr"`
		Volume string `json:"acml_vol"`
	} `json:"output"`
}
