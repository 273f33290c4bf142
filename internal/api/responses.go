// Package api defines the shared JSON response shapes used by HTTP handlers.
package api

// ErrorResponse is the generic error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the generic success payload for mutations without data.
type MessageResponse struct {
	Message string `json:"message"`
}

// CronResponse はトリガーエンドポイント共通のレスポンス形式です。
// {success, data|error} の形で、影響件数などをdataに載せます。
type CronResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CronOK wraps a result payload in a successful CronResponse.
func CronOK(data any) CronResponse {
	return CronResponse{Success: true, Data: data}
}

// CronError wraps an error message in a failed CronResponse.
func CronError(msg string) CronResponse {
	return CronResponse{Success: false, Error: msg}
}

// CandleResponse はチャート表示用のローソク足1本分のレスポンスです。
type CandleResponse struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}
