package usecase

import "errors"

var (
	// ErrInvalidPeriod は未定義のランキング期間が指定された場合に返されます。
	ErrInvalidPeriod = errors.New("invalid ranking period")
	// ErrJobAlreadyRan は同じジョブが同じ営業日に既に実行済みの場合に返されます。
	ErrJobAlreadyRan = errors.New("job already ran for this date")
)
