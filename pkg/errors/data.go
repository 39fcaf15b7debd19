package errors

import (
	"errors"
	"fmt"
)

// InsufficientDataError means an instrument has fewer bars than a step needs.
type InsufficientDataError struct {
	Required int
	Actual   int
	Symbol   string
	Message  string
}

func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (e *InsufficientDataError) Error() string {
	return e.Message
}

func IsInsufficientDataError(err error) bool {
	var short *InsufficientDataError

	return errors.As(err, &short)
}

// dataGapCodes mark failures that concern one instrument's bars only.
var dataGapCodes = map[ErrorCode]struct{}{
	ErrCodeNoDataFound:           {},
	ErrCodeMarketDataFetchFailed: {},
	ErrCodeMarketDataParseFailed: {},
}

// IsDataUnavailable reports whether err only means that one instrument has no usable
// bars. The backtest and the scan skip such instruments quietly and audit anything else.
func IsDataUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if IsInsufficientDataError(err) {
		return true
	}

	_, ok := dataGapCodes[GetCode(err)]

	return ok
}
