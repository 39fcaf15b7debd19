package errors

// ErrorCode identifies a failure class. The hundreds digit names the subsystem.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = 1

	// configuration and invocation input
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidSymbol        ErrorCode = 120

	// storage
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 204
	ErrCodeSignalNotFound        ErrorCode = 206

	ErrCodeUnknownModel ErrorCode = 410

	// walk-forward backtest
	ErrCodeBacktestNoInstruments ErrorCode = 610
	ErrCodeBacktestWindowInvalid ErrorCode = 611
	ErrCodeBacktestPersistFailed ErrorCode = 612

	// market data providers and writers
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidInterval       ErrorCode = 703
	ErrCodeInvalidProvider       ErrorCode = 704

	ErrCodeScanPersistFail ErrorCode = 811

	ErrCodeInvalidAction ErrorCode = 900
)
