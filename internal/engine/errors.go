package engine

import "errors"

// Sentinel errors for the trading lifecycle. Pre-commit failures (risk,
// submission) surface to the caller; post-commit failures (persistence,
// notification) are logged and swallowed because the trade has already taken
// economic effect and is not rolled back.
var (
	// ErrAlreadyRunning is returned by Start on a running engine.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrNotRunning is returned by ExecuteTrade on a stopped engine.
	ErrNotRunning = errors.New("engine not running")

	// ErrRiskLimit is wrapped by all pre-trade risk rejections.
	ErrRiskLimit = errors.New("risk limit exceeded")

	// ErrSubmission is wrapped by order submission failures.
	ErrSubmission = errors.New("order submission failed")
)
