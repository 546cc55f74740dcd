package tlform

import "errors"

// Sentinel errors for reconciliation aborts. Both are recoverable: the live
// document is left exactly as it was.
var (
	ErrUnparseable    = errors.New("tlform: response body is not a usable HTML document")
	ErrTargetNotFound = errors.New("tlform: render target not found")
)

// ErrBodyTooLarge is returned by ReadResponse when a body exceeds its limit.
// Session reports it as an ErrUnparseable abort.
var ErrBodyTooLarge = errors.New("tlform: response body too large")

// IsAbort checks if err is a recoverable reconciliation abort.
func IsAbort(err error) bool {
	return errors.Is(err, ErrUnparseable) || errors.Is(err, ErrTargetNotFound)
}

// IsTargetNotFound checks if err is a missing-target abort.
func IsTargetNotFound(err error) bool {
	return errors.Is(err, ErrTargetNotFound)
}
