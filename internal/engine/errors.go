package engine

import "errors"

// Trade errors returned to the API layer. All are typed results, never
// panics; the ledger's own errors (ErrTokenNotFound, ErrSupplyExceeded,
// ErrAlreadyGraduated) and fixedpoint.ErrOverflow pass through unchanged.
var (
	// ErrInvalidMetadata is returned when a token name or symbol falls
	// outside the configured length bounds.
	ErrInvalidMetadata = errors.New("invalid token metadata")

	// ErrInvalidAmount is returned for a zero trade, a value outside the
	// configured floor/ceiling, or a sell of more units than exist.
	ErrInvalidAmount = errors.New("invalid trade amount")

	// ErrSlippageExceeded is returned when the quoted outcome is worse than
	// the caller's stated minimum. Nothing is mutated.
	ErrSlippageExceeded = errors.New("slippage exceeded")
)
