package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors callers branch on. Store methods wrap these with context
// via fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPlayerTaken means the player is already rostered or selected in
	// this league.
	ErrPlayerTaken = errors.New("player already taken")

	// ErrPickCompleted means the pick already has a selection.
	ErrPickCompleted = errors.New("pick already completed")

	// ErrTradeNotPending means the trade left PENDING before the operation
	// could claim it.
	ErrTradeNotPending = errors.New("trade is not pending")

	// ErrTradeExpired means the trade's acceptance window has closed.
	ErrTradeExpired = errors.New("trade expired")

	// ErrAssetUnavailable means a trade asset no longer belongs to the team
	// sending it, or was consumed since the proposal.
	ErrAssetUnavailable = errors.New("trade asset unavailable")

	// ErrConflict is a generic unique-constraint violation.
	ErrConflict = errors.New("conflict")
)

const pqUniqueViolation = "23505"

// uniqueViolation reports whether err is a Postgres 23505 on the named
// constraint. An empty constraint matches any unique violation.
func uniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
