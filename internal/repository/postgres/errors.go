package postgres

import (
	"errors"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// mapInsertError turns unique-key conflicts into domain.ErrDuplicate so callers
// can treat them as already handled.
func mapInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrDuplicate
	}
	return err
}
