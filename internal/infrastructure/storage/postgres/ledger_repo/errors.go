package ledger_repo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"buildledger/internal/core/apperror"
)

// notFoundOr maps pgx.ErrNoRows from a RETURNING statement to NotFound.
func notFoundOr(err error, entity string, key any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, key)
	}
	return fmt.Errorf("%s: %w", entity, err)
}
