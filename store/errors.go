package store

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// translate maps driver-level failures onto the model's error kinds.
// notFound is returned for sql.ErrNoRows and foreign-key violations, which
// both mean the referenced row does not exist.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" && notFound != nil {
		return notFound
	}
	return err
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "check_violation"
}
