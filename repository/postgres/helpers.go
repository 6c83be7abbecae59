package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brainbow/syncd/domain"
)

// classify maps driver errors onto the domain taxonomy: unique violations
// become conflicts, everything else counts as a transient store failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.WrapError(domain.ErrCodeConflict, "row already exists", err)
		case "23503", "23514", "22P02":
			return domain.WrapError(domain.ErrCodeInvalid, "row rejected by store", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.WrapError(domain.ErrCodeUnavailable, "remote store timed out", err)
	}
	return domain.WrapError(domain.ErrCodeUnavailable, "remote store unreachable", err)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func marshalJSON(v interface{}) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
