package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlStates maps the SQLSTATEs repos can provoke. Anything else is ErrorCodeDB
var sqlStates = map[string]ErrorCode{
	"23505": ErrorCodeConflict,        // unique_violation, e.g. a replayed event key
	"23502": ErrorCodeValidation,      // not_null_violation
	"23514": ErrorCodeValidation,      // check_violation
	"23503": ErrorCodeInvalidArgument, // foreign_key_violation
	"22001": ErrorCodeInvalidArgument, // string_data_right_truncation
	"22P02": ErrorCodeInvalidArgument, // invalid_text_representation
	"25006": ErrorCodeUnavailable,     // read_only_sql_transaction, failover in progress
	"57P03": ErrorCodeUnavailable,     // cannot_connect_now
	"57014": ErrorCodeTimeout,         // query_canceled by statement_timeout
}

// retryStates are contention failures a fresh transaction usually clears
var retryStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57P03": true, // cannot_connect_now
}

// retryText catches the same conditions when the PgError did not survive wrapping
var retryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"terminating connection due to administrator command",
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	ok := stderrs.As(err, &pe)
	return pe, ok
}

// DBErrorCode classifies a Postgres error. ok is false when err carries no PgError
func DBErrorCode(err error) (code ErrorCode, ok bool) {
	pe, ok := pgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	if c, known := sqlStates[pe.Code]; known {
		return c, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps a repo error with msg and the mapped code. nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if cerr := FromContext(err, msg); cerr != nil {
		return cerr
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// IsRetryable reports transient contention. Deadlines and cancellation are
// the caller's to judge and never count
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pe, ok := pgError(err); ok {
		return retryStates[pe.Code]
	}
	text := strings.ToLower(err.Error())
	for _, frag := range retryText {
		if strings.Contains(text, frag) {
			return true
		}
	}
	return false
}
