package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErr(code string) *pgconn.PgError { return &pgconn.PgError{Code: code} }

func TestDBErrorCode(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeConflict},
		{"23503", ErrorCodeInvalidArgument},
		{"23502", ErrorCodeValidation},
		{"23514", ErrorCodeValidation},
		{"22001", ErrorCodeInvalidArgument},
		{"25006", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"57014", ErrorCodeTimeout},
		{"40001", ErrorCodeDB},
		{"XXXXX", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(fmt.Errorf("wrapped: %w", pgErr(c.code)))
		if !ok || got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v,%v want %v", c.code, got, ok, c.want)
		}
	}
	if _, ok := DBErrorCode(stderrs.New("plain")); ok {
		t.Fatalf("plain error should not map")
	}
}

func TestFromPostgres(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}
	if got := CodeOf(FromPostgres(pgErr("23505"), "insert")); got != ErrorCodeConflict {
		t.Fatalf("unique violation code = %v", got)
	}
	if got := CodeOf(FromPostgres(stderrs.New("boom"), "q")); got != ErrorCodeDB {
		t.Fatalf("foreign error code = %v", got)
	}
	if got := CodeOf(FromPostgres(context.DeadlineExceeded, "q")); got != ErrorCodeTimeout {
		t.Fatalf("deadline code = %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	yes := []error{
		pgErr("40001"),
		pgErr("40P01"),
		pgErr("55P03"),
		stderrs.New("commit unexpectedly resulted in rollback"),
	}
	for _, e := range yes {
		if !IsRetryable(e) {
			t.Fatalf("want retryable: %v", e)
		}
	}
	no := []error{nil, pgErr("23505"), context.Canceled, context.DeadlineExceeded, stderrs.New("syntax")}
	for _, e := range no {
		if IsRetryable(e) {
			t.Fatalf("want not retryable: %v", e)
		}
	}
}
