package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorFormattingAndUnwrap(t *testing.T) {
	cause := stderrs.New("dial tcp: refused")
	err := Wrap(cause, ErrorCodeUnavailable, "engine call")
	if err.Error() != "engine call: dial tcp: refused" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !stderrs.Is(err, cause) {
		t.Fatalf("cause should be reachable")
	}
	var e *Error
	if !stderrs.As(fmt.Errorf("outer: %w", err), &e) || e.Unwrap() != cause {
		t.Fatalf("wrapped *Error should be reachable")
	}
	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Fatalf("nil receiver formatting")
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{New(ErrorCodeNotFound, "x"), ErrorCodeNotFound},
		{fmt.Errorf("ctx: %w", Newf(ErrorCodeTooManyRequests, "queue %d", 100)), ErrorCodeTooManyRequests},
		{context.DeadlineExceeded, ErrorCodeTimeout},
		{fmt.Errorf("x: %w", context.Canceled), ErrorCodeCanceled},
		{stderrs.New("plain"), ErrorCodeUnknown},
	}
	for i, c := range cases {
		if got := CodeOf(c.err); got != c.want {
			t.Fatalf("case %d: CodeOf = %v, want %v", i, got, c.want)
		}
	}
}

func TestHTTPMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrorCodeNotFound:        http.StatusNotFound,
		ErrorCodeValidation:      http.StatusBadRequest,
		ErrorCodeJSON:            http.StatusBadRequest,
		ErrorCodeInvalidArgument: http.StatusUnprocessableEntity,
		ErrorCodeTooManyRequests: http.StatusTooManyRequests,
		ErrorCodeUnavailable:     http.StatusServiceUnavailable,
		ErrorCodeTimeout:         http.StatusGatewayTimeout,
		ErrorCodeDB:              http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatusCode(code); got != want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", code, got, want)
		}
	}
	if got := HTTPStatusCode(ErrorCode(999)); got != http.StatusInternalServerError {
		t.Fatalf("unlisted code = %d", got)
	}
	if got := HTTPStatus(context.Canceled); got != 499 {
		t.Fatalf("canceled status = %d", got)
	}
	err := WithField(Validationf("bad"), "code")
	if w := WireFrom(err); HTTPStatus(err) != http.StatusBadRequest || w.Field != "code" || w.Message != "bad" {
		t.Fatalf("wire = %d %+v", HTTPStatus(err), w)
	}
	if WireFrom(nil) != (Wire{}) {
		t.Fatalf("WireFrom(nil) = %+v", WireFrom(nil))
	}
}

func TestWithField_Copies(t *testing.T) {
	base := New(ErrorCodeValidation, "bad")
	withField := WithField(base, "text")

	b, _ := As(base)
	if b.Field() != "" {
		t.Fatalf("base mutated")
	}
	e, _ := As(withField)
	if e.Field() != "text" || e.Code() != ErrorCodeValidation {
		t.Fatalf("field lost: %q %v", e.Field(), e.Code())
	}
	plain := stderrs.New("x")
	if WithField(plain, "f") != plain {
		t.Fatalf("foreign errors should pass through")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(stderrs.New("x"), "m") != nil {
		t.Fatalf("non-context error should give nil")
	}
	if !IsCode(FromContext(context.Canceled, "m"), ErrorCodeCanceled) {
		t.Fatalf("canceled mapping")
	}
	if !IsCode(FromContext(fmt.Errorf("w: %w", context.DeadlineExceeded), "m"), ErrorCodeTimeout) {
		t.Fatalf("deadline mapping")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Unavailablef("engine down")) || !Retryable(context.DeadlineExceeded) || !Retryable(TooManyf("slow down")) {
		t.Fatalf("transient errors should be retryable")
	}
	if Retryable(nil) || Retryable(context.Canceled) || Retryable(Validationf("bad")) {
		t.Fatalf("non-transient errors should not be retryable")
	}
	if ErrorCodeTimeout.String() != "timeout" || ErrorCode(999).String() != "code(999)" {
		t.Fatalf("String names")
	}
}
