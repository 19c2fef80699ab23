package bind

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"

	perr "linkshell/internal/platform/errors"
)

const defaultMaxBytes = 1 << 20

// Options relaxes ParseJSON. The zero value is strict: 1MB cap, unknown
// fields and empty bodies rejected
type Options struct {
	MaxBytes     int64
	AllowUnknown bool
	AllowEmpty   bool
}

// ParseJSON decodes exactly one JSON value into T and validates it.
// GET and DELETE requests may omit the body and get the zero T
func ParseJSON[T any](r *http.Request, opts ...Options) (T, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	defer r.Body.Close()

	var out, zero T
	body := bufio.NewReader(io.LimitReader(r.Body, o.MaxBytes))
	if _, err := body.Peek(1); err != nil {
		if o.AllowEmpty || r.Method == http.MethodGet || r.Method == http.MethodDelete {
			return zero, nil
		}
		return zero, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(body)
	if !o.AllowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected data after the JSON value")
	}
	if err := Validate(out); err != nil {
		return zero, err
	}
	return out, nil
}
