// Package http is the transport layer: the chi backed Router, the JSON
// envelope every endpoint answers with and the server lifecycle
package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "linkshell/internal/platform/errors"
	pnet "linkshell/internal/platform/net"
)

// Envelope wraps every JSON body. Errors fill Code and Error, successes fill Data
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Page is the pagination block of a list payload
type Page struct {
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Cursor   string `json:"cursor,omitempty"`
}

// ListData is the Data of a List response
type ListData struct {
	Items any  `json:"items"`
	Page  Page `json:"page"`
}

// JSON encodes v with status. Encoding errors are dropped, the header is already out
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Response is what return-style handlers produce. A Body that is an error
// decides the status itself through perr
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

// Handle serves the Response built by h
func Handle(h func(*stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		h(r).writeTo(w, r)
	}
}

func (resp Response) writeTo(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	env := Envelope{StatusCode: resp.Status, RequestID: pnet.RequestID(r.Context())}
	if err, ok := resp.Body.(error); ok && err != nil {
		wire := perr.WireFrom(err)
		env.StatusCode, env.Code, env.Error = perr.HTTPStatus(err), wire.Code, wire.Message
	} else {
		env.Data = resp.Body
	}
	switch env.StatusCode {
	case 0:
		env.StatusCode = stdhttp.StatusOK
	case stdhttp.StatusNoContent:
		w.WriteHeader(stdhttp.StatusNoContent)
		return
	}
	env.Status = stdhttp.StatusText(env.StatusCode)
	JSON(w, env.StatusCode, env)
}

func OK(data any) Response       { return Response{Status: stdhttp.StatusOK, Body: data} }
func Created(data any) Response  { return Response{Status: stdhttp.StatusCreated, Body: data} }
func Accepted(data any) Response { return Response{Status: stdhttp.StatusAccepted, Body: data} }
func NoContent() Response        { return Response{Status: stdhttp.StatusNoContent} }

// Error lets perr pick the status and envelope code for err
func Error(err error) Response { return Response{Body: err} }

// List answers 200 with items and their page block
func List(items any, total, page, size int, cursor string) Response {
	return OK(ListData{Items: items, Page: Page{Total: total, Page: page, PageSize: size, Cursor: cursor}})
}
