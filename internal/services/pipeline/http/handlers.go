// Package http provides http transport for the translation pipeline
package http

import (
	stdhttp "net/http"
	"strconv"
	"strings"
	"time"

	"linkshell/internal/modkit/httpkit"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/net/http/bind"
	"linkshell/internal/services/pipeline/domain"
)

// defaultSummaryWindow is how far back the audit summary looks without ?since
const defaultSummaryWindow = 24 * time.Hour

// Register mounts the pipeline routes. audit may be nil when ClickHouse is off
func Register(r httpkit.Router, s domain.PipelinePort, audit domain.AuditReader) {
	h := &handlers{svc: s, audit: audit, now: time.Now}
	httpkit.PostJSON(r, "/events", h.submit)
	httpkit.PostJSON(r, "/events/batch", h.submitBatch)
	httpkit.Get(r, "/messages", h.messages)
	httpkit.Get(r, "/messages/{id}", h.message)
	httpkit.Delete(r, "/messages/{id}", h.cancel)
	httpkit.Get(r, "/stats", h.stats)
	httpkit.Get(r, "/policy", h.policy)
	httpkit.PutJSON(r, "/policy", h.setPolicy)
	httpkit.Get(r, "/archive", h.archive)
	httpkit.Get(r, "/audit/summary", h.auditSummary)
}

type handlers struct {
	svc   domain.PipelinePort
	audit domain.AuditReader
	now   func() time.Time
}

// swagger:route POST /pipeline/events Pipeline submitEvent
// @Summary Submit one chat event
// @Description Classifies the event and admits it for translation. Returns the message snapshot
// @Tags pipeline
// @Accept json
// @Produce json
// @Param payload body domain.Event true "Event"
// @Success 202 {object} domain.Message "accepted"
// @Router /pipeline/events [post]
func (h *handlers) submit(_ *stdhttp.Request, ev domain.Event) (any, error) {
	return httpkit.Accepted(h.svc.Submit(ev)), nil
}

// swagger:route POST /pipeline/events/batch Pipeline submitBatch
// @Summary Submit a batch of chat events in order
// @Tags pipeline
// @Accept json
// @Produce json
// @Param payload body domain.EventBatch true "Events"
// @Success 202 {array} domain.Message "accepted"
// @Router /pipeline/events/batch [post]
func (h *handlers) submitBatch(_ *stdhttp.Request, in domain.EventBatch) (any, error) {
	return httpkit.Accepted(h.svc.SubmitBatch(in.Events)), nil
}

// swagger:route GET /pipeline/messages Pipeline listMessages
// @Summary List recent messages, newest first
// @Tags pipeline
// @Produce json
// @Param status query string false "pending in_progress completed failed skipped cached"
// @Param channel query string false "channel key"
// @Param sender query string false "sender, case-insensitive"
// @Param limit query int false "max rows (<= 1000)"
// @Success 200 {array} domain.Message "ok"
// @Router /pipeline/messages [get]
func (h *handlers) messages(r *stdhttp.Request) (any, error) {
	qv := r.URL.Query()
	limit, err := queryInt(qv.Get("limit"), "limit")
	if err != nil {
		return nil, err
	}
	q := domain.Query{
		Status:  strings.ToLower(strings.TrimSpace(qv.Get("status"))),
		Channel: strings.TrimSpace(qv.Get("channel")),
		Sender:  strings.TrimSpace(qv.Get("sender")),
		Limit:   limit,
	}
	if err := bind.Validate(q); err != nil {
		return nil, err
	}
	items := h.svc.Messages(q)
	return httpkit.List(items, len(items), 1, q.Limit, ""), nil
}

// swagger:route GET /pipeline/messages/{id} Pipeline getMessage
// @Summary Get one message
// @Tags pipeline
// @Produce json
// @Param id path int true "message id"
// @Success 200 {object} domain.Message "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /pipeline/messages/{id} [get]
func (h *handlers) message(r *stdhttp.Request) (any, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Message(id)
}

// swagger:route DELETE /pipeline/messages/{id} Pipeline cancelMessage
// @Summary Cancel the outstanding translation of a message
// @Description The message ends Skipped with reason cancelled once the dispatcher observes it
// @Tags pipeline
// @Produce json
// @Param id path int true "message id"
// @Success 202 {object} domain.Message "cancellation requested"
// @Failure 409 {object} httpkit.Envelope "nothing outstanding"
// @Router /pipeline/messages/{id} [delete]
func (h *handlers) cancel(r *stdhttp.Request) (any, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Cancel(id); err != nil {
		return nil, err
	}
	m, err := h.svc.Message(id)
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(m), nil
}

// swagger:route GET /pipeline/stats Pipeline stats
// @Summary Pipeline counters and queue depth per priority
// @Tags pipeline
// @Produce json
// @Success 200 {object} domain.Stats "ok"
// @Router /pipeline/stats [get]
func (h *handlers) stats(_ *stdhttp.Request) (any, error) {
	return h.svc.Stats(), nil
}

// swagger:route GET /pipeline/policy Pipeline getPolicy
// @Summary Read the live translation policy
// @Tags pipeline
// @Produce json
// @Success 200 {object} domain.Policy "ok"
// @Router /pipeline/policy [get]
func (h *handlers) policy(_ *stdhttp.Request) (any, error) {
	return h.svc.Policy(), nil
}

// swagger:route PUT /pipeline/policy Pipeline setPolicy
// @Summary Replace the live translation policy
// @Description Requests already queued keep the engine and languages they were built with
// @Tags pipeline
// @Accept json
// @Produce json
// @Param payload body domain.Policy true "Policy"
// @Success 200 {object} domain.Policy "ok"
// @Router /pipeline/policy [put]
func (h *handlers) setPolicy(_ *stdhttp.Request, p domain.Policy) (any, error) {
	if err := h.svc.SetPolicy(p); err != nil {
		return nil, err
	}
	return h.svc.Policy(), nil
}

// swagger:route GET /pipeline/archive Pipeline archive
// @Summary List persisted terminal messages
// @Tags pipeline
// @Produce json
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Param status query string false "completed failed skipped"
// @Param sender query string false "sender, case-insensitive"
// @Param limit query int false "max rows (<= 1000)"
// @Success 200 {array} domain.Message "ok"
// @Failure 503 {object} httpkit.Envelope "archive not configured"
// @Router /pipeline/archive [get]
func (h *handlers) archive(r *stdhttp.Request) (any, error) {
	qv := r.URL.Query()
	since, err := queryTime(qv.Get("since"), "since")
	if err != nil {
		return nil, err
	}
	until, err := queryTime(qv.Get("until"), "until")
	if err != nil {
		return nil, err
	}
	limit, err := queryInt(qv.Get("limit"), "limit")
	if err != nil {
		return nil, err
	}
	q := domain.ArchiveQuery{
		Since:  since,
		Until:  until,
		Status: strings.ToLower(strings.TrimSpace(qv.Get("status"))),
		Sender: strings.TrimSpace(qv.Get("sender")),
		Limit:  limit,
	}
	if err := bind.Validate(q); err != nil {
		return nil, err
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && q.Until.Before(q.Since) {
		return nil, perr.WithField(perr.Validationf("until must not be before since"), "until")
	}
	items, err := h.svc.Archive(r.Context(), q)
	if err != nil {
		return nil, err
	}
	return httpkit.List(items, len(items), 1, q.Limit, ""), nil
}

// swagger:route GET /pipeline/audit/summary Pipeline auditSummary
// @Summary Outcome counts per engine and status from the audit trail
// @Tags pipeline
// @Produce json
// @Param since query string false "RFC3339 timestamp or a Go duration such as 6h (default 24h)"
// @Success 200 {array} domain.EngineSummary "ok"
// @Failure 503 {object} httpkit.Envelope "audit not configured"
// @Router /pipeline/audit/summary [get]
func (h *handlers) auditSummary(r *stdhttp.Request) (any, error) {
	if h.audit == nil {
		return nil, perr.Unavailablef("audit trail is not configured")
	}
	since := h.now().Add(-defaultSummaryWindow)
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			since = h.now().Add(-d)
		} else {
			t, err := queryTime(raw, "since")
			if err != nil {
				return nil, err
			}
			since = t
		}
	}
	return h.audit.Summary(r.Context(), since)
}

func pathID(r *stdhttp.Request) (int64, error) {
	raw := httpkit.Param(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, perr.WithField(perr.InvalidArgf("message id must be a positive integer, got %q", raw), "id")
	}
	return id, nil
}

func queryInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, perr.WithField(perr.Validationf("%s must be an integer", field), field)
	}
	return n, nil
}

func queryTime(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, perr.WithField(perr.Validationf("%s must be an RFC3339 timestamp", field), field)
	}
	return t, nil
}
