package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"linkshell/internal/core/chatcode"
	"linkshell/internal/core/langhint"
	"linkshell/internal/core/payload"
	"linkshell/internal/core/textnorm"
	dom "linkshell/internal/services/pipeline/domain"
)

// Skip reasons stored on messages that never reach an engine
const (
	reasonDisabled       = "translation disabled"
	reasonDenied         = "sender is deny-listed"
	reasonIgnored        = "matched ignore pattern"
	reasonNotPending     = "message is not pending"
	reasonUntranslatable = "channel is not translatable"
	reasonCategoryOff    = "category disabled"
	reasonChannelOff     = "channel disabled"
)

// compiled is a Policy with its lookups prepared. It is immutable once built
type compiled struct {
	dom.Policy
	ignore []*regexp.Regexp
	allow  map[string]bool
	deny   map[string]bool
	gate   textnorm.Gate
}

func senderKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func toSet(xs []string) map[string]bool {
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		if k := senderKey(x); k != "" {
			out[k] = true
		}
	}
	return out
}

func compile(p dom.Policy) (*compiled, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ig, err := p.CompileIgnore()
	if err != nil {
		return nil, err
	}
	return &compiled{
		Policy: p,
		ignore: ig,
		allow:  toSet(p.Allow),
		deny:   toSet(p.Deny),
		gate:   p.Gate(),
	}, nil
}

func (c *compiled) extractOptions() payload.Options {
	o := payload.DefaultOptions()
	o.PreserveAutoTranslate = c.PreserveAutoTranslate
	return o
}

// Decision is the outcome of the eligibility gate
type Decision struct {
	OK     bool
	Reason string
}

func skip(reason string) Decision { return Decision{Reason: reason} }

// Builder turns eligible messages into requests
type Builder struct {
	hint langhint.Detector
	now  func() time.Time
}

// NewBuilder builds a request builder
func NewBuilder(hint langhint.Detector, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{hint: hint, now: now}
}

// Eligible runs the gate in order: master switch, deny-list, ignore patterns,
// status, translatability, category and channel toggles (skipped for
// allow-listed senders), blank text, then the text quality gate
func (b *Builder) Eligible(m dom.Message, p *compiled) Decision {
	if !p.Enabled {
		return skip(reasonDisabled)
	}
	who := senderKey(m.Sender)
	if who != "" && p.deny[who] {
		return skip(reasonDenied)
	}
	for _, re := range p.ignore {
		if re.MatchString(m.Plain) {
			return skip(reasonIgnored)
		}
	}
	if m.Status != dom.StatusPending {
		return skip(reasonNotPending)
	}
	info := chatcode.Classify(m.Code)
	if !info.Translatable {
		return skip(reasonUntranslatable)
	}
	if who == "" || !p.allow[who] {
		if !p.Categories.Enabled(info.Category) {
			return skip(reasonCategoryOff)
		}
		if !p.ChannelEnabled(info.Key) {
			return skip(reasonChannelOff)
		}
	}
	if ok, why := p.gate.Check(m.Plain); !ok {
		return skip(string(why))
	}
	return Decision{OK: true}
}

// Build returns the first attempt for m, or the reason it is skipped
func (b *Builder) Build(m dom.Message, p *compiled) (dom.Request, Decision) {
	d := b.Eligible(m, p)
	if !d.OK {
		return dom.Request{}, d
	}
	// GM variants take the tier of their civilian parent
	parent := chatcode.Classify(chatcode.Code(chatcode.Classify(m.Code).Parent))
	maxRetries := 0
	if p.Retry {
		maxRetries = p.MaxRetries
	}
	return dom.Request{
		ID:         uuid.New(),
		MessageID:  m.ID,
		Text:       m.Plain,
		Source:     b.hint.ResolveSource(p.SourceLang, m.Plain),
		Target:     p.TargetLang,
		Priority:   dom.PriorityFor(parent.Category),
		Engine:     p.Engine,
		CreatedAt:  b.now(),
		MaxRetries: maxRetries,
	}, d
}
