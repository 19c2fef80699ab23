package service

import (
	"testing"

	"linkshell/internal/core/chatcode"
	"linkshell/internal/core/langhint"
	"linkshell/internal/core/textnorm"
	dom "linkshell/internal/services/pipeline/domain"
)

func mustCompile(t *testing.T, p dom.Policy) *compiled {
	t.Helper()
	cp, err := compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return cp
}

func pendingMsg(code chatcode.Code, sender, text string) dom.Message {
	return dom.Message{
		ID:       1,
		Code:     code,
		Category: chatcode.CategoryOf(code),
		Sender:   sender,
		Plain:    text,
		Status:   dom.StatusPending,
	}
}

func TestBuilder_GateOrder(t *testing.T) {
	b := NewBuilder(langhint.New(0), nil)

	base := dom.DefaultPolicy()
	base.Deny = []string{"Spammer"}
	base.Allow = []string{"Friend"}
	base.Ignore = []string{`^/`}
	base.Channels = map[string]bool{"Shout": false}

	disabled := base
	disabled.Enabled = false

	tests := []struct {
		name   string
		p      dom.Policy
		msg    dom.Message
		ok     bool
		reason string
	}{
		{"happy path", base, pendingMsg(10, "Tataru", "こんにちは"), true, ""},
		{"master switch first", disabled, pendingMsg(10, "Friend", "こんにちは"), false, reasonDisabled},
		{"deny beats allow and gate", base, pendingMsg(10, " spammer ", "123"), false, reasonDenied},
		{"ignore pattern", base, pendingMsg(10, "Tataru", "/wave"), false, reasonIgnored},
		{"system channel", base, pendingMsg(57, "", "Welcome to Eorzea"), false, reasonUntranslatable},
		{"npc not translatable", base, pendingMsg(61, "Merchant", "Buy something"), false, reasonUntranslatable},
		{"emote category off", base, pendingMsg(28, "Tataru", "waves happily"), false, reasonCategoryOff},
		{"allow bypasses category", base, pendingMsg(28, "friend", "waves happily"), true, ""},
		{"channel toggle off", base, pendingMsg(11, "Tataru", "WTS potions"), false, reasonChannelOff},
		{"allow bypasses channel", base, pendingMsg(11, "Friend", "WTS potions"), true, ""},
		{"allow does not bypass quality", base, pendingMsg(10, "Friend", "123"), false, string(textnorm.ReasonNoContent)},
		{"blank", base, pendingMsg(10, "Tataru", "   "), false, string(textnorm.ReasonBlank)},
		{"too short", base, pendingMsg(10, "Tataru", "a"), false, string(textnorm.ReasonTooShort)},
		{"gm say", base, pendingMsg(81, "GM Ceno", "Server restart soon"), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, d := b.Build(tt.msg, mustCompile(t, tt.p))
			if d.OK != tt.ok || d.Reason != tt.reason {
				t.Fatalf("decision = %+v, want ok=%v reason=%q", d, tt.ok, tt.reason)
			}
		})
	}

	done := pendingMsg(10, "Tataru", "こんにちは")
	done.Status = dom.StatusCompleted
	if _, d := b.Build(done, mustCompile(t, base)); d.Reason != reasonNotPending {
		t.Fatalf("non-pending decision = %+v", d)
	}
}

func TestBuilder_Request(t *testing.T) {
	clk := newClock()
	b := NewBuilder(langhint.New(0), clk.Now)
	p := dom.DefaultPolicy()
	p.Engine = "fake"
	p.Retry, p.MaxRetries = true, 3

	r, d := b.Build(pendingMsg(10, "Tataru", "こんにちは"), mustCompile(t, p))
	if !d.OK {
		t.Fatalf("skipped: %s", d.Reason)
	}
	if r.Source != "ja" || r.Target != "en" || r.Engine != "fake" || r.Priority != dom.PriorityHigh {
		t.Fatalf("request = %+v", r)
	}
	if r.MaxRetries != 3 || r.RetryCount != 0 || !r.CreatedAt.Equal(clk.Now()) || r.MessageID != 1 {
		t.Fatalf("request bookkeeping = %+v", r)
	}

	p.SourceLang, p.Retry = "fr", false
	r, _ = b.Build(pendingMsg(10, "Tataru", "こんにちは"), mustCompile(t, p))
	if r.Source != "fr" || r.MaxRetries != 0 {
		t.Fatalf("explicit source / retry off = %+v", r)
	}

	r, _ = b.Build(pendingMsg(81, "GM", "maintenance soon"), mustCompile(t, p))
	if r.Priority != dom.PriorityHigh {
		t.Fatalf("gm say priority = %v, want the civilian tier", r.Priority)
	}
	p.Categories.Emote = true
	r, _ = b.Build(pendingMsg(28, "Tataru", "waves"), mustCompile(t, p))
	if r.Priority != dom.PriorityNormal {
		t.Fatalf("emote priority = %v", r.Priority)
	}
}

func TestCompile_RejectsBadPolicy(t *testing.T) {
	p := dom.DefaultPolicy()
	p.Ignore = []string{"[unclosed"}
	if _, err := compile(p); err == nil {
		t.Fatalf("bad ignore pattern compiled")
	}
}
