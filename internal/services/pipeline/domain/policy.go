package domain

import (
	"regexp"
	"strings"

	"linkshell/internal/core/chatcode"
	"linkshell/internal/core/textnorm"
	perr "linkshell/internal/platform/errors"
)

// Categories holds the per-category enable flags
type Categories struct {
	Player bool `json:"player" yaml:"player"`
	Npc    bool `json:"npc" yaml:"npc"`
	System bool `json:"system" yaml:"system"`
	Emote  bool `json:"emote" yaml:"emote"`
	Battle bool `json:"battle" yaml:"battle"`
	Gm     bool `json:"gm" yaml:"gm"`
}

// Enabled reports the toggle for c. Other is never enabled
func (c Categories) Enabled(cat chatcode.Category) bool {
	switch cat {
	case chatcode.Player:
		return c.Player
	case chatcode.Npc:
		return c.Npc
	case chatcode.System:
		return c.System
	case chatcode.Emote:
		return c.Emote
	case chatcode.Battle:
		return c.Battle
	case chatcode.Gm:
		return c.Gm
	}
	return false
}

// Policy is the live, user-editable translation policy
type Policy struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Engine     string `json:"engine" yaml:"engine" validate:"required,max=64"`
	SourceLang string `json:"source_lang" yaml:"source_lang" validate:"required,max=16,lang"`
	TargetLang string `json:"target_lang" yaml:"target_lang" validate:"required,max=16,lang"`
	Prefix     string `json:"prefix" yaml:"prefix" validate:"max=32"`

	Categories Categories      `json:"categories" yaml:"categories"`
	Channels   map[string]bool `json:"channels,omitempty" yaml:"channels"`
	Allow      []string        `json:"allow,omitempty" yaml:"allow" validate:"max=1000"`
	Deny       []string        `json:"deny,omitempty" yaml:"deny" validate:"max=1000"`
	Ignore     []string        `json:"ignore,omitempty" yaml:"ignore" validate:"max=100"`

	PreserveAutoTranslate bool `json:"preserve_autotranslate" yaml:"preserve_autotranslate"`
	MaxLength             int  `json:"max_length" yaml:"max_length" validate:"gte=0,lte=20000"`

	Retry      bool `json:"retry" yaml:"retry"`
	MaxRetries int  `json:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`
}

// DefaultPolicy mirrors the documented configuration defaults
func DefaultPolicy() Policy {
	return Policy{
		Enabled:               true,
		Engine:                "libre",
		SourceLang:            "auto",
		TargetLang:            "en",
		Prefix:                "[TR] ",
		Categories:            Categories{Player: true, Npc: true, Gm: true},
		PreserveAutoTranslate: true,
		MaxLength:             textnorm.DefaultMaxRunes,
		MaxRetries:            2,
	}
}

// ChannelEnabled reports the per-channel toggle; a missing key means enabled
func (p Policy) ChannelEnabled(key string) bool {
	if key == "" || p.Channels == nil {
		return true
	}
	on, ok := p.Channels[key]
	return !ok || on
}

// Gate returns the text gate for this policy
func (p Policy) Gate() textnorm.Gate {
	g := textnorm.DefaultGate()
	if p.MaxLength > 0 {
		g.MaxRunes = p.MaxLength
	}
	return g
}

// CompileIgnore compiles the ignore patterns. Blank patterns are dropped
func (p Policy) CompileIgnore() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(p.Ignore))
	for _, pat := range p.Ignore {
		if strings.TrimSpace(pat) == "" {
			continue
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeValidation, "invalid ignore pattern %q", pat), "ignore")
		}
		out = append(out, re)
	}
	return out, nil
}

// Validate checks the fields a struct tag cannot express
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Engine) == "" {
		return perr.WithField(perr.Validationf("engine is required"), "engine")
	}
	if strings.TrimSpace(p.TargetLang) == "" {
		return perr.WithField(perr.Validationf("target language is required"), "target_lang")
	}
	if strings.EqualFold(strings.TrimSpace(p.TargetLang), "auto") {
		return perr.WithField(perr.Validationf("target language cannot be auto"), "target_lang")
	}
	if p.MaxRetries < 0 {
		return perr.WithField(perr.Validationf("max retries must not be negative"), "max_retries")
	}
	_, err := p.CompileIgnore()
	return err
}
