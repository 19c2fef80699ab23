// Package openai is a chat-completion translation engine
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
)

// Name is the engine name used in policies
const Name = "openai"

const (
	defaultMaxTokens   = 512
	defaultTemperature = 0.2
)

// Options configures the Client
type Options struct {
	APIKey string
	// empty means gpt-4o-mini
	Model string
	// any OpenAI compatible endpoint, e.g. a local gateway; empty means api.openai.com
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// Client translates with a single chat completion per message
type Client struct {
	api  *goopenai.Client
	opts Options
	log  *logger.Logger
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.Model == "" {
		o.Model = goopenai.GPT4oMini
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = defaultTemperature
	}
	cfg := goopenai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(o.BaseURL, "/")
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), opts: o, log: logger.Named("engine-openai")}
}

// Name implements domain.Engine
func (c *Client) Name() string { return Name }

// Translate implements domain.Engine
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: prompt(source, target)},
			{Role: goopenai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", perr.Newf(perr.ErrorCodeUnavailable, "openai returned no choices")
	}
	c.log.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai completion")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func prompt(source, target string) string {
	from := "the language it is written in"
	if source != "" && !strings.EqualFold(source, "auto") {
		from = langName(source)
	}
	return fmt.Sprintf(
		"You translate short in-game chat messages from %s to %s. "+
			"Keep names, numbers and bracketed tokens as they are. "+
			"Reply with the translation only, nothing else.",
		from, langName(target))
}

// langName renders an ISO code as an English language name, or the code itself
func langName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if n := display.English.Tags().Name(tag); n != "" {
		return n
	}
	return code
}

func classify(err error) error {
	if e := perr.FromContext(err, "openai translate"); e != nil {
		return e
	}
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "openai request failed")
	}
	switch {
	case status == http.StatusTooManyRequests:
		return perr.Wrapf(err, perr.ErrorCodeTooManyRequests, "openai rate limited")
	case status >= 500:
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "openai server error %d", status)
	default:
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "openai rejected request %d", status)
	}
}
