// Package libre is a LibreTranslate compatible engine
package libre

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"linkshell/internal/core/version"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
)

const (
	// Name is the engine name used in policies
	Name = "libre"

	defaultBaseURL = "http://localhost:5000"
	defaultTimeout = 10 * time.Second
)

// Options configures the Client
type Options struct {
	BaseURL string
	APIKey  string
	// upper bound for a single HTTP exchange; the pipeline deadline usually fires first
	Timeout time.Duration
}

// Client translates through POST /translate
type Client struct {
	http *resty.Client
	opts Options
	log  *logger.Logger
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if strings.TrimSpace(o.BaseURL) == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().SetTimeout(o.Timeout).SetHeader("User-Agent", version.UserAgent()),
		opts: o,
		log:  logger.Named("engine-libre"),
	}
}

type translateReq struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResp struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage *struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	} `json:"detectedLanguage,omitempty"`
}

type errorResp struct {
	Error string `json:"error"`
}

// Name implements domain.Engine
func (c *Client) Name() string { return Name }

// Translate implements domain.Engine
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "" {
		source = "auto"
	}
	var out translateResp
	var fail errorResp
	url := strings.TrimRight(c.opts.BaseURL, "/") + "/translate"
	rr, err := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(translateReq{Q: text, Source: source, Target: target, Format: "text", APIKey: c.opts.APIKey}).
		SetResult(&out).
		SetError(&fail).
		Post(url)
	if err != nil {
		if e := perr.FromContext(err, "libre translate"); e != nil {
			return "", e
		}
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "libre request failed")
	}

	c.log.Debug().
		Int("status", rr.StatusCode()).
		Dur("latency", rr.Time()).
		Str("source", source).
		Str("target", target).
		Msg("libre http response")

	if rr.IsError() {
		msg := strings.TrimSpace(fail.Error)
		if msg == "" {
			msg = rr.Status()
		}
		return "", statusError(rr.StatusCode(), msg)
	}
	if out.DetectedLanguage != nil {
		c.log.Debug().Str("detected", out.DetectedLanguage.Language).Float64("confidence", out.DetectedLanguage.Confidence).Msg("libre detected language")
	}
	return out.TranslatedText, nil
}

func statusError(code int, msg string) error {
	switch {
	case code == http.StatusTooManyRequests:
		return perr.Newf(perr.ErrorCodeTooManyRequests, "libre rate limited: %s", msg)
	case code >= 500:
		return perr.Newf(perr.ErrorCodeUnavailable, "libre server error %d: %s", code, msg)
	default:
		return perr.Newf(perr.ErrorCodeInvalidArgument, "libre rejected request %d: %s", code, msg)
	}
}
