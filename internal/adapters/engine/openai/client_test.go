package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/testkit"
)

type chatReq struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestTranslate_OK(t *testing.T) {
	var got chatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":" Hello \n"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":20,"completion_tokens":2,"total_tokens":22}}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	out, err := c.Translate(context.Background(), "こんにちは", "ja", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("out = %q", out)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if got.Messages[0].Role != "system" || got.Messages[1].Content != "こんにちは" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	testkit.MustContain(t, got.Messages[0].Content, "from Japanese to English")
}

func TestTranslate_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		code   perr.ErrorCode
	}{
		{http.StatusTooManyRequests, perr.ErrorCodeTooManyRequests},
		{http.StatusServiceUnavailable, perr.ErrorCodeUnavailable},
		{http.StatusUnauthorized, perr.ErrorCodeInvalidArgument},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
		}))
		_, err := New(Options{APIKey: "k", BaseURL: srv.URL + "/v1"}).Translate(context.Background(), "hola", "es", "en")
		srv.Close()
		if !perr.IsCode(err, tt.code) {
			t.Fatalf("status %d: err = %v, want %s", tt.status, err, tt.code)
		}
	}
}

func TestTranslate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()
	_, err := New(Options{APIKey: "k", BaseURL: srv.URL + "/v1"}).Translate(context.Background(), "hola", "es", "en")
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestPrompt(t *testing.T) {
	p := prompt("auto", "fr")
	if !strings.Contains(p, "the language it is written in") || !strings.Contains(p, "French") {
		t.Fatalf("prompt = %q", p)
	}
	if langName("not a tag!") != "not a tag!" {
		t.Fatalf("bad tag not passed through")
	}
}
