package module

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	modkit "linkshell/internal/modkit"
	"linkshell/internal/modkit/module"
	"linkshell/internal/platform/config"
	phttp "linkshell/internal/platform/net/http"
	"linkshell/internal/platform/testkit"
	dom "linkshell/internal/services/pipeline/domain"
)

type upper struct{}

func (upper) Name() string { return "upper" }
func (upper) Translate(_ context.Context, text, _, _ string) (string, error) {
	return strings.ToUpper(text), nil
}

type resolver map[string]dom.Engine

func (r resolver) Engine(name string) (dom.Engine, bool) {
	e, ok := r[name]
	return e, ok
}

func TestFromConfig(t *testing.T) {
	t.Setenv("PIPELINE_TPS", "2.5")
	t.Setenv("PIPELINE_ENGINE", "openai")
	t.Setenv("PIPELINE_TARGET_LANG", "de")
	t.Setenv("PIPELINE_CAT_SYSTEM", "true")
	t.Setenv("PIPELINE_CHANNELS", "Say=false,Party=true")
	t.Setenv("PIPELINE_IGNORE", `^\d+$;;^lol$`)
	t.Setenv("PIPELINE_TIMEOUT_MS", "1500")
	t.Setenv("PIPELINE_ARCHIVE", "false")

	o := FromConfig(config.New())
	if o.Service.TPS != 2.5 || o.Service.Timeout != 1500*time.Millisecond {
		t.Fatalf("service = %+v", o.Service)
	}
	if o.Policy.Engine != "openai" || o.Policy.TargetLang != "de" || !o.Policy.Categories.System {
		t.Fatalf("policy = %+v", o.Policy)
	}
	if o.Policy.ChannelEnabled("Say") || !o.Policy.ChannelEnabled("Party") || len(o.Policy.Ignore) != 2 {
		t.Fatalf("channels/ignore = %v %v", o.Policy.Channels, o.Policy.Ignore)
	}
	if o.Archive || !o.Audit || !o.CachePersist {
		t.Fatalf("store toggles = %+v", o)
	}
}

func TestLoadPolicy(t *testing.T) {
	base := dom.DefaultPolicy()
	if p, err := LoadPolicy("", base); err != nil || p.Engine != base.Engine {
		t.Fatalf("empty path = %+v %v", p, err)
	}

	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := "engine: openai\ntarget_lang: ja\ncategories:\n  system: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPolicy(path, base)
	if err != nil {
		t.Fatal(err)
	}
	if p.Engine != "openai" || p.TargetLang != "ja" || !p.Categories.System || p.Prefix != base.Prefix {
		t.Fatalf("overlay = %+v", p)
	}

	if _, err := ParsePolicy([]byte("target_lang: auto\n"), base); err == nil {
		t.Fatalf("auto target accepted")
	}
	if _, err := ParsePolicy([]byte("engine: [\n"), base); err == nil {
		t.Fatalf("broken yaml accepted")
	}
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"), base); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestModule_EndToEndWithoutStores(t *testing.T) {
	opts := FromConfig(config.New())
	opts.Policy.Engine = "upper"
	opts.Service.TPS = 0

	m := New(modkit.Deps{Cfg: config.New()}, modkit.WithPorts(Inject{
		Engines: resolver{"upper": upper{}},
		Options: &opts,
	}))
	if m.Name() != "pipeline" {
		t.Fatalf("name = %q", m.Name())
	}
	ports := module.MustPortsOf[Ports](m)

	r := phttp.AdaptChi(chi.NewRouter())
	m.MountRoutes(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ports.Runner.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/pipeline/events", strings.NewReader(`{"code":10,"sender":"Tataru","text":"bonjour tout le monde"}`))
	r.Mux().ServeHTTP(rec, req)
	if rec.Code != 202 {
		t.Fatalf("submit = %d %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}

	testkit.Eventually(t, 2*time.Second, func() bool {
		got, err := ports.Pipeline.Message(env.Data.ID)
		return err == nil && got.Status == dom.StatusCompleted
	}, "message translated")
	got, _ := ports.Pipeline.Message(env.Data.ID)
	if got.Translated != "BONJOUR TOUT LE MONDE" {
		t.Fatalf("translated = %q", got.Translated)
	}

	rec = httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/pipeline/archive", nil))
	if rec.Code != 503 {
		t.Fatalf("archive without pg = %d", rec.Code)
	}
}
