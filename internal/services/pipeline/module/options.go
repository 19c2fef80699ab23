package module

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"linkshell/internal/adapters/engine"
	"linkshell/internal/platform/config"
	perr "linkshell/internal/platform/errors"
	dom "linkshell/internal/services/pipeline/domain"
	"linkshell/internal/services/pipeline/service"
)

// Options controls the pipeline, its starting policy and which stores it uses
type Options struct {
	Service service.Config
	Policy  dom.Policy
	Writer  service.WriterConfig
	Engines engine.Options

	PolicyFile   string // yaml overlay applied over the env policy
	CachePersist bool   // Postgres second level cache
	Archive      bool   // Postgres message archive
	Audit        bool   // ClickHouse audit trail
}

// FromConfig reads PIPELINE_* and ENGINE_* values from process config/env
func FromConfig(cfg config.Conf) Options {
	pc := cfg.Prefix("PIPELINE_")
	def := service.DefaultConfig()
	pol := dom.DefaultPolicy()
	cat := pc.Prefix("CAT_")

	return Options{
		Service: service.Config{
			TPS:        pc.MayFloat64("TPS", def.TPS),
			Burst:      pc.MayInt("BURST", def.Burst),
			MaxQueue:   pc.MayInt("MAX_QUEUE", def.MaxQueue),
			Timeout:    time.Duration(pc.MayInt("TIMEOUT_MS", int(def.Timeout/time.Millisecond))) * time.Millisecond,
			Workers:    pc.MayInt("WORKERS", def.Workers),
			Cache:      pc.MayBool("CACHE_ENABLED", def.Cache),
			CacheTTL:   time.Duration(pc.MayInt("CACHE_TTL_MINUTES", int(def.CacheTTL/time.Minute))) * time.Minute,
			CacheSize:  pc.MayInt("CACHE_SIZE", def.CacheSize),
			History:    pc.MayInt("HISTORY", def.History),
			QueueTTL:   pc.MayDuration("QUEUE_TTL", 0),
			MinLetters: pc.MayInt("MIN_LETTERS", 0),
		},
		Policy: dom.Policy{
			Enabled:    pc.MayBool("ENABLED", pol.Enabled),
			Engine:     pc.MayString("ENGINE", pol.Engine),
			SourceLang: pc.MayString("SOURCE_LANG", pol.SourceLang),
			TargetLang: pc.MayString("TARGET_LANG", pol.TargetLang),
			Prefix:     pc.MayString("PREFIX", pol.Prefix),
			Categories: dom.Categories{
				Player: cat.MayBool("PLAYER", pol.Categories.Player),
				Npc:    cat.MayBool("NPC", pol.Categories.Npc),
				System: cat.MayBool("SYSTEM", pol.Categories.System),
				Emote:  cat.MayBool("EMOTE", pol.Categories.Emote),
				Battle: cat.MayBool("BATTLE", pol.Categories.Battle),
				Gm:     cat.MayBool("GM", pol.Categories.Gm),
			},
			Channels:              pc.MayBoolMap("CHANNELS", nil),
			Allow:                 pc.MayCSV("ALLOW", nil),
			Deny:                  pc.MayCSV("DENY", nil),
			Ignore:                pc.MaySplit("IGNORE", ";;", nil),
			PreserveAutoTranslate: pc.MayBool("PRESERVE_AUTOTRANSLATE", pol.PreserveAutoTranslate),
			MaxLength:             pc.MayInt("MAX_LENGTH", pol.MaxLength),
			Retry:                 pc.MayBool("RETRY", pol.Retry),
			MaxRetries:            pc.MayInt("MAX_RETRIES", pol.MaxRetries),
		},
		Writer: service.WriterConfig{
			Buffer:   pc.MayInt("WRITER_BUFFER", 1024),
			Batch:    pc.MayInt("WRITER_BATCH", 100),
			Interval: pc.MayDuration("WRITER_INTERVAL", time.Second),
			Timeout:  pc.MayDuration("WRITER_TIMEOUT", 5*time.Second),
		},
		Engines:      engine.FromConfig(cfg),
		PolicyFile:   pc.MayString("POLICY_FILE", ""),
		CachePersist: pc.MayBool("CACHE_PERSIST", true),
		Archive:      pc.MayBool("ARCHIVE", true),
		Audit:        pc.MayBool("AUDIT", true),
	}
}

// LoadPolicy overlays the yaml file at path onto base. Keys absent from the
// file keep their base value. An empty path returns base unchanged
func LoadPolicy(path string, base dom.Policy) (dom.Policy, error) {
	if path == "" {
		return base, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return base, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read policy file %s", path)
	}
	return ParsePolicy(b, base)
}

// ParsePolicy overlays yaml document b onto base and validates the result
func ParsePolicy(b []byte, base dom.Policy) (dom.Policy, error) {
	p := base
	if err := yaml.Unmarshal(b, &p); err != nil {
		return base, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "parse policy yaml")
	}
	if err := p.Validate(); err != nil {
		return base, err
	}
	return p, nil
}
