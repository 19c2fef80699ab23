package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"linkshell/internal/adapters/engine"
	"linkshell/internal/platform/config"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
	"linkshell/internal/platform/net/http/bind"
	dom "linkshell/internal/services/pipeline/domain"
	pipelinemod "linkshell/internal/services/pipeline/module"
	"linkshell/internal/services/pipeline/service"
)

const maxLineBytes = 1 << 20

type replayOptions struct {
	policyFile string
	engine     string
	target     string
	tps        float64
	workers    int
	maxQueue   int
	wait       time.Duration
}

// replaySummary is printed after the messages in text mode
type replaySummary struct {
	Lines   int       `json:"lines"`
	Invalid int       `json:"invalid"`
	Stats   dom.Stats `json:"stats"`
}

func newReplayCmd(o *rootOptions) *cobra.Command {
	ro := replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Replay a JSONL chat log through the pipeline",
		Long:  "Each line is one event: {\"code\":10,\"sender\":\"...\",\"text\":\"...\"}. Reads stdin when file is omitted or \"-\".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open %s", args[0])
				}
				defer f.Close()
				in = f
			}

			engines := o.engines
			if engines == nil {
				engines = engine.Build(engine.FromConfig(config.New()))
			}

			msgs, sum, err := replay(cmd.Context(), in, ro, engines)
			if err != nil {
				return err
			}
			return writeReplay(cmd.OutOrStdout(), msgs, sum, o.jsonOut())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&ro.policyFile, "policy", "p", "", "YAML policy overlay")
	f.StringVarP(&ro.engine, "engine", "e", "", "Engine name, overrides the policy")
	f.StringVarP(&ro.target, "target", "t", "", "Target language, overrides the policy")
	f.Float64Var(&ro.tps, "tps", 0, "Engine calls per second, 0 for unlimited")
	f.IntVar(&ro.workers, "workers", 2, "Dispatch workers")
	f.IntVar(&ro.maxQueue, "max-queue", 10000, "Scheduler queue bound")
	f.DurationVar(&ro.wait, "wait", 2*time.Minute, "How long to wait for messages to settle after the log ends")
	return cmd
}

func (ro replayOptions) policy() (dom.Policy, error) {
	p, err := pipelinemod.LoadPolicy(ro.policyFile, dom.DefaultPolicy())
	if err != nil {
		return p, err
	}
	if ro.engine != "" {
		p.Engine = ro.engine
	}
	if ro.target != "" {
		p.TargetLang = ro.target
	}
	return p, p.Validate()
}

// replay submits every event in r, in order, and returns the settled messages by id
func replay(ctx context.Context, r io.Reader, ro replayOptions, engines dom.EngineResolver) ([]dom.Message, replaySummary, error) {
	var sum replaySummary
	p, err := ro.policy()
	if err != nil {
		return nil, sum, err
	}

	cfg := service.DefaultConfig()
	cfg.TPS = ro.tps
	cfg.Workers = ro.workers
	cfg.MaxQueue = ro.maxQueue
	cfg.History = max(cfg.History, ro.maxQueue)

	col := newCollector()
	svc := service.New(cfg, p, engines, service.WithObserver(col))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error {
		// settled or not, the pipeline stops once this returns
		defer cancel()

		events := make(chan dom.Event)
		fed := make(chan error, 1)
		go func() { fed <- svc.Feed(gctx, events) }()

		lines, invalid, err := decodeEvents(gctx, r, events)
		close(events)
		sum.Lines, sum.Invalid = lines, invalid
		if ferr := <-fed; err == nil {
			err = ferr
		}
		if err != nil {
			return err
		}
		return col.wait(gctx, lines-invalid, ro.wait)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, sum, err
	}

	sum.Stats = svc.Stats()
	return col.sorted(), sum, nil
}

// decodeEvents sends one event per valid line. Invalid lines are logged and counted
func decodeEvents(ctx context.Context, r io.Reader, out chan<- dom.Event) (lines, invalid int, err error) {
	log := logger.Named("replay")
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	for sc.Scan() {
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		lines++
		var ev dom.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			invalid++
			log.Warn().Int("line", lines).Err(err).Msg("skipping malformed event")
			continue
		}
		if err := bind.Validate(ev); err != nil {
			invalid++
			log.Warn().Int("line", lines).Err(err).Msg("skipping invalid event")
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return lines, invalid, ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return lines, invalid, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read chat log")
	}
	return lines, invalid, nil
}

// collector gathers terminal messages; OnTerminal never blocks
type collector struct {
	mu      sync.Mutex
	msgs    []dom.Message
	changed chan struct{}
}

func newCollector() *collector { return &collector{changed: make(chan struct{}, 1)} }

func (c *collector) OnTerminal(m dom.Message) {
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *collector) wait(ctx context.Context, n int, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	for c.len() < n {
		select {
		case <-c.changed:
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return perr.Newf(perr.ErrorCodeTimeout, "%d of %d messages settled before the wait expired", c.len(), n)
		}
	}
	return nil
}

func (c *collector) sorted() []dom.Message {
	c.mu.Lock()
	out := append([]dom.Message(nil), c.msgs...)
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func writeReplay(w io.Writer, msgs []dom.Message, sum replaySummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, m := range msgs {
			if err := enc.Encode(m); err != nil {
				return err
			}
		}
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "#%d [%s] %s: %s\n", m.ID, m.Channel, m.Sender, m.Plain)
		switch {
		case m.IsTranslated():
			src := ""
			if m.FromCache {
				src = ", cached"
			}
			fmt.Fprintf(w, "    -> %s (%s %s>%s%s)\n", m.Translated, m.Engine, m.SourceLang, m.TargetLang, src)
		default:
			fmt.Fprintf(w, "    %s: %s\n", m.Status, m.Reason)
		}
	}
	st := sum.Stats
	_, err := fmt.Fprintf(w, "\n%d lines, %d invalid; completed %d, failed %d, skipped %d, cache hits %d, engine calls %d\n",
		sum.Lines, sum.Invalid, st.Completed, st.Failed, st.Skipped, st.CacheHits, st.EngineCalls)
	return err
}
