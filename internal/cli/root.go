// Package cli implements the linkshell-replay commands
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"linkshell/internal/platform/logger"
	dom "linkshell/internal/services/pipeline/domain"
)

type rootOptions struct {
	format  string
	verbose bool

	// engines overrides the env-configured registry, used by tests
	engines dom.EngineResolver
}

// NewRootCmd builds the linkshell-replay command tree
func NewRootCmd() *cobra.Command { return newRootCmd(nil) }

func newRootCmd(engines dom.EngineResolver) *cobra.Command {
	o := &rootOptions{engines: engines}
	cmd := &cobra.Command{
		Use:           "linkshell-replay",
		Short:         "Replay chat logs through the translation pipeline",
		Long:          "Feeds a JSONL chat log through the same pipeline the API runs and prints every message once it settles.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			opt := logger.FromEnv()
			opt.Writer = os.Stderr
			opt.Level = "warn"
			if o.verbose {
				opt.Level = "debug"
			}
			logger.Init(opt)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&o.format, "format", "f", "text", "Output format: json or text")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Log pipeline activity to stderr")

	cmd.AddCommand(newReplayCmd(o), newClassifyCmd(o))
	return cmd
}

func (o *rootOptions) jsonOut() bool { return strings.EqualFold(o.format, "json") }
