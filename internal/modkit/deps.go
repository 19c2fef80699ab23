package modkit

import (
	"linkshell/internal/modkit/repokit"
	"linkshell/internal/platform/config"
	"linkshell/internal/platform/logger"
	"linkshell/internal/platform/store"
)

// Deps is what main shares with every module. PG and CH stay nil when their
// backend is not configured and modules fall back to in-memory state
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
