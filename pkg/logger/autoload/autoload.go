// Package autoload initializes the global logger from LOGGER_* environment
// variables as a side effect of being imported.
package autoload

import (
	configx "github.com/napat-k/Aftersale-Support-Agent/pkg/config"
	logx "github.com/napat-k/Aftersale-Support-Agent/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOGGER"))
}
