package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/internal/config"
	"github.com/jakechorley/territory-balancer/pkg/clients/anthropicclient"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database db.Database
	Migrator db.Migrator

	// Anthropic is nil when no API key is available
	Anthropic anthropicclient.Client

	Logger *zap.Logger
	Ctx    context.Context
}
