// Package conclave parses bot command flags and composes the app
// entrypoint.
package conclave

import (
	"context"
	"flag"
	"fmt"

	"github.com/aurelwyn/conclave/internal/app"
	"github.com/aurelwyn/conclave/internal/discord"
	entrypoint "github.com/aurelwyn/conclave/internal/platform/cmd"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Config holds bot command configuration.
type Config struct {
	Token          string `env:"CONCLAVE_TOKEN"`
	ProfilePath    string `env:"CONCLAVE_PROFILE_PATH"  envDefault:"profile.json"`
	DatabasePath   string `env:"CONCLAVE_DATABASE_PATH" envDefault:"conclave.db"`
	Developer      uint64 `env:"CONCLAVE_DEVELOPER_ID"`
	UpdateCommands bool   `env:"CONCLAVE_UPDATE_COMMANDS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Token, "token", cfg.Token, "bot token")
	fs.StringVar(&cfg.ProfilePath, "profile", cfg.ProfilePath, "guild profile path")
	fs.StringVar(&cfg.DatabasePath, "database", cfg.DatabasePath, "sqlite database path")
	fs.Uint64Var(&cfg.Developer, "developer", cfg.Developer, "developer user id")
	fs.BoolVar(&cfg.UpdateCommands, "update-commands", cfg.UpdateCommands, "re-register guild commands on startup")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the bot app and starts the gateway session.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceConclave, func(context.Context) error {
		if err := app.Run(ctx, app.Config{
			Token:          cfg.Token,
			ProfilePath:    cfg.ProfilePath,
			DatabasePath:   cfg.DatabasePath,
			Developer:      discord.Snowflake(cfg.Developer),
			UpdateCommands: cfg.UpdateCommands,
			Version:        Version,
		}); err != nil {
			return fmt.Errorf("serve conclave: %w", err)
		}
		return nil
	})
}
