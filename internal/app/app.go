// Package app composes the bot: profile, registry storage, REST client,
// gateway session, lifecycle service, and command router.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/aurelwyn/conclave/internal/commands"
	"github.com/aurelwyn/conclave/internal/discord"
	"github.com/aurelwyn/conclave/internal/discord/gateway"
	"github.com/aurelwyn/conclave/internal/discord/rest"
	"github.com/aurelwyn/conclave/internal/lifecycle"
	"github.com/aurelwyn/conclave/internal/profile"
	registrysqlite "github.com/aurelwyn/conclave/internal/registry/sqlite"
)

// Config holds the app wiring inputs.
type Config struct {
	Token          string
	ProfilePath    string
	DatabasePath   string
	Developer      discord.Snowflake
	UpdateCommands bool
	Version        string
}

// Run starts the bot and blocks until the context is canceled or the
// session fails unrecoverably.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Token == "" {
		return errors.New("bot token is required")
	}

	p, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	log.Printf("app: loaded profile %q for guild %s", p.Name, p.Guild)

	store, err := registrysqlite.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open channel store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("app: close channel store: %v", err)
		}
	}()

	client := rest.NewClient(cfg.Token, p.Guild)
	service := lifecycle.NewService(p, store, client)
	router, err := commands.NewRouter(commands.Config{
		Profile:   p,
		Lifecycle: service,
		Store:     store,
		Client:    client,
		Developer: cfg.Developer,
		Version:   cfg.Version,
	})
	if err != nil {
		return fmt.Errorf("build command router: %w", err)
	}

	events := &eventHandler{
		router:      router,
		lifecycle:   service,
		client:      client,
		definitions: commands.Definitions(p),
		update:      cfg.UpdateCommands,
	}
	session := gateway.NewSession(cfg.Token, events)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return session.Run(groupCtx)
	})
	group.Go(func() error {
		return service.RunPendingSweep(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// eventHandler bridges gateway events to the router and lifecycle.
type eventHandler struct {
	router      *commands.Router
	lifecycle   *lifecycle.Service
	client      *rest.Client
	definitions []discord.ApplicationCommand
	update      bool
}

func (h *eventHandler) HandleReady(ctx context.Context, ready gateway.Ready) {
	h.router.SetApplication(ready.Application)
	log.Printf("app: session ready as %s", ready.User.Username)

	if h.update {
		if err := h.client.RegisterCommands(ctx, ready.Application, h.definitions); err != nil {
			log.Printf("app: register commands: %v", err)
			return
		}
		log.Printf("app: registered %d commands", len(h.definitions))
	}
}

func (h *eventHandler) HandleInteraction(ctx context.Context, interaction discord.Interaction) {
	h.router.HandleInteraction(ctx, interaction)
}

func (h *eventHandler) HandleChannelDelete(ctx context.Context, channel discord.Channel) {
	if err := h.lifecycle.HandleChannelDeleted(ctx, channel.ID); err != nil {
		log.Printf("app: retire deleted channel %s: %v", channel.ID, err)
	}
}
