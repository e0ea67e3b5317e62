package commands

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aurelwyn/conclave/internal/acl"
	"github.com/aurelwyn/conclave/internal/discord"
	conerrors "github.com/aurelwyn/conclave/internal/errors"
	"github.com/aurelwyn/conclave/internal/importer"
	"github.com/aurelwyn/conclave/internal/lifecycle"
	"github.com/aurelwyn/conclave/internal/profile"
	"github.com/aurelwyn/conclave/internal/random"
	"github.com/aurelwyn/conclave/internal/registry"
	"github.com/aurelwyn/conclave/internal/wordgen"
)

// Component and modal ids. The create ids carry the category index.
const (
	createButtonPrefix = "create-channel-"
	deleteButtonID     = "delete-channel"
	editModalID        = "edit-channel"
)

// Responder is the interaction and messaging surface of the REST client.
type Responder interface {
	RespondInteraction(ctx context.Context, id discord.Snowflake, token string, response discord.InteractionResponse) error
	DeferInteraction(ctx context.Context, id discord.Snowflake, token string) error
	DeferInteractionPublic(ctx context.Context, id discord.Snowflake, token string) error
	EditResponse(ctx context.Context, application discord.Snowflake, token string, data discord.InteractionResponseData) error
	EditResponseWithFile(ctx context.Context, application discord.Snowflake, token, filename string, file []byte) error
	DeleteResponse(ctx context.Context, application discord.Snowflake, token string) error
	SendChannelMessage(ctx context.Context, channel discord.Snowflake, message discord.Message) error
}

// Config wires a Router.
type Config struct {
	Profile   *profile.Profile
	Lifecycle *lifecycle.Service
	Store     registry.ChannelStore
	Client    Responder
	Developer discord.Snowflake
	Version   string
}

// Router dispatches interactions to their handlers. Interactions from
// other guilds are dropped before any handler runs.
type Router struct {
	profile   *profile.Profile
	lifecycle *lifecycle.Service
	store     registry.ChannelStore
	client    Responder
	developer discord.Snowflake
	version   string
	started   time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	mu          sync.Mutex
	application discord.Snowflake
}

// NewRouter creates a Router with a crypto-seeded word generator.
func NewRouter(cfg Config) (*Router, error) {
	seed, err := random.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("seed word generator: %w", err)
	}
	return &Router{
		profile:   cfg.Profile,
		lifecycle: cfg.Lifecycle,
		store:     cfg.Store,
		client:    cfg.Client,
		developer: cfg.Developer,
		version:   cfg.Version,
		started:   time.Now(),
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// SetApplication records the application id learned from the session
// bootstrap, needed for response edits.
func (r *Router) SetApplication(id discord.Snowflake) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.application = id
}

func (r *Router) app() discord.Snowflake {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.application
}

// newRand derives an independent generator for a single request.
// Interactions are handled concurrently, so the shared source is only
// touched under lock and never handed to a handler directly.
func (r *Router) newRand() *rand.Rand {
	r.rngMu.Lock()
	seed := r.rng.Int63()
	r.rngMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// HandleInteraction routes one inbound interaction.
func (r *Router) HandleInteraction(ctx context.Context, interaction discord.Interaction) {
	if interaction.GuildID != 0 && interaction.GuildID != r.profile.Guild {
		return
	}

	switch interaction.Type {
	case discord.InteractionTypeCommand:
		r.handleCommand(ctx, interaction)
	case discord.InteractionTypeComponent:
		switch {
		case strings.HasPrefix(interaction.Data.CustomID, createButtonPrefix):
			r.handleCreateButton(ctx, interaction)
		case interaction.Data.CustomID == deleteButtonID:
			r.handleDeleteButton(ctx, interaction)
		}
	case discord.InteractionTypeModalSubmit:
		switch {
		case strings.HasPrefix(interaction.Data.CustomID, createButtonPrefix):
			r.handleCreateModal(ctx, interaction)
		case interaction.Data.CustomID == editModalID:
			r.handleEditModal(ctx, interaction)
		}
	}
}

func (r *Router) handleCommand(ctx context.Context, interaction discord.Interaction) {
	switch interaction.Data.Name {
	case "archive":
		r.handleArchive(ctx, interaction)
	case "ban":
		r.handleBan(ctx, interaction)
	case "category":
		r.handleCategory(ctx, interaction)
	case "contributor":
		r.handleContributor(ctx, interaction)
	case "create":
		r.handleCreate(ctx, interaction)
	case "debug":
		r.handleDebug(ctx, interaction)
	case "delete":
		r.handleDelete(ctx, interaction)
	case "edit":
		r.handleEdit(ctx, interaction)
	case "fixperms":
		r.handleFixperms(ctx, interaction)
	case "migrate":
		r.handleMigrate(ctx, interaction)
	case "mode":
		r.handleMode(ctx, interaction)
	case "unban":
		r.handleUnban(ctx, interaction)
	case "viewer":
		r.handleViewer(ctx, interaction)
	case "wordgen":
		r.handleWordgen(ctx, interaction)
	}
}

func (r *Router) actor(interaction discord.Interaction) lifecycle.Actor {
	actor := lifecycle.Actor{ID: interaction.Sender().ID}
	if interaction.Member != nil {
		actor.Permissions = interaction.Member.Permissions
	}
	return actor
}

// reply edits the deferred response with plain text.
func (r *Router) reply(ctx context.Context, interaction discord.Interaction, content string) {
	err := r.client.EditResponse(ctx, r.app(), interaction.Token, discord.InteractionResponseData{Content: content})
	if err != nil {
		log.Printf("commands: edit response for %s: %v", interaction.Data.Name, err)
	}
}

// replyNoPing edits the deferred response suppressing all mention pings.
func (r *Router) replyNoPing(ctx context.Context, interaction discord.Interaction, content string) {
	err := r.client.EditResponse(ctx, r.app(), interaction.Token, discord.InteractionResponseData{
		Content:         content,
		AllowedMentions: &discord.AllowedMentions{Parse: []string{}},
	})
	if err != nil {
		log.Printf("commands: edit response for %s: %v", interaction.Data.Name, err)
	}
}

// replyError maps an operation error to a user-facing message. When silent
// failures are requested, permission and lookup failures erase the
// deferred response instead of explaining themselves.
func (r *Router) replyError(ctx context.Context, interaction discord.Interaction, err error, silentDenial bool) {
	if silentDenial && (conerrors.IsCode(err, conerrors.CodePermissionDenied) || conerrors.IsCode(err, conerrors.CodeNotFound)) {
		if deleteErr := r.client.DeleteResponse(ctx, r.app(), interaction.Token); deleteErr != nil {
			log.Printf("commands: delete response for %s: %v", interaction.Data.Name, deleteErr)
		}
		return
	}
	log.Printf("commands: %s: %v", interaction.Data.Name, err)
	r.reply(ctx, interaction, conerrors.UserMessage(err))
}

func (r *Router) deferEphemeral(ctx context.Context, interaction discord.Interaction) bool {
	if err := r.client.DeferInteraction(ctx, interaction.ID, interaction.Token); err != nil {
		log.Printf("commands: defer %s: %v", interaction.Data.Name, err)
		return false
	}
	return true
}

func (r *Router) deferPublic(ctx context.Context, interaction discord.Interaction) bool {
	if err := r.client.DeferInteractionPublic(ctx, interaction.ID, interaction.Token); err != nil {
		log.Printf("commands: defer %s: %v", interaction.Data.Name, err)
		return false
	}
	return true
}

func (r *Router) respondEphemeral(ctx context.Context, interaction discord.Interaction, content string) {
	err := r.client.RespondInteraction(ctx, interaction.ID, interaction.Token, discord.InteractionResponse{
		Type: discord.ResponseChannelMessage,
		Data: &discord.InteractionResponseData{Content: content, Flags: discord.MessageFlagEphemeral},
	})
	if err != nil {
		log.Printf("commands: respond to %s: %v", interaction.Data.Name, err)
	}
}

func (r *Router) handleCreate(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}

	var rows []discord.ActionRow
	var row []discord.Component
	for idx, category := range r.profile.Categories {
		row = append(row, discord.Component{
			Type:     discord.ComponentTypeButton,
			CustomID: createButtonPrefix + strconv.Itoa(idx),
			Label:    category.Name,
			Style:    discord.ButtonStyleSecondary,
		})
		if len(row) >= r.profile.PerRow {
			rows = append(rows, discord.NewActionRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discord.NewActionRow(row...))
	}

	message := discord.Message{
		Embeds: []discord.Embed{{
			Title:       "You can only have a max of two channels across all categories!",
			Description: "Press one of the buttons below to create a channel in the respective category",
		}},
		Components: rows,
	}
	if err := r.client.SendChannelMessage(ctx, interaction.ChannelID, message); err != nil {
		r.replyError(ctx, interaction, err, false)
		return
	}
	r.reply(ctx, interaction, "Channel creation message sent!")
}

func (r *Router) handleCreateButton(ctx context.Context, interaction discord.Interaction) {
	ok, err := r.lifecycle.CanCreate(ctx, interaction.Sender().ID)
	if err != nil {
		r.respondEphemeral(ctx, interaction, conerrors.UserMessage(err))
		return
	}
	if !ok {
		r.respondEphemeral(ctx, interaction, "You can only have a max of two channels across all categories!")
		return
	}

	required := true
	optional := false
	err = r.client.RespondInteraction(ctx, interaction.ID, interaction.Token, discord.InteractionResponse{
		Type: discord.ResponseModal,
		Data: &discord.InteractionResponseData{
			CustomID: interaction.Data.CustomID,
			Title:    "Create Channel",
			Components: []discord.ActionRow{
				discord.NewActionRow(discord.Component{
					Type:      discord.ComponentTypeTextInput,
					CustomID:  "0",
					Label:     "Name",
					Style:     discord.TextInputShort,
					Required:  &required,
					MinLength: 2,
					MaxLength: 100,
				}),
				discord.NewActionRow(discord.Component{
					Type:      discord.ComponentTypeTextInput,
					CustomID:  "1",
					Label:     "Topic",
					Style:     discord.TextInputParagraph,
					Required:  &optional,
					MaxLength: 1024,
				}),
			},
		},
	})
	if err != nil {
		log.Printf("commands: open create modal: %v", err)
	}
}

func (r *Router) handleCreateModal(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}

	idx, err := strconv.Atoi(strings.TrimPrefix(interaction.Data.CustomID, createButtonPrefix))
	if err != nil || idx < 0 || idx >= len(r.profile.Categories) {
		r.reply(ctx, interaction, "An error occurred")
		return
	}
	category := r.profile.Categories[idx]
	name := interaction.Data.TextInputValue(0)
	topic := interaction.Data.TextInputValue(1)

	channel, err := r.lifecycle.Create(ctx, interaction.Sender().ID, name, topic, category)
	if err != nil {
		r.replyError(ctx, interaction, err, false)
		return
	}
	r.reply(ctx, interaction, "Channel created: "+discord.ChannelMention(channel.ID))
}

func (r *Router) handleDelete(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}
	if err := r.lifecycle.RequestDelete(ctx, r.actor(interaction), interaction.ChannelID); err != nil {
		r.replyError(ctx, interaction, err, false)
		return
	}
	err := r.client.EditResponse(ctx, r.app(), interaction.Token, discord.InteractionResponseData{
		Content: "Are you sure you want to delete this channel?",
		Components: []discord.ActionRow{
			discord.NewActionRow(discord.Component{
				Type:     discord.ComponentTypeButton,
				CustomID: deleteButtonID,
				Label:    "Yes, delete",
				Style:    discord.ButtonStyleDanger,
			}),
		},
	})
	if err != nil {
		log.Printf("commands: edit delete response: %v", err)
	}
}

func (r *Router) handleDeleteButton(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}
	if err := r.lifecycle.ConfirmDelete(ctx, r.actor(interaction), interaction.ChannelID); err != nil {
		r.replyError(ctx, interaction, err, false)
		return
	}
	r.reply(ctx, interaction, "Deleting channel…")
}

func (r *Router) handleEdit(ctx context.Context, interaction discord.Interaction) {
	live, err := r.lifecycle.ChannelForEdit(ctx, r.actor(interaction), interaction.ChannelID)
	if err != nil {
		respondErr := r.client.RespondInteraction(ctx, interaction.ID, interaction.Token, discord.InteractionResponse{
			Type: discord.ResponseChannelMessage,
			Data: &discord.InteractionResponseData{
				Content: conerrors.UserMessage(err),
				Flags:   discord.MessageFlagEphemeral,
			},
		})
		if respondErr != nil {
			log.Printf("commands: respond to edit: %v", respondErr)
		}
		return
	}

	required := true
	optional := false
	err = r.client.RespondInteraction(ctx, interaction.ID, interaction.Token, discord.InteractionResponse{
		Type: discord.ResponseModal,
		Data: &discord.InteractionResponseData{
			CustomID: editModalID,
			Title:    "Edit Channel",
			Components: []discord.ActionRow{
				discord.NewActionRow(discord.Component{
					Type:      discord.ComponentTypeTextInput,
					CustomID:  "0",
					Label:     "Name",
					Style:     discord.TextInputShort,
					Required:  &required,
					MinLength: 2,
					MaxLength: 100,
					Value:     live.Name,
				}),
				discord.NewActionRow(discord.Component{
					Type:      discord.ComponentTypeTextInput,
					CustomID:  "1",
					Label:     "Topic",
					Style:     discord.TextInputParagraph,
					Required:  &optional,
					MaxLength: 1024,
					Value:     live.Topic,
				}),
			},
		},
	})
	if err != nil {
		log.Printf("commands: open edit modal: %v", err)
	}
}

func (r *Router) handleEditModal(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}
	name := interaction.Data.TextInputValue(0)
	topic := interaction.Data.TextInputValue(1)
	if err := r.lifecycle.Edit(ctx, r.actor(interaction), interaction.ChannelID, name, topic); err != nil {
		r.replyError(ctx, interaction, err, false)
		return
	}
	r.reply(ctx, interaction, "Channel edited!")
}

func (r *Router) handleArchive(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}
	action, err := r.lifecycle.ToggleArchive(ctx, r.actor(interaction), interaction.ChannelID)
	if err != nil {
		r.replyError(ctx, interaction, err, false)
		return
	}
	if action.Archived {
		r.reply(ctx, interaction, "The channel has been archived")
	} else {
		r.reply(ctx, interaction, "The channel has been unarchived")
	}
}

func (r *Router) handleCategory(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}
	if len(interaction.Data.Options) == 0 {
		r.reply(ctx, interaction, "No such category")
		return
	}
	category, err := r.lifecycle.SetCategory(ctx, r.actor(interaction), interaction.ChannelID, interaction.Data.Options[0].Name)
	if err != nil {
		r.replyError(ctx, interaction, err, false)
		return
	}
	r.reply(ctx, interaction, fmt.Sprintf("The channel now belongs to the %s category", category.Name))
}

func (r *Router) handleMode(ctx context.Context, interaction discord.Interaction) {
	if !r.deferPublic(ctx, interaction) {
		return
	}
	if len(interaction.Data.Options) == 0 {
		r.replyError(ctx, interaction, conerrors.New(conerrors.CodeUnknown, "missing mode subcommand"), true)
		return
	}
	mode, ok := acl.ParseMode(interaction.Data.Options[0].Name)
	if !ok {
		r.replyError(ctx, interaction, conerrors.New(conerrors.CodeUnknown, "unknown mode"), true)
		return
	}
	if err := r.lifecycle.SetMode(ctx, r.actor(interaction), interaction.ChannelID, mode); err != nil {
		r.replyError(ctx, interaction, err, true)
		return
	}
	r.reply(ctx, interaction, "The channel is now "+acl.Describe(mode))
}

func (r *Router) handleBan(ctx context.Context, interaction discord.Interaction) {
	if !r.deferPublic(ctx, interaction) {
		return
	}
	if len(interaction.Data.Options) == 0 {
		return
	}
	target := interaction.Data.Options[0].SnowflakeValue()
	if err := r.lifecycle.Ban(ctx, r.actor(interaction), interaction.ChannelID, target); err != nil {
		r.replyError(ctx, interaction, err, true)
		return
	}
	r.replyNoPing(ctx, interaction, "User banned: "+discord.Mention(target))
}

func (r *Router) handleUnban(ctx context.Context, interaction discord.Interaction) {
	if !r.deferPublic(ctx, interaction) {
		return
	}
	if len(interaction.Data.Options) == 0 {
		return
	}
	target := interaction.Data.Options[0].SnowflakeValue()
	if err := r.lifecycle.Unban(ctx, r.actor(interaction), interaction.ChannelID, target); err != nil {
		r.replyError(ctx, interaction, err, true)
		return
	}
	r.replyNoPing(ctx, interaction, "User unbanned: "+discord.Mention(target))
}

// subcommandUser extracts the user option of an add/remove subcommand.
func subcommandUser(interaction discord.Interaction) (action string, target discord.Snowflake, ok bool) {
	if len(interaction.Data.Options) == 0 {
		return "", 0, false
	}
	sub := interaction.Data.Options[0]
	if len(sub.Options) == 0 {
		return "", 0, false
	}
	return sub.Name, sub.Options[0].SnowflakeValue(), true
}

func (r *Router) handleViewer(ctx context.Context, interaction discord.Interaction) {
	if !r.deferPublic(ctx, interaction) {
		return
	}
	action, target, ok := subcommandUser(interaction)
	if !ok {
		return
	}
	switch action {
	case "add":
		if err := r.lifecycle.AddViewer(ctx, r.actor(interaction), interaction.ChannelID, target); err != nil {
			r.replyError(ctx, interaction, err, true)
			return
		}
		r.replyNoPing(ctx, interaction, "Viewer added: "+discord.Mention(target))
	case "remove":
		if err := r.lifecycle.RemoveViewer(ctx, r.actor(interaction), interaction.ChannelID, target); err != nil {
			r.replyError(ctx, interaction, err, true)
			return
		}
		r.replyNoPing(ctx, interaction, "Viewer removed: "+discord.Mention(target))
	}
}

func (r *Router) handleContributor(ctx context.Context, interaction discord.Interaction) {
	if !r.deferPublic(ctx, interaction) {
		return
	}
	action, target, ok := subcommandUser(interaction)
	if !ok {
		return
	}
	switch action {
	case "add":
		if err := r.lifecycle.SetCollaborator(ctx, r.actor(interaction), interaction.ChannelID, target); err != nil {
			r.replyError(ctx, interaction, err, true)
			return
		}
		r.replyNoPing(ctx, interaction, "Contributor added: "+discord.Mention(target))
	case "remove":
		if err := r.lifecycle.RemoveViewer(ctx, r.actor(interaction), interaction.ChannelID, target); err != nil {
			r.replyError(ctx, interaction, err, true)
			return
		}
		r.replyNoPing(ctx, interaction, "Contributor removed: "+discord.Mention(target))
	}
}

func (r *Router) handleFixperms(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}
	if err := r.lifecycle.FixPerms(ctx, r.actor(interaction), interaction.ChannelID); err != nil {
		r.replyError(ctx, interaction, err, false)
		return
	}
	r.reply(ctx, interaction, "Fixed permissions")
}

func (r *Router) handleWordgen(ctx context.Context, interaction discord.Interaction) {
	if !r.deferPublic(ctx, interaction) {
		return
	}

	req := wordgen.Request{Categories: make(map[rune][]string)}
	for _, option := range interaction.Data.Options {
		switch {
		case option.Name == "amount":
			req.Amount = int(option.IntValue())
		case option.Name == "min-syllables":
			req.MinSyllables = int(option.IntValue())
		case option.Name == "max-syllables":
			req.MaxSyllables = int(option.IntValue())
		case option.Name == "syllable":
			req.Pattern = option.StringValue()
		case strings.HasPrefix(option.Name, "category-"):
			name, letters, err := wordgen.ParseCategory(option.StringValue())
			if err != nil {
				r.reply(ctx, interaction, err.Error())
				return
			}
			req.Categories[name] = letters
		}
	}

	words, err := wordgen.Generate(r.newRand(), req)
	if err != nil {
		r.reply(ctx, interaction, err.Error())
		return
	}
	if err := r.client.EditResponseWithFile(ctx, r.app(), interaction.Token, "wordlist.txt", []byte(words)); err != nil {
		log.Printf("commands: attach word list: %v", err)
	}
}

func (r *Router) handleMigrate(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}
	if interaction.Sender().ID != r.developer {
		r.reply(ctx, interaction, "You are not allowed to use this command")
		return
	}
	if len(interaction.Data.Options) == 0 || interaction.Data.Options[0].Name != "funky_text" {
		r.reply(ctx, interaction, "Type not implemented")
		return
	}
	sub := interaction.Data.Options[0]
	if len(sub.Options) == 0 {
		r.reply(ctx, interaction, "Path not provided")
		return
	}
	path := sub.Options[0].StringValue()

	start := time.Now()
	summary, err := importer.ImportDir(ctx, r.store, path)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		r.reply(ctx, interaction, fmt.Sprintf("Migration failed after %d ms: %v", elapsed, err))
		return
	}
	for _, importErr := range summary.Errors {
		log.Printf("commands: migrate: %v", importErr)
	}
	r.reply(ctx, interaction, fmt.Sprintf(
		"Migration successful (took %d ms): %d imported, %d skipped, %d errors, check console for warnings",
		elapsed, summary.Imported, summary.Skipped, len(summary.Errors)))
}

func (r *Router) handleDebug(ctx context.Context, interaction discord.Interaction) {
	if !r.deferEphemeral(ctx, interaction) {
		return
	}
	if interaction.Sender().ID != r.developer {
		r.reply(ctx, interaction, "You are not allowed to use this command")
		return
	}
	err := r.client.EditResponse(ctx, r.app(), interaction.Token, discord.InteractionResponseData{
		Embeds: []discord.Embed{{
			Title: "Bot Information",
			Fields: []discord.EmbedField{
				{Name: "Version", Value: r.version, Inline: true},
				{Name: "Uptime", Value: time.Since(r.started).Truncate(time.Second).String(), Inline: true},
				{Name: "Profile Name", Value: r.profile.Name, Inline: true},
				{Name: "Guild", Value: r.profile.Guild.String(), Inline: true},
			},
		}},
	})
	if err != nil {
		log.Printf("commands: edit debug response: %v", err)
	}
}
