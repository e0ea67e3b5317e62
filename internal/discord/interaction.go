package discord

import (
	"encoding/json"
	"strconv"
)

// InteractionType discriminates inbound interactions.
type InteractionType int

const (
	InteractionTypePing         InteractionType = 1
	InteractionTypeCommand      InteractionType = 2
	InteractionTypeComponent    InteractionType = 3
	InteractionTypeAutocomplete InteractionType = 4
	InteractionTypeModalSubmit  InteractionType = 5
)

// Interaction is one inbound command, component, or modal event.
type Interaction struct {
	ID        Snowflake       `json:"id"`
	Type      InteractionType `json:"type"`
	Token     string          `json:"token"`
	GuildID   Snowflake       `json:"guild_id,omitempty"`
	ChannelID Snowflake       `json:"channel_id,omitempty"`
	Member    *Member         `json:"member,omitempty"`
	User      *User           `json:"user,omitempty"`
	Data      InteractionData `json:"data"`
}

// Sender returns the invoking user, whether the interaction arrived from a
// guild (member) or a direct message (user).
func (i Interaction) Sender() User {
	if i.Member != nil {
		return i.Member.User
	}
	if i.User != nil {
		return *i.User
	}
	return User{}
}

// InteractionData carries the command name, component id, and inputs.
type InteractionData struct {
	Name       string          `json:"name,omitempty"`
	CustomID   string          `json:"custom_id,omitempty"`
	Options    []CommandOption `json:"options,omitempty"`
	Components []ActionRow     `json:"components,omitempty"`
}

// CommandOption is one submitted command option or subcommand.
type CommandOption struct {
	Name    string          `json:"name"`
	Type    int             `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	Options []CommandOption `json:"options,omitempty"`
}

// StringValue decodes the option value as a string.
func (o CommandOption) StringValue() string {
	var value string
	if err := json.Unmarshal(o.Value, &value); err != nil {
		return ""
	}
	return value
}

// IntValue decodes the option value as an integer.
func (o CommandOption) IntValue() int64 {
	var value int64
	if err := json.Unmarshal(o.Value, &value); err != nil {
		return 0
	}
	return value
}

// SnowflakeValue decodes the option value as an id. User options arrive
// as decimal strings.
func (o CommandOption) SnowflakeValue() Snowflake {
	id, err := ParseSnowflake(o.StringValue())
	if err != nil {
		return 0
	}
	return id
}

// Component type discriminators.
const (
	ComponentTypeActionRow = 1
	ComponentTypeButton    = 2
	ComponentTypeTextInput = 4
)

// Button styles.
const (
	ButtonStyleSecondary = 2
	ButtonStyleDanger    = 4
)

// Text input styles.
const (
	TextInputShort     = 1
	TextInputParagraph = 2
)

// ActionRow is one row of message or modal components.
type ActionRow struct {
	Type       int         `json:"type"`
	Components []Component `json:"components"`
}

// NewActionRow builds a row around the given components.
func NewActionRow(components ...Component) ActionRow {
	return ActionRow{Type: ComponentTypeActionRow, Components: components}
}

// Component is a button or text input.
type Component struct {
	Type      int    `json:"type"`
	CustomID  string `json:"custom_id,omitempty"`
	Label     string `json:"label,omitempty"`
	Style     int    `json:"style,omitempty"`
	Required  *bool  `json:"required,omitempty"`
	MinLength int    `json:"min_length,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
	Value     string `json:"value,omitempty"`
}

// TextInputValue returns the submitted value of the text input at the given
// modal row, or "" when the row is absent.
func (d InteractionData) TextInputValue(row int) string {
	if row < 0 || row >= len(d.Components) {
		return ""
	}
	if len(d.Components[row].Components) == 0 {
		return ""
	}
	return d.Components[row].Components[0].Value
}

// Interaction response types.
const (
	ResponseChannelMessage  = 4
	ResponseDeferredMessage = 5
	ResponseModal           = 9
)

// MessageFlagEphemeral marks a reply visible only to the invoker.
const MessageFlagEphemeral = 1 << 6

// InteractionResponse is the immediate answer to an interaction.
type InteractionResponse struct {
	Type int                      `json:"type"`
	Data *InteractionResponseData `json:"data,omitempty"`
}

// InteractionResponseData is the payload of a response or follow-up edit.
type InteractionResponseData struct {
	Content         string           `json:"content,omitempty"`
	Title           string           `json:"title,omitempty"`
	CustomID        string           `json:"custom_id,omitempty"`
	Flags           int              `json:"flags,omitempty"`
	Embeds          []Embed          `json:"embeds,omitempty"`
	Components      []ActionRow      `json:"components,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
}

// AllowedMentions limits which mentions in a reply ping. The zero value
// suppresses all pings.
type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// Embed is a rich message block.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedField is one titled embed entry.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Message is an outbound channel message.
type Message struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []Embed     `json:"embeds,omitempty"`
	Components []ActionRow `json:"components,omitempty"`
}

// ApplicationCommand is a slash command registration payload.
type ApplicationCommand struct {
	Name                     string                     `json:"name"`
	Description              string                     `json:"description"`
	Options                  []ApplicationCommandOption `json:"options,omitempty"`
	DefaultMemberPermissions *Permissions               `json:"default_member_permissions,omitempty"`
	DMPermission             *bool                      `json:"dm_permission,omitempty"`
}

// Application command option types.
const (
	OptionSubCommand = 1
	OptionString     = 3
	OptionInteger    = 4
	OptionUser       = 6
)

// ApplicationCommandOption is one declared option or subcommand.
type ApplicationCommandOption struct {
	Type        int                        `json:"type"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Required    bool                       `json:"required,omitempty"`
	MinValue    *int64                     `json:"min_value,omitempty"`
	MaxValue    *int64                     `json:"max_value,omitempty"`
	MinLength   int                        `json:"min_length,omitempty"`
	MaxLength   int                        `json:"max_length,omitempty"`
	Options     []ApplicationCommandOption `json:"options,omitempty"`
}

// Mention formats a user mention.
func Mention(id Snowflake) string {
	return "<@" + id.String() + ">"
}

// ChannelMention formats a channel mention.
func ChannelMention(id Snowflake) string {
	return "<#" + strconv.FormatUint(uint64(id), 10) + ">"
}
