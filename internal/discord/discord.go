// Package discord defines the wire types the bot exchanges with the
// Discord platform. IDs and permission sets are 64-bit unsigned integers
// that the platform serializes as decimal strings.
package discord

import (
	"bytes"
	"fmt"
	"strconv"
)

// Snowflake is a platform-assigned 64-bit unsigned identifier.
type Snowflake uint64

// ParseSnowflake parses a decimal string id.
func ParseSnowflake(value string) (Snowflake, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snowflake %q: %w", value, err)
	}
	return Snowflake(id), nil
}

// String returns the decimal representation used on the wire.
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// MarshalJSON encodes the snowflake as a decimal string.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts a decimal string, a bare number, or null.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	id, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("unmarshal snowflake: %w", err)
	}
	*s = Snowflake(id)
	return nil
}

// Permissions is a bitset of channel capabilities.
type Permissions uint64

// Permission bits, numbered as the platform numbers them.
const (
	PermissionAdministrator         Permissions = 1 << 3
	PermissionManageChannels        Permissions = 1 << 4
	PermissionAddReactions          Permissions = 1 << 6
	PermissionViewChannel           Permissions = 1 << 10
	PermissionSendMessages          Permissions = 1 << 11
	PermissionManageMessages        Permissions = 1 << 13
	PermissionManageThreads         Permissions = 1 << 34
	PermissionCreatePublicThreads   Permissions = 1 << 35
	PermissionCreatePrivateThreads  Permissions = 1 << 36
	PermissionSendMessagesInThreads Permissions = 1 << 38
)

// Has reports whether every bit in mask is set.
func (p Permissions) Has(mask Permissions) bool {
	return p&mask == mask
}

// MarshalJSON encodes the bitset as a decimal string.
func (p Permissions) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(p), 10) + `"`), nil
}

// UnmarshalJSON accepts a decimal string, a bare number, or null.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*p = 0
		return nil
	}
	bits, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("unmarshal permissions: %w", err)
	}
	*p = Permissions(bits)
	return nil
}

// OverwriteType distinguishes role from member overwrites.
type OverwriteType int

const (
	OverwriteRole   OverwriteType = 0
	OverwriteMember OverwriteType = 1
)

// Overwrite is one allow/deny ACL entry on a channel.
type Overwrite struct {
	ID    Snowflake     `json:"id"`
	Type  OverwriteType `json:"type"`
	Allow Permissions   `json:"allow"`
	Deny  Permissions   `json:"deny"`
}

// ChannelType values used by the bot.
type ChannelType int

const (
	ChannelTypeGuildText     ChannelType = 0
	ChannelTypeGuildCategory ChannelType = 4
)

// Channel is the live platform view of a guild channel.
type Channel struct {
	ID         Snowflake   `json:"id"`
	GuildID    Snowflake   `json:"guild_id,omitempty"`
	Type       ChannelType `json:"type"`
	Name       string      `json:"name,omitempty"`
	Topic      string      `json:"topic,omitempty"`
	ParentID   Snowflake   `json:"parent_id,omitempty"`
	Position   int         `json:"position"`
	Overwrites []Overwrite `json:"permission_overwrites,omitempty"`
}

// User is a platform account.
type User struct {
	ID       Snowflake `json:"id"`
	Username string    `json:"username,omitempty"`
	Bot      bool      `json:"bot,omitempty"`
}

// Member is a user's guild membership, including resolved permissions
// when delivered inside an interaction.
type Member struct {
	User        User        `json:"user"`
	Roles       []Snowflake `json:"roles,omitempty"`
	Permissions Permissions `json:"permissions,omitempty"`
}

// ChannelPosition is one entry of a bulk reorder instruction.
type ChannelPosition struct {
	ID       Snowflake `json:"id"`
	Position int       `json:"position"`
}
