package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aurelwyn/conclave/internal/discord"
)

type createChannelBody struct {
	Name       string              `json:"name"`
	Type       discord.ChannelType `json:"type"`
	Topic      string              `json:"topic,omitempty"`
	ParentID   discord.Snowflake   `json:"parent_id,omitempty"`
	Overwrites []discord.Overwrite `json:"permission_overwrites,omitempty"`
}

type editChannelBody struct {
	Name     *string            `json:"name,omitempty"`
	Topic    *string            `json:"topic,omitempty"`
	ParentID *discord.Snowflake `json:"parent_id,omitempty"`
}

// CreateChannel creates a guild text channel.
func (c *Client) CreateChannel(ctx context.Context, params discord.CreateChannelParams) (discord.Channel, error) {
	body := createChannelBody{
		Name:       params.Name,
		Type:       discord.ChannelTypeGuildText,
		Topic:      params.Topic,
		ParentID:   params.Parent,
		Overwrites: params.Overwrites,
	}
	var channel discord.Channel
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/guilds/%s/channels", c.guildID), body, &channel)
	return channel, err
}

// Channel fetches a channel by id.
func (c *Client) Channel(ctx context.Context, id discord.Snowflake) (discord.Channel, error) {
	var channel discord.Channel
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%s", id), nil, &channel)
	return channel, err
}

// EditChannel patches a channel. Nil fields are left unchanged.
func (c *Client) EditChannel(ctx context.Context, id discord.Snowflake, params discord.EditChannelParams) (discord.Channel, error) {
	body := editChannelBody{Name: params.Name, Topic: params.Topic, ParentID: params.Parent}
	var channel discord.Channel
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/channels/%s", id), body, &channel)
	return channel, err
}

// DeleteChannel removes a channel.
func (c *Client) DeleteChannel(ctx context.Context, id discord.Snowflake) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s", id), nil, nil)
}

// ChildChannels lists the guild channels parented to the given container.
func (c *Client) ChildChannels(ctx context.Context, parent discord.Snowflake) ([]discord.Channel, error) {
	var all []discord.Channel
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/channels", c.guildID), nil, &all); err != nil {
		return nil, err
	}
	var children []discord.Channel
	for _, channel := range all {
		if channel.ParentID == parent {
			children = append(children, channel)
		}
	}
	return children, nil
}

// ReorderChannels applies new positions to guild channels in one call.
func (c *Client) ReorderChannels(ctx context.Context, positions []discord.ChannelPosition) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/guilds/%s/channels", c.guildID), positions, nil)
}

type overwriteBody struct {
	Type  discord.OverwriteType `json:"type"`
	Allow discord.Permissions   `json:"allow"`
	Deny  discord.Permissions   `json:"deny"`
}

// SetOverwrite creates or replaces a permission overwrite on a channel.
func (c *Client) SetOverwrite(ctx context.Context, channel discord.Snowflake, overwrite discord.Overwrite) error {
	body := overwriteBody{Type: overwrite.Type, Allow: overwrite.Allow, Deny: overwrite.Deny}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/channels/%s/permissions/%s", channel, overwrite.ID), body, nil)
}

// RemoveOverwrite deletes a principal's overwrite from a channel.
func (c *Client) RemoveOverwrite(ctx context.Context, channel, principal discord.Snowflake) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/permissions/%s", channel, principal), nil, nil)
}

// User fetches a user by id.
func (c *Client) User(ctx context.Context, id discord.Snowflake) (discord.User, error) {
	var user discord.User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%s", id), nil, &user)
	return user, err
}

// AddMemberRole grants a role to a guild member.
func (c *Client) AddMemberRole(ctx context.Context, user, role discord.Snowflake) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/guilds/%s/members/%s/roles/%s", c.guildID, user, role), nil, nil)
}

// CreateMessage posts a plain message to a channel.
func (c *Client) CreateMessage(ctx context.Context, channel discord.Snowflake, content string) error {
	return c.SendChannelMessage(ctx, channel, discord.Message{Content: content})
}

// SendChannelMessage posts a message with embeds or components.
func (c *Client) SendChannelMessage(ctx context.Context, channel discord.Snowflake, message discord.Message) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channel), message, nil)
}
