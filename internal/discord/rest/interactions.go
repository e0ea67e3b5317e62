package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/aurelwyn/conclave/internal/discord"
)

// RespondInteraction sends the initial callback for an interaction.
func (c *Client) RespondInteraction(ctx context.Context, id discord.Snowflake, token string, response discord.InteractionResponse) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/interactions/%s/%s/callback", id, token), response, nil)
}

// DeferInteraction acknowledges an interaction with a deferred ephemeral
// message so a slow handler can edit the response later.
func (c *Client) DeferInteraction(ctx context.Context, id discord.Snowflake, token string) error {
	return c.RespondInteraction(ctx, id, token, discord.InteractionResponse{
		Type: discord.ResponseDeferredMessage,
		Data: &discord.InteractionResponseData{Flags: discord.MessageFlagEphemeral},
	})
}

// DeferInteractionPublic acknowledges an interaction with a deferred
// message visible to the whole channel.
func (c *Client) DeferInteractionPublic(ctx context.Context, id discord.Snowflake, token string) error {
	return c.RespondInteraction(ctx, id, token, discord.InteractionResponse{
		Type: discord.ResponseDeferredMessage,
	})
}

// EditResponse replaces the deferred or original response of an
// interaction.
func (c *Client) EditResponse(ctx context.Context, application discord.Snowflake, token string, data discord.InteractionResponseData) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/webhooks/%s/%s/messages/@original", application, token), data, nil)
}

// EditResponseWithFile replaces the interaction response with a message
// carrying one file attachment.
func (c *Client) EditResponseWithFile(ctx context.Context, application discord.Snowflake, token, filename string, file []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	payload := struct {
		Attachments []struct {
			ID       int    `json:"id"`
			Filename string `json:"filename"`
		} `json:"attachments"`
	}{
		Attachments: []struct {
			ID       int    `json:"id"`
			Filename string `json:"filename"`
		}{{ID: 0, Filename: filename}},
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode attachment payload: %w", err)
	}
	if err := writer.WriteField("payload_json", string(payloadJSON)); err != nil {
		return fmt.Errorf("write payload field: %w", err)
	}
	part, err := writer.CreateFormFile("files[0]", filename)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	path := fmt.Sprintf("/webhooks/%s/%s/messages/@original", application, token)
	return c.doRaw(ctx, http.MethodPatch, path, writer.FormDataContentType(), buf.Bytes(), nil)
}

// DeleteResponse removes the original interaction response. Used when a
// deferred acknowledgment should leave no trace after a rejected request.
func (c *Client) DeleteResponse(ctx context.Context, application discord.Snowflake, token string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/webhooks/%s/%s/messages/@original", application, token), nil, nil)
}

// RegisterCommands overwrites the guild's application command set.
func (c *Client) RegisterCommands(ctx context.Context, application discord.Snowflake, commands []discord.ApplicationCommand) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/applications/%s/guilds/%s/commands", application, c.guildID), commands, nil)
}
