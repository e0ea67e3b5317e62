package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aurelwyn/conclave/internal/discord"
)

type recordingHandler struct {
	readies      []Ready
	interactions []discord.Interaction
	deletions    []discord.Channel
}

func (h *recordingHandler) HandleReady(_ context.Context, ready Ready) {
	h.readies = append(h.readies, ready)
}

func (h *recordingHandler) HandleInteraction(_ context.Context, interaction discord.Interaction) {
	h.interactions = append(h.interactions, interaction)
}

func (h *recordingHandler) HandleChannelDelete(_ context.Context, channel discord.Channel) {
	h.deletions = append(h.deletions, channel)
}

func dispatchRaw(t *testing.T, handler Handler, eventType, data string) {
	t.Helper()
	s := NewSession("token", handler)
	s.dispatch(context.Background(), payload{
		Op:   opDispatch,
		Type: eventType,
		Data: json.RawMessage(data),
	})
}

func TestDispatchReady(t *testing.T) {
	handler := &recordingHandler{}
	dispatchRaw(t, handler, "READY", `{
		"session_id": "abc",
		"user": {"id": "55", "username": "conclave", "bot": true},
		"application": {"id": "900"}
	}`)

	if len(handler.readies) != 1 {
		t.Fatalf("readies = %d, want 1", len(handler.readies))
	}
	ready := handler.readies[0]
	if ready.SessionID != "abc" || ready.User.ID != 55 || ready.Application != 900 {
		t.Fatalf("ready = %+v", ready)
	}
}

func TestDispatchInteraction(t *testing.T) {
	handler := &recordingHandler{}
	dispatchRaw(t, handler, "INTERACTION_CREATE", `{
		"id": "500",
		"type": 2,
		"token": "tok",
		"guild_id": "1",
		"channel_id": "100",
		"member": {
			"user": {"id": "7", "username": "ana"},
			"permissions": "16"
		},
		"data": {"name": "archive"}
	}`)

	if len(handler.interactions) != 1 {
		t.Fatalf("interactions = %d, want 1", len(handler.interactions))
	}
	interaction := handler.interactions[0]
	if interaction.ID != 500 || interaction.Data.Name != "archive" {
		t.Fatalf("interaction = %+v", interaction)
	}
	if interaction.Sender().ID != 7 {
		t.Fatalf("sender = %+v, want user 7", interaction.Sender())
	}
	if !interaction.Member.Permissions.Has(discord.PermissionManageChannels) {
		t.Fatal("member permissions should include manage channels")
	}
}

func TestDispatchChannelDelete(t *testing.T) {
	handler := &recordingHandler{}
	dispatchRaw(t, handler, "CHANNEL_DELETE", `{"id": "100", "guild_id": "1", "name": "toki"}`)

	if len(handler.deletions) != 1 || handler.deletions[0].ID != 100 {
		t.Fatalf("deletions = %+v, want channel 100", handler.deletions)
	}
}

func TestDispatchIgnoresUnknownAndMalformed(t *testing.T) {
	handler := &recordingHandler{}
	dispatchRaw(t, handler, "GUILD_CREATE", `{"id": "1"}`)
	dispatchRaw(t, handler, "INTERACTION_CREATE", `{not json`)

	if len(handler.readies)+len(handler.interactions)+len(handler.deletions) != 0 {
		t.Fatalf("handler = %+v, want nothing dispatched", handler)
	}
}
