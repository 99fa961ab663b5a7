// Package discord provides a built-in unit holding a Discord bot session.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Bot is the unit instance backing the "discord" factory.
type Bot struct {
	token   string
	session *discordgo.Session
}

// New builds the unit from its spec. Config keys: "token" (required).
func New(_ context.Context, spec *unit.Spec) (unit.Unit, error) {
	token := spec.ConfigString("token", "")
	if token == "" {
		return nil, fmt.Errorf("unit '%s': config key 'token' is required", spec.Name)
	}
	return &Bot{token: token}, nil
}

// Load implements unit.Unit. The gateway connection is opened here so the
// loader's timeout and retry policy govern it.
func (b *Bot) Load(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	session, err := discordgo.New("Bot " + b.token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	logger.Info("Discord session open.", "user", session.State.User.Username)

	b.session = session
	return nil
}

// Unload implements unit.Unit.
func (b *Bot) Unload(context.Context) error {
	if b.session != nil {
		err := b.session.Close()
		b.session = nil
		return err
	}
	return nil
}

// Capabilities implements unit.Unit.
func (b *Bot) Capabilities() []unit.Capability {
	return []unit.Capability{
		{
			Name:        "send-message",
			Description: "Send a message to a channel.",
			Handler:     b.sendMessage,
		},
	}
}

// Describe implements unit.Describer.
func (b *Bot) Describe() unit.Metadata {
	return unit.Metadata{Version: "1.0.0", Description: "discord bot session"}
}

func (b *Bot) sendMessage(_ context.Context, args map[string]any) (any, error) {
	if b.session == nil {
		return nil, fmt.Errorf("discord session is not open")
	}
	channelID, _ := args["channel_id"].(string)
	content, _ := args["content"].(string)
	if channelID == "" || content == "" {
		return nil, fmt.Errorf("arguments 'channel_id' and 'content' are required")
	}
	msg, err := b.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg.ID, nil
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFactory("discord", New)
}
