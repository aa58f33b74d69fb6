package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/majstudio/community-bot/internal/platform"
)

// responder answers one interaction.
type responder struct {
	dg *discordgo.Session
	in *discordgo.Interaction

	mu    sync.Mutex
	acked bool
}

func newResponder(dg *discordgo.Session, in *discordgo.Interaction) *responder {
	return &responder{dg: dg, in: in}
}

func (r *responder) respond(ctx context.Context, resp *discordgo.InteractionResponse) error {
	if err := r.dg.InteractionRespond(r.in, resp, discordgo.WithContext(ctx)); err != nil {
		return translateError(err)
	}
	r.mu.Lock()
	r.acked = true
	r.mu.Unlock()
	return nil
}

func (r *responder) Reply(ctx context.Context, msg platform.Message, ephemeral bool) error {
	return r.respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: toResponseData(msg, ephemeral),
	})
}

func (r *responder) Defer(ctx context.Context, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return r.respond(ctx, resp)
}

func (r *responder) Edit(ctx context.Context, msg platform.Message) error {
	_, err := r.dg.InteractionResponseEdit(r.in, toWebhookEdit(msg), discordgo.WithContext(ctx))
	return translateError(err)
}

func (r *responder) FollowUp(ctx context.Context, msg platform.Message, ephemeral bool) error {
	params := &discordgo.WebhookParams{
		Content: msg.Content,
		Embeds:  toEmbeds(msg.Embeds),
		Files:   toFiles(msg.Files),
	}
	if len(msg.Buttons) > 0 {
		params.Components = toComponents(msg.Buttons)
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.dg.FollowupMessageCreate(r.in, true, params, discordgo.WithContext(ctx))
	return translateError(err)
}

func (r *responder) Update(ctx context.Context, msg platform.Message) error {
	return r.respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: toResponseData(msg, false),
	})
}

func (r *responder) ShowModal(ctx context.Context, modal platform.Modal) error {
	return r.respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: toModal(modal),
	})
}

func (r *responder) Acknowledged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked
}

var _ platform.Responder = (*responder)(nil)
