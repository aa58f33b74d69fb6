package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/events"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/platform"
	"github.com/majstudio/community-bot/internal/repository"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

// PurgeWindow is how many recent messages are inspected after each answer.
const PurgeWindow = 10

var errNotAsking = errors.New("ticket is not waiting for an answer")

// FormService drives the guided question flow of partnership and join tickets.
type FormService struct {
	platform   platform.Platform
	tickets    repository.TicketRepository
	closer     *TicketCloser
	recorder   ActionRecorder
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// FormDependencies bundles collaborators for the form engine.
type FormDependencies struct {
	Platform   platform.Platform
	TicketRepo repository.TicketRepository
	Closer     *TicketCloser
	Recorder   ActionRecorder
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewFormService constructs the form engine.
func NewFormService(deps FormDependencies) *FormService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormService{
		platform:   deps.Platform,
		tickets:    deps.TicketRepo,
		closer:     deps.Closer,
		recorder:   deps.Recorder,
		dispatcher: deps.Dispatcher,
		logger:     logger.Named("forms"),
		now:        time.Now,
	}
}

// Start moves a fresh ticket to its first question and posts the intro.
func (s *FormService) Start(ctx context.Context, channel platform.Channel, member domain.Member, ticketType domain.TicketType) error {
	form, ok := domain.FormFor(ticketType)
	if !ok {
		return errorutil.NewValidationError(fmt.Sprintf("%s tickets have no form", ticketType), nil)
	}
	err := s.tickets.Update(ctx, func(tickets map[string]domain.Ticket) error {
		ticket, ok := tickets[channel.ID]
		if !ok {
			return errorutil.NewNotFound("Ticket", map[string]any{"channelId": channel.ID})
		}
		ticket.CurrentStep = form.FirstStep()
		ticket.FormData = map[string]string{}
		tickets[channel.ID] = ticket
		return nil
	})
	if err != nil {
		return err
	}

	intro := platform.Embed{
		Title:       form.IntroTitle,
		Description: fmt.Sprintf("Hello %s! %s", member.Mention(), form.IntroDescription),
		Color:       form.Color,
		Fields:      []platform.Field{{Name: "📋 Process", Value: form.IntroProcess}},
		Timestamp:   platform.Now(),
	}
	if _, err := s.platform.SendMessage(ctx, channel.ID, platform.Cards(intro)); err != nil {
		return err
	}
	return s.ask(ctx, channel.ID, form, form.FirstStep())
}

func (s *FormService) ask(ctx context.Context, channelID string, form domain.FormDefinition, stepKey string) error {
	step, ok := form.Step(stepKey)
	if !ok {
		return fmt.Errorf("unknown step %q", stepKey)
	}
	_, err := s.platform.SendMessage(ctx, channelID, platform.Cards(platform.Embed{
		Title:       form.QuestionTitle,
		Description: fmt.Sprintf("**%s**\n\nPlease type your answer below:", step.Question),
		Color:       form.Color,
		Footer:      form.QuestionFooter,
		Timestamp:   platform.Now(),
	}))
	return err
}

// HandleMessage records msg as the answer to the current question. Messages from
// bots, outside ticket channels, or in tickets not waiting for an answer are ignored.
func (s *FormService) HandleMessage(ctx context.Context, msg platform.ChatMessage) error {
	if msg.Author.Bot {
		return nil
	}
	ticket, ok := s.tickets.Get(ctx, msg.ChannelID)
	if !ok || !ticket.InProgress() {
		return nil
	}
	form, ok := domain.FormFor(ticket.Type)
	if !ok {
		return nil
	}

	var (
		answered string
		next     string
	)
	err := s.tickets.Update(ctx, func(tickets map[string]domain.Ticket) error {
		current, ok := tickets[msg.ChannelID]
		if !ok || !current.InProgress() {
			return errNotAsking
		}
		if current.FormData == nil {
			current.FormData = map[string]string{}
		}
		answered = current.CurrentStep
		current.FormData[answered] = msg.Content
		next, _ = form.Next(answered)
		current.CurrentStep = next
		tickets[msg.ChannelID] = current
		return nil
	})
	if errors.Is(err, errNotAsking) {
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Debug("form answer stored",
		zap.String("channel_id", msg.ChannelID),
		zap.String("step", answered))

	s.purge(ctx, msg.ChannelID, msg.Author.ID, form)

	if next != "" {
		return s.ask(ctx, msg.ChannelID, form, next)
	}
	updated, _ := s.tickets.Get(ctx, msg.ChannelID)
	_, err = s.platform.SendMessage(ctx, msg.ChannelID, recapMessage(form, msg.ChannelID, updated.FormData))
	return err
}

// purge removes the answered prompt and the user's answers. Failures are logged only.
func (s *FormService) purge(ctx context.Context, channelID, authorID string, form domain.FormDefinition) {
	recent, err := s.platform.Messages(ctx, channelID, PurgeWindow)
	if err != nil {
		s.logger.Warn("failed to fetch messages for cleanup", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	var ids []string
	for _, m := range recent {
		isAnswer := m.Author.ID == authorID
		isPrompt := m.Author.Bot && len(m.Embeds) > 0 && m.Embeds[0].Title == form.QuestionTitle
		if isAnswer || isPrompt {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := s.platform.DeleteMessages(ctx, channelID, ids); err != nil {
		s.logger.Warn("failed to delete form messages", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func recapMessage(form domain.FormDefinition, channelID string, data map[string]string) platform.Message {
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       form.RecapTitle,
			Description: form.RecapDescription,
			Color:       form.Color,
			Fields:      answerFields(form, data),
			Footer:      "Please confirm or cancel your application",
			Timestamp:   platform.Now(),
		}},
		Buttons: []platform.Button{
			{CustomID: interaction.ConfirmForm(form.Type, channelID), Label: "✅ Confirm Application", Style: platform.ButtonSuccess},
			{CustomID: interaction.CancelForm(form.Type, channelID), Label: "❌ Cancel Application", Style: platform.ButtonDanger},
		},
	}
}

func answerFields(form domain.FormDefinition, data map[string]string) []platform.Field {
	lines := form.Recap(data)
	out := make([]platform.Field, 0, len(lines))
	for _, line := range lines {
		out = append(out, platform.Field{Name: line.Label, Value: platform.Truncate(line.Value, platform.MaxFieldValue)})
	}
	return out
}

type confirmOutcome int

const (
	confirmSubmitted confirmOutcome = iota
	confirmAlreadySubmitted
	confirmIncomplete
	confirmClosed
)

// Confirm submits an application whose every answer is captured. Confirming an
// already submitted application changes nothing.
func (s *FormService) Confirm(ctx context.Context, resp platform.Responder, req interaction.Request, ticketType domain.TicketType, channelID string) error {
	if req.ChannelID != channelID {
		return resp.Reply(ctx, notice("❌ This confirmation is for a different channel."), true)
	}
	form, ok := domain.FormFor(ticketType)
	if !ok {
		return errorutil.NewValidationError("This ticket has no application form.", nil)
	}

	var (
		outcome   confirmOutcome
		submitted domain.Ticket
	)
	err := s.tickets.Update(ctx, func(tickets map[string]domain.Ticket) error {
		ticket, ok := tickets[channelID]
		if !ok || ticket.Type != ticketType {
			return errorutil.NewNotFound("Ticket data", map[string]any{"channelId": channelID})
		}
		switch {
		case ticket.Status == domain.TicketStatusSubmitted:
			outcome = confirmAlreadySubmitted
			return errNotAsking
		case ticket.Status != domain.TicketStatusOpen:
			outcome = confirmClosed
			return errNotAsking
		case ticket.InProgress() || !form.Complete(ticket.FormData):
			outcome = confirmIncomplete
			return errNotAsking
		}
		now := s.now().UTC().Truncate(time.Millisecond)
		ticket.Status = domain.TicketStatusSubmitted
		ticket.SubmittedAt = &now
		ticket.CurrentStep = ""
		tickets[channelID] = ticket
		submitted = ticket
		outcome = confirmSubmitted
		return nil
	})
	if err != nil && !errors.Is(err, errNotAsking) {
		if errorutil.IsCode(err, errorutil.CodeNotFound) {
			return resp.Reply(ctx, notice("❌ Ticket data not found."), true)
		}
		return err
	}

	switch outcome {
	case confirmAlreadySubmitted:
		return resp.Reply(ctx, notice("✅ This application has already been submitted."), true)
	case confirmClosed:
		return resp.Reply(ctx, notice("❌ This application is no longer open."), true)
	case confirmIncomplete:
		return resp.Reply(ctx, notice("❌ Please answer every question before confirming."), true)
	}

	fields := make([]platform.Field, 0, len(form.SubmittedNextSteps))
	for _, step := range form.SubmittedNextSteps {
		fields = append(fields, platform.Field{Name: step.Name, Value: step.Value})
	}
	update := platform.Message{
		Embeds: []platform.Embed{{
			Title:       form.SubmittedTitle,
			Description: form.SubmittedDescription,
			Color:       colorSuccess,
			Fields:      fields,
			Timestamp:   platform.Now(),
		}},
		Buttons: []platform.Button{
			closeButton(channelID),
			{CustomID: interaction.ViewDetails(ticketType, channelID), Label: "📋 View Details", Style: platform.ButtonSecondary},
		},
	}
	if err := resp.Update(ctx, update); err != nil {
		s.logger.Warn("failed to replace recap", zap.String("channel_id", channelID), zap.Error(err))
		if !resp.Acknowledged() {
			_ = resp.Reply(ctx, platform.Cards(errorEmbed("❌ Error",
				"There was an error processing your confirmation. Your application has been saved.")), true)
		}
	}

	details := req.Details()
	details["ticketId"] = channelID
	details["data"] = copyAnswers(submitted.FormData)
	s.recorder.Record(ctx, form.SubmittedAction, details)
	publishEvent(ctx, s.dispatcher, events.NewEvent(events.EventFormSubmitted, channelID, actorOf(req),
		events.FormSubmittedPayload{Type: ticketType, FormData: copyAnswers(submitted.FormData)}))
	return nil
}

// Cancel discards the application and closes the ticket right away: transcript,
// record removal and delayed channel deletion.
func (s *FormService) Cancel(ctx context.Context, resp platform.Responder, req interaction.Request, ticketType domain.TicketType, channelID string) error {
	if req.ChannelID != channelID {
		return resp.Reply(ctx, notice("❌ This button is for a different channel."), true)
	}
	form, ok := domain.FormFor(ticketType)
	if !ok {
		return errorutil.NewValidationError("This ticket has no application form.", nil)
	}
	ticket, ok := s.tickets.Get(ctx, channelID)
	if !ok || ticket.Type != ticketType {
		return resp.Reply(ctx, notice("❌ Ticket data not found."), true)
	}
	if ticket.Status == domain.TicketStatusSubmitted {
		return resp.Reply(ctx, notice("✅ This application has already been submitted."), true)
	}
	if !s.closer.Begin(channelID) {
		return resp.Reply(ctx, notice("⏳ This ticket is already being closed."), true)
	}

	if err := resp.Update(ctx, platform.Message{
		Embeds: []platform.Embed{{
			Title:       "❌ Application Cancelled",
			Description: form.CancelledDescription + "\n\n**This ticket will now be closed and a transcript will be saved.**",
			Color:       colorWarning,
			Timestamp:   platform.Now(),
		}},
		ClearButtons: true,
	}); err != nil {
		s.logger.Warn("failed to replace recap", zap.String("channel_id", channelID), zap.Error(err))
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	if err := s.tickets.Update(ctx, func(tickets map[string]domain.Ticket) error {
		if t, ok := tickets[channelID]; ok {
			t.Status = domain.TicketStatusCancelled
			t.ClosedAt = &now
			t.CurrentStep = ""
			tickets[channelID] = t
		}
		return nil
	}); err != nil {
		s.logger.Warn("failed to mark ticket cancelled", zap.String("channel_id", channelID), zap.Error(err))
	}

	details := req.Details()
	details["ticketId"] = channelID
	s.recorder.Record(ctx, form.CancelledAction, details)

	channel, err := s.platform.Channel(ctx, channelID)
	if err != nil {
		channel = platform.Channel{ID: channelID, GuildID: req.GuildID, Name: ticket.ChannelName}
	}
	reason := fmt.Sprintf("%s application cancelled", titleCase(form.Noun))
	if _, err := s.closer.Close(ctx, channel, req.User, reason); err != nil {
		s.closer.Abort(channelID)
		s.logger.Error("failed to close cancelled application", zap.String("channel_id", channelID), zap.Error(err))
	}
	return nil
}

// Details shows the captured answers privately.
func (s *FormService) Details(ctx context.Context, resp platform.Responder, _ interaction.Request, ticketType domain.TicketType, channelID string) error {
	ticket, ok := s.tickets.Get(ctx, channelID)
	if !ok {
		return resp.Reply(ctx, notice("❌ Ticket data not found."), true)
	}
	form, ok := domain.FormFor(ticketType)
	if !ok || ticket.Type != ticketType || ticket.FormData == nil {
		return resp.Reply(ctx, notice("❌ No details available for this ticket."), true)
	}
	return resp.Reply(ctx, platform.Cards(platform.Embed{
		Title:     form.DetailsTitle,
		Color:     form.Color,
		Fields:    answerFields(form, ticket.FormData),
		Timestamp: platform.Now(),
	}), true)
}

func copyAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
