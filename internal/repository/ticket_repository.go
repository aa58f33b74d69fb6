package repository

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/persistence"
)

// TicketsFile is the ticket document name inside the data directory.
const TicketsFile = "tickets.json"

// TicketRepository encapsulates ticket persistence. There is no partial update:
// callers load the whole mapping, mutate it and save it back.
type TicketRepository interface {
	Init() error
	Load(ctx context.Context) map[string]domain.Ticket
	Save(ctx context.Context, tickets map[string]domain.Ticket) error
	Update(ctx context.Context, fn func(tickets map[string]domain.Ticket) error) error
	Get(ctx context.Context, channelID string) (domain.Ticket, bool)
}

type ticketRepository struct {
	doc *persistence.JSONDocument[map[string]domain.Ticket]
}

// NewTicketRepository instantiates repository backed by <dataDir>/tickets.json.
func NewTicketRepository(dataDir string, logger *zap.Logger) TicketRepository {
	return &ticketRepository{
		doc: persistence.NewJSONDocument(filepath.Join(dataDir, TicketsFile), emptyTickets, logger),
	}
}

func emptyTickets() map[string]domain.Ticket {
	return map[string]domain.Ticket{}
}

func (r *ticketRepository) Init() error {
	return r.doc.Init()
}

func (r *ticketRepository) Load(_ context.Context) map[string]domain.Ticket {
	return withChannelIDs(r.doc.Load())
}

func (r *ticketRepository) Save(_ context.Context, tickets map[string]domain.Ticket) error {
	if tickets == nil {
		tickets = emptyTickets()
	}
	return r.doc.Save(tickets)
}

func (r *ticketRepository) Update(_ context.Context, fn func(tickets map[string]domain.Ticket) error) error {
	return r.doc.Update(func(tickets *map[string]domain.Ticket) error {
		if *tickets == nil {
			*tickets = emptyTickets()
		}
		return fn(withChannelIDs(*tickets))
	})
}

func (r *ticketRepository) Get(ctx context.Context, channelID string) (domain.Ticket, bool) {
	ticket, ok := r.Load(ctx)[channelID]
	return ticket, ok
}

// withChannelIDs fills ChannelID from the map key for records written without it.
func withChannelIDs(tickets map[string]domain.Ticket) map[string]domain.Ticket {
	if tickets == nil {
		return emptyTickets()
	}
	for id, ticket := range tickets {
		if ticket.ChannelID == "" {
			ticket.ChannelID = id
			tickets[id] = ticket
		}
	}
	return tickets
}
