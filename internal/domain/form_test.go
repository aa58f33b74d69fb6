package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSequences(t *testing.T) {
	partnership, ok := FormFor(TicketTypePartnership)
	require.True(t, ok)
	assert.Equal(t, []string{"company_name", "partnership_need", "partnership_offer", "project_link"}, stepKeys(partnership))

	join, ok := FormFor(TicketTypeJoin)
	require.True(t, ok)
	assert.Equal(t, []string{"email", "motivation", "role", "knowledge", "additional"}, stepKeys(join))

	_, ok = FormFor(TicketTypeSupport)
	assert.False(t, ok)
	assert.False(t, TicketTypeOrder.HasForm())
}

func TestFormNext(t *testing.T) {
	join, _ := FormFor(TicketTypeJoin)

	next, ok := join.Next("email")
	assert.True(t, ok)
	assert.Equal(t, "motivation", next)

	_, ok = join.Next("additional")
	assert.False(t, ok, "last step has no successor")

	_, ok = join.Next("company_name")
	assert.False(t, ok, "foreign step is unknown")
}

func TestRecapDistinguishesBlankFromMissing(t *testing.T) {
	join, _ := FormFor(TicketTypeJoin)
	data := map[string]string{
		"email":      "a@b.com",
		"motivation": "X",
		"role":       "dev",
		"knowledge":  "Go",
		"additional": "",
	}

	lines := join.Recap(data)
	require.Len(t, lines, 5)
	assert.Equal(t, "a@b.com", lines[0].Value)
	assert.Equal(t, "📧 Email Address", lines[0].Label)
	assert.Equal(t, "dev", lines[2].Value)
	assert.Equal(t, AnswerLeftBlank, lines[4].Value)

	delete(data, "additional")
	assert.Equal(t, AnswerNotProvided, join.Recap(data)[4].Value)
	assert.Equal(t, AnswerLeftBlank, RenderAnswer(map[string]string{"k": "   "}, "k"))
}

func TestTicketCheckForm(t *testing.T) {
	ticket := Ticket{ChannelID: "c1", Type: TicketTypeJoin, Status: TicketStatusOpen, CurrentStep: "role",
		FormData: map[string]string{"email": "a@b.com", "motivation": "X"}}
	assert.NoError(t, ticket.CheckForm())

	ticket.CurrentStep = "company_name"
	assert.Error(t, ticket.CheckForm())

	ticket.CurrentStep = "knowledge"
	assert.Error(t, ticket.CheckForm(), "role is unanswered")

	ticket.CurrentStep = ""
	ticket.Status = TicketStatusSubmitted
	assert.Error(t, ticket.CheckForm())

	ticket.FormData["role"] = "dev"
	ticket.FormData["knowledge"] = "Go"
	ticket.FormData["additional"] = ""
	assert.NoError(t, ticket.CheckForm())

	support := Ticket{ChannelID: "c2", Type: TicketTypeSupport, CurrentStep: "email"}
	assert.Error(t, support.CheckForm())
}

func TestAwaitingConfirmation(t *testing.T) {
	data := map[string]string{"company_name": "Acme", "partnership_need": "a", "partnership_offer": "b", "project_link": "c"}
	ticket := Ticket{Type: TicketTypePartnership, Status: TicketStatusOpen, FormData: data}
	assert.True(t, ticket.AwaitingConfirmation())

	ticket.Status = TicketStatusSubmitted
	assert.False(t, ticket.AwaitingConfirmation())

	ticket.Status = TicketStatusOpen
	ticket.CurrentStep = "project_link"
	assert.False(t, ticket.AwaitingConfirmation())
}

func TestTicketChannelName(t *testing.T) {
	assert.Equal(t, "jane-doe--join", TicketChannelName("Jane Doe!", TicketTypeJoin, ""))
	assert.Equal(t, "order-ab12", TicketChannelName("Jane", TicketTypeOrder, "AB12"))
	assert.Equal(t, "ren--support", TicketChannelName("Ren☆", TicketTypeSupport, ""))
}

func TestParseTicketType(t *testing.T) {
	tt, ok := ParseTicketType("Partnership")
	assert.True(t, ok)
	assert.Equal(t, TicketTypePartnership, tt)
	_, ok = ParseTicketType("billing")
	assert.False(t, ok)
	assert.Equal(t, "Join", TicketTypeJoin.Title())
}

func TestOrderTotal(t *testing.T) {
	var order Order
	require.NoError(t, json.Unmarshal([]byte(`{"status":"paid","total_amount":"49.90"}`), &order))
	assert.Equal(t, "49.90 EUR", order.Total())

	order = Order{TotalAmount: json.Number("12"), Currency: "USD"}
	assert.Equal(t, "12 USD", order.Total())
	assert.Equal(t, "0 EUR", Order{}.Total())
	assert.Empty(t, Order{}.CustomerField(func(c OrderCustomer) string { return c.Name }))
}

func TestFormatOrderTime(t *testing.T) {
	assert.Equal(t, "2026-03-01 10:30 UTC", FormatOrderTime("2026-03-01T10:30:00Z"))
	assert.Equal(t, "yesterday", FormatOrderTime("yesterday"))
	assert.Empty(t, FormatOrderTime(""))
}

func stepKeys(f FormDefinition) []string {
	keys := make([]string, 0, len(f.Steps))
	for _, s := range f.Steps {
		keys = append(keys, s.Key)
	}
	return keys
}
