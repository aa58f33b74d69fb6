package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstudio/community-bot/internal/domain"
)

func TestButtonIDsDecodeToWhatWasEncoded(t *testing.T) {
	cases := []struct {
		id   string
		want Button
	}{
		{AcceptRules(), Button{Kind: KindAcceptRules}},
		{CreateTicket(domain.TicketTypeJoin), Button{Kind: KindCreateTicket, TicketType: domain.TicketTypeJoin}},
		{CloseTicket("123"), Button{Kind: KindCloseTicket, ChannelID: "123"}},
		{ConfirmClose("123"), Button{Kind: KindConfirmClose, ChannelID: "123"}},
		{CancelClose("123"), Button{Kind: KindCancelClose, ChannelID: "123"}},
		{ConfirmForm(domain.TicketTypePartnership, "9"), Button{Kind: KindConfirmForm, TicketType: domain.TicketTypePartnership, ChannelID: "9"}},
		{CancelForm(domain.TicketTypeJoin, "9"), Button{Kind: KindCancelForm, TicketType: domain.TicketTypeJoin, ChannelID: "9"}},
		{ViewDetails(domain.TicketTypeJoin, "9"), Button{Kind: KindViewDetails, TicketType: domain.TicketTypeJoin, ChannelID: "9"}},
		{OrderRetrieve(), Button{Kind: KindOrderRetrieve}},
		{OrderStatus(), Button{Kind: KindOrderStatus}},
		{CreateOrderTicket("AB_12:x"), Button{Kind: KindCreateOrderTicket, OrderCode: "AB_12:x"}},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			got, err := ParseButton(tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUnderscoresInOrderCodesSurvive(t *testing.T) {
	got, err := ParseButton("create_order_ticket:MY_ORDER_1")
	require.NoError(t, err)
	assert.Equal(t, "MY_ORDER_1", got.OrderCode)
}

func TestParseButtonRejectsMalformedIDs(t *testing.T) {
	for _, id := range []string{
		"",
		"nope",
		"ticket:order",
		"ticket:vip",
		"close_ticket",
		"close_ticket:",
		"confirm_form:support:1",
		"confirm_form:join",
		"details:join:",
		"accept_rules:extra",
		"create_order_ticket: ",
	} {
		_, err := ParseButton(id)
		assert.Error(t, err, id)
	}
}

func TestParseModal(t *testing.T) {
	kind, err := ParseModal(ModalOrderRetrieve.CustomID())
	require.NoError(t, err)
	assert.Equal(t, ModalOrderRetrieve, kind)

	kind, err = ParseModal("order_status_modal")
	require.NoError(t, err)
	assert.Equal(t, ModalOrderStatus, kind)

	_, err = ParseModal("other")
	assert.Error(t, err)
}
