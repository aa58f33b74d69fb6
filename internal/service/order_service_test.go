package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/interaction"
	"github.com/majstudio/community-bot/internal/platform/platformtest"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

const orderJSON = `{
	"code": "AB12",
	"status": "completed",
	"payment_status": "paid",
	"total_amount": 49.90,
	"currency": "EUR",
	"payment_method": "card",
	"customer": {"name": "Jane Doe", "email": "jane@example.com", "discord": "jane"},
	"created_at": "2026-04-01T10:00:00Z",
	"updated_at": "2026-04-02T11:30:00Z"
}`

type orderAPI struct {
	*httptest.Server
	hits atomic.Int32
}

func newOrderAPI(t *testing.T) *orderAPI {
	t.Helper()
	api := &orderAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/order/", func(w http.ResponseWriter, r *http.Request) {
		api.hits.Add(1)
		assert.Equal(t, OrderUserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/order/AB12":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(orderJSON))
		case "/order/BOOM":
			w.WriteHeader(http.StatusInternalServerError)
		case "/order/TEAPOT":
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte(`{"message":"short and stout"}`))
		case "/order/GARBAGE":
			_, _ = w.Write([]byte(`not json`))
		case "/order/SLOW":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func newOrderService(h *harness, baseURL string, cache *memoryOrderCache) *OrderService {
	client := NewOrderClient(config.OrdersConfig{BaseURL: baseURL, TimeoutSeconds: 5, CacheTTLSeconds: 60}, nil, nil)
	if cache != nil {
		client.cache = cache
	}
	return NewOrderService(OrderDependencies{
		Client:   client,
		Tickets:  h.ticketSvc,
		Platform: h.platform,
		Recorder: h.recorder,
	})
}

type memoryOrderCache struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func (c *memoryOrderCache) Get(_ context.Context, code string) (*domain.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[code]
	if !ok {
		return nil, false, nil
	}
	return &o, true, nil
}

func (c *memoryOrderCache) Set(_ context.Context, code string, order domain.Order, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orders == nil {
		c.orders = map[string]domain.Order{}
	}
	c.orders[code] = order
	return nil
}

func TestOrderRetrieveModal(t *testing.T) {
	h := newHarness(t)
	api := newOrderAPI(t)
	svc := newOrderService(h, api.URL, nil)
	ctx := context.Background()

	resp := &platformtest.Responder{}
	require.NoError(t, svc.HandleModal(ctx, resp, h.request("panel"), interaction.ModalOrderRetrieve, " AB12 "))
	assert.Equal(t, []string{platformtest.KindDefer, platformtest.KindEdit}, resp.Kinds())
	assert.True(t, resp.Responses[0].Ephemeral)

	msg := resp.Last().Message
	require.Len(t, msg.Embeds, 1)
	embed := msg.Embeds[0]
	assert.Equal(t, "📦 Order AB12", embed.Title)
	assert.Equal(t, "Order information retrieved from API", embed.Footer)
	values := map[string]string{}
	for _, f := range embed.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "completed", values["📋 Status"])
	assert.Equal(t, "49.90 EUR", values["💰 Total Amount"])
	assert.Equal(t, "Jane Doe", values["👤 Customer"])
	assert.Equal(t, "jane", values["💬 Discord"])
	assert.Equal(t, "2026-04-01 10:00 UTC", values["📅 Created"])

	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, interaction.CreateOrderTicket("AB12"), msg.Buttons[0].CustomID)

	details, ok := h.recorder.Find(domain.ActionOrderRetrieved)
	require.True(t, ok)
	assert.Equal(t, "AB12", details["orderCode"])
	assert.Equal(t, "completed", details["orderStatus"])
	assert.Equal(t, "49.90", details["orderTotal"])
}

func TestOrderStatusModalHasNoTicketButton(t *testing.T) {
	h := newHarness(t)
	api := newOrderAPI(t)
	svc := newOrderService(h, api.URL, nil)

	resp := &platformtest.Responder{}
	require.NoError(t, svc.HandleModal(context.Background(), resp, h.request("panel"), interaction.ModalOrderStatus, "AB12"))
	assert.Empty(t, resp.Last().Message.Buttons)
}

func TestOrderLookupFailures(t *testing.T) {
	h := newHarness(t)
	api := newOrderAPI(t)
	svc := newOrderService(h, api.URL, nil)

	cases := []struct {
		code   string
		title  string
		kind   errorutil.ExternalKind
		status int
	}{
		{code: "NOPE", title: "❌ Order not found.", kind: errorutil.ExternalNotFound, status: 404},
		{code: "BOOM", title: "❌ Server error.", kind: errorutil.ExternalServerError, status: 500},
		{code: "TEAPOT", title: "❌ API Error (418)", kind: errorutil.ExternalBadResponse, status: 418},
		{code: "GARBAGE", title: "❌ Failed to retrieve order information.", kind: errorutil.ExternalBadResponse, status: 200},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			resp := &platformtest.Responder{}
			require.NoError(t, svc.HandleModal(context.Background(), resp, h.request("panel"), interaction.ModalOrderRetrieve, tc.code))
			embed := resp.Last().Message.Embeds[0]
			assert.Equal(t, tc.title, embed.Title)
			assert.Equal(t, "If the problem persists, please contact an administrator", embed.Footer)
			assert.Equal(t, "`"+tc.code+"`", embed.Fields[0].Value)
			if tc.code == "TEAPOT" {
				assert.Equal(t, "short and stout", embed.Description)
			}

			_, err := svc.client.Lookup(context.Background(), tc.code)
			assert.Equal(t, tc.kind, errorutil.ExternalKindOf(err))
			assert.Equal(t, tc.status, orderStatusCode(err))
		})
	}

	details, ok := h.recorder.Find(domain.ActionOrderRetrievalError)
	require.True(t, ok)
	assert.Equal(t, "NOPE", details["orderCode"])
	assert.Equal(t, "not_found", details["errorCode"])
	assert.Equal(t, 404, details["statusCode"])
}

func TestOrderLookupUnreachableAndTimeout(t *testing.T) {
	h := newHarness(t)

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	svc := newOrderService(h, closed.URL, nil)
	_, err := svc.client.Lookup(context.Background(), "AB12")
	assert.Equal(t, errorutil.ExternalUnreachable, errorutil.ExternalKindOf(err))

	api := newOrderAPI(t)
	svc = newOrderService(h, api.URL, nil)
	svc.client.http.Timeout = 50 * time.Millisecond
	resp := &platformtest.Responder{}
	require.NoError(t, svc.HandleModal(context.Background(), resp, h.request("panel"), interaction.ModalOrderRetrieve, "SLOW"))
	assert.Equal(t, "❌ Request timeout.", resp.Last().Message.Embeds[0].Title)
}

func TestOrderLookupWithoutBaseURL(t *testing.T) {
	h := newHarness(t)
	svc := newOrderService(h, "", nil)

	resp := &platformtest.Responder{}
	require.NoError(t, svc.HandleModal(context.Background(), resp, h.request("panel"), interaction.ModalOrderRetrieve, "AB12"))
	embed := resp.Last().Message.Embeds[0]
	assert.Equal(t, "❌ Configuration Error", embed.Title)
	assert.Equal(t, "Order API URL is not configured. Please contact an administrator.", embed.Description)
	assert.Empty(t, h.recorder.Actions())
}

func TestOrderLookupUsesCache(t *testing.T) {
	h := newHarness(t)
	api := newOrderAPI(t)
	cache := &memoryOrderCache{}
	svc := newOrderService(h, api.URL, cache)

	for i := 0; i < 3; i++ {
		order, err := svc.client.Lookup(context.Background(), "AB12")
		require.NoError(t, err)
		assert.Equal(t, "paid", order.PaymentStatus)
	}
	assert.Equal(t, int32(1), api.hits.Load())
}

func TestShowOrderModal(t *testing.T) {
	h := newHarness(t)
	svc := newOrderService(h, "http://orders.invalid", nil)

	resp := &platformtest.Responder{}
	require.NoError(t, svc.ShowModal(context.Background(), resp, interaction.ModalOrderStatus))
	modal := resp.Last().Modal
	assert.Equal(t, "order_status_modal", modal.CustomID)
	assert.Equal(t, "📊 Check Order Status", modal.Title)
	require.Len(t, modal.Inputs, 1)
	assert.Equal(t, interaction.OrderCodeField, modal.Inputs[0].CustomID)
	assert.Equal(t, 50, modal.Inputs[0].MaxLength)
	assert.True(t, modal.Inputs[0].Required)
}

func TestCreateOrderTicket(t *testing.T) {
	h := newHarness(t)
	api := newOrderAPI(t)
	svc := newOrderService(h, api.URL, nil)
	ctx := context.Background()

	resp := &platformtest.Responder{}
	require.NoError(t, svc.CreateOrderTicket(ctx, resp, h.request("panel"), "AB12"))
	assert.Equal(t, "✅ Order ticket created! Check <#new-1> for your order details.", resp.Last().Message.Content)

	require.Len(t, h.platform.Created, 1)
	assert.Equal(t, "order-ab12", h.platform.Created[0].Name)
	assert.Equal(t, testOrderCategory, h.platform.Created[0].ParentID)

	welcome := h.platform.SentTo("new-1")
	require.Len(t, welcome, 1)
	assert.Equal(t, "Welcome <@u1>! Here are your order details:", welcome[0].Content)
	assert.Equal(t, interaction.CloseTicket("new-1"), welcome[0].Buttons[0].CustomID)

	assert.Equal(t, []string{domain.ActionTicketCreated, domain.ActionOrderTicketCreated}, h.recorder.Actions())
	ticket, ok := h.tickets.Get(ctx, "new-1")
	require.True(t, ok)
	assert.Equal(t, domain.TicketTypeOrder, ticket.Type)
}

func TestCreateOrderTicketWhenLookupFails(t *testing.T) {
	h := newHarness(t)
	api := newOrderAPI(t)
	svc := newOrderService(h, api.URL, nil)

	resp := &platformtest.Responder{}
	require.NoError(t, svc.CreateOrderTicket(context.Background(), resp, h.request("panel"), "NOPE"))

	welcome := h.platform.SentTo("new-1")
	require.Len(t, welcome, 1)
	assert.Equal(t, "❌ Error", welcome[0].Embeds[0].Title)
	assert.Equal(t, interaction.CloseTicket("new-1"), welcome[0].Buttons[0].CustomID)
}

func TestCreateOrderTicketWithoutCategory(t *testing.T) {
	h := newHarness(t)
	h.ticketSvc.channels.OrderCategory = config.UnsetOrderCategory
	svc := newOrderService(h, "http://orders.invalid", nil)

	resp := &platformtest.Responder{}
	err := svc.CreateOrderTicket(context.Background(), resp, h.request("panel"), "AB12")
	require.Error(t, err)
	assert.Equal(t, "Order category is not configured. Please contact an administrator.", errorutil.UserMessage(err))
	assert.True(t, resp.Acknowledged())
}
