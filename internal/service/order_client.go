package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/repository"
	"github.com/majstudio/community-bot/pkg/util/errorutil"
)

// OrderUserAgent identifies the bot to the order API.
const OrderUserAgent = "Maj-Studio-Discord-Bot/1.0"

const maxOrderBody = 1 << 20

// OrderClient looks orders up in the external order API, consulting the cache first.
type OrderClient struct {
	baseURL  string
	http     *http.Client
	cache    repository.OrderCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewOrderClient builds a client for cfg.BaseURL. cache may be nil.
func NewOrderClient(cfg config.OrdersConfig, cache repository.OrderCache, logger *zap.Logger) *OrderClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout()},
		cache:    cache,
		cacheTTL: cfg.CacheTTL(),
		logger:   logger.Named("order_client"),
	}
}

// Configured reports whether an API base URL is set.
func (c *OrderClient) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Lookup fetches one order. Failures are external API errors whose kind says what went wrong.
func (c *OrderClient) Lookup(ctx context.Context, code string) (*domain.Order, error) {
	if !c.Configured() {
		return nil, errorutil.NewConfigurationError("Order API URL")
	}
	if c.cache != nil {
		cached, hit, err := c.cache.Get(ctx, code)
		if err != nil {
			c.logger.Warn("order cache read failed", zap.String("order_code", code), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/order/%s", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, orderAPIError(errorutil.ExternalBadResponse, 0, "Failed to retrieve order information.", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", OrderUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOrderBody))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, orderAPIError(errorutil.ExternalNotFound, resp.StatusCode, "Order not found.", nil)
	case resp.StatusCode >= 500:
		return nil, orderAPIError(errorutil.ExternalServerError, resp.StatusCode, "Server error.", nil)
	case resp.StatusCode != http.StatusOK:
		return nil, orderAPIError(errorutil.ExternalBadResponse, resp.StatusCode, apiMessage(body), nil)
	}

	var order domain.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, orderAPIError(errorutil.ExternalBadResponse, resp.StatusCode, "Invalid response from API", err)
	}
	if order.Code == "" {
		order.Code = code
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, code, order, c.cacheTTL); err != nil {
			c.logger.Warn("order cache write failed", zap.String("order_code", code), zap.Error(err))
		}
	}
	return &order, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return orderAPIError(errorutil.ExternalTimeout, 0, "Request timeout.", err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return orderAPIError(errorutil.ExternalUnreachable, 0, "Cannot connect to order system.", err)
	}
	return orderAPIError(errorutil.ExternalBadResponse, 0, "Failed to retrieve order information.", err)
}

func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return "Unknown error occurred."
}

func orderAPIError(kind errorutil.ExternalKind, status int, message string, err error) error {
	domainErr := errorutil.ToDomainError(errorutil.NewExternalAPIError(kind, message, err))
	if status != 0 {
		domainErr.Details["statusCode"] = status
	}
	return domainErr
}

// orderStatusCode returns the HTTP status attached to an order API error, or 0.
func orderStatusCode(err error) int {
	domainErr := errorutil.ToDomainError(err)
	if domainErr == nil || domainErr.Details == nil {
		return 0
	}
	status, _ := domainErr.Details["statusCode"].(int)
	return status
}
