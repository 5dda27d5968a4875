package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"apex-tracker/internal/config"
	"apex-tracker/internal/constants"
	"apex-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Client posts messages to a fixed Discord webhook. Delivery is best-effort:
// failures surface to the caller and are never retried automatically.
type Client struct {
	webhookURL string
	client     *fasthttp.Client
	logger     zerolog.Logger
}

type webhookPayload struct {
	Content string `json:"content"`
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		webhookURL: cfg.DiscordWebhookURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *Client) Configured() bool {
	return c.webhookURL != ""
}

// Post sends content to the configured webhook. Non-2xx responses come back as
// errors with the Discord status and body passed through for debugging.
func (c *Client) Post(ctx context.Context, content string) error {
	if c.webhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured: %w", domain.ErrInvalidArgument)
	}

	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.webhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(constants.WebhookTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Error().Err(err).Msg("webhook request failed")
		return fmt.Errorf("webhook request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		c.logger.Error().Int("status", status).Bytes("body", resp.Body()).Msg("webhook rejected post")
		return fmt.Errorf("webhook returned %d: %s", status, resp.Body())
	}

	c.logger.Info().Int("status", status).Int("content_len", len(content)).Msg("posted to discord")
	return nil
}
