// Package printer sends ticket payloads to the external printer service.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cafeteria/internal/claims/models"
)

// Client dispatches tickets to the printer endpoint over HTTP. One
// best-effort attempt per ticket: no retry and no internal queueing. The
// fulfillment worker decides what happens after a failure.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	// testMode logs the ticket and reports success without calling the
	// endpoint, mirroring the printer service's own dry-run switch.
	testMode bool
}

// Option configures a Client.
type Option func(*Client)

// WithTestMode enables dry-run dispatching.
func WithTestMode(enabled bool) Option {
	return func(c *Client) { c.testMode = enabled }
}

// WithHTTPClient overrides the underlying HTTP client. Test hook.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// New constructs a printer client with a bounded per-attempt timeout.
func New(endpoint string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ticketPayload is the wire format the printer service expects.
type ticketPayload struct {
	Contenido ticketContent `json:"contenido"`
}

type ticketContent struct {
	Codigo           string `json:"codigo"`
	Nombre           string `json:"nombre"`
	Grado            string `json:"grado"`
	TipoAlimentacion string `json:"tipo_alimentacion"`
}

// Dispatch sends one ticket. Success is an HTTP 200 from the printer
// service; everything else (timeout, connection error, non-200) is an error.
func (c *Client) Dispatch(ctx context.Context, student models.Student, service models.Service) error {
	if c.testMode {
		c.logger.Info("test mode - ticket not sent to printer",
			"student_code", student.Code,
			"service", service,
		)
		return nil
	}

	payload := ticketPayload{
		Contenido: ticketContent{
			Codigo:           student.Code,
			Nombre:           student.Name,
			Grado:            student.Homeroom,
			TipoAlimentacion: student.FoodPlan,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ticket payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build printer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call printer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("printer responded %d", resp.StatusCode)
	}
	return nil
}
