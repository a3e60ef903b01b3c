// Package recognizer calls an external optical recognition service that
// turns invoice images into positioned text fragments.
package recognizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor/fragments"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/resilience"
)

const (
	recognizePath    = "/v1/recognize"
	maxResponseBytes = 16 << 20
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	guard      *resilience.Guard
}

// New returns nil when baseURL is empty so callers can treat the recognizer
// as not configured.
func New(baseURL string, timeout time.Duration, guard *resilience.Guard, logger *slog.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if guard == nil {
		if logger == nil {
			logger = slog.Default()
		}
		guard = resilience.NewGuard(resilience.DefaultPolicy(), logger)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		guard:      guard,
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("recognizer status %d: %s", e.code, e.body)
}

// Recognize uploads the image and decodes the returned fragment dump.
func (c *Client) Recognize(ctx context.Context, filename string, image io.Reader) ([]domain.PositionedFragment, error) {
	raw, err := io.ReadAll(image)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	var body []byte
	err = c.guard.Do(ctx, "recognizer.recognize", func(ctx context.Context) error {
		out, err := c.post(ctx, filename, raw)
		if err != nil {
			return err
		}
		body = out
		return nil
	}, classify)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "recognize image", err)
	}
	return fragments.Decode(body)
}

func (c *Client) post(ctx context.Context, filename string, raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+recognizePath, &buf)
	if err != nil {
		return nil, fmt.Errorf("create recognize request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(slurp))}
	}
	out, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read recognize response: %w", err)
	}
	return out, nil
}

func classify(err error) resilience.Outcome {
	if errors.Is(err, context.Canceled) {
		return resilience.Outcome{}
	}
	var se *statusError
	if errors.As(err, &se) {
		transient := se.code >= 500 || se.code == http.StatusTooManyRequests
		return resilience.Outcome{Retry: transient, CountFailure: transient}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Outcome{Retry: true, CountFailure: true}
	}
	return resilience.Outcome{CountFailure: true}
}
