package ollama

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/resilience"
)

const (
	DefaultTimeout      = 10 * time.Minute
	DefaultProbeTimeout = 5 * time.Second
)

type Config struct {
	BaseURL      string
	Model        string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	Temperature  float64
	TopP         float64
	TopK         int
}

// Client talks to an Ollama server for structured invoice extraction.
type Client struct {
	baseURL      string
	model        string
	timeout      time.Duration
	probeTimeout time.Duration
	options      generateOptions
	httpClient   *http.Client
	guard        *resilience.Guard
	logger       *slog.Logger
}

func New(cfg Config, guard *resilience.Guard, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.TopP <= 0 {
		cfg.TopP = 0.9
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 40
	}
	if logger == nil {
		logger = slog.Default()
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.SingleAttempt(resilience.BreakerPolicy{}), logger)
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		probeTimeout: cfg.ProbeTimeout,
		options: generateOptions{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			TopK:        cfg.TopK,
		},
		// Per-call deadlines come from the context; this is only a backstop.
		httpClient: &http.Client{Timeout: cfg.Timeout + cfg.ProbeTimeout},
		guard:      guard,
		logger:     logger,
	}
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Probe lists installed models and resolves which one generation should use.
// A missing configured model is replaced by the first installed one.
func (c *Client) Probe(ctx context.Context) domain.ModelStatus {
	status := domain.ModelStatus{ConfiguredModel: c.model}

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	var resp tagsResponse
	if err := c.getJSON(ctx, "/api/tags", &resp, "tags"); err != nil {
		status.Reason = err.Error()
		return status
	}
	for _, m := range resp.Models {
		if name := strings.TrimSpace(m.Name); name != "" {
			status.Models = append(status.Models, name)
		}
	}
	if len(status.Models) == 0 {
		status.Reason = "no models installed"
		return status
	}

	status.Available = true
	for _, name := range status.Models {
		if name == c.model {
			status.Model = name
			return status
		}
	}
	for _, name := range status.Models {
		if c.model != "" && strings.Contains(name, c.model) {
			status.Model = name
			return status
		}
	}
	status.Model = status.Models[0]
	status.Substituted = true
	c.logger.Warn("ollama_model_substituted", "configured", c.model, "using", status.Model)
	return status
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	var out generateResponse
	err := c.postJSON(ctx, "/api/generate", generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: c.options,
	}, &out, "generate")
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

// Extract asks the model for a structured extraction. A nil result always
// comes with an error whose kind is ErrServiceUnavailable or
// ErrMalformedResponse; callers fall back instead of failing.
func (c *Client) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.InvoiceExtraction, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildExtractionPrompt(req.Text, req.Hint)
	var raw string
	err := c.guard.Do(ctx, "ollama.generate", func(ctx context.Context) error {
		out, err := c.generate(ctx, model, prompt)
		if err != nil {
			return err
		}
		raw = out
		return nil
	}, classifyOllamaError)
	if err != nil {
		if errors.Is(err, errEmptyBody) {
			return nil, domain.WrapError(domain.ErrMalformedResponse, "ollama generate", err)
		}
		return nil, domain.WrapError(domain.ErrServiceUnavailable, "ollama generate", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "ollama generate", errEmptyBody)
	}

	obj, err := recoverJSONObject(raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "ollama parse", err)
	}

	extraction, dropped := coerceExtraction(obj)
	extraction.Model = model
	if dropped > 0 {
		c.logger.Info("ollama_items_dropped", "model", model, "dropped", dropped, "kept", len(extraction.Items))
	}
	return extraction, nil
}
