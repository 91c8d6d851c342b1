package categorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"gw-ledger/internal/models"
	"log/slog"
	"net/http"
	"time"
)

// Suggestion предложение категории от внешнего категоризатора
type Suggestion struct {
	Category   models.Category
	Confidence float64
}

type Client interface {
	Suggest(ctx context.Context, description, merchant string, amount float64) (*Suggestion, error)
	Close() error
}

type httpClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// NewHTTPClient собирает клиент категоризатора поверх OpenAI-совместимого
// chat completions API. Ответ сервиса всегда трактуется как подсказка:
// любая ошибка возвращается вызывающей стороне, но не должна валить операцию.
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration, log *slog.Logger) Client {
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type suggestionPayload struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

const systemPrompt = "You are a financial transaction categorization expert. Always respond with valid JSON."

const promptTemplate = `Categorize this transaction into one of these categories: food, transport, shopping, entertainment, healthcare, utilities, salary, freelance, investment, other.

Transaction details:
- Description: %s
- Merchant: %s
- Amount: $%.2f

Respond with JSON format:
{"category": "category_name", "confidence": 0.95, "reasoning": "brief explanation"}`

func (c *httpClient) Suggest(ctx context.Context, description, merchant string, amount float64) (*Suggestion, error) {
	const op = "categorizer.Suggest"

	if merchant == "" {
		merchant = "N/A"
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, description, merchant, amount)},
		},
		MaxTokens:   150,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal error: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if duration := time.Since(start); duration > 2*time.Second {
		c.log.Warn("медленный запрос к категоризатору",
			slog.String("op", op),
			slog.Duration("duration", duration))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%s: decode error: %w", op, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty response", op)
	}

	var payload suggestionPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("%s: bad suggestion payload: %w", op, err)
	}

	category := models.Category(payload.Category)
	if !category.IsValid() || payload.Confidence < 0.6 {
		return nil, nil
	}

	c.log.Debug("категория предложена",
		slog.String("category", payload.Category),
		slog.Float64("confidence", payload.Confidence))

	return &Suggestion{
		Category:   category,
		Confidence: payload.Confidence,
	}, nil
}

func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// NoOpClient используется, когда категоризатор не сконфигурирован
type NoOpClient struct {
	log *slog.Logger
}

func NewNoOpClient(log *slog.Logger) Client {
	return &NoOpClient{log: log}
}

func (c *NoOpClient) Suggest(ctx context.Context, description, merchant string, amount float64) (*Suggestion, error) {
	c.log.Debug("категоризатор отключен, подсказка не запрошена")
	return nil, nil
}

func (c *NoOpClient) Close() error {
	return nil
}
