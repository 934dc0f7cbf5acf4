package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"papergraph/logger"
	"papergraph/metrics"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

var ErrLLMNotConfigured = errors.New("llm: OPENAI_API_KEY not set")

type ChatTurn struct {
	Role    string
	Content string
}

// CompletionRequest is one chat completion. Operation labels the call in logs
// and metrics ("summarize", "relations", "chat").
type CompletionRequest struct {
	Operation string
	Model     string
	System    string
	Messages  []ChatTurn
	JSON      bool
}

// Completer is implemented by anything that can answer a chat completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint. Calls
// are never retried; a circuit breaker stops hammering a failing provider.
type OpenAIClient struct {
	client  *openai.Client
	breaker *gobreaker.CircuitBreaker
	conf    OpenAIConfig
	log     *logger.Logger
}

func NewOpenAIClient(conf OpenAIConfig, log *logger.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(conf.APIKey) == "" {
		return nil, ErrLLMNotConfigured
	}
	if log == nil {
		log = logger.Nop()
	}
	if conf.Timeout <= 0 {
		conf.Timeout = 90 * time.Second
	}

	oc := openai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		oc.BaseURL = conf.BaseURL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// a cancelled request says nothing about the provider
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(oc),
		breaker: breaker,
		conf:    conf,
		log:     log,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	op := req.Operation
	if op == "" {
		op = "completion"
	}
	model := req.Model
	if model == "" {
		model = c.conf.Model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	body := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: c.conf.Temperature,
	}
	if req.JSON {
		body.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.conf.Timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, body)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("llm: response has no choices")
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return "", errors.New("llm: empty response")
		}
		return text, nil
	})

	metrics.LLMDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.LLMRequests.WithLabelValues(op, metrics.Status(err)).Inc()
	if err != nil {
		c.log.Error("llm completion failed", "operation", op, "model", model, "error", err)
		return "", fmt.Errorf("llm %s: %w", op, err)
	}
	c.log.Debug("llm completion", "operation", op, "model", model, "ms", time.Since(start).Milliseconds())
	return out.(string), nil
}
