package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"labassistant/internal/domain"
	"labassistant/internal/infra"
)

const (
	defaultBaseURL     = "https://api-inference.modelscope.cn/v1"
	defaultModel       = "Qwen/Qwen3-VL-30B-A3B-Instruct"
	defaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
)

var errEmptyReply = errors.New("empty reply")

// Role identifies the author of a conversation turn. System instructions are
// carried separately on Request.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. ImageURL adds an image part alongside the text.
type Message struct {
	Role     Role
	Text     string
	ImageURL string
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// Request is a single completion call.
type Request struct {
	System   string
	Messages []Message
}

// Options configures the OpenAI-compatible chat client.
type Options struct {
	BaseURL     string
	Model       string
	// Temperature is left to the default only when nil; zero is a valid setting.
	Temperature *float64
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *infra.Logger
}

// Client sends chat completions to an OpenAI-compatible endpoint. The bearer
// credential is supplied per call, so one Client serves every caller.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
	logger      *infra.Logger
}

// NewClient constructs a client with defaults for any zero option.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete returns the trimmed text of the first choice. Transport failures,
// non-2xx statuses and empty replies wrap domain.ErrUpstream.
func (c *Client) Complete(ctx context.Context, credential string, req Request) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", domain.ErrMissingCredential
	}
	content := buildContent(req)
	if len(content) == 0 || content[len(content)-1].Role == schema.ChatMessageTypeSystem {
		return "", fmt.Errorf("chat: at least one message is required: %w", domain.ErrInvalidInput)
	}

	llm, err := openai.New(
		openai.WithToken(credential),
		openai.WithBaseURL(c.baseURL),
		openai.WithModel(c.model),
		openai.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return "", fmt.Errorf("chat: configure client: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := llm.GenerateContent(callCtx, content, llms.WithTemperature(c.temperature))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("chat: %w", ctxErr)
		}
		return "", fmt.Errorf("chat: %w: %v", domain.ErrUpstream, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat: %w: no choices", domain.ErrUpstream)
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", fmt.Errorf("chat: %w: %v", domain.ErrUpstream, errEmptyReply)
	}
	c.logger.Debug().
		Str("model", c.model).
		Int("messages", len(content)).
		Dur("elapsed", time.Since(start)).
		Msg("chat: completion received")
	return text, nil
}

func buildContent(req Request) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if system := strings.TrimSpace(req.System); system != "" {
		content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	for _, msg := range req.Messages {
		role := schema.ChatMessageTypeHuman
		if msg.Role == RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		var parts []llms.ContentPart
		if text := strings.TrimSpace(msg.Text); text != "" {
			parts = append(parts, llms.TextContent{Text: text})
		}
		if imageURL := strings.TrimSpace(msg.ImageURL); imageURL != "" {
			parts = append(parts, llms.ImageURLContent{URL: imageURL})
		}
		if len(parts) == 0 {
			continue
		}
		content = append(content, llms.MessageContent{Role: role, Parts: parts})
	}
	return content
}
