package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/logging"
)

const topicPromptTemplate = "Summarize the most important news from the last 24 hours about: %s. " +
	"Write 3-5 short paragraphs of plain prose suitable for reading aloud. " +
	"Lead with the most significant development."

// TopicsCollector produces one summary item per configured news topic by
// calling a chat-completions style summary API.
type TopicsCollector struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTopicsCollector builds the topic collector from the summary API settings.
func NewTopicsCollector(cfg config.Topics, logger *slog.Logger) *TopicsCollector {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TopicsCollector{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.WithComponent(logger, "topics-collector"),
	}
}

func (c *TopicsCollector) Kind() Kind {
	return KindTopic
}

func (c *TopicsCollector) Collect(ctx context.Context, snap Snapshot) ([]Item, int, error) {
	if len(snap.Topics) == 0 {
		return nil, 0, nil
	}
	if c.apiKey == "" {
		return nil, 0, errors.New("topics: summary api key not configured")
	}

	var (
		items     []Item
		sourcesOK int
	)
	for _, topic := range snap.Topics {
		summary, err := c.summarize(ctx, topic.Topic)
		if err != nil {
			c.logger.Warn("topic summary failed",
				logging.String("topic", topic.Topic),
				logging.Error(err))
			continue
		}
		items = append(items, Item{
			Kind:      KindTopic,
			Source:    topic.Topic,
			Title:     "News: " + topic.Topic,
			Content:   summary,
			Published: time.Now().UTC(),
		})
		sourcesOK++
	}
	return items, sourcesOK, nil
}

func (c *TopicsCollector) summarize(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("topic required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}
	encoded, err := json.Marshal(chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(topicPromptTemplate, topic)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty content")
	}
	return content, nil
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}
