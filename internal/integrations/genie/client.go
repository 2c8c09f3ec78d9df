package genie

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

	"genie-adapter/internal/domain"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultHTTPTimeout  = 30 * time.Second
	startContent        = "Starting conversation"

	maxErrorBody  = 4 << 10
	maxResultBody = 8 << 20
)

var errNoConversation = errors.New("genie: no active conversation")

// Client drives one conversation against a Genie space. It holds the current
// conversation id as mutable state and is not safe for concurrent use; build
// one per query.
type Client struct {
	host         string
	spaceID      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
	now          func() time.Time

	conversationID string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithConversationID continues an existing conversation instead of starting
// a new one on the first SendMessage.
func WithConversationID(id string) Option {
	return func(c *Client) {
		c.conversationID = strings.TrimSpace(id)
	}
}

// NewClient creates a Client for the given workspace host and space. A host
// without a scheme is assumed to be https.
func NewClient(host, spaceID, token string, opts ...Option) (*Client, error) {
	host = NormalizeHost(host)
	if host == "" {
		return nil, errors.New("genie: host must not be empty")
	}
	spaceID = strings.TrimSpace(spaceID)
	if spaceID == "" {
		return nil, errors.New("genie: space id must not be empty")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("genie: token must not be empty")
	}
	c := &Client{
		host:         host,
		spaceID:      spaceID,
		token:        token,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NormalizeHost trims the host and prefixes https:// when no scheme is given.
func NormalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	return host
}

func (c *Client) ConversationID() string {
	return c.conversationID
}

func (c *Client) spaceURL() string {
	return c.host + "/api/2.0/genie/spaces/" + url.PathEscape(c.spaceID)
}

func (c *Client) messagesURL() string {
	return c.spaceURL() + "/conversations/" + url.PathEscape(c.conversationID) + "/messages"
}

func (c *Client) messageURL(messageID string) string {
	return c.messagesURL() + "/" + url.PathEscape(messageID)
}

func (c *Client) queryResultURL(messageID, attachmentID string) string {
	return c.messageURL(messageID) + "/attachments/" + url.PathEscape(attachmentID) + "/query-result"
}

// StartConversation opens a new conversation and makes it current.
func (c *Client) StartConversation(ctx context.Context) (string, error) {
	const op = "start conversation"
	endpoint := c.spaceURL() + "/start-conversation"
	slog.InfoContext(ctx, "starting genie conversation", "space_id", c.spaceID)

	raw, err := c.doJSON(ctx, http.MethodPost, endpoint, contentRequest{Content: startContent}, op)
	if err != nil {
		return "", err
	}
	var ref conversationRef
	if err := decodeJSON(raw, &ref); err != nil {
		return "", malformed(op, err)
	}
	id := ref.id()
	if id == "" {
		return "", &ProtocolError{Op: op, Field: "conversation_id"}
	}
	c.conversationID = id
	slog.InfoContext(ctx, "started genie conversation", "conversation_id", id)
	return id, nil
}

// SendMessage posts prompt to the current conversation, starting one first if
// none exists, and returns the message id.
func (c *Client) SendMessage(ctx context.Context, prompt string) (string, error) {
	const op = "send message"
	if c.conversationID == "" {
		if _, err := c.StartConversation(ctx); err != nil {
			return "", err
		}
	}

	raw, err := c.doJSON(ctx, http.MethodPost, c.messagesURL(), contentRequest{Content: prompt}, op)
	if err != nil {
		return "", err
	}
	var ref messageRef
	if err := decodeJSON(raw, &ref); err != nil {
		return "", malformed(op, err)
	}
	id := ref.id()
	if id == "" {
		return "", &ProtocolError{Op: op, Field: "message id"}
	}
	slog.InfoContext(ctx, "sent genie message", "conversation_id", c.conversationID, "message_id", id)
	return id, nil
}

// GetMessageStatus polls the message until it reaches a terminal status or
// maxWait has elapsed since the call began. A failed poll is returned
// immediately; it is not retried.
func (c *Client) GetMessageStatus(ctx context.Context, messageID string, maxWait time.Duration) (domain.GenieMessage, error) {
	const op = "get message status"
	if c.conversationID == "" {
		return domain.GenieMessage{}, errNoConversation
	}
	endpoint := c.messageURL(messageID)

	start := c.now()
	for c.now().Sub(start) < maxWait {
		raw, err := c.doJSON(ctx, http.MethodGet, endpoint, nil, op)
		if err != nil {
			return domain.GenieMessage{}, err
		}
		var payload messagePayload
		if err := decodeJSON(raw, &payload); err != nil {
			return domain.GenieMessage{}, malformed(op, err)
		}
		status := domain.MessageStatus(payload.Status)
		slog.DebugContext(ctx, "genie message status", "message_id", messageID, "status", status)
		if status.Terminal() {
			return payload.toDomain(), nil
		}
		if err := sleep(ctx, c.pollInterval); err != nil {
			return domain.GenieMessage{}, err
		}
	}
	return domain.GenieMessage{}, &TimeoutError{MessageID: messageID, MaxWait: maxWait}
}

// GetQueryResult fetches the tabular result of a SQL attachment. It never
// fails: any error yields an absent result with Err set.
func (c *Client) GetQueryResult(ctx context.Context, messageID, attachmentID string) domain.QueryResultFetch {
	const op = "get query result"
	if c.conversationID == "" {
		return absent(ctx, attachmentID, errNoConversation)
	}

	raw, err := c.doJSON(ctx, http.MethodGet, c.queryResultURL(messageID, attachmentID), nil, op)
	if err != nil {
		return absent(ctx, attachmentID, err)
	}
	var payload queryResultPayload
	if err := decodeJSON(raw, &payload); err != nil {
		return absent(ctx, attachmentID, malformed(op, err))
	}
	res := payload.toDomain()
	if res == nil {
		return absent(ctx, attachmentID, &ProtocolError{Op: op, Field: "statement_response"})
	}
	return domain.QueryResultFetch{Result: res}
}

func absent(ctx context.Context, attachmentID string, err error) domain.QueryResultFetch {
	slog.WarnContext(ctx, "genie query result unavailable", "attachment_id", attachmentID, "err", err)
	return domain.QueryResultFetch{Err: err}
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, in any, op string) ([]byte, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("genie: %s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("genie: %s: create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("genie: %s: request failed: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		slog.ErrorContext(ctx, "genie request failed", "op", op, "status", res.StatusCode)
		return nil, &RemoteError{
			Op:         op,
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResultBody))
	if err != nil {
		return nil, fmt.Errorf("genie: %s: read response body: %w", op, err)
	}
	return buf, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// malformed reports a 2xx body that is not valid JSON, including one cut off
// at maxResultBody.
func malformed(op string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Field: "valid JSON body", Err: err}
}

// decodeJSON keeps numbers as json.Number so result cells round-trip exactly.
func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
