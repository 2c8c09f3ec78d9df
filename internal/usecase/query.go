package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"genie-adapter/internal/domain"
	"genie-adapter/internal/integrations/genie"
)

const (
	DefaultMaxWait      = 120 * time.Second
	defaultMaxWaitLimit = 300 * time.Second
	defaultMaxQuestion  = 2000

	fallbackAnswer = "Query completed successfully"
	statusUnknown  = "UNKNOWN"
)

// ConversationClient is the per-query view of a Genie conversation.
// *genie.Client satisfies it.
type ConversationClient interface {
	ConversationID() string
	SendMessage(ctx context.Context, prompt string) (string, error)
	GetMessageStatus(ctx context.Context, messageID string, maxWait time.Duration) (domain.GenieMessage, error)
	ResultFetcher
}

// ClientFactory builds a fresh client. A non-empty conversationID continues
// that conversation; an empty one lets the client start a new conversation
// when the first message is sent.
type ClientFactory func(conversationID string) (ConversationClient, error)

// SessionStore maps a user to their current conversation.
//
// Set is last-write-wins. Two concurrent first queries from the same user can
// each start a conversation; whichever Set lands last is kept and the other
// conversation is orphaned.
type SessionStore interface {
	Get(ctx context.Context, userID string) (string, bool, error)
	Set(ctx context.Context, userID, conversationID string) error
	Delete(ctx context.Context, userID string) (bool, error)
}

type QueryInput struct {
	UserID    string
	Question  string
	SessionID string
	// MaxWait bounds status polling; zero means DefaultMaxWait.
	MaxWait time.Duration
}

type QueryOutput struct {
	SessionID  string
	AnswerText string
	SQL        string
	Columns    []string
	Rows       [][]any
	RowCount   int
	Status     string
}

type ClearOutcome string

const (
	ClearCleared  ClearOutcome = "cleared"
	ClearNotFound ClearOutcome = "not_found"
)

// QueryService answers questions through Genie, keeping one conversation per
// user across turns.
type QueryService struct {
	newClient      ClientFactory
	sessions       SessionStore
	maxQuestionLen int
	maxWaitLimit   time.Duration
}

func NewQueryService(newClient ClientFactory, sessions SessionStore, maxQuestionLen int, maxWaitLimit time.Duration) (*QueryService, error) {
	if newClient == nil {
		return nil, errors.New("usecase: client factory must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if maxQuestionLen <= 0 {
		maxQuestionLen = defaultMaxQuestion
	}
	if maxWaitLimit <= 0 {
		maxWaitLimit = defaultMaxWaitLimit
	}
	return &QueryService{
		newClient:      newClient,
		sessions:       sessions,
		maxQuestionLen: maxQuestionLen,
		maxWaitLimit:   maxWaitLimit,
	}, nil
}

func (s *QueryService) Query(ctx context.Context, in QueryInput) (QueryOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return QueryOutput{}, invalidInput("empty_user_id", "user_id is required")
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return QueryOutput{}, invalidInput("empty_question", "question is required")
	}
	if utf8.RuneCountInString(question) > s.maxQuestionLen {
		return QueryOutput{}, invalidInput("question_too_long", fmt.Sprintf("question exceeds %d characters", s.maxQuestionLen))
	}
	maxWait := in.MaxWait
	switch {
	case maxWait == 0:
		maxWait = DefaultMaxWait
	case maxWait < 0:
		return QueryOutput{}, invalidInput("invalid_max_wait", "max_wait must not be negative")
	case maxWait > s.maxWaitLimit:
		return QueryOutput{}, invalidInput("max_wait_too_long", fmt.Sprintf("max_wait exceeds %d seconds", int(s.maxWaitLimit/time.Second)))
	}

	convID, err := s.resolveConversation(ctx, userID, in.SessionID)
	if err != nil {
		return QueryOutput{}, newError(ErrorInternal, "session_read_error", http.StatusInternalServerError, "", err)
	}

	client, err := s.newClient(convID)
	if err != nil {
		return QueryOutput{}, newError(ErrorInternal, "client_init_error", http.StatusInternalServerError, "", err)
	}

	started := time.Now()
	messageID, err := client.SendMessage(ctx, question)
	if err != nil {
		return QueryOutput{}, classifyGenieError("send_message", err)
	}
	msg, err := client.GetMessageStatus(ctx, messageID, maxWait)
	if err != nil {
		return QueryOutput{}, classifyGenieError("message_status", err)
	}
	ans := Normalize(ctx, messageID, msg, client)

	convID = client.ConversationID()
	if err := s.sessions.Set(ctx, userID, convID); err != nil {
		// The answer is already computed; losing the mapping only costs
		// conversational context on the next turn.
		slog.ErrorContext(ctx, "failed to persist session", "user_id", userID, "conversation_id", convID, "err", err)
	}

	out := QueryOutput{
		SessionID:  convID,
		AnswerText: ans.Analysis,
		SQL:        ans.SQL,
		Columns:    ans.Columns,
		Rows:       ans.Rows,
		RowCount:   ans.RowCount,
		Status:     ans.Status,
	}
	if strings.TrimSpace(out.AnswerText) == "" {
		out.AnswerText = fallbackAnswer
	}
	if out.Status == "" {
		out.Status = statusUnknown
	}

	slog.InfoContext(ctx, "genie query completed",
		"user_id", userID,
		"conversation_id", convID,
		"message_id", messageID,
		"status", out.Status,
		"row_count", out.RowCount,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return out, nil
}

// resolveConversation prefers an explicit session id over the stored mapping.
func (s *QueryService) resolveConversation(ctx context.Context, userID, sessionID string) (string, error) {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id, nil
	}
	id, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return id, nil
}

// ClearSession forgets the user's conversation. Clearing an unknown user is
// not an error.
func (s *QueryService) ClearSession(ctx context.Context, userID string) (ClearOutcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", invalidInput("empty_user_id", "user_id is required")
	}
	found, err := s.sessions.Delete(ctx, userID)
	if err != nil {
		return "", newError(ErrorInternal, "session_delete_error", http.StatusInternalServerError, "", err)
	}
	if !found {
		return ClearNotFound, nil
	}
	slog.InfoContext(ctx, "cleared session", "user_id", userID)
	return ClearCleared, nil
}

func invalidInput(reason, detail string) *Error {
	return newError(ErrorInvalidInput, reason, http.StatusBadRequest, detail, nil)
}

func classifyGenieError(op string, err error) *Error {
	var (
		remoteErr  *genie.RemoteError
		protoErr   *genie.ProtocolError
		timeoutErr *genie.TimeoutError
	)
	switch {
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return newError(ErrorTimeout, "genie_timeout", http.StatusGatewayTimeout, "Genie query timed out", err)
	case errors.As(err, &remoteErr):
		detail := fmt.Sprintf("%s failed: %s", remoteErr.Op, remoteErr.Body)
		return newError(ErrorUpstream, op+"_rejected", remoteErr.HTTPStatusCode(), detail, err)
	case errors.As(err, &protoErr):
		detail := fmt.Sprintf("no %s in %s response", protoErr.Field, protoErr.Op)
		if protoErr.Err != nil {
			detail = fmt.Sprintf("%s returned a body that is not valid JSON", protoErr.Op)
		}
		return newError(ErrorUpstream, op+"_malformed_response", http.StatusInternalServerError, detail, err)
	case errors.Is(err, context.Canceled):
		return newError(ErrorInternal, "request_cancelled", http.StatusInternalServerError, "", err)
	default:
		return newError(ErrorUpstream, op+"_unreachable", http.StatusBadGateway, "Genie is unreachable", err)
	}
}
