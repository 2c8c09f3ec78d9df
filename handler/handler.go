package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"genie-adapter/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	sessionPathPrefix   = "/genie/session/"
	healthyStatus       = "healthy"
)

// QueryUseCase is the part of usecase.QueryService the handler needs.
type QueryUseCase interface {
	Query(ctx context.Context, in usecase.QueryInput) (usecase.QueryOutput, error)
	ClearSession(ctx context.Context, userID string) (usecase.ClearOutcome, error)
}

// Handler serves the adapter's HTTP surface from API Gateway proxy events.
// ServeHTTP exposes the same routes to net/http.
type Handler struct {
	uc          QueryUseCase
	host        string
	spaceID     string
	allowOrigin string
}

type Option func(*Handler)

// WithHealthInfo sets the workspace host and space id reported by the
// health routes.
func WithHealthInfo(host, spaceID string) Option {
	return func(h *Handler) {
		h.host = host
		h.spaceID = spaceID
	}
}

func WithAllowOrigin(origin string) Option {
	return func(h *Handler) {
		if origin = strings.TrimSpace(origin); origin != "" {
			h.allowOrigin = origin
		}
	}
}

func NewHandler(uc QueryUseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, allowOrigin: "*"}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type healthResponse struct {
	Status         string `json:"status"`
	DatabricksHost string `json:"databricks_host"`
	SpaceID        string `json:"space_id"`
}

type queryRequest struct {
	UserID    string  `json:"user_id"`
	Question  string  `json:"question"`
	SessionID *string `json:"session_id"`
	// MaxWait is in seconds.
	MaxWait *int `json:"max_wait"`
}

type queryResponse struct {
	SessionID  string   `json:"session_id"`
	AnswerText string   `json:"answer_text"`
	SQL        *string  `json:"sql"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	Status     string   `json:"status"`
}

type clearResponse struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

type errorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
}

// Handle routes one API Gateway proxy request. It never returns an error;
// failures are rendered as JSON error responses.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	resp := h.route(ctx, req, corrID)

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[headerCorrelationID] = corrID
	resp.Headers["Access-Control-Allow-Origin"] = h.allowOrigin
	resp.Headers["Access-Control-Allow-Methods"] = "GET, POST, DELETE, OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type, Authorization, X-Correlation-Id"

	slog.InfoContext(ctx, "request handled",
		"correlation_id", corrID,
		"method", req.HTTPMethod,
		"path", req.Path,
		"status", resp.StatusCode,
	)
	return resp, nil
}

func (h *Handler) route(ctx context.Context, req events.APIGatewayProxyRequest, corrID string) events.APIGatewayProxyResponse {
	method := strings.ToUpper(req.HTTPMethod)
	if method == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	}

	path := req.Path
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	switch {
	case path == "" || path == "/" || path == "/health":
		if method != http.MethodGet {
			return methodNotAllowed(corrID, http.MethodGet)
		}
		return jsonResponse(http.StatusOK, healthResponse{Status: healthyStatus, DatabricksHost: h.host, SpaceID: h.spaceID})

	case path == "/genie/query":
		if method != http.MethodPost {
			return methodNotAllowed(corrID, http.MethodPost)
		}
		return h.query(ctx, req, corrID)

	case strings.HasPrefix(path, sessionPathPrefix):
		userID, err := url.PathUnescape(strings.TrimPrefix(path, sessionPathPrefix))
		if err != nil || userID == "" || strings.Contains(userID, "/") {
			return errorJSON(http.StatusNotFound, "NOT_FOUND", "route not found", corrID)
		}
		if method != http.MethodDelete {
			return methodNotAllowed(corrID, http.MethodDelete)
		}
		return h.clearSession(ctx, userID, corrID)

	default:
		return errorJSON(http.StatusNotFound, "NOT_FOUND", "route not found", corrID)
	}
}

func (h *Handler) query(ctx context.Context, req events.APIGatewayProxyRequest, corrID string) events.APIGatewayProxyResponse {
	body, err := requestBody(req)
	if err != nil {
		return errorJSON(http.StatusBadRequest, string(usecase.ErrorInvalidInput), "request body is not valid base64", corrID)
	}
	var in queryRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return errorJSON(http.StatusBadRequest, string(usecase.ErrorInvalidInput), "request body must be a JSON object", corrID)
	}

	qi := usecase.QueryInput{UserID: in.UserID, Question: in.Question}
	if in.SessionID != nil {
		qi.SessionID = *in.SessionID
	}
	if in.MaxWait != nil {
		if *in.MaxWait <= 0 {
			return errorJSON(http.StatusBadRequest, string(usecase.ErrorInvalidInput), "max_wait must be a positive number of seconds", corrID)
		}
		qi.MaxWait = time.Duration(*in.MaxWait) * time.Second
	}

	out, err := h.uc.Query(ctx, qi)
	if err != nil {
		return h.failure(ctx, err, corrID)
	}

	resp := queryResponse{
		SessionID:  out.SessionID,
		AnswerText: out.AnswerText,
		Columns:    out.Columns,
		Rows:       out.Rows,
		RowCount:   out.RowCount,
		Status:     out.Status,
	}
	if out.SQL != "" {
		resp.SQL = &out.SQL
	}
	return jsonResponse(http.StatusOK, resp)
}

func (h *Handler) clearSession(ctx context.Context, userID, corrID string) events.APIGatewayProxyResponse {
	outcome, err := h.uc.ClearSession(ctx, userID)
	if err != nil {
		return h.failure(ctx, err, corrID)
	}
	return jsonResponse(http.StatusOK, clearResponse{Status: string(outcome), UserID: userID})
}

// failure renders err. Only usecase.Error details reach the client.
func (h *Handler) failure(ctx context.Context, err error, corrID string) events.APIGatewayProxyResponse {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		slog.ErrorContext(ctx, "unexpected error", "correlation_id", corrID, "err", err)
		return errorJSON(http.StatusInternalServerError, string(usecase.ErrorInternal), "internal server error", corrID)
	}

	status := ue.StatusCode
	if status == 0 {
		status = statusForCode(ue.Code)
	}
	msg := ue.Detail
	if msg == "" {
		msg = defaultMessage(ue.Code)
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "query failed", "correlation_id", corrID, "code", ue.Code, "reason", ue.Reason, "err", err)
	} else {
		slog.WarnContext(ctx, "query rejected", "correlation_id", corrID, "code", ue.Code, "reason", ue.Reason, "status", status)
	}
	return errorJSON(status, string(ue.Code), msg, corrID)
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	case usecase.ErrorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func defaultMessage(code usecase.ErrorCode) string {
	switch code {
	case usecase.ErrorInvalidInput:
		return "invalid request"
	case usecase.ErrorUpstream:
		return "Genie request failed"
	case usecase.ErrorTimeout:
		return "Genie query timed out"
	default:
		return "internal server error"
	}
}

func methodNotAllowed(corrID, allowed string) events.APIGatewayProxyResponse {
	resp := errorJSON(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", corrID)
	resp.Headers["Allow"] = allowed + ", OPTIONS"
	return resp
}

func errorJSON(status int, code, msg, corrID string) events.APIGatewayProxyResponse {
	return jsonResponse(status, errorResponse{Error: code, Message: msg, CorrelationID: corrID})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal response", "err", err)
		status = http.StatusInternalServerError
		b = []byte(`{"error":"INTERNAL_ERROR","message":"internal server error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

// correlationID returns the caller's X-Correlation-Id, matched
// case-insensitively, or a fresh UUID.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, headerCorrelationID) {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return uuid.NewString()
}
