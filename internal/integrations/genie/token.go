package genie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Getter reads a single parameter value; paramstore.SecretReader satisfies it.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the JSON shape stored in Parameter Store for the
// Databricks personal access token.
type tokenPayload struct {
	Token string `json:"token"`
}

// FetchToken loads the bearer token from the named parameter. The value must
// be a JSON object with a non-empty "token" field.
func FetchToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("genie: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("genie: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("genie: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("genie: unmarshal paramstore token value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", errors.New("genie: databricks token is empty")
	}
	return strings.TrimSpace(tp.Token), nil
}
