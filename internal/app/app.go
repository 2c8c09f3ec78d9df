package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"genie-adapter/handler"
	"genie-adapter/internal/config"
	"genie-adapter/internal/integrations/genie"
	"genie-adapter/internal/integrations/paramstore"
	"genie-adapter/internal/repository"
	"genie-adapter/internal/usecase"
)

type sessionStore interface {
	usecase.SessionStore
	Close() error
}

// App is the wired service graph shared by the Lambda and geniectl.
type App struct {
	Service *usecase.QueryService
	Handler *handler.Handler

	sessions sessionStore
}

// Build wires the service from cfg. AWS credentials are only loaded when the
// token comes from Parameter Store or sessions live in DynamoDB.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	loader := &awsLoader{}
	token, err := resolveToken(ctx, cfg, loader)
	if err != nil {
		return nil, err
	}

	sessions, err := openSessionStore(ctx, cfg, loader)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	newClient := func(conversationID string) (usecase.ConversationClient, error) {
		c, err := genie.NewClient(cfg.DatabricksHost, cfg.SpaceID, token,
			genie.WithHTTPClient(httpClient),
			genie.WithPollInterval(cfg.PollInterval),
			genie.WithConversationID(conversationID),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	// Fail at startup rather than on the first request.
	if _, err := newClient(""); err != nil {
		_ = sessions.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	svc, err := usecase.NewQueryService(newClient, sessions, cfg.MaxQuestionLength, cfg.MaxWaitLimit)
	if err != nil {
		_ = sessions.Close()
		return nil, fmt.Errorf("app: create query service: %w", err)
	}
	h, err := handler.NewHandler(svc,
		handler.WithHealthInfo(genie.NormalizeHost(cfg.DatabricksHost), cfg.SpaceID),
		handler.WithAllowOrigin(cfg.CORSAllowOrigin),
	)
	if err != nil {
		_ = sessions.Close()
		return nil, fmt.Errorf("app: create handler: %w", err)
	}

	slog.Info("service configured",
		"databricks_host", genie.NormalizeHost(cfg.DatabricksHost),
		"space_id", cfg.SpaceID,
		"session_backend", cfg.SessionBackend,
	)
	return &App{Service: svc, Handler: h, sessions: sessions}, nil
}

// Close releases the session store.
func (a *App) Close() error {
	if a == nil || a.sessions == nil {
		return nil
	}
	return a.sessions.Close()
}

func resolveToken(ctx context.Context, cfg config.Config, loader *awsLoader) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.TokenParam == "" {
		return "", errors.New("app: no databricks token configured")
	}
	awsCfg, err := loader.load(ctx)
	if err != nil {
		return "", err
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return "", fmt.Errorf("app: create paramstore client: %w", err)
	}
	token, err := genie.FetchToken(ctx, ps, cfg.TokenParam)
	if errors.Is(err, paramstore.ErrNotFound) {
		return "", fmt.Errorf("app: token parameter %s does not exist; set DATABRICKS_TOKEN_PARAM or DATABRICKS_TOKEN: %w", cfg.TokenParam, err)
	}
	if err != nil {
		return "", fmt.Errorf("app: %w", err)
	}
	return token, nil
}

func openSessionStore(ctx context.Context, cfg config.Config, loader *awsLoader) (sessionStore, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory, "":
		return repository.NewMemorySessionStore(), nil
	case config.BackendSQLite:
		s, err := repository.OpenSQLiteSessionStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return s, nil
	case config.BackendDynamoDB:
		awsCfg, err := loader.load(ctx)
		if err != nil {
			return nil, err
		}
		s, err := repository.NewDynamoSessionStore(awsdynamodb.NewFromConfig(awsCfg), cfg.SessionTable, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("app: unknown session backend %q", cfg.SessionBackend)
	}
}

// awsLoader loads the default AWS config at most once.
type awsLoader struct {
	cfg    aws.Config
	loaded bool
}

func (l *awsLoader) load(ctx context.Context) (aws.Config, error) {
	if l.loaded {
		return l.cfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
	}
	l.cfg, l.loaded = cfg, true
	return cfg, nil
}
