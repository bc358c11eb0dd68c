package acceptance

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/doease/doease/internal/app"
	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/config"
	"github.com/doease/doease/pkg/observability"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type Suite struct {
	suite.Suite
	Remote  *fakeRemote
	BaseURL string
	cancel  context.CancelFunc
}

func TestSuite(t *testing.T) {
	suite.Run(t, new(Suite))
}

func (s *Suite) SetupSuite() {
	s.Remote = newFakeRemote()

	baseURL, cancel, err := s.startApp(s.Remote)
	if err != nil {
		s.T().Fatalf("Failed to start app: %v", err)
	}
	s.BaseURL = baseURL
	s.cancel = cancel

	s.waitForResolvedState()
}

func (s *Suite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
		time.Sleep(100 * time.Millisecond)
	}
}

func (s *Suite) SetupTest() {
	// Sign out through the app so its published state clears, then wipe the
	// remote rows.
	resp, err := http.Post(s.BaseURL+"/api/v1/auth/signout", "application/json", nil)
	if err == nil {
		resp.Body.Close()
	}
	s.Remote.reset()
}

func (s *Suite) startApp(remote backend.API) (string, context.CancelFunc, error) {
	cfg := s.createTestConfig()

	gin.SetMode(gin.TestMode)

	infra, err := s.createTestInfrastructure(remote)
	if err != nil {
		return "", nil, fmt.Errorf("failed to initialize test infrastructure: %w", err)
	}

	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create listener: %w", err)
	}

	addr := listener.Addr().(*net.TCPAddr)
	baseURL := fmt.Sprintf("http://localhost:%d", addr.Port)

	cfg.Server.Port = fmt.Sprintf("%d", addr.Port)
	listener.Close()

	application := app.NewApp(infra, cfg)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := application.Run(ctx); err != nil {
			infra.Logger().Error("Application failed to run", zap.Error(err))
		}
	}()

	time.Sleep(100 * time.Millisecond)

	return baseURL, cancel, nil
}

func (s *Suite) waitForResolvedState() {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(s.BaseURL + "/api/v1/state")
		if err == nil {
			var state stateResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&state)
			resp.Body.Close()
			if decodeErr == nil && !state.Loading {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	s.T().Fatal("session bootstrap did not resolve")
}

func (s *Suite) createTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "0",
			ReadTimeout:  config.Duration{Duration: 15 * time.Second},
			WriteTimeout: config.Duration{Duration: 15 * time.Second},
		},
		Backend: config.BackendConfig{
			URL:            "https://test-project.supabase.co",
			AnonKey:        "test-anon-key",
			DomainSuffix:   ".supabase.co",
			RequestTimeout: config.Duration{Duration: 10 * time.Second},
		},
		Bootstrap: config.BootstrapConfig{
			GuardTimeout:      config.Duration{Duration: 2 * time.Second},
			LastChanceTimeout: config.Duration{Duration: 1 * time.Second},
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Env: "test",
	}
}

func (s *Suite) createTestInfrastructure(remote backend.API) (*testInfrastructure, error) {
	logger, err := observability.InitLogger("test")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	meterProvider, metricsHandler, err := observability.InitTelemetry("doease-test")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return &testInfrastructure{
		remote:         remote,
		logger:         logger,
		metricsHandler: metricsHandler,
		meterProvider:  meterProvider,
	}, nil
}

// stateResponse mirrors the published state payload fields the tests read.
type stateResponse struct {
	CurrentUser *struct {
		ID                        string `json:"id"`
		Email                     string `json:"email"`
		Username                  string `json:"username"`
		CurrentStreak             int    `json:"current_streak"`
		EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	} `json:"current_user"`
	Loading            bool   `json:"loading"`
	IsConfigured       bool   `json:"is_configured"`
	ConfigurationError string `json:"configuration_error"`
}

type testInfrastructure struct {
	remote         backend.API
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

func (i *testInfrastructure) Backend() backend.API {
	return i.remote
}

func (i *testInfrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *testInfrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *testInfrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *testInfrastructure) Shutdown(ctx context.Context) error {
	if i.logger != nil {
		_ = i.logger.Sync()
	}
	if i.meterProvider != nil {
		_ = observability.Shutdown(ctx, i.meterProvider, i.logger)
	}
	return nil
}
