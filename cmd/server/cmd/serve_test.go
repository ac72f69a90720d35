package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tuansdf/react-start-template/internal/config"
)

func TestServeHTTP_ServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := newHTTPServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, server, ln, zerolog.Nop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewHTTPServer_Timeouts(t *testing.T) {
	server := newHTTPServer(http.NotFoundHandler())
	assert.Equal(t, 10*time.Second, server.ReadTimeout)
	assert.Equal(t, 30*time.Second, server.WriteTimeout)
	assert.Equal(t, 5*time.Second, server.ReadHeaderTimeout)
	assert.Equal(t, 1<<20, server.MaxHeaderBytes)
}

type mockEnsurer struct {
	mock.Mock
}

func (m *mockEnsurer) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	args := m.Called(ctx, name, email, password)
	return args.Bool(0), args.Error(1)
}

func TestPoolConfig_TracesQueriesInDevelopment(t *testing.T) {
	tests := []struct {
		env      string
		level    string
		wantLogs bool
	}{
		{env: config.EnvDevelopment, level: "info", wantLogs: true},
		{env: config.EnvProduction, level: "debug", wantLogs: false},
		{env: config.EnvTest, level: "debug", wantLogs: false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := config.Config{Environment: tt.env}
			cfg.Logging.Level = tt.level
			cfg.Database.URL = "postgres://localhost/app"
			cfg.Database.MaxConnections = 7

			pc := poolConfig(cfg)
			assert.Equal(t, tt.wantLogs, pc.LogQueries)
			assert.Equal(t, "postgres://localhost/app", pc.URL)
			assert.Equal(t, 7, pc.MaxConnections)
		})
	}
}

func TestBootstrapAdmin(t *testing.T) {
	configured := config.Config{Environment: config.EnvDevelopment}
	configured.Admin = config.AdminBootstrapConfig{Name: "Root", Email: "root@example.com", Password: "correct-horse-battery"}

	t.Run("not configured", func(t *testing.T) {
		ensurer := &mockEnsurer{}
		require.NoError(t, bootstrapAdmin(context.Background(), ensurer, config.Config{}, zerolog.Nop()))
		ensurer.AssertNotCalled(t, "EnsureAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("created", func(t *testing.T) {
		var buf bytes.Buffer
		ensurer := &mockEnsurer{}
		ensurer.On("EnsureAdmin", mock.Anything, "Root", "root@example.com", "correct-horse-battery").Return(true, nil)

		require.NoError(t, bootstrapAdmin(context.Background(), ensurer, configured, zerolog.New(&buf)))
		ensurer.AssertExpectations(t)
		assert.Contains(t, buf.String(), "bootstrapped admin user")
		assert.Contains(t, buf.String(), "root@example.com")
	})

	t.Run("production redacts email", func(t *testing.T) {
		var buf bytes.Buffer
		prod := configured
		prod.Environment = config.EnvProduction
		ensurer := &mockEnsurer{}
		ensurer.On("EnsureAdmin", mock.Anything, "Root", "root@example.com", "correct-horse-battery").Return(true, nil)

		require.NoError(t, bootstrapAdmin(context.Background(), ensurer, prod, zerolog.New(&buf)))
		assert.NotContains(t, buf.String(), "root@example.com")
	})

	t.Run("already exists", func(t *testing.T) {
		var buf bytes.Buffer
		ensurer := &mockEnsurer{}
		ensurer.On("EnsureAdmin", mock.Anything, "Root", "root@example.com", "correct-horse-battery").Return(false, nil)

		require.NoError(t, bootstrapAdmin(context.Background(), ensurer, configured, zerolog.New(&buf)))
		assert.Empty(t, buf.String())
	})

	t.Run("error", func(t *testing.T) {
		ensurer := &mockEnsurer{}
		ensurer.On("EnsureAdmin", mock.Anything, "Root", "root@example.com", "correct-horse-battery").Return(false, errors.New("db down"))

		err := bootstrapAdmin(context.Background(), ensurer, configured, zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	_, err := execute(t, "migrate", "down", "--steps", "0", noEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps")
}
