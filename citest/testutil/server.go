package testutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/gateway"
	"github.com/parleyhq/parley/internal/server"
	"github.com/parleyhq/parley/internal/storage"
	"github.com/parleyhq/parley/internal/vault"
	"github.com/parleyhq/parley/pkg/types"
)

// TestMasterSecret seals credentials in test servers.
const TestMasterSecret = "citest-master-secret"

// TestServer wraps a running gateway instance for end-to-end tests.
type TestServer struct {
	Server  *server.Server
	BaseURL string
	Chat    *chat.Service
	Vault   *vault.Vault
	Model   *MockModel
	TempDir string
	port    int
}

// StartTestServer boots a server on a free port with temp-dir storage
// and a scripted mock model in place of real providers.
func StartTestServer() (*TestServer, error) {
	tempDir, err := os.MkdirTemp("", "parley-test-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	port, err := findAvailablePort()
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("find port: %w", err)
	}

	store := storage.New(filepath.Join(tempDir, "storage"))
	chatSvc := chat.NewService(store)
	v := vault.New(TestMasterSecret)
	model := NewMockModel()
	gw := gateway.New(chatSvc, chatSvc, v, model)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = port
	serverConfig.EnableCORS = false

	appConfig := &types.Config{
		MasterSecret: TestMasterSecret,
		DataDir:      tempDir,
		Port:         port,
	}

	srv := server.New(serverConfig, appConfig, chatSvc, gw, v)

	ts := &TestServer{
		Server:  srv,
		BaseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		Chat:    chatSvc,
		Vault:   v,
		Model:   model,
		TempDir: tempDir,
		port:    port,
	}

	go srv.Start()

	if err := ts.waitReady(5 * time.Second); err != nil {
		ts.Stop()
		return nil, err
	}
	return ts, nil
}

// Client returns an HTTP client bound to this server.
func (ts *TestServer) Client() *TestClient {
	return NewTestClient(ts.BaseURL)
}

// Stop shuts the server down and removes its data directory.
func (ts *TestServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts.Server.Shutdown(ctx)
	os.RemoveAll(ts.TempDir)
}

func (ts *TestServer) waitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.BaseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server did not become ready within %s", timeout)
}

func findAvailablePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
