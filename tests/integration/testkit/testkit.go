package testkit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/uuid-backfill/internal/app"
	"github.com/sha1n/uuid-backfill/internal/config"
	"github.com/spf13/pflag"
)

// Property names published by the services in this package
const (
	PropRoot = "root"
	PropURL  = "url"
)

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnv manages the lifecycle of test services and collects the
// properties they publish on startup
type TestEnv struct {
	services   []Service
	started    []Service
	properties map[string]any
}

// NewTestEnv creates a new test environment with the given services
func NewTestEnv(services ...Service) *TestEnv {
	return &TestEnv{
		services:   services,
		properties: make(map[string]any),
	}
}

// Start starts services in order. On failure, services already started are
// stopped again.
func (e *TestEnv) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			_ = e.Stop()
			return nil, fmt.Errorf("failed to start %s: %w", s.GetName(), err)
		}
		e.started = append(e.started, s)
		for k, v := range props {
			e.properties[k] = v
		}
	}
	return e.properties, nil
}

// Stop stops started services in reverse order
func (e *TestEnv) Stop() error {
	var errs []error
	for i := len(e.started) - 1; i >= 0; i-- {
		if err := e.started[i].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	e.started = nil
	return errors.Join(errs...)
}

// Property returns a property published by a started service
func (e *TestEnv) Property(name string) (any, bool) {
	val, ok := e.properties[name]
	return val, ok
}

// MustStart starts the environment and registers its shutdown as test cleanup
func MustStart(t testing.TB, env *TestEnv) map[string]any {
	t.Helper()
	props, err := env.Start()
	if err != nil {
		t.Fatalf("Failed to start test env: %v", err)
	}
	t.Cleanup(func() {
		if err := env.Stop(); err != nil {
			t.Errorf("Failed to stop test env: %v", err)
		}
	})
	return props
}

// FixtureService writes JSON fixture files into a fresh directory
type FixtureService struct {
	Files map[string]string // relative path -> content
	dir   string
}

// GetName returns the service name
func (s *FixtureService) GetName() string {
	return "fixtures"
}

// Start writes the fixtures and publishes the directory as PropRoot
func (s *FixtureService) Start() (map[string]any, error) {
	dir, err := os.MkdirTemp("", "uuid-backfill-fixtures-")
	if err != nil {
		return nil, err
	}
	s.dir = dir

	for name, content := range s.Files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, err
		}
	}
	return map[string]any{PropRoot: dir}, nil
}

// Stop removes the fixture directory
func (s *FixtureService) Stop() error {
	if s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// SSEServerService runs an MCP server over the SSE transport
type SSEServerService struct {
	Server   *mcp.Server
	Settings *config.Settings

	cancel context.CancelFunc
	done   chan error
}

// GetName returns the service name
func (s *SSEServerService) GetName() string {
	return "sse-server"
}

// Start starts the server, waits for /health and publishes the base URL as PropURL
func (s *SSEServerService) Start() (map[string]any, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)

	go func() {
		s.done <- app.StartSSEServer(ctx, s.Server, s.Settings)
	}()

	url := fmt.Sprintf("http://%s", net.JoinHostPort(s.Settings.Serve.Host, strconv.Itoa(s.Settings.Serve.Port)))
	if err := waitForHealth(url+"/health", 5*time.Second); err != nil {
		cancel()
		return nil, err
	}
	return map[string]any{PropURL: url}, nil
}

// Stop shuts the server down
func (s *SSEServerService) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return <-s.done
}

func waitForHealth(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not healthy after %v", url, timeout)
}

// GetFreePort returns a free port from the kernel
func GetFreePort() (int, error) {
	return getFreePortWithAddr("localhost:0")
}

// MustGetFreePort returns a free port or fails the test
func MustGetFreePort(t testing.TB) int {
	t.Helper()
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	return port
}

func getFreePortWithAddr(addrStr string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", addrStr)
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	Field       string // Defaults to "id"
	UUIDVersion string // Defaults to "v4"
	DryRun      bool
	Strict      bool
	Root        string // Serve root; left unset if empty
	Port        int    // Uses free port if 0
	Transport   string // Defaults to "sse"
	AuthType    string // Defaults to "none"
	Host        string // Defaults to "localhost"
}

// NewTestFlags creates a configured pflag.FlagSet for testing. Lock files go
// to a per-test directory and colors are disabled.
func NewTestFlags(t testing.TB, opts *FlagOptions) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterFlags(flags)
	app.RegisterServeFlags(flags)

	if opts == nil {
		opts = &FlagOptions{}
	}

	field := opts.Field
	if field == "" {
		field = "id"
	}
	version := opts.UUIDVersion
	if version == "" {
		version = "v4"
	}
	transport := opts.Transport
	if transport == "" {
		transport = "sse"
	}
	authType := opts.AuthType
	if authType == "" {
		authType = "none"
	}
	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	port := opts.Port
	if port == 0 {
		port = MustGetFreePort(t)
	}

	set := func(name, value string) {
		if err := flags.Set(name, value); err != nil {
			t.Fatalf("Failed to set flag %s: %v", name, err)
		}
	}

	set("field", field)
	set("uuid-version", version)
	set("no-color", "true")
	set("lock-dir", t.TempDir())
	set("dry-run", strconv.FormatBool(opts.DryRun))
	set("strict", strconv.FormatBool(opts.Strict))
	set("port", strconv.Itoa(port))
	set("transport", transport)
	set("auth-type", authType)
	set("host", host)
	if opts.Root != "" {
		set("root", opts.Root)
	}

	return flags
}
