package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/auth"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zigbee/internal/znp"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// writeConfig writes a config file for run and points GRAYLOGIC_CONFIG at it.
func writeConfig(t *testing.T, radioPort string, apiPort int, extra string) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "zigbee.db")

	content := fmt.Sprintf(`
site:
  id: test-site

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "graylogic-zigbee-test"
  qos: 1

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: %d

radio:
  port: %q
  request_timeout: 200
%s`, dbPath, apiPort, radioPort, extra)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", path)
	return dbPath
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("GRAYLOGIC_CONFIG", "/etc/graylogic/zigbee.yaml")
	if got := getConfigPath(); got != "/etc/graylogic/zigbee.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() error = %v, want a config error", err)
	}
}

func TestRun_RadioUnreachable(t *testing.T) {
	// Reserve a port and release it so nothing is listening there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	dbPath := writeConfig(t, "tcp://"+addr, 8090, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = run(ctx)
	if err == nil || !strings.Contains(err.Error(), "opening radio") {
		t.Fatalf("run() error = %v, want a radio error", err)
	}

	// The database is opened and migrated before the radio.
	if _, statErr := os.Stat(dbPath); statErr != nil {
		t.Errorf("database not created: %v", statErr)
	}
}

// TestRun_StartupAndShutdown runs the whole gateway against a silent TCP
// coprocessor. Requires an MQTT broker at 127.0.0.1:1883.
func TestRun_StartupAndShutdown(t *testing.T) {
	if conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond); err != nil {
		t.Skip("MQTT broker not available at 127.0.0.1:1883")
	} else {
		conn.Close()
	}

	radio, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer radio.Close()
	go func() {
		conn, err := radio.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn) //nolint:errcheck // drains until the gateway hangs up
	}()

	api, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	apiPort := api.Addr().(*net.TCPAddr).Port
	api.Close()

	writeConfig(t, "tcp://"+radio.Addr().String(), apiPort, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() error = %v", err)
	}
}

type fakeVersionReader struct {
	v   znp.Version
	err error
}

func (f fakeVersionReader) Version(context.Context) (znp.Version, error) { return f.v, f.err }

func TestProbeRadio(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	got := probeRadio(context.Background(), fakeVersionReader{v: znp.Version{Major: 2, Minor: 7, Maint: 1, Revision: 20220219}}, log)
	if got != "2.7.1 (20220219)" {
		t.Errorf("probeRadio() = %q", got)
	}

	if got := probeRadio(context.Background(), fakeVersionReader{err: errors.New("timeout")}, log); got != "" {
		t.Errorf("probeRadio() on error = %q, want empty", got)
	}
}

func TestRunToken(t *testing.T) {
	writeConfig(t, "/dev/ttyACM0", 8090, fmt.Sprintf(`
security:
  jwt:
    secret: %q
    access_token_ttl: 15
`, testSecret))

	var out bytes.Buffer
	if err := runToken([]string{"-subject", "alice", "-role", "installer"}, &out); err != nil {
		t.Fatalf("runToken() error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "alice" || claims.Role != auth.RoleInstaller {
		t.Errorf("claims = %+v", claims)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl <= 14*time.Minute || ttl > 15*time.Minute {
		t.Errorf("token lifetime = %v, want about 15m", ttl)
	}
}

func TestRunToken_Errors(t *testing.T) {
	writeConfig(t, "/dev/ttyACM0", 8090, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing subject", []string{"-role", "viewer"}, "-subject is required"},
		{"unknown role", []string{"-subject", "x", "-role", "admin"}, "unknown role"},
		{"auth disabled", []string{"-subject", "x"}, "security.jwt.secret is not set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runToken(tt.args, io.Discard)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("runToken() error = %v, want %q", err, tt.want)
			}
		})
	}
}
