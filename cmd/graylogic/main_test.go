package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/auth"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/mqtt"
)

const testSecret = "test-secret-for-development-only-0123456789"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config failure", err)
	}
}

// TestRun_MissingJWTSecret verifies validation rejects a config without a secret.
func TestRun_MissingJWTSecret(t *testing.T) {
	t.Setenv("GRAYLOGIC_JWT_SECRET", "")
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, `
site:
  id: test-site
database:
  path: "./test.db"
`))

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail without a JWT secret")
	}
	if !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("run() error = %v, want jwt secret failure", err)
	}
}

// TestRun_MissingDeviceTypes verifies run fails before touching the database
// when the type catalog cannot be read.
func TestRun_MissingDeviceTypes(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	t.Setenv("GRAYLOGIC_JWT_SECRET", testSecret)
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, `
site:
  id: test-site
database:
  path: "`+dbPath+`"
devices:
  types_file: "`+filepath.Join(dir, "missing.yaml")+`"
logging:
  level: error
  format: text
  output: stdout
`))

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail with a missing device type catalog")
	}
	if !strings.Contains(err.Error(), "loading device types") {
		t.Errorf("run() error = %v, want device types failure", err)
	}
	if _, statErr := os.Stat(dbPath); !os.IsNotExist(statErr) {
		t.Errorf("database should not be created, stat err = %v", statErr)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GRAYLOGIC_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }

// TestHealthCheck_NilInfluxClient verifies health check works with nil InfluxDB.
func TestHealthCheck_NilInfluxClient(t *testing.T) {
	if err := healthCheck(context.Background(), fakeChecker{}, fakeChecker{}, nil); err != nil {
		t.Errorf("healthCheck() = %v, want nil", err)
	}
}

func TestHealthCheck_ReportsFailingComponent(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		db   fakeChecker
		mqtt fakeChecker
		want string
	}{
		{"database", fakeChecker{err: boom}, fakeChecker{}, "database: boom"},
		{"mqtt", fakeChecker{}, fakeChecker{err: boom}, "mqtt: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := healthCheck(context.Background(), tt.db, tt.mqtt, nil)
			if err == nil || err.Error() != tt.want {
				t.Errorf("healthCheck() = %v, want %q", err, tt.want)
			}
			if !errors.Is(err, boom) {
				t.Error("healthCheck() should wrap the component error")
			}
		})
	}
}

type capture struct {
	topics []string
	err    error
}

func (c *capture) Publish(_ context.Context, topic string, _ []byte) error {
	c.topics = append(c.topics, topic)
	return c.err
}

func TestFanoutNotifier(t *testing.T) {
	t.Run("delivers to every target", func(t *testing.T) {
		primary, mirror := &capture{}, &capture{}
		n := newFanoutNotifier(primary, mirror)

		if err := n.Publish(context.Background(), "device/updated", []byte(`{}`)); err != nil {
			t.Fatalf("Publish() = %v", err)
		}
		if len(primary.topics) != 1 || len(mirror.topics) != 1 {
			t.Errorf("deliveries = %d/%d, want 1/1", len(primary.topics), len(mirror.topics))
		}
	})

	t.Run("primary error is returned and mirrors still run", func(t *testing.T) {
		boom := errors.New("broker down")
		primary, mirror := &capture{err: boom}, &capture{}
		n := newFanoutNotifier(primary, mirror)

		if err := n.Publish(context.Background(), "device/updated", nil); !errors.Is(err, boom) {
			t.Errorf("Publish() = %v, want %v", err, boom)
		}
		if len(mirror.topics) != 1 {
			t.Error("mirror should receive the notification")
		}
	})

	t.Run("mirror errors are ignored", func(t *testing.T) {
		primary, mirror := &capture{}, &capture{err: errors.New("closed")}
		n := newFanoutNotifier(primary, mirror)

		if err := n.Publish(context.Background(), "device/updated", nil); err != nil {
			t.Errorf("Publish() = %v, want nil", err)
		}
	})
}

func TestNotifyFunc(t *testing.T) {
	var got string
	f := notifyFunc(func(_ context.Context, topic string, _ []byte) error {
		got = topic
		return nil
	})
	if err := f.Publish(context.Background(), "device/updated", nil); err != nil {
		t.Fatalf("Publish() = %v", err)
	}
	if got != "device/updated" {
		t.Errorf("topic = %q", got)
	}
}

func TestRunToken(t *testing.T) {
	t.Setenv("GRAYLOGIC_JWT_SECRET", testSecret)
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, "site:\n  id: test-site\n"))

	var out strings.Builder
	if err := runToken([]string{"-subject", "kitchen-panel", "-role", "admin"}, &out); err != nil {
		t.Fatalf("runToken() error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "kitchen-panel" || claims.Role != auth.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != 15*time.Minute {
		t.Errorf("ttl = %v, want configured 15m", ttl)
	}
}

func TestRunToken_Errors(t *testing.T) {
	t.Setenv("GRAYLOGIC_JWT_SECRET", testSecret)
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, "site:\n  id: test-site\n"))

	tests := []struct {
		name string
		args []string
	}{
		{"missing subject", []string{"-role", "user"}},
		{"unknown role", []string{"-subject", "x", "-role", "owner"}},
		{"unknown flag", []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			if err := runToken(tt.args, &out); err == nil {
				t.Error("runToken() should fail")
			}
		})
	}
}

func TestRunMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")
	t.Setenv("GRAYLOGIC_JWT_SECRET", testSecret)
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, "site:\n  id: test-site\ndatabase:\n  path: \""+dbPath+"\"\n"))
	ctx := context.Background()

	steps := []struct {
		name string
		args []string
		want []string
	}{
		{"status on a fresh database", []string{"-status"}, []string{"pending  20260301_120000  devices", "pending  20260301_130000  audit"}},
		{"apply", nil, []string{"schema version: 20260301_130000"}},
		{"status after apply", []string{"-status"}, []string{"applied  20260301_120000", "applied  20260301_130000"}},
		{"roll back audit", []string{"-down"}, []string{"schema version: 20260301_120000"}},
		{"roll back devices", []string{"-down"}, []string{"schema version: none"}},
		{"nothing left to roll back", []string{"-down"}, []string{"schema version: none"}},
	}
	for _, step := range steps {
		var out strings.Builder
		if err := runMigrate(ctx, step.args, &out); err != nil {
			t.Fatalf("%s: runMigrate() error = %v", step.name, err)
		}
		for _, want := range step.want {
			if !strings.Contains(out.String(), want) {
				t.Errorf("%s: output = %q, want %q", step.name, out.String(), want)
			}
		}
	}
}

func TestRunMigrate_Errors(t *testing.T) {
	t.Setenv("GRAYLOGIC_JWT_SECRET", testSecret)
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, "site:\n  id: test-site\ndatabase:\n  path: \""+filepath.Join(t.TempDir(), "x.db")+"\"\n"))

	tests := []struct {
		name string
		args []string
	}{
		{"down and status", []string{"-down", "-status"}},
		{"unknown flag", []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			if err := runMigrate(context.Background(), tt.args, &out); err == nil {
				t.Error("runMigrate() should fail")
			}
		})
	}
}

type fakeSubscriber struct {
	failOn string
	topics map[string]byte
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, _ mqtt.MessageHandler) error {
	if topic == f.failOn {
		return errors.New("suback refused")
	}
	f.topics[topic] = qos
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topic string) error {
	delete(f.topics, topic)
	return nil
}

func (f *fakeSubscriber) HasSubscription(topic string) bool {
	_, ok := f.topics[topic]
	return ok
}

func (f *fakeSubscriber) SubscriptionCount() int { return len(f.topics) }

func TestDeviceSubscriptions(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	topics := mqtt.Topics{}
	noop := func(string, []byte) error { return nil }
	handlers := map[string]mqtt.MessageHandler{
		topics.AllDeviceHeartbeats(): noop,
		topics.PairingReply():        noop,
	}

	t.Run("subscribe then unsubscribe on shutdown", func(t *testing.T) {
		client := &fakeSubscriber{topics: map[string]byte{}}
		if err := subscribeDevices(client, handlers, 1, log); err != nil {
			t.Fatalf("subscribeDevices() error = %v", err)
		}
		if client.SubscriptionCount() != 2 || client.topics[topics.PairingReply()] != 1 {
			t.Errorf("subscriptions = %v, want both device topics at QoS 1", client.topics)
		}
		unsubscribeDevices(client, handlers, log)
		if client.SubscriptionCount() != 0 {
			t.Errorf("subscriptions after shutdown = %v, want none", client.topics)
		}
	})

	t.Run("failure drops topics already subscribed", func(t *testing.T) {
		client := &fakeSubscriber{failOn: topics.PairingReply(), topics: map[string]byte{}}
		err := subscribeDevices(client, handlers, 1, log)
		if err == nil || !strings.Contains(err.Error(), topics.PairingReply()) {
			t.Errorf("subscribeDevices() error = %v, want failure naming the pairing topic", err)
		}
		if client.SubscriptionCount() != 0 {
			t.Errorf("subscriptions after failure = %v, want none", client.topics)
		}
	})
}
