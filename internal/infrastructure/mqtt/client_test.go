package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-devices-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// offlineClient has never connected; every broker operation must fail
// before touching paho.
func offlineClient() *Client {
	return &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DeviceUpdated", topics.DeviceUpdated(), "graylogic/device/updated"},
		{"PairingStart", topics.PairingStart(), "graylogic/device/pairing/start"},
		{"PairingReply", topics.PairingReply(), "graylogic/device/pairing/reply"},
		{"DeviceHeartbeat", topics.DeviceHeartbeat("a1b2"), "graylogic/device/a1b2/heartbeat"},
		{"AllDeviceHeartbeats", topics.AllDeviceHeartbeats(), "graylogic/device/+/heartbeat"},
		{"SystemStatus", topics.SystemStatus(), "graylogic/system/status"},
		{"Namespaced", topics.Namespaced("device/updated"), "graylogic/device/updated"},
		{"Namespaced leading slash", topics.Namespaced("/device/pairing/start"), "graylogic/device/pairing/start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	t.Run("plain with auth", func(t *testing.T) {
		cfg := testConfig()
		cfg.Auth = config.MQTTAuthConfig{Username: "devices", Password: "pw"}

		opts := buildClientOptions(cfg)
		if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
			t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
		}
		if opts.ClientID != "graylogic-devices-test" {
			t.Errorf("ClientID = %q", opts.ClientID)
		}
		if opts.Username != "devices" || opts.Password != "pw" {
			t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
		}
		if !opts.CleanSession || !opts.AutoReconnect {
			t.Error("CleanSession and AutoReconnect should be enabled")
		}
		if opts.TLSConfig != nil {
			t.Error("TLSConfig set without TLS")
		}
	})

	t.Run("tls", func(t *testing.T) {
		cfg := testConfig()
		cfg.Broker.TLS = true
		cfg.Broker.Port = 8883

		opts := buildClientOptions(cfg)
		if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
			t.Errorf("Servers[0] = %v, want ssl://127.0.0.1:8883", opts.Servers[0])
		}
		if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
			t.Errorf("TLSConfig = %+v, want MinVersion TLS 1.2", opts.TLSConfig)
		}
		if opts.Username != "" {
			t.Errorf("Username = %q, want empty", opts.Username)
		}
	})
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "graylogic-devices-test")

	if !opts.WillEnabled || opts.WillTopic != "graylogic/system/status" || !opts.WillRetained || opts.WillQos != 1 {
		t.Fatalf("will = enabled:%v topic:%q retained:%v qos:%d", opts.WillEnabled, opts.WillTopic, opts.WillRetained, opts.WillQos)
	}

	var status statusPayload
	if err := json.Unmarshal(opts.WillPayload, &status); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if status.Status != "offline" || status.Reason != "unexpected_disconnect" || status.ClientID != "graylogic-devices-test" {
		t.Errorf("will payload = %+v", status)
	}
}

func TestStatusMessage(t *testing.T) {
	var status map[string]any
	if err := json.Unmarshal(statusMessage("online", "c1", ""), &status); err != nil {
		t.Fatalf("statusMessage is not JSON: %v", err)
	}
	if status["status"] != "online" || status["client_id"] != "c1" {
		t.Errorf("status = %v", status)
	}
	if _, ok := status["reason"]; ok {
		t.Error("empty reason should be omitted")
	}
	if ts, _ := status["timestamp"].(string); !strings.HasSuffix(ts, "Z") {
		t.Errorf("timestamp = %v, want UTC RFC3339", status["timestamp"])
	}
}

func TestPublish_Validation(t *testing.T) {
	c := offlineClient()
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "graylogic/x", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "graylogic/x", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "graylogic/x", []byte("x"), 1, ErrNotConnected},
		{"nil payload not connected", "graylogic/x", nil, 0, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := c.PublishRetained("graylogic/x", []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishRetained() error = %v, want ErrNotConnected", err)
	}
}

func TestNotify(t *testing.T) {
	c := offlineClient()

	if err := c.Notify(context.Background(), "device/updated", []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Notify() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Notify(ctx, "device/updated", []byte("{}"))
	if !errors.Is(err, ErrPublishFailed) || !errors.Is(err, context.Canceled) {
		t.Errorf("Notify(cancelled) error = %v, want ErrPublishFailed wrapping context.Canceled", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := offlineClient()
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, noop, ErrInvalidTopic},
		{"invalid qos", "graylogic/#", 5, noop, ErrInvalidQoS},
		{"nil handler", "graylogic/#", 1, nil, ErrSubscribeFailed},
		{"not connected", "graylogic/#", 1, noop, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Subscribe(tt.topic, tt.qos, tt.handler); !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if c.SubscriptionCount() != 0 || c.HasSubscription("graylogic/#") {
		t.Error("failed subscriptions must not be tracked")
	}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Unsubscribe("graylogic/#"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_Offline(t *testing.T) {
	c := offlineClient()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestClose_NeverConnected(t *testing.T) {
	if err := offlineClient().Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if offlineClient().IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
}

func TestWrapHandler(t *testing.T) {
	t.Run("delivers topic and payload", func(t *testing.T) {
		c := offlineClient()
		var gotTopic, gotPayload string
		h := c.wrapHandler(func(topic string, payload []byte) error {
			gotTopic, gotPayload = topic, string(payload)
			return nil
		})

		h(nil, fakeMessage{topic: "graylogic/device/a1/heartbeat", payload: []byte("{}")})

		if gotTopic != "graylogic/device/a1/heartbeat" || gotPayload != "{}" {
			t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
		}
	})

	t.Run("logs handler errors", func(t *testing.T) {
		c := offlineClient()
		logger := &recordingLogger{}
		c.SetLogger(logger)

		c.wrapHandler(func(string, []byte) error { return errors.New("bad payload") })(nil, fakeMessage{topic: "t"})

		if len(logger.warns) != 1 {
			t.Errorf("warns = %v, want one entry", logger.warns)
		}
	})

	t.Run("recovers panics", func(t *testing.T) {
		c := offlineClient()
		logger := &recordingLogger{}
		c.SetLogger(logger)

		c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, fakeMessage{topic: "t"})

		if len(logger.errors) != 1 {
			t.Errorf("errors = %v, want one entry", logger.errors)
		}
	})

	t.Run("recovers panics without a logger", func(t *testing.T) {
		c := offlineClient()
		c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, fakeMessage{topic: "t"})
	})
}

func TestCallbacks(t *testing.T) {
	c := offlineClient()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	var lost error
	c.SetOnDisconnect(func(err error) { lost = err })

	cause := errors.New("network down")
	c.handleDisconnect(cause)

	if !errors.Is(lost, cause) {
		t.Errorf("OnDisconnect got %v, want %v", lost, cause)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want connection lost entry", logger.warns)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
}
