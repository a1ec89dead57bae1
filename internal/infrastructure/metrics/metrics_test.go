package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservePersist(t *testing.T) {
	r := New()

	r.ObservePersist("insert", nil, 3*time.Millisecond)
	r.ObservePersist("insert", nil, time.Millisecond)
	r.ObservePersist("replace", errors.New("disk full"), time.Millisecond)

	tests := []struct {
		op, result string
		want       float64
	}{
		{"insert", resultSuccess, 2},
		{"insert", resultError, 0},
		{"replace", resultError, 1},
		{"replace", resultSuccess, 0},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(r.persistTotal.WithLabelValues(tt.op, tt.result)); got != tt.want {
			t.Errorf("persist_total{op=%s,result=%s} = %v, want %v", tt.op, tt.result, got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(r.persistLatency); n != 2 {
		t.Errorf("persist latency series = %d, want 2", n)
	}
}

func TestObserveNotify(t *testing.T) {
	r := New()

	r.ObserveNotify("device/updated", nil)
	r.ObserveNotify("device/updated", errors.New("broker down"))
	r.ObserveNotify("device/pairing/start", nil)

	if got := testutil.ToFloat64(r.notifyTotal.WithLabelValues("device/updated", resultError)); got != 1 {
		t.Errorf("notify errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.notifyTotal.WithLabelValues("device/pairing/start", resultSuccess)); got != 1 {
		t.Errorf("pairing notifies = %v, want 1", got)
	}
}

func TestObserveDeviceCount(t *testing.T) {
	r := New()

	r.ObserveDeviceCount(4)
	r.ObserveDeviceCount(3)

	if got := testutil.ToFloat64(r.devices); got != 3 {
		t.Errorf("registered = %v, want 3", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	r := New()

	r.ObserveHTTP(http.MethodGet, "/api/v1/devices/{id}", http.StatusOK, time.Millisecond)
	r.ObserveHTTP(http.MethodGet, "/api/v1/devices/{id}", http.StatusNotFound, time.Millisecond)

	if got := testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/api/v1/devices/{id}", "404")); got != 1 {
		t.Errorf("404 requests = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveDeviceCount(2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"graylogic_devices_registered 2", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNew_Independent(t *testing.T) {
	// Separate registries must not collide on registration.
	a, b := New(), New()
	a.ObserveDeviceCount(1)
	if got := testutil.ToFloat64(b.devices); got != 0 {
		t.Errorf("second recorder gauge = %v, want 0", got)
	}
}

func TestRegistry_Gathers(t *testing.T) {
	r := New()
	r.ObservePersist("insert", nil, time.Millisecond)
	r.ObserveDeviceCount(1)

	n, err := testutil.GatherAndCount(r.Registry(), metricPrefix+"persist_total", metricPrefix+"registered")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("series = %d, want 2", n)
	}
}
