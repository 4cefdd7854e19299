package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestMetrics(t *testing.T) {
	t.Run("nil receiver is a no-op", func(t *testing.T) {
		var m *Metrics
		m.AssetLoaded("speech", true, time.Second)
		m.AdaptationCheck("committed")
		m.SetMonitored(3)
		m.NotificationSkipped("skip_holidays")
		if m.Registry() != nil {
			t.Error("nil metrics should have no registry")
		}
	})

	t.Run("independent registries", func(t *testing.T) {
		a, b := New(), New()
		a.AssetLoaded("audio", false, 200*time.Millisecond)

		if got := counterValue(t, a, "audio", "failure"); got != 1 {
			t.Errorf("expected 1 failure on a, got %v", got)
		}
		if got := counterValue(t, b, "audio", "failure"); got != 0 {
			t.Errorf("expected 0 failures on b, got %v", got)
		}
	})

	t.Run("Handler exposes metrics", func(t *testing.T) {
		m := New()
		m.NotificationScheduled()
		m.SetAssetsTracked(4)

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

		body, _ := io.ReadAll(rec.Body)
		for _, name := range []string{"smartwake_notifications_scheduled_total 1", "smartwake_assets_tracked 4"} {
			if !strings.Contains(string(body), name) {
				t.Errorf("expected %q in output", name)
			}
		}
	})
}

func counterValue(t *testing.T, m *Metrics, labels ...string) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.AssetLoads.WithLabelValues(labels...).Write(&out); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return out.GetCounter().GetValue()
}
