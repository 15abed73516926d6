package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	newServerMetrics(reg)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_QueryCounterIncremented(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)

	m.queryTotal.WithLabelValues("ok").Inc()
	m.queryTotal.WithLabelValues("rate_limited").Inc()
	m.queryTotal.WithLabelValues("ok").Inc()

	if got := counterValue(t, reg, "whochat_query_requests_total", "outcome", "ok"); got != 2 {
		t.Errorf("outcome=ok: want counter=2, got %v", got)
	}
	if got := counterValue(t, reg, "whochat_query_requests_total", "outcome", "rate_limited"); got != 1 {
		t.Errorf("outcome=rate_limited: want counter=1, got %v", got)
	}
}

func Test_Metrics_IngestCounterTracksStage(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)

	m.ingestTotal.WithLabelValues("embed").Inc()

	if got := counterValue(t, reg, "whochat_ingest_documents_total", "outcome", "embed"); got != 1 {
		t.Errorf("outcome=embed: want counter=1, got %v", got)
	}
}

func Test_Metrics_SessionsActiveGauge(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)

	m.sessionsActive.Set(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "whochat_sessions_active" {
			v := mf.GetMetric()[0].GetGauge().GetValue()
			if v != 3 {
				t.Errorf("want sessions_active=3, got %v", v)
			}
			return
		}
	}
	t.Error("whochat_sessions_active not found in gathered metrics")
}

// counterValue gathers reg and returns the value of the named counter with
// the given label pair, or -1 when absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}
