package prometheus

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64 { return f.dropped }

func newFakeSource() *fakeSource {
	return &fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess:  3,
				authcore.MetricAccountLocked: 1,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricValidateLatency: {4, 1, 0, 0, 0, 0, 0, 1},
			},
		},
		dropped: 2,
	}
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollectorFromSource(newFakeSource())

	expected := `
# HELP authcore_login_success_total Successful logins.
# TYPE authcore_login_success_total counter
authcore_login_success_total 3
# HELP authcore_account_locked_total Accounts locked after repeated failures.
# TYPE authcore_account_locked_total counter
authcore_account_locked_total 1
# HELP authcore_audit_dropped_total Audit events dropped because the dispatcher buffer was full.
# TYPE authcore_audit_dropped_total counter
authcore_audit_dropped_total 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"authcore_login_success_total", "authcore_account_locked_total", "authcore_audit_dropped_total")
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	c := NewCollectorFromSource(newFakeSource())

	expected := `
# HELP authcore_validate_latency_seconds Access token validation latency.
# TYPE authcore_validate_latency_seconds histogram
authcore_validate_latency_seconds_bucket{le="0.005"} 4
authcore_validate_latency_seconds_bucket{le="0.01"} 5
authcore_validate_latency_seconds_bucket{le="0.025"} 5
authcore_validate_latency_seconds_bucket{le="0.05"} 5
authcore_validate_latency_seconds_bucket{le="0.1"} 5
authcore_validate_latency_seconds_bucket{le="0.25"} 5
authcore_validate_latency_seconds_bucket{le="0.5"} 5
authcore_validate_latency_seconds_bucket{le="+Inf"} 6
authcore_validate_latency_seconds_sum 0
authcore_validate_latency_seconds_count 6
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "authcore_validate_latency_seconds"); err != nil {
		t.Fatal(err)
	}
}

func TestCollectorRegistersCleanly(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollectorFromSource(newFakeSource())); err != nil {
		t.Fatalf("register: %v", err)
	}
	want := len(internaldefs.CounterDefs) + len(internaldefs.HistogramDefs) + 1
	if got := testutil.CollectAndCount(NewCollectorFromSource(newFakeSource())); got != want {
		t.Fatalf("collected %d metrics, want %d", got, want)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	rr := httptest.NewRecorder()
	NewCollectorFromSource(newFakeSource()).Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "authcore_login_success_total 3") {
		t.Fatalf("exposition missing counter:\n%s", body)
	}
}
