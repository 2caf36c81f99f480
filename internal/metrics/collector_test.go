package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter_SameKeyReturnsSameCounter(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("x_total", "help", `k="v"`)
	b := c.Counter("x_total", "help", `k="v"`)
	a.Inc()
	b.Add(2)
	if a != b || a.Value() != 3 {
		t.Errorf("expected shared counter with value 3, got %d", a.Value())
	}
	if other := c.Counter("x_total", "help", `k="w"`); other == a {
		t.Error("different labels should create a different counter")
	}
}

func TestGauge(t *testing.T) {
	c := NewMetricsCollector()
	g := c.Gauge("g", "help", "")
	g.Set(5)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 4 {
		t.Errorf("expected 4, got %d", g.Value())
	}
}

func TestHistogram_Observe(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("lat_seconds", "help", "", []float64{1, 0.1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	if h.Count() != 3 {
		t.Errorf("expected 3 observations, got %d", h.Count())
	}
	out := c.Render()
	for _, want := range []string{
		`lat_seconds_bucket{le="0.1"} 1`,
		`lat_seconds_bucket{le="1"} 2`,
		`lat_seconds_bucket{le="+Inf"} 3`,
		`lat_seconds_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRender_HelpOncePerName(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("req_total", "Requests", `route="a"`).Inc()
	c.Counter("req_total", "Requests", `route="b"`).Add(2)
	out := c.Render()
	if n := strings.Count(out, "# HELP req_total"); n != 1 {
		t.Errorf("expected one HELP line, got %d", n)
	}
	if !strings.Contains(out, `req_total{route="a"} 1`) || !strings.Contains(out, `req_total{route="b"} 2`) {
		t.Errorf("missing labelled samples:\n%s", out)
	}
	if strings.Index(out, `route="a"`) > strings.Index(out, `route="b"`) {
		t.Error("samples should render in sorted order")
	}
}

func TestHandler(t *testing.T) {
	c := NewMetricsCollector()
	c.Gauge("docs", "Documents", "").Set(7)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "knowledgescout_uptime_seconds") || !strings.Contains(string(body), "docs 7") {
		t.Errorf("unexpected body:\n%s", body)
	}
}

func TestRequestsTotal(t *testing.T) {
	ctr := RequestsTotal("ask", 200)
	before := ctr.Value()
	RequestsTotal("ask", 200).Inc()
	if ctr.Value() != before+1 {
		t.Error("RequestsTotal should return the same counter for the same route and status")
	}
}
