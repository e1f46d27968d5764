package app

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// metricValue returns the counter or gauge value of name with the given
// labels, or -1 when no such series exists.
func metricValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue series
				}
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
			if h := metric.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
		}
	}
	return -1
}

func TestMetrics_Reactor(t *testing.T) {
	m := NewMetrics()

	m.Iteration()
	m.Iteration()
	m.PollError()
	m.Read(sourceKeyboard)
	m.Read(sourceTerminal)
	m.Read(sourceTerminal)
	m.Key()
	m.TerminalDeath()
	m.ObserveFrame(3 * time.Millisecond)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"weft_reactor_iterations_total", nil, 2},
		{"weft_reactor_poll_errors_total", nil, 1},
		{"weft_reactor_reads_total", map[string]string{"source": "keyboard"}, 1},
		{"weft_reactor_reads_total", map[string]string{"source": "terminal"}, 2},
		{"weft_input_keys_total", nil, 1},
		{"weft_terminal_deaths_total", nil, 1},
		{"weft_renderer_frame_seconds", nil, 1},
	}
	for _, tt := range tests {
		if got := metricValue(t, m, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, expected %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestMetrics_LanguageServers(t *testing.T) {
	m := NewMetrics()

	m.BytesRead("gopls", 100)
	m.BytesRead("gopls", 28)
	m.Message("gopls", "response")
	m.Message("gopls", "notification")
	m.Message("gopls", "notification")
	m.StartupTimeout("clangd")

	if got := metricValue(t, m, "weft_lsp_read_bytes_total", map[string]string{"server": "gopls"}); got != 128 {
		t.Errorf("read bytes = %v, expected 128", got)
	}
	if got := metricValue(t, m, "weft_lsp_messages_total", map[string]string{"server": "gopls", "kind": "notification"}); got != 2 {
		t.Errorf("notifications = %v, expected 2", got)
	}
	if got := metricValue(t, m, "weft_lsp_startup_timeouts_total", map[string]string{"server": "clangd"}); got != 1 {
		t.Errorf("startup timeouts = %v, expected 1", got)
	}
}

func TestMetrics_TreeAndAutosave(t *testing.T) {
	m := NewMetrics()

	m.SetTree(2, map[string]int{"editor": 3, "terminal": 1})
	m.Autosave(nil)
	m.Autosave(errors.New("read-only file system"))

	if got := metricValue(t, m, "weft_session_workspaces", nil); got != 2 {
		t.Errorf("workspaces = %v, expected 2", got)
	}
	if got := metricValue(t, m, "weft_session_windows", map[string]string{"kind": "editor"}); got != 3 {
		t.Errorf("editor windows = %v, expected 3", got)
	}
	if got := metricValue(t, m, "weft_editor_autosaves_total", map[string]string{"result": "error"}); got != 1 {
		t.Errorf("failed autosaves = %v, expected 1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Iteration()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "weft_reactor_iterations_total 1") {
		t.Errorf("unexpected exposition:\n%s", rec.Body.String())
	}
}

func TestMetricsServer(t *testing.T) {
	m := NewMetrics()
	m.TerminalDeath()

	srv, err := serveMetrics("127.0.0.1:0", m, NopLogger())
	if err != nil {
		t.Fatalf("serveMetrics() error = %v", err)
	}

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + srv.addr.String() + "/metrics")
	if err != nil {
		_ = srv.Close()
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	client.CloseIdleConnections()

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !strings.Contains(string(body), "weft_terminal_deaths_total 1") {
		t.Errorf("unexpected exposition:\n%s", body)
	}
}
