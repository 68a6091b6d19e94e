package contrast

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if len(m.Collectors()) != 3 {
		t.Errorf("expected 3 collectors, got %d", len(m.Collectors()))
	}

	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveResult(Result{Outcome: OutcomePass})
	m.ObserveReport(Report{Total: 3})
}

func TestMetrics_RecordedByEngine(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	var buf bytes.Buffer
	e := newTestEngine(&buf, Options{Metrics: m})
	e.EvaluateSet(context.Background(), []Pair{
		{Foreground: "rgb(0, 0, 0)", Background: "rgb(255, 255, 255)"},
		{Foreground: "rgb(0, 0, 0)", Background: "rgb(255, 255, 255)"},
		{Foreground: "rgb(200, 200, 200)", Background: "rgb(255, 255, 255)"},
		{Foreground: "nope", Background: "rgb(255, 255, 255)"},
	}, AA)

	counter := func(outcome Outcome) float64 {
		var metric dto.Metric
		c, err := m.evaluationsTotal.GetMetricWithLabelValues("AA", "normal", string(outcome))
		if err != nil {
			t.Fatalf("GetMetricWithLabelValues: %v", err)
		}
		if err := c.Write(&metric); err != nil {
			t.Fatalf("Write: %v", err)
		}
		return metric.GetCounter().GetValue()
	}

	if got := counter(OutcomePass); got != 2 {
		t.Errorf("pass count = %v, want 2", got)
	}
	if got := counter(OutcomeFail); got != 1 {
		t.Errorf("fail count = %v, want 1", got)
	}
	if got := counter(OutcomeUnparseable); got != 1 {
		t.Errorf("unparseable count = %v, want 1", got)
	}

	var ratio dto.Metric
	obs, err := m.ratio.GetMetricWithLabelValues("AA")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(&ratio); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := ratio.GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("ratio samples = %d, want 3 (unparseable excluded)", got)
	}

	var size dto.Metric
	if err := m.reportSize.Write(&size); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := size.GetHistogram().GetSampleSum(); got != 4 {
		t.Errorf("report size sum = %v, want 4", got)
	}
}
