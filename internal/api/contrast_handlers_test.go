package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onnwee/telesis/internal/auditset"
	"github.com/onnwee/telesis/internal/contrast"
	"github.com/onnwee/telesis/internal/pagescan"
)

// fakeScanner returns canned pairs or an error.
type fakeScanner struct {
	pairs  []contrast.Pair
	err    error
	gotURL string
	gotMax int
	called bool
}

func (f *fakeScanner) Scan(ctx context.Context, url string, maxElements int) ([]contrast.Pair, error) {
	f.called = true
	f.gotURL = url
	f.gotMax = maxElements
	return f.pairs, f.err
}

func newTestMux(config ContrastHandlersConfig) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterRoutes(mux, NewHealthHandlers(HealthHandlersConfig{}), NewContrastHandlers(config))
	return mux
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error response: %v, body: %s", err, w.Body.String())
	}
	return resp.Error.Code
}

func TestEvaluate(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{})

	tests := []struct {
		name        string
		body        any
		wantOutcome contrast.Outcome
		wantPasses  bool
		wantClass   contrast.Classification
		wantReq     float64
	}{
		{
			name:        "sage button passes AA",
			body:        EvaluateRequest{Foreground: "rgb(255, 255, 255)", Background: "rgb(85, 124, 118)"},
			wantOutcome: contrast.OutcomePass,
			wantPasses:  true,
			wantClass:   contrast.Normal,
			wantReq:     4.5,
		},
		{
			name:        "muted overlay fails AA normal",
			body:        EvaluateRequest{Foreground: "rgb(107, 136, 132)", Background: "rgb(255, 255, 255)"},
			wantOutcome: contrast.OutcomeFail,
			wantClass:   contrast.Normal,
			wantReq:     4.5,
		},
		{
			name:        "muted overlay passes as large bold text",
			body:        `{"foreground":"rgb(107, 136, 132)","background":"rgb(255, 255, 255)","font_size":14,"font_weight":700}`,
			wantOutcome: contrast.OutcomePass,
			wantPasses:  true,
			wantClass:   contrast.Large,
			wantReq:     3.0,
		},
		{
			name:        "AAA raises the bar",
			body:        EvaluateRequest{Foreground: "rgb(255, 255, 255)", Background: "rgb(85, 124, 118)", Level: "aaa"},
			wantOutcome: contrast.OutcomeFail,
			wantClass:   contrast.Normal,
			wantReq:     7.0,
		},
		{
			name:        "unparseable color is still a 200",
			body:        EvaluateRequest{Foreground: "not-a-color", Background: "rgb(255, 255, 255)"},
			wantOutcome: contrast.OutcomeUnparseable,
			wantClass:   contrast.Normal,
			wantReq:     4.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, mux, http.MethodPost, "/v1/contrast/evaluate", tt.body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}

			var res contrast.Result
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatalf("failed to decode result: %v", err)
			}
			if res.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %s, want %s", res.Outcome, tt.wantOutcome)
			}
			if res.Passes != tt.wantPasses {
				t.Errorf("passes = %v, want %v (ratio %.2f)", res.Passes, tt.wantPasses, res.Ratio)
			}
			if res.Classification != tt.wantClass {
				t.Errorf("classification = %s, want %s", res.Classification, tt.wantClass)
			}
			if res.RequiredRatio != tt.wantReq {
				t.Errorf("required_ratio = %v, want %v", res.RequiredRatio, tt.wantReq)
			}
			if tt.wantOutcome == contrast.OutcomeUnparseable {
				if res.Ratio != 0 {
					t.Errorf("unparseable ratio = %v, want 0", res.Ratio)
				}
				if res.ErrorMessage == "" {
					t.Error("unparseable result should carry an error message")
				}
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{MaxBodyBytes: 256})

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"foreground":`, http.StatusBadRequest, ErrCodeBadRequest},
		{"weight of wrong type", `{"foreground":"rgb(0, 0, 0)","background":"rgb(1, 1, 1)","font_weight":true}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"invalid level", EvaluateRequest{Foreground: "rgb(0, 0, 0)", Background: "rgb(255, 255, 255)", Level: "A"}, http.StatusBadRequest, ErrCodeValidation},
		{"invalid unit", EvaluateRequest{Foreground: "rgb(0, 0, 0)", Background: "rgb(255, 255, 255)", FontUnit: "em"}, http.StatusBadRequest, ErrCodeValidation},
		{"invalid weight", EvaluateRequest{Foreground: "rgb(0, 0, 0)", Background: "rgb(255, 255, 255)", FontWeight: "heavy"}, http.StatusBadRequest, ErrCodeValidation},
		{"negative size", EvaluateRequest{Foreground: "rgb(0, 0, 0)", Background: "rgb(255, 255, 255)", FontSize: -1}, http.StatusBadRequest, ErrCodeValidation},
		{"body too large", fmt.Sprintf(`{"text":%q}`, strings.Repeat("x", 512)), http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, mux, http.MethodPost, "/v1/contrast/evaluate", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if code := decodeErrorCode(t, w); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}

func TestEvaluate_MethodNotAllowed(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{})
	w := doJSON(t, mux, http.MethodGet, "/v1/contrast/evaluate", nil, nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
	if code := decodeErrorCode(t, w); code != ErrCodeMethodNotAllowed {
		t.Errorf("expected code %s, got %s", ErrCodeMethodNotAllowed, code)
	}
}

func TestNotFound(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{})
	for _, path := range []string{"/", "/v1/contrast", "/v1/contrast/sets/a/b"} {
		w := doJSON(t, mux, http.MethodGet, path, nil, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, w.Code)
			continue
		}
		if code := decodeErrorCode(t, w); code != ErrCodeNotFound {
			t.Errorf("%s: expected code %s, got %s", path, ErrCodeNotFound, code)
		}
	}
}

func reportBody(n int) ReportRequest {
	req := ReportRequest{Title: "Checkout page"}
	for i := 0; i < n; i++ {
		req.Pairs = append(req.Pairs, contrast.Pair{
			Label:      fmt.Sprintf("pair-%d", i),
			Foreground: "rgb(0, 0, 0)",
			Background: "rgb(255, 255, 255)",
		})
	}
	return req
}

func TestReport_JSON(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{})

	req := ReportRequest{
		Level: "AA",
		Pairs: []contrast.Pair{
			{Label: "a", Foreground: "rgb(255, 255, 255)", Background: "rgb(63, 129, 35)"},
			{Label: "b", Foreground: "rgb(107, 136, 132)", Background: "rgb(255, 255, 255)"},
			{Label: "c", Foreground: "bogus", Background: "rgb(255, 255, 255)"},
		},
	}

	w := doJSON(t, mux, http.MethodPost, "/v1/contrast/report", req, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected JSON content type, got %s", ct)
	}

	var report contrast.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Title != contrast.DefaultReportTitle {
		t.Errorf("title = %q, want default", report.Title)
	}
	if report.Total != 3 || report.Passing != 1 || report.Failing != 2 || report.Unparseable != 1 {
		t.Errorf("counts = total %d passing %d failing %d unparseable %d",
			report.Total, report.Passing, report.Failing, report.Unparseable)
	}
	for i, want := range []string{"a", "b", "c"} {
		if report.Results[i].Label != want {
			t.Errorf("results[%d].label = %q, want %q", i, report.Results[i].Label, want)
		}
	}
}

func TestReport_Formats(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{ReportTitle: "Service Title"})
	body := reportBody(2)

	tests := []struct {
		name    string
		target  string
		accept  string
		wantCT  string
		wantErr string
	}{
		{"default json", "/v1/contrast/report", "", "application/json; charset=utf-8", ""},
		{"query text", "/v1/contrast/report?format=text", "application/json", "text/plain; charset=utf-8", ""},
		{"accept cbor", "/v1/contrast/report", "application/cbor", "application/cbor", ""},
		{"accept text with params", "/v1/contrast/report", "text/plain;q=0.9, application/json;q=0.5", "text/plain; charset=utf-8", ""},
		{"accept wildcard", "/v1/contrast/report", "*/*", "application/json; charset=utf-8", ""},
		{"unknown format", "/v1/contrast/report?format=xml", "", "", ErrCodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.accept != "" {
				header["Accept"] = tt.accept
			}
			w := doJSON(t, mux, http.MethodPost, tt.target, body, header)

			if tt.wantErr != "" {
				if w.Code != http.StatusBadRequest {
					t.Fatalf("expected status 400, got %d", w.Code)
				}
				if code := decodeErrorCode(t, w); code != tt.wantErr {
					t.Errorf("expected code %s, got %s", tt.wantErr, code)
				}
				return
			}

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.wantCT {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantCT)
			}

			switch tt.wantCT {
			case "application/cbor":
				report, err := contrast.DecodeCBOR(w.Body.Bytes())
				if err != nil {
					t.Fatalf("DecodeCBOR() error = %v", err)
				}
				if report.Title != "Checkout page" || report.Total != 2 {
					t.Errorf("cbor report = %q total %d", report.Title, report.Total)
				}
			case "text/plain; charset=utf-8":
				if !strings.Contains(w.Body.String(), "Checkout page") {
					t.Errorf("text report missing title:\n%s", w.Body.String())
				}
			}
		})
	}
}

func TestReport_Limits(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{MaxPairs: 3})

	w := doJSON(t, mux, http.MethodPost, "/v1/contrast/report", reportBody(4), nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != ErrCodeTooManyPairs {
		t.Errorf("expected code %s, got %s", ErrCodeTooManyPairs, code)
	}

	w = doJSON(t, mux, http.MethodPost, "/v1/contrast/report", reportBody(3), nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 at the limit, got %d", w.Code)
	}
}

func TestReport_InvalidPairTypography(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{})

	body := reportBody(2)
	body.Pairs[1].FontUnit = "rem"

	w := doJSON(t, mux, http.MethodPost, "/v1/contrast/report", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Error.Code != ErrCodeValidation || !strings.Contains(resp.Error.Message, "pairs[1]") {
		t.Errorf("unexpected error %+v", resp.Error)
	}
}

func TestReport_InvalidMetadata(t *testing.T) {
	longTitle := reportBody(1)
	longTitle.Title = strings.Repeat("t", 201)

	controlLabel := reportBody(2)
	controlLabel.Pairs[0].Label = "caption\x1b[0m"

	tests := []struct {
		name       string
		body       ReportRequest
		wantPrefix string
	}{
		{"title too long", longTitle, "title:"},
		{"label with control character", controlLabel, "pairs[0]: label:"},
	}

	mux := newTestMux(ContrastHandlersConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, mux, http.MethodPost, "/v1/contrast/report", tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Error.Code != ErrCodeValidation || !strings.HasPrefix(resp.Error.Message, tt.wantPrefix) {
				t.Errorf("unexpected error %+v", resp.Error)
			}
		})
	}
}

func TestReport_EmptyPairs(t *testing.T) {
	mux := newTestMux(ContrastHandlersConfig{})

	w := doJSON(t, mux, http.MethodPost, "/v1/contrast/report", `{"pairs":[]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var report contrast.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Total != 0 || !report.Passed() {
		t.Errorf("empty report = %+v", report)
	}
}

func TestSets(t *testing.T) {
	custom := &auditset.Set{
		Name:  "buttons",
		Title: "Buttons",
		Level: "AAA",
		Pairs: []auditset.Entry{{Label: "primary", Foreground: "rgb(255, 255, 255)", Background: "rgb(85, 124, 118)"}},
	}
	mux := newTestMux(ContrastHandlersConfig{DefaultLevel: contrast.AA, Sets: []*auditset.Set{custom}})

	t.Run("list", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodGet, "/v1/contrast/sets", nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var sets []SetSummary
		if err := json.Unmarshal(w.Body.Bytes(), &sets); err != nil {
			t.Fatalf("failed to decode sets: %v", err)
		}
		if len(sets) != 2 || sets[0].Name != "buttons" || sets[1].Name != auditset.ModernSageName {
			t.Errorf("sets = %+v", sets)
		}
	})

	tests := []struct {
		name        string
		target      string
		wantLevel   contrast.Level
		wantFailing int
	}{
		{"modern sage at service default", "/v1/contrast/sets/modern-sage", contrast.AA, 1},
		{"modern sage at AAA", "/v1/contrast/sets/modern-sage?level=AAA", contrast.AAA, -1},
		{"set level wins over default", "/v1/contrast/sets/buttons", contrast.AAA, 1},
		{"query wins over set level", "/v1/contrast/sets/buttons?level=AA", contrast.AA, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, mux, http.MethodGet, tt.target, nil, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			var report contrast.Report
			if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
				t.Fatalf("failed to decode report: %v", err)
			}
			if report.Level != tt.wantLevel {
				t.Errorf("level = %s, want %s", report.Level, tt.wantLevel)
			}
			if tt.wantFailing >= 0 && report.Failing != tt.wantFailing {
				t.Errorf("failing = %d, want %d", report.Failing, tt.wantFailing)
			}
		})
	}

	t.Run("unknown set", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodGet, "/v1/contrast/sets/nope", nil, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", w.Code)
		}
		if code := decodeErrorCode(t, w); code != ErrCodeNotFound {
			t.Errorf("expected code %s, got %s", ErrCodeNotFound, code)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodGet, "/v1/contrast/sets/modern-sage?level=B", nil, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
	})
}

func TestScan(t *testing.T) {
	sagePairs := []contrast.Pair{
		{Label: "h1#title", Foreground: "rgb(31, 41, 55)", Background: "rgb(255, 255, 255)", FontSize: 32, FontUnit: "px"},
		{Label: "p.muted", Foreground: "rgb(107, 136, 132)", Background: "rgb(255, 255, 255)", FontSize: 16, FontUnit: "px"},
	}

	t.Run("success", func(t *testing.T) {
		scanner := &fakeScanner{pairs: sagePairs}
		mux := newTestMux(ContrastHandlersConfig{Scanner: scanner})

		w := doJSON(t, mux, http.MethodPost, "/v1/contrast/scan",
			ScanRequest{URL: "https://telesis.example/pricing", MaxElements: 50, Title: "Pricing"}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if scanner.gotURL != "https://telesis.example/pricing" || scanner.gotMax != 50 {
			t.Errorf("scanner called with %q / %d", scanner.gotURL, scanner.gotMax)
		}

		var report contrast.Report
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatalf("failed to decode report: %v", err)
		}
		if report.Title != "Pricing" || report.Total != 2 || report.Failing != 1 {
			t.Errorf("report = %q total %d failing %d", report.Title, report.Total, report.Failing)
		}
	})

	tests := []struct {
		name       string
		scanner    PageScanner
		body       any
		wantStatus int
		wantCode   string
		wantCalled bool
	}{
		{"no scanner", nil, ScanRequest{URL: "https://telesis.example"}, http.StatusServiceUnavailable, ErrCodeScannerUnavailable, false},
		{"missing url", &fakeScanner{}, ScanRequest{}, http.StatusBadRequest, ErrCodeValidation, false},
		{"max elements out of range", &fakeScanner{}, ScanRequest{URL: "https://telesis.example", MaxElements: 5000}, http.StatusBadRequest, ErrCodeValidation, false},
		{"bad level", &fakeScanner{}, ScanRequest{URL: "https://telesis.example", Level: "AAAA"}, http.StatusBadRequest, ErrCodeValidation, false},
		{"invalid url", &fakeScanner{err: fmt.Errorf("%w: got %q", pagescan.ErrInvalidURL, "file:///")}, ScanRequest{URL: "file:///"}, http.StatusBadRequest, ErrCodeValidation, true},
		{"browser missing", &fakeScanner{err: pagescan.ErrNoBrowser}, ScanRequest{URL: "https://telesis.example"}, http.StatusServiceUnavailable, ErrCodeScannerUnavailable, true},
		{"navigation failure", &fakeScanner{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}, ScanRequest{URL: "https://telesis.invalid"}, http.StatusBadGateway, ErrCodeScanFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(ContrastHandlersConfig{Scanner: tt.scanner})

			w := doJSON(t, mux, http.MethodPost, "/v1/contrast/scan", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if code := decodeErrorCode(t, w); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
			if fs, ok := tt.scanner.(*fakeScanner); ok && fs.called != tt.wantCalled {
				t.Errorf("scanner called = %v, want %v", fs.called, tt.wantCalled)
			}
		})
	}
}

func TestNegotiateFormat(t *testing.T) {
	tests := []struct {
		target string
		accept string
		want   contrast.Format
	}{
		{"/r", "", contrast.FormatJSON},
		{"/r?format=cbor", "text/plain", contrast.FormatCBOR},
		{"/r?format=TEXT", "", contrast.FormatText},
		{"/r", "text/html, application/cbor", contrast.FormatCBOR},
		{"/r", "text/html", contrast.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.target+" "+tt.accept, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			got, err := negotiateFormat(req)
			if err != nil {
				t.Fatalf("negotiateFormat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("negotiateFormat() = %s, want %s", got, tt.want)
			}
		})
	}
}
