package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/onnwee/telesis/internal/auditset"
	"github.com/onnwee/telesis/internal/contrast"
	"github.com/onnwee/telesis/internal/pagescan"
	"github.com/onnwee/telesis/internal/validate"
)

// Request limits.
const (
	DefaultMaxBodyBytes int64 = 1 << 20
	DefaultMaxPairs           = 1000
)

// PageScanner renders a page and returns its text elements as pairs.
type PageScanner interface {
	Scan(ctx context.Context, url string, maxElements int) ([]contrast.Pair, error)
}

// ContrastHandlers serves the /v1/contrast endpoints.
type ContrastHandlers struct {
	engine       *contrast.Engine
	scanner      PageScanner
	defaultLevel contrast.Level
	reportTitle  string
	sets         map[string]*auditset.Set
	maxPairs     int
	maxBodyBytes int64
}

// ContrastHandlersConfig configures the contrast handlers.
type ContrastHandlersConfig struct {
	Engine *contrast.Engine

	// Scanner is optional; without it scans answer 503.
	Scanner PageScanner

	DefaultLevel contrast.Level
	ReportTitle  string

	// Sets are served by name in addition to the built-in Modern Sage set.
	Sets []*auditset.Set

	MaxPairs     int
	MaxBodyBytes int64
}

// NewContrastHandlers creates the contrast handlers.
func NewContrastHandlers(config ContrastHandlersConfig) *ContrastHandlers {
	h := &ContrastHandlers{
		engine:       config.Engine,
		scanner:      config.Scanner,
		defaultLevel: config.DefaultLevel,
		reportTitle:  config.ReportTitle,
		sets:         map[string]*auditset.Set{auditset.ModernSageName: auditset.ModernSage()},
		maxPairs:     config.MaxPairs,
		maxBodyBytes: config.MaxBodyBytes,
	}
	if h.engine == nil {
		h.engine = contrast.NewEngine(contrast.Options{})
	}
	if h.defaultLevel == "" {
		h.defaultLevel = contrast.AA
	}
	if h.reportTitle == "" {
		h.reportTitle = contrast.DefaultReportTitle
	}
	if h.maxPairs <= 0 {
		h.maxPairs = DefaultMaxPairs
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = DefaultMaxBodyBytes
	}
	for _, s := range config.Sets {
		h.sets[s.Name] = s
	}
	return h
}

// EvaluateRequest is the body of POST /v1/contrast/evaluate.
type EvaluateRequest struct {
	Label      string              `json:"label,omitempty"`
	Text       string              `json:"text,omitempty"`
	Foreground string              `json:"foreground"`
	Background string              `json:"background"`
	FontSize   float64             `json:"font_size,omitempty"`
	FontUnit   string              `json:"font_unit,omitempty"`
	FontWeight contrast.WeightSpec `json:"font_weight,omitempty"`
	Level      string              `json:"level,omitempty"`
}

// ReportRequest is the body of POST /v1/contrast/report.
type ReportRequest struct {
	Title string          `json:"title,omitempty"`
	Level string          `json:"level,omitempty"`
	Pairs []contrast.Pair `json:"pairs"`
}

// ScanRequest is the body of POST /v1/contrast/scan.
type ScanRequest struct {
	URL         string `json:"url"`
	Level       string `json:"level,omitempty"`
	MaxElements int    `json:"max_elements,omitempty"`
	Title       string `json:"title,omitempty"`
}

// SetSummary describes a registered audit set.
type SetSummary struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Pairs int    `json:"pairs"`
}

// Evaluate handles POST /v1/contrast/evaluate.
// Unparseable colors are a 200 with outcome "unparseable"; only malformed
// requests and invalid typography or level are rejected.
func (h *ContrastHandlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	level, err := h.resolveLevel(req.Level)
	if err != nil {
		writeCodedError(w, r, ErrCodeValidation, err.Error())
		return
	}

	pair := contrast.Pair{
		Label:      req.Label,
		Text:       req.Text,
		Foreground: req.Foreground,
		Background: req.Background,
		FontSize:   req.FontSize,
		FontUnit:   req.FontUnit,
		FontWeight: req.FontWeight,
	}
	if err := validatePair(pair); err != nil {
		writeCodedError(w, r, ErrCodeValidation, err.Error())
		return
	}

	result := h.engine.EvaluatePair(r.Context(), pair, level)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Report handles POST /v1/contrast/report.
func (h *ContrastHandlers) Report(w http.ResponseWriter, r *http.Request) {
	format, err := negotiateFormat(r)
	if err != nil {
		writeCodedError(w, r, ErrCodeUnsupportedFormat, err.Error())
		return
	}

	var req ReportRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if len(req.Pairs) > h.maxPairs {
		writeCodedError(w, r, ErrCodeTooManyPairs,
			fmt.Sprintf("at most %d pairs per report, got %d", h.maxPairs, len(req.Pairs)))
		return
	}

	level, err := h.resolveLevel(req.Level)
	if err != nil {
		writeCodedError(w, r, ErrCodeValidation, err.Error())
		return
	}
	title, err := validate.Title(req.Title)
	if err != nil {
		writeCodedError(w, r, ErrCodeValidation, "title: "+err.Error())
		return
	}
	for i, p := range req.Pairs {
		if err := validatePair(p); err != nil {
			writeCodedError(w, r, ErrCodeValidation, fmt.Sprintf("pairs[%d]: %v", i, err))
			return
		}
	}

	report := h.engine.EvaluateSet(r.Context(), req.Pairs, level)
	report.Title = h.titleOr(title)

	h.writeReport(w, r, report, format)
}

// ListSets handles GET /v1/contrast/sets.
func (h *ContrastHandlers) ListSets(w http.ResponseWriter, r *http.Request) {
	summaries := make([]SetSummary, 0, len(h.sets))
	for _, s := range h.sets {
		summaries = append(summaries, SetSummary{Name: s.Name, Title: s.Title, Pairs: len(s.Pairs)})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// EvaluateSet handles GET /v1/contrast/sets/{name}. The level comes from
// ?level=, then the set, then the service default.
func (h *ContrastHandlers) EvaluateSet(w http.ResponseWriter, r *http.Request) {
	format, err := negotiateFormat(r)
	if err != nil {
		writeCodedError(w, r, ErrCodeUnsupportedFormat, err.Error())
		return
	}

	name := r.PathValue("name")
	set, ok := h.sets[name]
	if !ok {
		writeCodedError(w, r, ErrCodeNotFound, fmt.Sprintf("audit set %q not found", name))
		return
	}

	level := set.EffectiveLevel(h.defaultLevel)
	if q := r.URL.Query().Get("level"); q != "" {
		parsed, err := contrast.ParseLevel(q)
		if err != nil {
			writeCodedError(w, r, ErrCodeValidation, err.Error())
			return
		}
		level = parsed
	}

	report := h.engine.EvaluateSet(r.Context(), set.ContrastPairs(), level)
	report.Title = h.titleOr(set.Title)

	h.writeReport(w, r, report, format)
}

// Scan handles POST /v1/contrast/scan.
func (h *ContrastHandlers) Scan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeCodedError(w, r, ErrCodeScannerUnavailable, "Page scanning is not configured")
		return
	}

	format, err := negotiateFormat(r)
	if err != nil {
		writeCodedError(w, r, ErrCodeUnsupportedFormat, err.Error())
		return
	}

	var req ScanRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeCodedError(w, r, ErrCodeValidation, "url is required")
		return
	}
	if req.MaxElements < 0 || req.MaxElements > h.maxPairs {
		writeCodedError(w, r, ErrCodeValidation, fmt.Sprintf("max_elements must be between 0 and %d", h.maxPairs))
		return
	}

	level, err := h.resolveLevel(req.Level)
	if err != nil {
		writeCodedError(w, r, ErrCodeValidation, err.Error())
		return
	}
	title, err := validate.Title(req.Title)
	if err != nil {
		writeCodedError(w, r, ErrCodeValidation, "title: "+err.Error())
		return
	}

	pairs, err := h.scanner.Scan(r.Context(), req.URL, req.MaxElements)
	switch {
	case errors.Is(err, pagescan.ErrInvalidURL):
		writeCodedError(w, r, ErrCodeValidation, err.Error())
		return
	case errors.Is(err, pagescan.ErrNoBrowser):
		slog.WarnContext(r.Context(), "page scan without browser", "error", err)
		writeCodedError(w, r, ErrCodeScannerUnavailable, "No browser is available for page scanning")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "page scan failed", "url", req.URL, "error", err)
		writeCodedError(w, r, ErrCodeScanFailed, "Page could not be scanned")
		return
	}

	report := h.engine.EvaluateSet(r.Context(), pairs, level)
	report.Title = h.titleOr(title)

	h.writeReport(w, r, report, format)
}

// decodeJSON reads a size-limited JSON body into dst. On failure it writes
// the error response and returns false.
func (h *ContrastHandlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeCodedError(w, r, ErrCodePayloadTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeCodedError(w, r, ErrCodeBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

// resolveLevel parses s, defaulting to the service level when empty.
func (h *ContrastHandlers) resolveLevel(s string) (contrast.Level, error) {
	if strings.TrimSpace(s) == "" {
		return h.defaultLevel, nil
	}
	return contrast.ParseLevel(s)
}

func (h *ContrastHandlers) titleOr(title string) string {
	if title != "" {
		return title
	}
	return h.reportTitle
}

// writeReport encodes the report before writing so an encoding failure can
// still produce an error response.
func (h *ContrastHandlers) writeReport(w http.ResponseWriter, r *http.Request, report contrast.Report, format contrast.Format) {
	var buf bytes.Buffer
	if err := contrast.Encode(&buf, report, format); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode report", "format", format, "error", err)
		writeCodedError(w, r, ErrCodeInternal, "Failed to encode report")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Add("Vary", "Accept")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.ErrorContext(r.Context(), "failed to write report", "error", err)
	}
}

// validatePair rejects oversized labels and font fields the engine would
// silently default.
func validatePair(p contrast.Pair) error {
	if _, err := validate.Label(p.Label); err != nil {
		return fmt.Errorf("label: %w", err)
	}
	if p.FontSize < 0 {
		return fmt.Errorf("font_size must not be negative, got %v", p.FontSize)
	}
	_, err := p.Typography()
	return err
}

// negotiateFormat picks the report encoding from ?format= or the Accept
// header. JSON is the default.
func negotiateFormat(r *http.Request) (contrast.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return contrast.ParseFormat(f)
	}

	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		switch strings.ToLower(strings.TrimSpace(mediaType)) {
		case "application/cbor":
			return contrast.FormatCBOR, nil
		case "text/plain":
			return contrast.FormatText, nil
		case "application/json":
			return contrast.FormatJSON, nil
		}
	}
	return contrast.FormatJSON, nil
}
