package contrast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Format is a report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ErrUnknownFormat is returned for unsupported report encodings.
var ErrUnknownFormat = errors.New("unknown report format, expected text, json or cbor")

// ParseFormat parses a format name. An empty string yields FormatText.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrUnknownFormat, s)
}

// ContentType returns the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatCBOR:
		return "application/cbor"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Encode writes r to w in format f.
func Encode(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatText:
		return WriteText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatCBOR:
		return cbor.NewEncoder(w).Encode(r)
	}
	return fmt.Errorf("%w: got %q", ErrUnknownFormat, f)
}

// DecodeCBOR decodes a report previously written with FormatCBOR.
func DecodeCBOR(data []byte) (Report, error) {
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("decode cbor report: %w", err)
	}
	return r, nil
}
