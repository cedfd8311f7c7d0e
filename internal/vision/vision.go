package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned while the model is considered down.
var ErrUnavailable = errors.New("vision service unavailable")

// Analysis is what the model reads off a stock photo.
type Analysis struct {
	ProductName string  `json:"productName"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Date        string  `json:"date"`
}

// Request is a single image to analyze. Candidates are catalog product names
// the model is asked to prefer when one fits.
type Request struct {
	Image       []byte
	ContentType string
	Candidates  []string
}

type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Analysis, error)
}

// ParseAnalysis decodes a model reply. Markdown code fences are stripped and
// the quantity may come back as a number or a string like "12 litres".
func ParseAnalysis(content string) (Analysis, error) {
	content = stripFences(content)
	if content == "" {
		return Analysis{}, errors.New("empty model reply")
	}

	var raw struct {
		ProductName string          `json:"productName"`
		Quantity    json.RawMessage `json:"quantity"`
		Unit        string          `json:"unit"`
		Date        string          `json:"date"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Analysis{}, fmt.Errorf("decode model reply: %w", err)
	}

	qty, err := parseQuantity(raw.Quantity)
	if err != nil {
		return Analysis{}, err
	}

	out := Analysis{
		ProductName: strings.TrimSpace(raw.ProductName),
		Quantity:    qty,
		Unit:        strings.TrimSpace(raw.Unit),
	}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(raw.Date)); err == nil {
		out.Date = d.Format("2006-01-02")
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseQuantity(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("quantity is neither a number nor a string")
	}
	fields := strings.Fields(strings.ReplaceAll(s, ",", "."))
	if len(fields) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a number", s)
	}
	return n, nil
}
