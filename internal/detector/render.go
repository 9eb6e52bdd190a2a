package detector

import (
	"bytes"
	"strings"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

// RenderHint decides when a statically fetched page is probably a script
// shell whose banner only appears after JavaScript runs.
type RenderHint struct {
	BodyLengthThreshold int
}

// NewRenderHint creates a hint with the given small-body threshold.
func NewRenderHint(threshold int) *RenderHint {
	if threshold == 0 {
		threshold = 2048
	}
	return &RenderHint{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// NeedsRender reports whether resp should be re-fetched with a headless browser.
func (h *RenderHint) NeedsRender(resp compliance.FetchResponse) bool {
	if resp.Rendered || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether script elements cover at least a quarter
// of the document.
func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		gt := strings.IndexByte(lower[start:], '>')
		if gt == -1 {
			// Unterminated tag: the rest of the document counts as script.
			covered += total - start
			break
		}
		contentStart := start + gt + 1
		end := strings.Index(lower[contentStart:], closeTag)
		next := total
		if end != -1 {
			next = contentStart + end + len(closeTag)
		}
		covered += next - start
		pos = next
	}
	return covered*100/total >= 25
}
