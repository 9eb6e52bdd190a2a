// Package detector inspects fetched pages: it reports cookie-consent issues
// and decides when a page needs a headless render before it can be judged.
package detector

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

// Banner implements compliance.Detector. A page passes when at least one
// text node mentions both keywords, case-insensitively.
type Banner struct {
	keywords []string
}

// NewBanner creates a detector that looks for a cookie consent notice.
func NewBanner() *Banner {
	return &Banner{keywords: []string{"cookie", "consent"}}
}

// Issues returns the compliance issues found in body. The slice is never nil.
func (b *Banner) Issues(body []byte) ([]string, error) {
	found, err := b.HasNotice(body)
	if err != nil {
		return nil, err
	}
	if found {
		return []string{}, nil
	}
	return []string{compliance.MissingBannerIssue}, nil
}

// HasNotice reports whether any single text node carries every keyword.
func (b *Banner) HasNotice(body []byte) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("parse html: %w", err)
	}
	found := false
	doc.Find("*").Contents().EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if goquery.NodeName(sel) == "#text" && b.matches(sel.Text()) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

func (b *Banner) matches(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range b.keywords {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}
