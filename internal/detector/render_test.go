package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

func TestRenderHint_EmptyBody(t *testing.T) {
	t.Parallel()

	h := NewRenderHint(100)
	require.True(t, h.NeedsRender(compliance.FetchResponse{StatusCode: 200}))
}

func TestRenderHint_SPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewRenderHint(100)
	resp := compliance.FetchResponse{StatusCode: 200, Body: []byte(`<div id="__next"></div>`)}
	require.True(t, h.NeedsRender(resp))
}

func TestRenderHint_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewRenderHint(1000)
	resp := compliance.FetchResponse{StatusCode: 200, Body: []byte(`<html><script>var a=1;</script><p>t</p></html>`)}
	require.True(t, h.NeedsRender(resp))
}

func TestRenderHint_StaticPage(t *testing.T) {
	t.Parallel()

	h := NewRenderHint(10)
	resp := compliance.FetchResponse{StatusCode: 200, Body: []byte(`<html><body><p>Plain static page with text</p></body></html>`)}
	require.False(t, h.NeedsRender(resp))
}

func TestRenderHint_SkipsRenderedAndErrors(t *testing.T) {
	t.Parallel()

	h := NewRenderHint(100)
	require.False(t, h.NeedsRender(compliance.FetchResponse{StatusCode: 404, Body: []byte("not found")}))
	require.False(t, h.NeedsRender(compliance.FetchResponse{StatusCode: 200, Rendered: true}))
}
