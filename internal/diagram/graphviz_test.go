package diagram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wfgraph/internal/layout"
)

func TestRenderImagePNG(t *testing.T) {
	model, err := FromGraph("Approval", linearGraph(t), layout.Horizontal)
	require.NoError(t, err)

	png, err := RenderImage(context.Background(), model, ImagePNG)
	require.NoError(t, err)

	// PNG magic bytes: 0x89 P N G.
	require.Greater(t, len(png), 8)
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
	assert.Equal(t, byte('N'), png[2])
	assert.Equal(t, byte('G'), png[3])
}

func TestRenderImageSVGDispatch(t *testing.T) {
	model := dispatchModel(t, layout.Vertical)

	svg, err := RenderImage(context.Background(), model, ImageSVG)
	require.NoError(t, err)

	out := string(svg)
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "Legal review")
	assert.Contains(t, out, "resubmit")
}

func TestRenderImageUnsupportedFormat(t *testing.T) {
	model, err := FromGraph("", linearGraph(t), layout.Horizontal)
	require.NoError(t, err)

	_, err = RenderImage(context.Background(), model, "gif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")
}
