package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Project.TXT")
	require.NoError(t, os.WriteFile(path, []byte("We build widgets."), 0o644))

	text, err := New().ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "We build widgets.", text)
}

func TestExtractText_Unsupported(t *testing.T) {
	_, err := New().ExtractText(filepath.Join(t.TempDir(), "slides.pptx"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExtractText_BrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not really a pdf"), 0o644))

	_, err := New().ExtractText(path)
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.pdf"))
	assert.True(t, Supported("b.Txt"))
	assert.False(t, Supported("file_list"))
	assert.False(t, Supported("c.docx"))
}
