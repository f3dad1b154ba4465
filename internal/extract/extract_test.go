package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        string
		wantErr     bool
	}{
		{"txt extension", "notes.txt", "", TypeText, false},
		{"markdown extension", "README.MD", "", TypeText, false},
		{"pdf extension", "paper.pdf", "", TypePDF, false},
		{"declared pdf", "upload", "application/pdf", TypePDF, false},
		{"declared text with charset", "upload", "text/plain; charset=utf-8", TypeText, false},
		{"declared markdown", "upload", "text/markdown", TypeText, false},
		{"unknown extension", "image.png", "", "", true},
		{"declared image", "a.txt", "image/png", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectType(tt.filename, tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextPlain(t *testing.T) {
	text, err := Text(TypeText, []byte("Some article body."))
	require.NoError(t, err)
	assert.Equal(t, "Some article body.", text)

	_, err = Text(TypeText, []byte(" \n "))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestTextInvalidPDF(t *testing.T) {
	_, err := Text(TypePDF, []byte("not a pdf"))
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "article.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nBody text."), 0o600))

	text, err := File(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody text.", text)
}

func TestFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0o600))

	_, err := File(path, 32)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = File(path, 64)
	assert.NoError(t, err)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.txt"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
