package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justify/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_TextFilesAndGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "The Clean Air Act.")
	writeFile(t, dir, "b.md", "# Notes\nPenalties apply.")
	writeFile(t, dir, "c.csv", "x,y")

	docs, err := New(nil).Load([]string{filepath.Join(dir, "*")})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Source)
	assert.Nil(t, docs[0].Page)
	assert.Equal(t, "b.md", docs[1].Source)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}

func TestLoad_NothingReadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.csv", "x,y")
	_, err := New(nil).Load([]string{filepath.Join(dir, "*.csv")})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestLoad_EmptyTextFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "empty.txt", "  \n\t")
	_, err := New(nil).Load([]string{p})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := New(nil).Load([]string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadReader(t *testing.T) {
	docs, err := New(nil).LoadReader("uploads/act.txt", strings.NewReader("Section 5 applies."))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "act.txt", docs[0].Source)
	assert.Equal(t, "Section 5 applies.", docs[0].Content)

	_, err = New(nil).LoadReader("act.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestLoadReader_InvalidPDF(t *testing.T) {
	_, err := New(nil).LoadReader("broken.pdf", strings.NewReader("not a pdf"))
	assert.Error(t, err)
}

// emptyPDF is a well-formed PDF whose page tree has no kids.
const emptyPDF = `%PDF-1.4
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [] /Count 0 >>
endobj
xref
0 3
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
trailer
<< /Size 3 /Root 1 0 R >>
startxref
110
%%EOF`

func TestLoad_PDFWithoutPages(t *testing.T) {
	p := writeFile(t, t.TempDir(), "blank.pdf", emptyPDF)
	_, err := New(nil).Load([]string{p})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
	assert.Contains(t, err.Error(), "no extractable text")
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("A.PDF"))
	assert.True(t, Supported("notes.md"))
	assert.False(t, Supported("image.png"))
}

func TestLoadReader_MarkdownIsFlattened(t *testing.T) {
	md := "# Clean Air Act\n\nThe [Agency](https://epa.gov) enforces **Section 5**.\n\n- penalties\n- permits\n"
	docs, err := New(nil).LoadReader("notes.md", strings.NewReader(md))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	content := docs[0].Content
	assert.Contains(t, content, "Clean Air Act")
	assert.Contains(t, content, "The Agency enforces Section 5.")
	assert.Contains(t, content, "penalties")
	assert.NotContains(t, content, "**")
	assert.NotContains(t, content, "https://epa.gov")
	assert.NotContains(t, content, "#")
}

func TestMarkdownText_KeepsCode(t *testing.T) {
	out := markdownText([]byte("Intro.\n\n```\nsection_5 = true\n```\n"))
	assert.Equal(t, "Intro.\n\nsection_5 = true", out)
}
