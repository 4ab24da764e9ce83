// Package loader turns files on disk or uploaded bytes into documents.
package loader

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"
	"go.uber.org/zap"

	"justify/internal/domain"
)

// Loader reads plain text, markdown, PDF and DOCX files. PDFs yield one
// document per non-blank page.
type Loader struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log.Named("loader")}
}

// Supported reports whether the file extension can be loaded.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".pdf", ".docx":
		return true
	}
	return false
}

// Load expands glob patterns in paths and loads every supported file.
// Unsupported files are skipped. Finding nothing is domain.ErrInvalidDocument.
func (l *Loader) Load(paths []string) ([]domain.Document, error) {
	var documents []domain.Document
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if !Supported(m) {
				l.log.Warn("skipping unsupported file", zap.String("path", m))
				continue
			}
			docs, err := l.loadFile(m, filepath.Base(m))
			if err != nil {
				return nil, err
			}
			documents = append(documents, docs...)
		}
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("no readable documents found: %w", domain.ErrInvalidDocument)
	}
	return documents, nil
}

// LoadReader loads an uploaded file. Binary formats are spooled to a
// temporary file which is removed before returning.
func (l *Loader) LoadReader(name string, r io.Reader) ([]domain.Document, error) {
	if !Supported(name) {
		return nil, fmt.Errorf("unsupported file %q: %w", name, domain.ErrInvalidDocument)
	}
	source := filepath.Base(name)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return l.textDocument(source, source, decodeText(name, data))
	}

	tmp, err := os.CreateTemp("", "justify-*"+filepath.Ext(name))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return l.loadFile(tmp.Name(), source)
}

func (l *Loader) loadFile(path, source string) ([]domain.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return l.loadPDF(path, source)
	case ".docx":
		text, warnings, err := tabula.Open(path).Text()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		for _, w := range warnings {
			l.log.Debug("docx warning", zap.String("source", source), zap.String("warning", w.Message))
		}
		return l.textDocument(path, source, text)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return l.textDocument(path, source, decodeText(path, data))
	}
}

func (l *Loader) textDocument(path, source, content string) ([]domain.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%s is empty: %w", source, domain.ErrInvalidDocument)
	}
	return []domain.Document{{ID: hashString(path), Source: source, Content: content}}, nil
}

func (l *Loader) loadPDF(path, source string) ([]domain.Document, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	defer r.Close()
	count, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	// The extractor borrows r, so per-page Text calls leave it open.
	base := tabula.FromReader(r)
	var docs []domain.Document
	for page := 1; page <= count; page++ {
		text, warnings, err := base.Pages(page).Text()
		if err != nil {
			return nil, fmt.Errorf("read %s page %d: %w", source, page, err)
		}
		for _, w := range warnings {
			l.log.Debug("pdf warning", zap.String("source", source), zap.Int("page", page), zap.String("warning", w.Message))
		}
		if strings.TrimSpace(text) == "" {
			l.log.Warn("skipping blank page", zap.String("source", source), zap.Int("page", page))
			continue
		}
		p := page
		docs = append(docs, domain.Document{
			ID:      hashString(path + "#" + strconv.Itoa(page)),
			Source:  source,
			Page:    &p,
			Content: text,
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s has no extractable text: %w", source, domain.ErrInvalidDocument)
	}
	return docs, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
