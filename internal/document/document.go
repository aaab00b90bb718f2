// Package document opens a note file by extension and bundles the pieces
// that read it.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/notetree/internal/decode"
	"github.com/dgallion1/notetree/internal/search"
	"github.com/dgallion1/notetree/internal/store"
	"github.com/dgallion1/notetree/internal/store/ctb"
	"github.com/dgallion1/notetree/internal/store/ctd"
)

// Format is the on-disk encoding of a document.
type Format string

const (
	FormatXML    Format = "xml"
	FormatSQLite Format = "sqlite"
)

// SupportedExtensions lists the file extensions Open accepts.
var SupportedExtensions = map[string]Format{
	".ctd": FormatXML,
	".xml": FormatXML,
	".ctb": FormatSQLite,
}

// Protected encodings are recognized so they can be rejected clearly.
var protectedExtensions = map[string]bool{
	".ctx": true,
	".ctz": true,
}

// Document is an open, read-only note file.
type Document struct {
	Path    string
	Format  Format
	Source  store.NodeSource
	Index   *store.Index
	Decoder *decode.Decoder
	Search  *search.Engine
}

// FormatFor returns the encoding for a filename.
func FormatFor(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := SupportedExtensions[ext]; ok {
		return f, nil
	}
	if protectedExtensions[ext] {
		return "", fmt.Errorf("%w: %s is encrypted or compressed", store.ErrUnsupportedFormat, ext)
	}
	return "", fmt.Errorf("%w: %q", store.ErrUnsupportedFormat, ext)
}

// IsSupported reports whether Open accepts path.
func IsSupported(path string) bool {
	_, err := FormatFor(path)
	return err == nil
}

// Open opens path with the adapter for its extension. Every failure is a
// *store.OpenError.
func Open(ctx context.Context, path string, log *slog.Logger) (*Document, error) {
	if log == nil {
		log = slog.Default()
	}
	format, err := FormatFor(path)
	if err != nil {
		return nil, &store.OpenError{Path: path, Err: err}
	}

	var src store.NodeSource
	switch format {
	case FormatXML:
		src, err = ctd.Open(path)
	case FormatSQLite:
		src, err = ctb.Open(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	idx := store.NewIndex(src)
	dec := decode.New(src)
	log.Info("document opened", "path", path, "format", format)
	return &Document{
		Path:    path,
		Format:  format,
		Source:  src,
		Index:   idx,
		Decoder: dec,
		Search:  search.NewEngine(idx, dec, log),
	}, nil
}

func (d *Document) Close() error {
	return d.Source.Close()
}
