// Package extract turns EPUB containers into ordered text blocks.
//
// Spine items are read in the document's canonical reading order. Only items
// with a recognized document media type contribute blocks; items that fail to
// decode are skipped with a warning, never fatally.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/taylorskalyo/goreader/epub"
	"go.uber.org/zap"

	"github.com/mkrz/folio/internal/models"
)

var (
	// ErrUnsupportedFormat means the input is not an EPUB container.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument means extraction yielded zero blocks; there is
	// nothing to read and no book should be created.
	ErrEmptyDocument = errors.New("document has no readable content")
)

// Recognized media types for readable spine items. Anything else (images,
// stylesheets, fonts) is skipped without error.
const (
	MediaTypeXHTML = "application/xhtml+xml"
	MediaTypeHTML  = "text/html"
)

// IsDocumentMediaType reports whether a spine item of the given media type
// carries readable markup.
func IsDocumentMediaType(mediaType string) bool {
	switch mediaType {
	case MediaTypeXHTML, MediaTypeHTML:
		return true
	}
	return false
}

// SupportedExtension reports whether the filename extension indicates a
// supported container format. Callers reject other uploads before extraction.
func SupportedExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".epub")
}

// BookSource is the result of extraction: document metadata plus all blocks
// in canonical reading order.
type BookSource struct {
	Title   string
	Creator string
	Blocks  []models.Block
}

// Extractor extracts blocks from EPUB files.
type Extractor struct {
	logger *zap.Logger // optional; when set, logs skipped items
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets a logger for recoverable-skip warnings.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns an Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile extracts blocks and metadata from the EPUB at path.
func (e *Extractor) ExtractFile(path string) (*BookSource, error) {
	rc, err := epub.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer rc.Close()
	return e.extract(&rc.Reader)
}

// ExtractBytes extracts blocks and metadata from an in-memory EPUB, as
// received from an upload.
func (e *Extractor) ExtractBytes(data []byte) (*BookSource, error) {
	r, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return e.extract(r)
}

func (e *Extractor) extract(r *epub.Reader) (*BookSource, error) {
	if len(r.Rootfiles) == 0 {
		return nil, fmt.Errorf("%w: no rootfiles in container", ErrUnsupportedFormat)
	}
	book := r.Rootfiles[0]
	src := &BookSource{
		Title:   strings.TrimSpace(book.Title),
		Creator: strings.TrimSpace(book.Creator),
	}
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil || !IsDocumentMediaType(ref.Item.MediaType) {
			continue
		}
		markup, err := readItem(ref.Item)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("spine item skipped",
					zap.String("item", ref.Item.ID),
					zap.Error(err))
			}
			continue
		}
		src.Blocks = append(src.Blocks, Blocks(markup)...)
	}
	if len(src.Blocks) == 0 {
		return nil, ErrEmptyDocument
	}
	return src, nil
}

func readItem(item *epub.Item) (string, error) {
	r, err := item.Open()
	if err != nil {
		return "", fmt.Errorf("open item: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read item: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("item content is not valid UTF-8 text")
	}
	return string(data), nil
}
