// Package models defines core data structures for blocks, pages, books, and render views.
package models

// BlockKind classifies an extracted text block.
type BlockKind int

const (
	// BodyBlock is a paragraph, rendered verbatim.
	BodyBlock BlockKind = iota
	// HeadingBlock is a section heading (h1-h3), rendered with an emphasis marker.
	HeadingBlock
)

// Block is one unit of extractable text from a document's markup.
// Blocks are produced in document order and are immutable once created.
type Block struct {
	Kind BlockKind
	Text string
}

// Page is one bounded-length chunk of rendered text shown to the reader at a time.
type Page struct {
	Text string `json:"text"`
}

// Placeholder metadata used when the document carries none.
const (
	DefaultTitle  = "Untitled"
	DefaultAuthor = "Unknown author"
)

// Book is a fully paginated document. Pages are ordered; the 0-based index
// is the sole addressing mechanism.
type Book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Pages  []Page `json:"pages"`
}

// PageText returns the text of the page at index, which must be in range.
func (b *Book) PageText(index int) string {
	return b.Pages[index].Text
}

// ClampIndex clamps a stored page index into the book's valid range.
// Books are rebuilt independently of stored cursors and can shrink, so a
// stored index is never trusted without re-clamping.
func (b *Book) ClampIndex(index int) int {
	if index < 0 {
		return 0
	}
	if last := len(b.Pages) - 1; index > last {
		return last
	}
	return index
}
