// Package paginate converts an ordered block sequence into bounded-size pages.
package paginate

import (
	"strings"

	"github.com/mkrz/folio/internal/models"
)

const (
	// DefaultPageBudget is the maximum characters per page.
	DefaultPageBudget = 900
	// DefaultParagraphsPerPage is the paragraph grouping hint.
	DefaultParagraphsPerPage = 3

	// separatorBudget accounts for the "\n\n" written after each block.
	separatorBudget = 2
)

// Paginator splits blocks into pages within a character budget.
// Pagination never reorders content, and a page boundary never splits a
// block unless that single block alone exceeds the budget.
type Paginator struct {
	budget            int
	paragraphsPerPage int // grouping hint; carried in config, not a split criterion
}

// New creates a paginator. Non-positive values fall back to defaults.
func New(budget, paragraphsPerPage int) *Paginator {
	if budget <= 0 {
		budget = DefaultPageBudget
	}
	if paragraphsPerPage <= 0 {
		paragraphsPerPage = DefaultParagraphsPerPage
	}
	return &Paginator{budget: budget, paragraphsPerPage: paragraphsPerPage}
}

// Budget returns the configured per-page character budget.
func (p *Paginator) Budget() int { return p.budget }

// Render returns a block's text as it appears on a page. Headings get an
// uppercase emphasis wrapper; the wrapper counts toward the page budget.
func Render(b models.Block) string {
	if b.Kind == models.HeadingBlock {
		return "*" + strings.ToUpper(b.Text) + "*"
	}
	return b.Text
}

// Paginate converts blocks into an ordered page sequence. An empty block
// sequence yields no pages. Every page stays within the budget except
// fallback pages holding a single token longer than the budget itself,
// which are emitted as-is.
func (p *Paginator) Paginate(blocks []models.Block) []models.Page {
	var pages []models.Page
	current := ""

	flush := func() {
		if text := strings.TrimSpace(current); text != "" {
			pages = append(pages, models.Page{Text: text})
		}
		current = ""
	}

	for _, b := range blocks {
		rendered := Render(b)

		// A block too large to ever fit a page: flush what we have so
		// ordering is preserved, then break the block at word boundaries.
		if len(rendered) > p.budget {
			flush()
			pages = append(pages, p.fallbackPages(rendered)...)
			continue
		}

		if len(current)+len(rendered)+separatorBudget > p.budget {
			flush()
		}
		current += rendered + "\n\n"
	}
	flush()
	return pages
}

// fallbackPages greedily packs whitespace-split tokens of an over-budget
// block into successive pages. A single token longer than the budget is
// unsplittable and produces an over-budget page.
func (p *Paginator) fallbackPages(rendered string) []models.Page {
	var pages []models.Page
	chunk := ""
	for _, word := range strings.Fields(rendered) {
		if len(chunk)+len(word)+1 > p.budget && chunk != "" {
			pages = append(pages, models.Page{Text: strings.TrimSpace(chunk)})
			chunk = ""
		}
		chunk += word + " "
	}
	if text := strings.TrimSpace(chunk); text != "" {
		pages = append(pages, models.Page{Text: text})
	}
	return pages
}
