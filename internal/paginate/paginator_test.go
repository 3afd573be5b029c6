package paginate

import (
	"strings"
	"testing"

	"github.com/mkrz/folio/internal/models"
)

func body(text string) models.Block {
	return models.Block{Kind: models.BodyBlock, Text: text}
}

func heading(text string) models.Block {
	return models.Block{Kind: models.HeadingBlock, Text: text}
}

func TestRender(t *testing.T) {
	if got := Render(body("hello world")); got != "hello world" {
		t.Errorf("body render = %q", got)
	}
	if got := Render(heading("Chapter 1")); got != "*CHAPTER 1*" {
		t.Errorf("heading render = %q", got)
	}
}

func TestPaginate_empty(t *testing.T) {
	p := New(900, 3)
	if pages := p.Paginate(nil); pages != nil {
		t.Errorf("empty input should yield no pages, got %d", len(pages))
	}
}

func TestPaginate_singleBlockSinglePage(t *testing.T) {
	p := New(900, 3)
	pages := p.Paginate([]models.Block{body("a short paragraph")})
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Text != "a short paragraph" {
		t.Errorf("page text = %q", pages[0].Text)
	}
}

func TestPaginate_contentPreservedInOrder(t *testing.T) {
	blocks := []models.Block{
		heading("Intro"),
		body(strings.Repeat("alpha ", 50)),
		body(strings.Repeat("bravo ", 60)),
		heading("Next"),
		body(strings.Repeat("charlie ", 70)),
	}
	p := New(300, 3)
	pages := p.Paginate(blocks)
	if len(pages) < 2 {
		t.Fatalf("expected multiple pages, got %d", len(pages))
	}

	// Concatenating all pages (normalizing whitespace) reconstructs the
	// rendered blocks in original order.
	var want []string
	for _, b := range blocks {
		want = append(want, strings.Fields(Render(b))...)
	}
	var got []string
	for _, pg := range pages {
		got = append(got, strings.Fields(pg.Text)...)
	}
	if len(got) != len(want) {
		t.Fatalf("word count: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPaginate_budgetRespected(t *testing.T) {
	var blocks []models.Block
	for i := 0; i < 20; i++ {
		blocks = append(blocks, body(strings.Repeat("word ", 40)))
	}
	p := New(900, 3)
	for i, pg := range p.Paginate(blocks) {
		if len(pg.Text) > 900 {
			t.Errorf("page %d exceeds budget: %d chars", i, len(pg.Text))
		}
		if strings.TrimSpace(pg.Text) == "" {
			t.Errorf("page %d is empty", i)
		}
	}
}

func TestPaginate_headingFlushedBeforeFallback(t *testing.T) {
	// A heading followed by a single over-budget body block: the heading is
	// flushed as its own page before the fallback pages, preserving order.
	long := strings.TrimSpace(strings.Repeat("lorem ipsum ", 80)) // 959 chars
	blocks := []models.Block{heading("Chapter 1"), body(long)}
	p := New(900, 3)
	pages := p.Paginate(blocks)
	if len(pages) < 3 {
		t.Fatalf("expected heading page plus fallback pages, got %d", len(pages))
	}
	if pages[0].Text != "*CHAPTER 1*" {
		t.Errorf("first page should hold the heading, got %q", pages[0].Text)
	}
	for i, pg := range pages[1:] {
		if len(pg.Text) > 900 {
			t.Errorf("fallback page %d exceeds budget: %d chars", i+1, len(pg.Text))
		}
	}
	// Remainder flowed to the final page.
	if !strings.HasSuffix(pages[len(pages)-1].Text, "ipsum") {
		t.Errorf("last page should end the body text, got %q", pages[len(pages)-1].Text)
	}
}

func TestPaginate_fallbackPageCount(t *testing.T) {
	// 2000 characters of 9-char words: greedy packing yields ceil(2000/900)
	// pages, each within budget.
	words := make([]string, 200)
	for i := range words {
		words[i] = "abcdefghi"
	}
	text := strings.Join(words, " ") // 200*9 + 199 = 1999 chars
	p := New(900, 3)
	pages := p.Paginate([]models.Block{body(text)})
	if len(pages) != 3 {
		t.Fatalf("expected 3 fallback pages, got %d", len(pages))
	}
	for i, pg := range pages {
		if len(pg.Text) > 900 {
			t.Errorf("fallback page %d exceeds budget: %d chars", i, len(pg.Text))
		}
	}
}

func TestPaginate_unsplittableToken(t *testing.T) {
	// A single token longer than the budget cannot be split; the page is
	// emitted over budget rather than truncated.
	token := strings.Repeat("x", 1200)
	p := New(900, 3)
	pages := p.Paginate([]models.Block{body(token)})
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Text != token {
		t.Error("unsplittable token should be emitted unmodified")
	}
}

func TestPaginate_headingWrapperCountsTowardBudget(t *testing.T) {
	// 899 chars of heading text render to 901 with the wrapper, pushing the
	// block onto the fallback path.
	text := strings.TrimSpace(strings.Repeat("head ", 180))[:899]
	p := New(900, 3)
	pages := p.Paginate([]models.Block{heading(text)})
	if len(pages) < 2 {
		t.Fatalf("wrapped heading should overflow the budget, got %d page(s)", len(pages))
	}
}

func TestPaginate_blocksGroupUntilBudget(t *testing.T) {
	// Three 100-char blocks fit one 400-char page together.
	b := body(strings.Repeat("a", 100))
	p := New(400, 3)
	pages := p.Paginate([]models.Block{b, b, b})
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if !strings.Contains(pages[0].Text, "\n\n") {
		t.Error("blocks on one page should be separated by blank lines")
	}
}

func TestNew_defaults(t *testing.T) {
	p := New(0, 0)
	if p.Budget() != DefaultPageBudget {
		t.Errorf("default budget = %d", p.Budget())
	}
	if p.paragraphsPerPage != DefaultParagraphsPerPage {
		t.Errorf("default grouping = %d", p.paragraphsPerPage)
	}
}
