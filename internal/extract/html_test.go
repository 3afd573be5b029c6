package extract

import (
	"strings"
	"testing"

	"github.com/mkrz/folio/internal/models"
)

func TestBlocks_classification(t *testing.T) {
	markup := `<html><body>
		<h1>Chapter One</h1>
		<p>First paragraph.</p>
		<h2>Section</h2>
		<p>Second paragraph.</p>
	</body></html>`
	blocks := Blocks(markup)
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d: %+v", len(blocks), blocks)
	}
	want := []models.Block{
		{Kind: models.HeadingBlock, Text: "Chapter One"},
		{Kind: models.BodyBlock, Text: "First paragraph."},
		{Kind: models.HeadingBlock, Text: "Section"},
		{Kind: models.BodyBlock, Text: "Second paragraph."},
	}
	for i, b := range blocks {
		if b != want[i] {
			t.Errorf("block %d = %+v, want %+v", i, b, want[i])
		}
	}
}

func TestBlocks_stripsNonContent(t *testing.T) {
	markup := `<html><body>
		<nav><p>table of contents</p></nav>
		<script>var x = 1;</script>
		<style>p { color: red }</style>
		<p>Real text.</p>
	</body></html>`
	blocks := Blocks(markup)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "Real text." {
		t.Errorf("block text = %q", blocks[0].Text)
	}
}

func TestBlocks_collapsesWhitespace(t *testing.T) {
	markup := "<p>  spaced \n\t out   <em>with\nmarkup</em>  </p>"
	blocks := Blocks(markup)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Text != "spaced out with markup" {
		t.Errorf("collapsed text = %q", blocks[0].Text)
	}
}

func TestBlocks_dropsEmptyElements(t *testing.T) {
	markup := `<h1>   </h1><p></p><p>kept</p><h4>too deep</h4>`
	blocks := Blocks(markup)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Kind != models.BodyBlock || blocks[0].Text != "kept" {
		t.Errorf("block = %+v", blocks[0])
	}
}

func TestBlocks_malformedMarkup(t *testing.T) {
	// The parser is lenient; malformed input yields whatever blocks it can
	// recover, never a panic.
	blocks := Blocks("<p>unclosed <h1>mixed</p></h1><<<garbage>>>")
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) == "" {
			t.Errorf("empty block leaked through: %+v", b)
		}
	}
}

func TestBlocks_documentOrder(t *testing.T) {
	markup := `<div><p>one</p><div><p>two</p></div></div><p>three</p>`
	blocks := Blocks(markup)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	for i, want := range []string{"one", "two", "three"} {
		if blocks[i].Text != want {
			t.Errorf("block %d = %q, want %q", i, blocks[i].Text, want)
		}
	}
}
