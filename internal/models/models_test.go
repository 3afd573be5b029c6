package models

import "testing"

func TestBook_ClampIndex(t *testing.T) {
	book := &Book{Pages: []Page{{Text: "a"}, {Text: "b"}, {Text: "c"}}}
	tests := []struct {
		name  string
		index int
		want  int
	}{
		{"in range", 1, 1},
		{"negative", -4, 0},
		{"past end", 5, 2},
		{"last page", 2, 2},
		{"first page", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := book.ClampIndex(tt.index); got != tt.want {
				t.Errorf("ClampIndex(%d) = %d, want %d", tt.index, got, tt.want)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"advance", "retreat", "reset"} {
		a, err := ParseAction(valid)
		if err != nil {
			t.Errorf("ParseAction(%q): %v", valid, err)
		}
		if string(a) != valid {
			t.Errorf("ParseAction(%q) = %q", valid, a)
		}
	}
	if _, err := ParseAction("sideways"); err == nil {
		t.Error("expected error for unknown action")
	}
	if _, err := ParseAction(""); err == nil {
		t.Error("expected error for empty action")
	}
}

func TestNewRenderView(t *testing.T) {
	book := &Book{
		Title:  "Title",
		Author: "Author",
		Pages:  []Page{{Text: "one"}, {Text: "two"}, {Text: "three"}},
	}
	view := NewRenderView(book, 1, "surface-1")
	if view.PageNumber != 2 || view.TotalPages != 3 {
		t.Errorf("position = %d/%d, want 2/3", view.PageNumber, view.TotalPages)
	}
	if view.PageText != "two" {
		t.Errorf("page text = %q", view.PageText)
	}
	if view.Percent != 66 {
		t.Errorf("percent = %d, want 66 (floor of 2/3)", view.Percent)
	}
	if view.SurfaceID != "surface-1" {
		t.Errorf("surface id = %q", view.SurfaceID)
	}
}

func TestNewRenderView_lastPageIsFullProgress(t *testing.T) {
	book := &Book{Title: "t", Author: "a", Pages: []Page{{Text: "only"}}}
	view := NewRenderView(book, 0, "s")
	if view.Percent != 100 {
		t.Errorf("single page percent = %d, want 100", view.Percent)
	}
}
