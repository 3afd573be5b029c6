package models

// RenderView is the payload handed to the presentation layer for one page.
// The presentation layer owns all markup, escaping, and send-vs-edit decisions;
// SurfaceID identifies the render surface to update in place.
type RenderView struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	PageText   string `json:"page_text"`
	PageNumber int    `json:"page_number"` // 1-based
	TotalPages int    `json:"total_pages"`
	Percent    int    `json:"percent"` // floor((page_number/total_pages)*100)
	SurfaceID  string `json:"surface_id"`
}

// NewRenderView builds the view for the page at the (already clamped) index.
func NewRenderView(book *Book, index int, surfaceID string) *RenderView {
	total := len(book.Pages)
	return &RenderView{
		Title:      book.Title,
		Author:     book.Author,
		PageText:   book.PageText(index),
		PageNumber: index + 1,
		TotalPages: total,
		Percent:    (index + 1) * 100 / total,
		SurfaceID:  surfaceID,
	}
}
