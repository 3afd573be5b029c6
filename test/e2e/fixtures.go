// Package e2e exercises the full reading flow against real storage.
package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// Chapter is one spine item of a fixture book.
type Chapter struct {
	Heading    string
	Paragraphs []string
}

// BuildBook assembles a valid EPUB container from the given chapters.
func BuildBook(title, author string, chapters []Chapter) ([]byte, error) {
	var manifest, spine bytes.Buffer
	for i := range chapters {
		id := fmt.Sprintf("ch%d", i+1)
		fmt.Fprintf(&manifest, `<item id=%q href="%s.xhtml" media-type="application/xhtml+xml"/>`, id, id)
		fmt.Fprintf(&spine, `<itemref idref=%q/>`, id)
	}
	opf := fmt.Sprintf(`<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0" unique-identifier="bookid">
  <metadata>
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:identifier id="bookid">fixture-book</dc:identifier>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>%s</manifest>
  <spine>%s</spine>
</package>`, title, author, manifest.String(), spine.String())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	if err := write("mimetype", []byte("application/epub+zip")); err != nil {
		return nil, err
	}
	if err := write("META-INF/container.xml", []byte(containerXML)); err != nil {
		return nil, err
	}
	if err := write("OEBPS/content.opf", []byte(opf)); err != nil {
		return nil, err
	}
	for i, ch := range chapters {
		var body bytes.Buffer
		if ch.Heading != "" {
			fmt.Fprintf(&body, "<h1>%s</h1>", ch.Heading)
		}
		for _, p := range ch.Paragraphs {
			fmt.Fprintf(&body, "<p>%s</p>", p)
		}
		name := fmt.Sprintf("OEBPS/ch%d.xhtml", i+1)
		content := "<html><body>" + body.String() + "</body></html>"
		if err := write(name, []byte(content)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TwoChapterBook is a small fixture that paginates to several pages under a
// modest page budget.
func TwoChapterBook() ([]byte, error) {
	return BuildBook("The Fixture", "E. Twoe", []Chapter{
		{
			Heading: "Chapter One",
			Paragraphs: []string{
				"It was a dark and stormy night in the test suite.",
				"The pages turned themselves, one assertion at a time.",
			},
		},
		{
			Heading: "Chapter Two",
			Paragraphs: []string{
				"By morning the cursor had settled where it was left.",
				"Nothing was lost, not even after the restart.",
			},
		},
	})
}
