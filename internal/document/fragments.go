package document

import "html/template"

// Fragments is the structured result of rendering markup text.
type Fragments struct {
	// HTML is the rendered body with the leading title heading removed.
	HTML template.HTML
	// Title is the plain-text document title, empty when none was found.
	Title string
	// Summary is the plain text of the first paragraph.
	Summary string
}

// HasTitle reports whether the markup carried a title.
func (f *Fragments) HasTitle() bool {
	return f != nil && f.Title != ""
}
