// Package articles provides the help-center corpus that sherpa indexes.
//
// The corpus has two sources: a bundled set of Typeform Help Center
// articles captured ahead of time (see builtin.go), and a live Fetcher
// that downloads pages and reduces them to plain text (see fetch.go).
// Both produce the same Article shape, so the indexing pipeline does not
// care where an article came from.
package articles

// Source labels stored in article metadata.
const (
	// SourceHelpCenter marks bundled Typeform Help Center content.
	SourceHelpCenter = "typeform_help_center"

	// SourceWeb marks articles fetched live by the Fetcher.
	SourceWeb = "web"
)

// Article is a single help-center article ready for chunking.
type Article struct {
	URL      string
	Title    string
	Content  string
	Metadata map[string]string
}

// FullText returns the text handed to the splitter. The title is prepended
// as a heading so every chunk carries enough context to stand alone.
func (a Article) FullText() string {
	return "# " + a.Title + "\n\n" + a.Content
}

// Load returns the articles to index. An empty result means there is
// nothing to populate the vector store with.
func Load() []Article {
	return builtin()
}
