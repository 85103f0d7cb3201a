package search

// SearchResultItem is one normalized search hit.
// Title and Link are always non-empty; Snippet and Source may be empty.
type SearchResultItem struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// RawItem is a candidate extracted by a Strategy before normalization.
type RawItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Usable reports whether the item carries both a title and a link.
func (r RawItem) Usable() bool {
	return r.Title != "" && r.Link != ""
}

// Outcome is the tagged result of a pipeline run: either an ordered list of
// items or an error message, never both.
type Outcome struct {
	items   []SearchResultItem
	message string
	isError bool
}

// Success builds a successful outcome holding items in display order.
func Success(items []SearchResultItem) Outcome {
	return Outcome{items: items}
}

// Failure builds an error outcome carrying a human readable message.
func Failure(message string) Outcome {
	return Outcome{message: message, isError: true}
}

// IsError reports whether the outcome is the error tag.
func (o Outcome) IsError() bool {
	return o.isError
}

// Items returns the result items of a successful outcome.
func (o Outcome) Items() []SearchResultItem {
	return o.items
}

// Message returns the error message of a failed outcome.
func (o Outcome) Message() string {
	return o.message
}
