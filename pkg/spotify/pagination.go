package spotify

import (
	"context"
	"encoding/json"
	"net/url"

	"spotpool/pkg/errors"
)

// Page is one page of a cursor-paginated listing. Items stay raw so the
// same machinery serves playlists, tracks, and albums; callers decode into
// the typed models they need. Next is an opaque, complete continuation URL
// (or empty on the last page).
type Page struct {
	Href  string            `json:"href"`
	Items []json.RawMessage `json:"items"`
	Next  string            `json:"next"`
	Total int               `json:"total"`
}

// ParsePage decodes a raw API response as a paging object
func ParsePage(raw json.RawMessage) (*Page, error) {
	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errors.New(errors.ErrorTypeParsing, 0, "failed to parse page: %v", err)
	}
	return &page, nil
}

// GetPage performs a GET and decodes the response as a paging object
func (h *Handle) GetPage(ctx context.Context, rawURL string, params url.Values) (*Page, error) {
	raw, err := h.Get(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}
	return ParsePage(raw)
}

// Paginate returns a cursor over the result set starting at the given page.
// The sequence is lazy, finite, and non-restartable.
func (h *Handle) Paginate(first *Page) *Cursor {
	return &Cursor{handle: h, page: first}
}

// Cursor walks a multi-page result set by following each page's
// continuation link. Use it like bufio.Scanner:
//
//	cur := handle.Paginate(first)
//	for cur.Next(ctx) {
//	    for _, item := range cur.Items() { ... }
//	}
//	if err := cur.Err(); err != nil { ... }
//
// Already-yielded pages are not buffered; on failure the caller presents
// whatever it has collected so far.
type Cursor struct {
	handle  *Handle
	page    *Page
	err     error
	started bool
}

// Next advances to the next page, fetching the continuation URL when one is
// present. It returns false when the sequence is exhausted or a fetch fails.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.started {
		c.started = true
		return c.page != nil
	}
	if c.page == nil || c.page.Next == "" {
		return false
	}

	// The continuation URL is opaque and complete; no parameter re-encoding
	page, err := c.handle.GetPage(ctx, c.page.Next, nil)
	if err != nil {
		c.err = err
		return false
	}
	c.page = page
	return true
}

// Items returns the current page's items. A page without items yields an
// empty slice; the continuation link is still followed.
func (c *Cursor) Items() []json.RawMessage {
	if c.page == nil {
		return nil
	}
	return c.page.Items
}

// Page returns the current page
func (c *Cursor) Page() *Page {
	return c.page
}

// Err returns the first failure encountered while paging
func (c *Cursor) Err() error {
	return c.err
}
