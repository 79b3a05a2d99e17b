// Package playlist provides remote playlist paging entities.
package playlist

import "github.com/osa030/jukebot/internal/domain/track"

// Page is one page of a remote playlist.
type Page struct {
	Tracks        []track.Track // Playable entries on this page
	NextPageToken string        // Empty when there are no further pages
}

// HasMore reports whether the remote playlist has further pages.
func (p *Page) HasMore() bool {
	return p.NextPageToken != ""
}

// Cursor carries what is needed to fetch the next page of a remote playlist
// once the local queue drains.
type Cursor struct {
	CollectionID  string
	NextPageToken string
}

// Start begins a fresh import of collectionID, discarding any pending token.
func (c *Cursor) Start(collectionID string) {
	c.CollectionID = collectionID
	c.NextPageToken = ""
}

// Advance records the token returned with the last fetched page.
func (c *Cursor) Advance(nextPageToken string) {
	c.NextPageToken = nextPageToken
}

// Reset clears the cursor.
func (c *Cursor) Reset() {
	c.CollectionID = ""
	c.NextPageToken = ""
}

// Pending reports whether another page should be fetched.
func (c Cursor) Pending() bool {
	return c.CollectionID != "" && c.NextPageToken != ""
}
