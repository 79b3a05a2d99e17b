package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/domain/track"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t track.Track) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, t)
		if !result.Accepted {
			zlog.Debug().Msgf("filter rejected track: filter=%s, code=%s, title=%q", f.Name(), result.Code, t.Title)
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// SettingsLookup returns the settings of a filter and whether it is enabled.
type SettingsLookup func(name string) (settings map[string]any, enabled bool)

// BuildChain creates a chain from the registered filters. Filters listed in
// required are always added; others only when enabled. Unknown names are ignored.
func BuildChain(lookup SettingsLookup, required ...string) (*Chain, error) {
	mandatory := make(map[string]bool, len(required))
	for _, name := range required {
		mandatory[name] = true
	}

	chain := NewChain()
	for _, name := range Names() {
		settings, enabled := lookup(name)
		if !enabled && !mandatory[name] {
			continue
		}

		f := registry[name]()
		if err := f.ValidateConfig(settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
		zlog.Info().Msgf("filter enabled: %s", name)
	}
	return chain, nil
}
