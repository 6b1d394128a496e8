package source

import (
	"sync"

	"github.com/lguern/mixtape/internal/bridge"
	"github.com/lguern/mixtape/internal/media"
	"github.com/lguern/mixtape/internal/player"
)

// Factory resolves items to source adapters. Direct-audio items share
// one adapter over the single audio engine; embedded items get one
// adapter per media identifier, cached for the process lifetime so
// repeated requests reuse the same underlying player.
type Factory struct {
	direct   *Direct
	registry *bridge.Registry

	mu     sync.Mutex
	embeds map[string]*Embed
}

// NewFactory creates a resolver over the audio engine and the bridge
// registry.
func NewFactory(engine player.Interface, registry *bridge.Registry) *Factory {
	return &Factory{
		direct:   NewDirect(engine),
		registry: registry,
		embeds:   make(map[string]*Embed),
	}
}

// Resolve returns the adapter for item, creating it on first use.
func (f *Factory) Resolve(item media.Item) Source {
	if item.Kind == media.KindEmbeddedVideo {
		f.mu.Lock()
		defer f.mu.Unlock()
		e := f.embeds[item.Key()]
		if e == nil {
			e = NewEmbed(f.registry, item.ID)
			f.embeds[item.Key()] = e
		}
		return e
	}
	return f.direct
}
