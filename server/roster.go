package server

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

const rosterKey = "managers"

// rosterCache memoises the managers-view reply for a short TTL. A burst of
// introspection requests from many sessions collapses into a single registry
// snapshot: the singleflight group ensures only one goroutine rebuilds the
// text for concurrent misses on the same key. Promotions invalidate the entry
// so a fresh roster is visible immediately.
type rosterCache struct {
	cache *cache.Cache
	group singleflight.Group
}

func newRosterCache(ttl time.Duration) *rosterCache {
	return &rosterCache{
		cache: cache.New(ttl, 10*ttl),
	}
}

// get returns the cached roster text, rebuilding it with build on a miss.
func (c *rosterCache) get(build func() string) string {
	if v, ok := c.cache.Get(rosterKey); ok {
		if text, ok := v.(string); ok {
			return text
		}
	}

	v, _, _ := c.group.Do(rosterKey, func() (interface{}, error) {
		// Another goroutine may have populated the entry while this one
		// waited on the group.
		if cached, ok := c.cache.Get(rosterKey); ok {
			if text, ok := cached.(string); ok {
				return text, nil
			}
		}

		text := build()
		c.cache.Set(rosterKey, text, cache.DefaultExpiration)
		return text, nil
	})

	return v.(string)
}

// invalidate evicts the cached roster text.
func (c *rosterCache) invalidate() {
	c.cache.Delete(rosterKey)
}

// managersView renders the reply to the managers-view introspection command,
// e.g. "Managers: @Itay, @Bob".
func (srv *Server) managersView() string {
	return srv.roster.get(func() string {
		display := lo.Map(srv.Registry.ManagerNames(), func(name string, _ int) string {
			return "@" + name
		})

		return "Managers: " + strings.Join(display, ", ")
	})
}
