// Package route maps event flags to configured path templates. Unknown
// flags never fail: they degrade to a fallback route under the
// missingLogRoutes namespace and the miss is recorded as an
// observability event.
package route

import (
	"strings"
	"sync"

	"github.com/MadlinksCoding/routelog/internal/cache"
	"github.com/MadlinksCoding/routelog/internal/errsink"
	"github.com/MadlinksCoding/routelog/internal/model"
	"github.com/MadlinksCoding/routelog/internal/timefmt"
)

// MissingNamespace is the directory fallback routes live under.
const MissingNamespace = "missingLogRoutes"

// Resolver resolves flags against the loaded route table, consulting the
// shared route cache. The table is swapped atomically on reload.
type Resolver struct {
	mu     sync.RWMutex
	routes map[string]model.Route

	cache *cache.Cache
	sink  errsink.Sink
	clock timefmt.Clock
}

// NewResolver builds a resolver over cfg. cfg may be nil (e.g. when the
// route config failed to load); every flag then takes the fallback path.
func NewResolver(cfg model.RouteConfig, routeCache *cache.Cache, sink errsink.Sink, clock timefmt.Clock) *Resolver {
	if clock == nil {
		clock = timefmt.SystemClock{}
	}
	r := &Resolver{cache: routeCache, sink: sink, clock: clock}
	r.Reload(cfg)
	return r
}

// Reload replaces the route table and invalidates the route cache. Flags
// are indexed lowercase: route lookup is case-insensitive.
func (r *Resolver) Reload(cfg model.RouteConfig) {
	table := make(map[string]model.Route)
	for _, category := range cfg {
		for _, entry := range category.Logs {
			flag := strings.ToLower(strings.TrimSpace(entry.Flag))
			if flag == "" || entry.Path == "" {
				continue
			}
			table[flag] = model.Route{
				Path:          entry.Path,
				Critical:      entry.Critical,
				PciCompliance: entry.PciCompliance,
			}
		}
	}
	r.mu.Lock()
	r.routes = table
	r.mu.Unlock()
	if r.cache != nil {
		r.cache.Clear()
	}
}

// Len returns the number of configured routes.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// GetRouteByFlag resolves a flag to its route. Blank or unknown flags
// synthesize a fallback route; this method never fails.
func (r *Resolver) GetRouteByFlag(flag string) model.Route {
	key := strings.ToLower(strings.TrimSpace(flag))
	if key == "" {
		return r.fallbackRoute(flag)
	}
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v.(model.Route)
		}
	}

	r.mu.RLock()
	route, ok := r.routes[key]
	r.mu.RUnlock()
	if !ok {
		return r.fallbackRoute(flag)
	}
	if r.cache != nil {
		r.cache.Set(key, route)
	}
	return route
}

// fallbackRoute synthesizes a route under MissingNamespace from a
// sanitized flag plus the current date. The miss is an observability
// event, not an error.
func (r *Resolver) fallbackRoute(flag string) model.Route {
	name := SanitizeFlag(flag)
	date := timefmt.FormatDate(r.clock.Now(), timefmt.DefaultDatePattern)
	if r.sink != nil {
		r.sink.AddError("no route configured for flag", map[string]any{"flag": flag})
	}
	return model.Route{Path: MissingNamespace + "/" + name + "_" + date + ".log"}
}

// SanitizeFlag reduces a flag to alphanumerics and underscores so it can
// appear in a filename.
func SanitizeFlag(flag string) string {
	var b strings.Builder
	for _, c := range strings.TrimSpace(flag) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
