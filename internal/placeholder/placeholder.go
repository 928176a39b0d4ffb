// Package placeholder resolves {key} and {key:format} tokens in route
// path templates against event data. Matching is case-insensitive;
// results are cached by a hash of (template, normalized data).
package placeholder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/MadlinksCoding/routelog/internal/cache"
	"github.com/MadlinksCoding/routelog/internal/model"
	"github.com/MadlinksCoding/routelog/internal/timefmt"
	"github.com/spf13/cast"
)

// MaxMissing caps the recorded missing-token list so adversarial
// templates cannot grow the result without bound.
const MaxMissing = 100

// tokenPattern matches {key} and {key:format}. Formats are date patterns
// handed to the time collaborator.
var tokenPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)(?::([^{}]+))?\}`)

// reservedKeys are always treated as absent regardless of event data.
var reservedKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// Engine substitutes tokens and caches resolved results.
type Engine struct {
	cache *cache.Cache
	clock timefmt.Clock
}

// NewEngine builds a placeholder engine over the shared result cache.
func NewEngine(resultCache *cache.Cache, clock timefmt.Clock) *Engine {
	if clock == nil {
		clock = timefmt.SystemClock{}
	}
	return &Engine{cache: resultCache, clock: clock}
}

// ResolvePath substitutes every token in template from data. The
// returned Path is empty whenever any token is unresolved; unresolved
// token names are recorded in Missing (capped at MaxMissing). Repeated
// identical calls return the same cached result.
func (e *Engine) ResolvePath(template string, data map[string]any) *model.ResolvedPath {
	key := cacheKey(template, data)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v.(*model.ResolvedPath)
		}
	}

	lookup := normalizeData(data)
	var missing []string
	seen := make(map[string]struct{})

	resolved := tokenPattern.ReplaceAllStringFunc(template, func(tok string) string {
		m := tokenPattern.FindStringSubmatch(tok)
		name, format := m[1], m[2]
		lower := strings.ToLower(name)
		if _, reserved := reservedKeys[lower]; !reserved {
			if v, ok := lookup[lower]; ok {
				return render(v, format, e.clock)
			}
		}
		if _, dup := seen[lower]; !dup && len(missing) < MaxMissing {
			seen[lower] = struct{}{}
			missing = append(missing, name)
		}
		return tok
	})

	result := &model.ResolvedPath{}
	if len(missing) > 0 {
		result.Missing = missing
	} else {
		result.Path = resolved
	}
	if e.cache != nil {
		e.cache.Set(key, result)
	}
	return result
}

// normalizeData lowercases data keys for case-insensitive matching.
// Reserved keys are dropped here as well, so they cannot resolve even
// when present in the event payload.
func normalizeData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		lower := strings.ToLower(k)
		if _, reserved := reservedKeys[lower]; reserved {
			continue
		}
		out[lower] = v
	}
	return out
}

// render stringifies a token value. Date formats apply to time values;
// for everything else the format is ignored and the scalar is cast.
func render(v any, format string, clock timefmt.Clock) string {
	if t, ok := v.(time.Time); ok {
		return timefmt.FormatDate(t, format)
	}
	if s, ok := v.(string); ok && format != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return timefmt.FormatDate(t, format)
		}
	}
	return cast.ToString(v)
}

// cacheKey hashes template plus canonical (sorted-key) JSON of data.
func cacheKey(template string, data map[string]any) string {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte(cast.ToString(data))
	}
	sum := sha256.Sum256(append([]byte(template+"\x00"), raw...))
	return hex.EncodeToString(sum[:])
}
