package model

// Route is the destination resolved for a flag: a path template plus
// criticality and compliance metadata. Immutable after load.
type Route struct {
	Path          string `json:"path"`
	Critical      bool   `json:"critical"`
	PciCompliance bool   `json:"PciCompliance"`
}

// RouteEntry is one configured flag→path mapping inside a category.
type RouteEntry struct {
	Flag          string `json:"flag"`
	Path          string `json:"path"`
	PciCompliance bool   `json:"PciCompliance"`
	Critical      bool   `json:"critical"`
}

// RouteCategory groups route entries under a retention/description bucket.
type RouteCategory struct {
	Retention   string       `json:"retention"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Logs        []RouteEntry `json:"logs"`
}

// RouteConfig is the external route configuration: category name → group.
type RouteConfig map[string]RouteCategory

// ResolvedPath is the outcome of placeholder substitution. Path is empty
// whenever Missing is non-empty; the two are never both set.
type ResolvedPath struct {
	Path    string   `json:"path"`
	Missing []string `json:"missing,omitempty"`
}

// OK reports whether every placeholder resolved.
func (r ResolvedPath) OK() bool { return len(r.Missing) == 0 && r.Path != "" }
