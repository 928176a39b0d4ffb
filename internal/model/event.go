package model

// Size limits enforced before any I/O happens.
const (
	MaxMessageBytes = 10 * 1024        // event message
	MaxDataBytes    = 10 * 1024 * 1024 // serialized event data
)

// LogEvent is a single write request. Flag identifies intent and selects
// the route; Data is the event payload. Events are consumed once and not
// retained after the write completes.
type LogEvent struct {
	Flag     string         `json:"flag"`
	Message  string         `json:"message,omitempty"`
	Action   string         `json:"action,omitempty"`
	Critical bool           `json:"critical,omitempty"`
	Data     map[string]any `json:"data"`
}

// Level derives the record level from the event. Events carry no explicit
// level; criticality is the only severity signal.
func (e LogEvent) Level() string {
	if e.Critical {
		return "critical"
	}
	return "info"
}
