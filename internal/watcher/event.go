package watcher

// EventKind is the semantic category of a change notification.
type EventKind string

const (
	KindCreated EventKind = "created"
	KindDeleted EventKind = "deleted"
	KindUpdated EventKind = "updated"
)

// Raw action codes reported by notification sources.
const (
	ActionAdded    = 1
	ActionRemoved  = 2
	ActionModified = 3
	ActionRenamed  = 4
	ActionPerm     = 5
)

// actionKinds maps raw action codes to event kinds. Codes absent from the
// table (renames, permission changes) have no semantic kind yet.
var actionKinds = map[int]EventKind{
	ActionAdded:    KindCreated,
	ActionRemoved:  KindDeleted,
	ActionModified: KindUpdated,
}

// Classify maps a raw action code to its event kind. ok is false for codes
// without a mapping; callers drop those records silently.
func Classify(action int) (kind EventKind, ok bool) {
	kind, ok = actionKinds[action]
	return kind, ok
}

// RawChange is a single record delivered by a notification source.
// Meta carries source-specific fields the core does not interpret.
type RawChange struct {
	Action     int            `json:"actionCode"`
	ActionName string         `json:"actionName,omitempty"`
	Filename   string         `json:"filename"`
	Meta       map[string]any `json:"-"`
}

// Batch is one notification delivery. A batch with no records is treated
// as malformed and skipped whole.
type Batch struct {
	Data []RawChange `json:"data"`
}

// Event is the externally visible output of a watch session. FileSize is
// set only when the event was confirmed by stability tracking; a stable
// size of zero is legitimate, hence the pointer.
type Event struct {
	Event    EventKind `json:"event"`
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	FileSize *int64    `json:"fileSize,omitempty"`
}
