// Package watch drives hot reload. The actual file watching is an
// external collaborator behind the Watcher interface; this package only
// debounces notifications and triggers reloads for files that map to
// loaded units.
package watch

// Op classifies a filesystem notification.
type Op uint8

const (
	Change Op = iota
	Add
	Remove
)

func (o Op) String() string {
	switch o {
	case Change:
		return "change"
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is one filesystem notification for a watched path.
type Event struct {
	Path string
	Op   Op
}

// Watcher emits change/add/remove notifications for files under a path.
// The channel closes when the watcher is closed.
type Watcher interface {
	Events() <-chan Event
	Close() error
}
