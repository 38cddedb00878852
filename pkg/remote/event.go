package remote

import (
	"encoding/json"
	"fmt"

	"github.com/vango-dev/livestate/internal/errors"
	"github.com/vango-dev/livestate/pkg/reactive"
)

// Op is an assignment operation.
type Op string

const (
	// OpSet writes the value at the path. It is the default.
	OpSet Op = "set"
	// OpDelete removes the path's last key from a map.
	OpDelete Op = "delete"
	// OpAppend appends the value to the list at the path.
	OpAppend Op = "append"
)

// Assignment is one write addressed by path.
type Assignment struct {
	Op    Op            `json:"op,omitempty" yaml:"op,omitempty"`
	Path  reactive.Path `json:"path" yaml:"path"`
	Value any           `json:"value,omitempty" yaml:"value,omitempty"`
}

// Event is a named group of assignments applied together.
type Event struct {
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Assignments []Assignment `json:"assignments" yaml:"assignments"`
}

// Result reports what Apply did with an event.
type Result struct {
	Name string `json:"name,omitempty"`

	// Applied counts assignments that reached a node.
	Applied int `json:"applied"`

	// Skipped counts assignments whose parent path was absent.
	Skipped int `json:"skipped"`
}

// DecodeEvent parses and validates a JSON event.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, errors.New("E401").Wrap(err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Validate checks every assignment's op and path.
func (e Event) Validate() error {
	for i, a := range e.Assignments {
		switch a.Op {
		case "", OpSet, OpDelete, OpAppend:
		default:
			return errors.New("E402").WithKey(string(a.Op)).WithDetail(
				fmt.Sprintf("Assignment %d of event %q.", i, e.Name))
		}
		if a.Path.IsEmpty() {
			return errors.New("E401").WithDetail(
				fmt.Sprintf("Assignment %d of event %q has no path.", i, e.Name))
		}
	}
	return nil
}
