package domain

import "fmt"

// EventKind names a host content notification
type EventKind string

const (
	EventCreated           EventKind = "created"
	EventUpdated           EventKind = "updated"
	EventDeleted           EventKind = "deleted"
	EventAttachmentChanged EventKind = "attachment_changed"
)

// ContentEvent is a notification that a unit changed in the host wiki.
type ContentEvent struct {
	Kind EventKind  `json:"kind"`
	Ref  ContentRef `json:"ref"`
}

// Validate checks the event kind and reference.
func (e ContentEvent) Validate() error {
	switch e.Kind {
	case EventCreated, EventUpdated, EventDeleted:
	case EventAttachmentChanged:
		if e.Ref.Type != UnitTypeAttachment {
			return fmt.Errorf("%w: attachment event for %s", ErrInvalidInput, e.Ref.Type)
		}
	default:
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidInput, e.Kind)
	}
	return e.Ref.Validate()
}
