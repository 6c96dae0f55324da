package models

import "time"

// ItemType names the kind of entity at either end of a relation.
type ItemType string

const (
	ItemNote       ItemType = "note"
	ItemAttachment ItemType = "attachment"
	ItemNotebook   ItemType = "notebook"
	ItemTag        ItemType = "tag"
	ItemReminder   ItemType = "reminder"
	ItemColor      ItemType = "color"
)

// ItemRef identifies one end of a relation.
type ItemRef struct {
	ID   string
	Type ItemType
}

// Relation is a typed, directed edge. Its identity is the four-tuple of
// both ends.
type Relation struct {
	FromID       string
	FromType     ItemType
	ToID         string
	ToType       ItemType
	DateModified time.Time
	Deleted      bool
}

// From returns the source end.
func (r Relation) From() ItemRef { return ItemRef{ID: r.FromID, Type: r.FromType} }

// To returns the target end.
func (r Relation) To() ItemRef { return ItemRef{ID: r.ToID, Type: r.ToType} }
