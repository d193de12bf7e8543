package events

import (
	"encoding/json"
	"fmt"

	"github.com/anonto42/nano-midea/socialape/internal/store"
)

// Kind is the logical entity an event is about
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
	KindLike    Kind = "like"
	KindUser    Kind = "user"
)

// Operation is the lifecycle transition
type Operation string

const (
	Created Operation = "created"
	Updated Operation = "updated"
	Deleted Operation = "deleted"
)

// Event is a committed write on one document. Before is nil on create, After is nil on delete.
type Event struct {
	Kind   Kind           `json:"entityKind"`
	Op     Operation      `json:"operation"`
	ID     string         `json:"id"`
	Before store.Document `json:"before"`
	After  store.Document `json:"after"`
}

// Key identifies the document; events sharing a key are delivered in commit order.
func (e Event) Key() string {
	return string(e.Kind) + ":" + e.ID
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s", e.Kind, e.Op, e.ID)
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// KindForCollection maps watched collections to event kinds.
func KindForCollection(collection string) (Kind, bool) {
	switch collection {
	case store.CollectionPosts:
		return KindPost, true
	case store.CollectionComments:
		return KindComment, true
	case store.CollectionLikes:
		return KindLike, true
	case store.CollectionUsers:
		return KindUser, true
	}
	return "", false
}
