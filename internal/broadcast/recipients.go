package broadcast

import (
	"context"
	"fmt"
	"iter"
)

type Kind string

const (
	KindUser  Kind = "user"
	KindGroup Kind = "group"
)

type Recipient struct {
	ID   int64
	Kind Kind
}

// Recipients is one broadcast's target set: every user, then every group.
type Recipients struct {
	Users  []int64
	Groups []int64
}

type RecipientStore interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	ListGroupIDs(ctx context.Context) ([]int64, error)
}

// Enumerate loads a fresh recipient set.
func Enumerate(ctx context.Context, store RecipientStore) (Recipients, error) {
	users, err := store.ListUserIDs(ctx)
	if err != nil {
		return Recipients{}, fmt.Errorf("failed to enumerate users: %w", err)
	}
	groups, err := store.ListGroupIDs(ctx)
	if err != nil {
		return Recipients{}, fmt.Errorf("failed to enumerate groups: %w", err)
	}
	return Recipients{Users: users, Groups: groups}, nil
}

func (r Recipients) Len() int {
	return len(r.Users) + len(r.Groups)
}

// All yields every recipient with its position in the combined sequence,
// users first.
func (r Recipients) All() iter.Seq2[int, Recipient] {
	return func(yield func(int, Recipient) bool) {
		i := 0
		for _, id := range r.Users {
			if !yield(i, Recipient{ID: id, Kind: KindUser}) {
				return
			}
			i++
		}
		for _, id := range r.Groups {
			if !yield(i, Recipient{ID: id, Kind: KindGroup}) {
				return
			}
			i++
		}
	}
}
