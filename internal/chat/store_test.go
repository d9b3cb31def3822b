package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDispatchIsAtomic(t *testing.T) {
	store := NewStore()

	// Socket events and local results land on the store from different
	// goroutines; every append must survive intact.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Dispatch(MessageCreated{Message: msg(
				fmt.Sprintf("m%02d", i), "c1", "u1", "x", time.Duration(i)*time.Millisecond,
			)})
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.State().Messages["c1"], 50)
}

func TestStoreSubscribe(t *testing.T) {
	store := NewStore()

	var seen []int
	id := store.Subscribe(func(s State) {
		seen = append(seen, len(s.Messages["c1"]))
	})

	store.Dispatch(MessageCreated{Message: msg("m1", "c1", "u1", "a", 0)})
	store.Dispatch(MessageCreated{Message: msg("m2", "c1", "u1", "b", time.Second)})
	require.Equal(t, []int{1, 2}, seen)

	store.Unsubscribe(id)
	store.Dispatch(MessageCreated{Message: msg("m3", "c1", "u1", "c", 2*time.Second)})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestStoreStateReturnsSnapshot(t *testing.T) {
	store := NewStore()
	store.Dispatch(MessageCreated{Message: msg("m1", "c1", "u1", "a", 0)})

	before := store.State()
	store.Dispatch(MessageDeleted{ConversationID: "c1", MessageID: "m1", At: t0})

	assert.False(t, before.Messages["c1"][0].Deleted(), "old snapshot is untouched")
	assert.True(t, store.State().Messages["c1"][0].Deleted())
}
