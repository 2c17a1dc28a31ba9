package connector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	id "idsync/pkg/domain"
)

func TestMemoryConnectorSearch(t *testing.T) {
	ctx := context.Background()
	systemID := id.NewSystemID()

	t.Run("streams items in stable UID order", func(t *testing.T) {
		conn := NewMemoryConnector()
		for _, uid := range []string{"charlie", "alice", "bob"} {
			conn.Put(systemID, Item{UID: uid})
		}

		var seen []string
		require.NoError(t, conn.Search(ctx, systemID, func(item Item) error {
			seen = append(seen, item.UID)
			return nil
		}))
		require.Equal(t, []string{"alice", "bob", "charlie"}, seen)
	})

	t.Run("callback error stops the iteration", func(t *testing.T) {
		conn := NewMemoryConnector()
		for i := range 5 {
			conn.Put(systemID, Item{UID: fmt.Sprintf("user-%d", i)})
		}

		calls := 0
		err := conn.Search(ctx, systemID, func(Item) error {
			calls++
			if calls == 2 {
				return context.Canceled
			}
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 2, calls)
	})

	t.Run("paging covers every item", func(t *testing.T) {
		conn := NewMemoryConnector(WithPageSize(2))
		for i := range 5 {
			conn.Put(systemID, Item{UID: fmt.Sprintf("user-%d", i)})
		}
		count := 0
		require.NoError(t, conn.Search(ctx, systemID, func(Item) error {
			count++
			return nil
		}))
		require.Equal(t, 5, count)
	})

	t.Run("unknown system streams nothing", func(t *testing.T) {
		conn := NewMemoryConnector()
		require.NoError(t, conn.Search(ctx, id.NewSystemID(), func(Item) error {
			t.Fatal("no items expected")
			return nil
		}))
	})
}

func TestMemoryConnectorReadItem(t *testing.T) {
	ctx := context.Background()
	systemID := id.NewSystemID()
	conn := NewMemoryConnector()
	conn.Put(systemID, Item{UID: "alice", Attributes: map[string]string{"mail": "alice@example.com"}})

	t.Run("reads a stored item", func(t *testing.T) {
		item, err := conn.ReadItem(ctx, systemID, "alice")
		require.NoError(t, err)
		require.NotNil(t, item)
		require.Equal(t, "alice@example.com", item.Attributes["mail"])
	})

	t.Run("returned item is a copy", func(t *testing.T) {
		item, err := conn.ReadItem(ctx, systemID, "alice")
		require.NoError(t, err)
		item.Attributes["mail"] = "tampered"

		again, err := conn.ReadItem(ctx, systemID, "alice")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", again.Attributes["mail"])
	})

	t.Run("missing item is nil without error", func(t *testing.T) {
		item, err := conn.ReadItem(ctx, systemID, "ghost")
		require.NoError(t, err)
		require.Nil(t, item)
	})

	t.Run("removed item disappears", func(t *testing.T) {
		conn.Put(systemID, Item{UID: "temp"})
		conn.Remove(systemID, "temp")
		item, err := conn.ReadItem(ctx, systemID, "temp")
		require.NoError(t, err)
		require.Nil(t, item)
	})
}
