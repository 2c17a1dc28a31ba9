package uniform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	id "idsync/pkg/domain"
)

func TestMemoryBuffer(t *testing.T) {
	ctx := context.Background()
	const txID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"

	t.Run("first password wins, systems accumulate", func(t *testing.T) {
		buffer := NewMemoryBuffer()
		entityID := id.NewEntityID()

		require.NoError(t, buffer.Add(ctx, txID, entityID, "first-pass", "ldap"))
		require.NoError(t, buffer.Add(ctx, txID, entityID, "second-pass", "crm"))

		var entries []Entry
		require.NoError(t, buffer.Flush(ctx, txID, func(entry Entry) error {
			entries = append(entries, entry)
			return nil
		}))
		require.Len(t, entries, 1)
		require.Equal(t, "first-pass", entries[0].Password)
		require.Equal(t, []string{"ldap", "crm"}, entries[0].Systems)
	})

	t.Run("flush is idempotent", func(t *testing.T) {
		buffer := NewMemoryBuffer()
		require.NoError(t, buffer.Add(ctx, txID, id.NewEntityID(), "pass", "ldap"))

		sent := 0
		require.NoError(t, buffer.Flush(ctx, txID, func(Entry) error { sent++; return nil }))
		require.Equal(t, 1, sent)

		require.NoError(t, buffer.Flush(ctx, txID, func(Entry) error { sent++; return nil }))
		require.Equal(t, 1, sent, "second flush must deliver nothing")
	})

	t.Run("transactions are isolated", func(t *testing.T) {
		buffer := NewMemoryBuffer()
		require.NoError(t, buffer.Add(ctx, "tx-a", id.NewEntityID(), "pass-a", "ldap"))
		require.NoError(t, buffer.Add(ctx, "tx-b", id.NewEntityID(), "pass-b", "ldap"))

		var entries []Entry
		require.NoError(t, buffer.Flush(ctx, "tx-a", func(entry Entry) error {
			entries = append(entries, entry)
			return nil
		}))
		require.Len(t, entries, 1)
		require.Equal(t, "pass-a", entries[0].Password)
	})

	t.Run("entries are claimed even when send fails", func(t *testing.T) {
		buffer := NewMemoryBuffer()
		require.NoError(t, buffer.Add(ctx, txID, id.NewEntityID(), "pass", "ldap"))

		failed := buffer.Flush(ctx, txID, func(Entry) error {
			return context.DeadlineExceeded
		})
		require.Error(t, failed)

		// The transaction was consumed; a retry never re-sends passwords.
		require.NoError(t, buffer.Flush(ctx, txID, func(Entry) error {
			t.Fatal("entry delivered twice")
			return nil
		}))
	})
}

func TestGeneratePassword(t *testing.T) {
	first, err := GeneratePassword()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := GeneratePassword()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEqual(t, "s3cret", hash)

	other, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, hash, other, "bcrypt must salt each hash")
}
