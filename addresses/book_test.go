package addresses_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-storefront/addresses"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/internal/utils"
	"github.com/jrsteele09/go-storefront/storage"
)

type testFixture struct {
	store *storage.Memory
	book  *addresses.Book
	now   time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		store: storage.NewMemory(),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.book = addresses.NewBook(f.store,
		addresses.WithNowTime(func() time.Time { return f.now }),
		addresses.WithOwner(func() string { return "u1" }),
	)
	return f
}

func input(name string) addresses.Input {
	return addresses.Input{
		FullName:     name,
		PhoneNumber:  "555-0100",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		PostalCode:   "62701",
		Country:      "US",
	}
}

func defaults(t *testing.T, b *addresses.Book) []string {
	t.Helper()
	list, err := b.List()
	require.NoError(t, err)
	var ids []string
	for _, a := range list {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestBook_Create(t *testing.T) {
	f := setupTestFixture(t)

	first, err := f.book.Create(input("Ada"))
	require.NoError(t, err)
	require.True(t, first.IsDefault)
	require.Equal(t, "u1", first.UserID)
	require.Equal(t, f.now, first.CreatedAt)
	require.NotEmpty(t, first.ID)

	second, err := f.book.Create(input("Bob"))
	require.NoError(t, err)
	require.False(t, second.IsDefault)
	require.Equal(t, []string{first.ID}, defaults(t, f.book))

	in := input("Cy")
	in.IsDefault = true
	third, err := f.book.Create(in)
	require.NoError(t, err)
	require.Equal(t, []string{third.ID}, defaults(t, f.book))

	def, err := f.book.Default()
	require.NoError(t, err)
	require.Equal(t, third.ID, def.ID)

	_, err = f.book.Create(addresses.Input{FullName: "No Street"})
	require.ErrorIs(t, err, sferrors.ErrInvalidInput)
	list, err := f.book.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestBook_Update(t *testing.T) {
	f := setupTestFixture(t)
	a, err := f.book.Create(input("Ada"))
	require.NoError(t, err)
	b, err := f.book.Create(input("Bob"))
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	updated, err := f.book.Update(b.ID, addresses.Update{City: utils.Ptr("Shelbyville"), IsDefault: utils.Ptr(true)})
	require.NoError(t, err)
	require.Equal(t, "Shelbyville", updated.City)
	require.Equal(t, "Bob", updated.FullName)
	require.Equal(t, f.now, updated.UpdatedAt)
	require.Equal(t, []string{b.ID}, defaults(t, f.book))

	_, err = f.book.Update(a.ID, addresses.Update{City: utils.Ptr(" ")})
	require.ErrorIs(t, err, sferrors.ErrInvalidInput)

	_, err = f.book.Update("nope", addresses.Update{})
	require.ErrorIs(t, err, sferrors.ErrNotFound)
}

func TestBook_Delete(t *testing.T) {
	f := setupTestFixture(t)
	a, err := f.book.Create(input("Ada"))
	require.NoError(t, err)
	b, err := f.book.Create(input("Bob"))
	require.NoError(t, err)

	t.Run("deleting the default promotes the first remaining", func(t *testing.T) {
		require.NoError(t, f.book.Delete(a.ID))
		require.Equal(t, []string{b.ID}, defaults(t, f.book))
		_, err := f.book.Get(a.ID)
		require.ErrorIs(t, err, sferrors.ErrNotFound)
	})

	t.Run("deleting the last address empties the book", func(t *testing.T) {
		require.NoError(t, f.book.Delete(b.ID))
		_, err := f.book.Default()
		require.ErrorIs(t, err, sferrors.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		require.ErrorIs(t, f.book.Delete("nope"), sferrors.ErrNotFound)
	})
}

func TestBook_SetDefault(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.book.Create(input("Ada"))
	require.NoError(t, err)
	b, err := f.book.Create(input("Bob"))
	require.NoError(t, err)

	got, err := f.book.SetDefault(b.ID)
	require.NoError(t, err)
	require.True(t, got.IsDefault)
	require.Equal(t, []string{b.ID}, defaults(t, f.book))

	_, err = f.book.SetDefault("nope")
	require.ErrorIs(t, err, sferrors.ErrNotFound)
}

func TestBook_SharedStorage(t *testing.T) {
	f := setupTestFixture(t)
	other := addresses.NewBook(f.store.Peer())

	a, err := f.book.Create(input("Ada"))
	require.NoError(t, err)

	got, err := other.Get(a.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Ada", "1 Main St", "Springfield, IL 62701", "US"}, got.Lines())
}

func TestBook_CorruptList(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(addresses.StorageKey, "{not json"))

	_, err := f.book.List()
	require.ErrorIs(t, err, sferrors.ErrCorruptState)
}
