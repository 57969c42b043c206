package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guyvdb/recstore/fault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAbort = errors.New("abort")

func openTestEngine(t *testing.T, entities ...*EntityDescription) *BoltEngine {
	t.Helper()
	e, err := Open(filepath.Join(t.TempDir(), "test.db"), NewModel(entities...))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func createRow(t *testing.T, e Engine, entity, identifier string) Handle {
	t.Helper()
	var h Handle
	err := e.Update(func(c Context) error {
		var err error
		h, err = c.Create(entity)
		if err != nil {
			return err
		}
		return c.SetValue(h, IdentifierAttribute, identifier)
	})
	require.NoError(t, err)
	return h
}

func countRows(t *testing.T, e Engine, entity string) int {
	t.Helper()
	var n int
	err := e.View(func(c Context) error {
		handles, err := c.Fetch(entity)
		n = len(handles)
		return err
	})
	require.NoError(t, err)
	return n
}

func TestBoltEngine_CreateFetchValues(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"))

	err := e.Update(func(c Context) error {
		h, err := c.Create("Book")
		if err != nil {
			return err
		}
		if err := c.SetValue(h, IdentifierAttribute, "abc"); err != nil {
			return err
		}
		if err := c.SetValue(h, PayloadAttribute, []byte(`{"id":1}`)); err != nil {
			return err
		}
		return c.SetValue(h, CreatedAtAttribute, 1700000000.5)
	})
	require.NoError(t, err)

	err = e.View(func(c Context) error {
		handles, err := c.Fetch("Book")
		require.NoError(t, err)
		require.Len(t, handles, 1)

		id, ok, err := c.Value(handles[0], IdentifierAttribute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc", id)

		payload, ok, err := c.Value(handles[0], PayloadAttribute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte(`{"id":1}`), payload)

		ts, ok, err := c.Value(handles[0], CreatedAtAttribute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1700000000.5, ts)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltEngine_FetchKeepsCreationOrder(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"))

	for _, id := range []string{"a", "b", "c", "d"} {
		createRow(t, e, "Book", id)
	}

	var ids []string
	err := e.View(func(c Context) error {
		handles, err := c.Fetch("Book")
		if err != nil {
			return err
		}
		for _, h := range handles {
			v, _, err := c.Value(h, IdentifierAttribute)
			if err != nil {
				return err
			}
			ids = append(ids, v.(string))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestBoltEngine_UnsetValue(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"))
	h := createRow(t, e, "Book", "x")

	err := e.View(func(c Context) error {
		_, ok, err := c.Value(h, PayloadAttribute)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltEngine_FailedUnitOfWorkRollsBack(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"))

	err := e.Update(func(c Context) error {
		if _, err := c.Create("Book"); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)
	assert.NotErrorIs(t, err, fault.ErrStorage)
	assert.Equal(t, 0, countRows(t, e, "Book"))
}

func TestBoltEngine_Delete(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"))
	h := createRow(t, e, "Book", "a")
	createRow(t, e, "Book", "b")

	require.NoError(t, e.Update(func(c Context) error { return c.Delete(h) }))
	assert.Equal(t, 1, countRows(t, e, "Book"))

	// deleting again is not an error
	require.NoError(t, e.Update(func(c Context) error { return c.Delete(h) }))
	assert.Equal(t, 1, countRows(t, e, "Book"))
}

func TestBoltEngine_BulkDelete(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"), RecordEntity("Author"))
	createRow(t, e, "Book", "a")
	createRow(t, e, "Book", "b")
	createRow(t, e, "Author", "c")

	require.NoError(t, e.BulkDelete("Book"))
	assert.Equal(t, 0, countRows(t, e, "Book"))
	assert.Equal(t, 1, countRows(t, e, "Author"))

	// entity that never had rows
	require.NoError(t, e.BulkDelete("Book"))

	err := e.BulkDelete("Missing")
	assert.ErrorIs(t, err, fault.ErrEntityNotFound)
}

func TestBoltEngine_UnknownEntityAndAttribute(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"))
	h := createRow(t, e, "Book", "a")

	err := e.Update(func(c Context) error {
		_, err := c.Create("Missing")
		return err
	})
	assert.ErrorIs(t, err, fault.ErrEntityNotFound)
	assert.ErrorIs(t, err, fault.ErrStorage)

	err = e.Update(func(c Context) error {
		return c.SetValue(h, "title", "x")
	})
	assert.ErrorIs(t, err, fault.ErrAttributeNotFound)
}

func TestBoltEngine_ValueMismatch(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"))
	h := createRow(t, e, "Book", "a")

	err := e.Update(func(c Context) error {
		return c.SetValue(h, CreatedAtAttribute, "yesterday")
	})
	assert.ErrorIs(t, err, fault.ErrValueMismatch)
}

func TestBoltEngine_ModelPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	e, err := Open(path, NewModel(RecordEntity("Book")))
	require.NoError(t, err)
	createRow(t, e, "Book", "a")
	require.NoError(t, e.Close())

	// second process declares nothing
	e, err = Open(path, nil)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, []string{"Book"}, e.Entities())
	assert.Equal(t, 1, countRows(t, e, "Book"))
}

func TestBoltEngine_InMemory(t *testing.T) {
	e, err := Open("scratch.db", NewModel(RecordEntity("Book")), InMemory(), WithTimeout(time.Second))
	require.NoError(t, err)

	path := e.Path()
	assert.FileExists(t, path)
	createRow(t, e, "Book", "a")

	require.NoError(t, e.Close())
	_, err = os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(err))

	err = e.View(func(c Context) error { return nil })
	assert.ErrorIs(t, err, fault.ErrEngineClosed)

	// closing twice is harmless
	assert.NoError(t, e.Close())
}

func TestBoltEngine_EmptyPath(t *testing.T) {
	_, err := Open("", nil)
	assert.ErrorIs(t, err, fault.ErrStorage)
}

func TestBoltEngine_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readonly.db")

	e, err := Open(path, NewModel(RecordEntity("Book")))
	require.NoError(t, err)
	createRow(t, e, "Book", "a")
	require.NoError(t, e.Close())

	e, err = Open(path, nil, ReadOnly())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, []string{"Book"}, e.Entities())
	assert.Equal(t, 1, countRows(t, e, "Book"))

	err = e.Update(func(c Context) error {
		_, err := c.Create("Book")
		return err
	})
	assert.ErrorIs(t, err, fault.ErrReadOnly)
	assert.ErrorIs(t, err, fault.ErrStorage)

	assert.ErrorIs(t, e.BulkDelete("Book"), fault.ErrReadOnly)
	assert.Equal(t, 1, countRows(t, e, "Book"))
}

func TestBoltEngine_ZeroHandle(t *testing.T) {
	e := openTestEngine(t, RecordEntity("Book"))
	createRow(t, e, "Book", "a")

	err := e.View(func(c Context) error {
		_, _, err := c.Value(Handle{}, IdentifierAttribute)
		return err
	})
	assert.ErrorIs(t, err, fault.ErrEntityNotFound)

	err = e.Update(func(c Context) error {
		return c.Delete(Handle{})
	})
	assert.ErrorIs(t, err, fault.ErrInvalidHandleFormat)
	assert.Equal(t, 1, countRows(t, e, "Book"))
}
