package store

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byID(m testModel) string {
	if m.ID == 0 {
		return ""
	}
	return strconv.Itoa(m.ID)
}

func TestRepository_Lifecycle(t *testing.T) {
	repo := NewRepository(newTestStore(t), testEntity, byID)
	assert.Equal(t, testEntity, repo.Entity())

	_, found, err := repo.Get()
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SaveAll(createMany()))
	objects, err := repo.Objects()
	require.NoError(t, err)
	assert.Equal(t, createMany(), objects)

	m, found, err := repo.Find(testModel{ID: 40})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "name4", m.Name)

	_, found, err = repo.Find(testModel{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Update(testModel{ID: 40, Name: "updated"}))
	m, found, err = repo.Find(testModel{ID: 40})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "updated", m.Name)

	require.NoError(t, repo.Delete(testModel{ID: 10}))
	require.NoError(t, repo.DeleteAll([]testModel{{ID: 20}, {ID: 30}}))
	objects, err = repo.Objects()
	require.NoError(t, err)
	assert.Len(t, objects, 2)

	require.NoError(t, repo.SaveUnique(createOne()))
	m, found, err = repo.Get()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, createOne(), m)
}

func TestRepository_DefaultKeyIsIDField(t *testing.T) {
	repo := NewRepository[*testModel](newTestStore(t), testEntity, nil)

	require.NoError(t, repo.Save(&testModel{ID: 1, Name: "one"}))
	require.NoError(t, repo.Save(&testModel{ID: 2, Name: "two"}))

	m, found, err := repo.Find(&testModel{ID: 2})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "two", m.Name)
}

func TestRepository_Expired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }))
	repo := NewRepository(s, testEntity, byID)

	expired, err := repo.Expired(time.Hour, "")
	require.NoError(t, err)
	assert.True(t, expired, "missing record is expired")

	require.NoError(t, repo.SaveUnique(createOne()))

	expired, err = repo.Expired(time.Hour, "")
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = repo.Expired(time.Hour, "10")
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = repo.Expired(time.Hour, "99")
	require.NoError(t, err)
	assert.True(t, expired)

	now = now.Add(time.Hour)
	expired, err = repo.Expired(time.Hour, "10")
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = repo.Expired(2*time.Hour, "")
	require.NoError(t, err)
	assert.False(t, expired)
}
