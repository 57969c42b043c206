package store

import (
	"path/filepath"
	"testing"

	"github.com/guyvdb/recstore/engine"

	"github.com/stretchr/testify/require"
)

const testEntity = "TestModel"

type testModel struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MatterID    int    `json:"matterId"`
}

func createOne() testModel {
	return testModel{ID: 10, Name: "name", Description: "description", MatterID: 20}
}

func deleteOne() testModel {
	return testModel{ID: 30, Name: "name3", Description: "description3", MatterID: 70}
}

func createMany() []testModel {
	return []testModel{
		{ID: 10, Name: "name", Description: "description", MatterID: 20},
		{ID: 20, Name: "name2", Description: "description2", MatterID: 60},
		{ID: 30, Name: "name3", Description: "description3", MatterID: 70},
		{ID: 40, Name: "name4", Description: "description4", MatterID: 80},
		{ID: 50, Name: "name5", Description: "description5", MatterID: 90},
	}
}

func openTestEngine(t *testing.T, entities ...*engine.EntityDescription) *engine.BoltEngine {
	t.Helper()
	if len(entities) == 0 {
		entities = []*engine.EntityDescription{engine.RecordEntity(testEntity)}
	}
	e, err := engine.Open(filepath.Join(t.TempDir(), "store.db"), engine.NewModel(entities...))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return New(openTestEngine(t), opts...)
}

func decodeAll(t *testing.T, s *Store, records []Record) []testModel {
	t.Helper()
	models, err := AllAs[testModel](s.Codec(), records)
	require.NoError(t, err)
	return models
}

func rowCount(t *testing.T, e engine.Engine, entity string) int {
	t.Helper()
	var n int
	require.NoError(t, e.View(func(c engine.Context) error {
		handles, err := c.Fetch(entity)
		n = len(handles)
		return err
	}))
	return n
}
