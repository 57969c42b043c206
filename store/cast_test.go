package store

import (
	"testing"

	"github.com/guyvdb/recstore/codec"
	"github.com/guyvdb/recstore/fault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAs(t *testing.T) {
	c := codec.JSON{}

	m, err := As[testModel](c, nil)
	require.NoError(t, err)
	assert.Zero(t, m)

	p, err := As[*testModel](c, &Record{Payload: []byte(`{"id":3,"name":"x"}`)})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, testModel{ID: 3, Name: "x"}, *p)

	_, err = As[testModel](c, &Record{Identifier: "abc"})
	assert.ErrorIs(t, err, fault.ErrDecodeFailed)

	_, err = As[testModel](c, &Record{Payload: []byte(`[1,2]`)})
	assert.ErrorIs(t, err, fault.ErrDecodeFailed)
}

func TestAllAs(t *testing.T) {
	c := codec.JSON{}

	models, err := AllAs[testModel](c, nil)
	require.NoError(t, err)
	assert.Empty(t, models)

	records := []Record{
		{Payload: []byte(`{"id":1}`)},
		{Payload: []byte(`"nope"`)},
	}
	_, err = AllAs[testModel](c, records)
	assert.ErrorContains(t, err, "index 1")
}

func TestGetAllAs(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveMany(toAny(createMany()), testEntity))

	models, err := GetAllAs[testModel](s, testEntity)
	require.NoError(t, err)
	assert.Equal(t, createMany(), models)

	_, err = GetAllAs[testModel](s, "Missing")
	assert.ErrorIs(t, err, fault.ErrEntityNotFound)
}
