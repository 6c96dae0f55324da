package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetJSONGetJSON(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	var ids []string
	ok, err := GetJSON(ctx, r, KeyMonographs, &ids)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, r, KeyMonographs, []string{"n1", "n2"}))

	ok, err = GetJSON(ctx, r, KeyMonographs, &ids)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"n1", "n2"}, ids)
}

func TestGetJSON_BadValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("{nope")))
	var v map[string]any
	_, err := GetJSON(ctx, r, "k", &v)
	require.ErrorContains(t, err, "failed to decode metadata[k]")
}
