package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/admin-api/internal/domain"
)

func seedEngine(t *testing.T) *MemoryEngine {
	t.Helper()
	e := NewMemoryEngine()
	docs := []Doc{
		{ID: "p1", Kind: domain.KindProducts, Name: "Hand-Painted Vase"},
		{ID: "p2", Kind: domain.KindProducts, Name: "Handmade Mug"},
		{ID: "p3", Kind: domain.KindProducts, Name: "Ceramic Hand Bowl"},
		{ID: "c1", Kind: domain.KindCollections, Name: "Handmade Favorites"},
	}
	require.NoError(t, e.BulkIndex(context.Background(), docs))
	return e
}

func TestMemoryEngine_Suggest_PrefixBeforeSubstring(t *testing.T) {
	e := seedEngine(t)

	items, err := e.Suggest(context.Background(), domain.KindProducts, "hand", 10)

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Hand-Painted Vase", items[0].Name)
	assert.Equal(t, "Handmade Mug", items[1].Name)
	assert.Equal(t, "Ceramic Hand Bowl", items[2].Name, "substring match ranks last")
}

func TestMemoryEngine_Suggest_KindIsolation(t *testing.T) {
	e := seedEngine(t)

	items, err := e.Suggest(context.Background(), domain.KindCollections, "hand", 10)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].ID)
}

func TestMemoryEngine_Suggest_Limit(t *testing.T) {
	e := seedEngine(t)

	items, err := e.Suggest(context.Background(), domain.KindProducts, "", 2)

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestMemoryEngine_Delete(t *testing.T) {
	e := seedEngine(t)

	require.NoError(t, e.Delete(context.Background(), domain.KindProducts, "p1"))

	items, err := e.Suggest(context.Background(), domain.KindProducts, "hand-painted", 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryEngine_IndexOverwrites(t *testing.T) {
	e := seedEngine(t)

	require.NoError(t, e.Index(context.Background(), &Doc{
		ID: "p1", Kind: domain.KindProducts, Name: "Repainted Vase",
	}))

	items, err := e.Suggest(context.Background(), domain.KindProducts, "repainted", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
}
