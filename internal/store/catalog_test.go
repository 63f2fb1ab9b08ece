package store

import (
	"errors"
	"path/filepath"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_MissingFileIsEmpty(t *testing.T) {
	c, err := NewCatalog(filepath.Join(t.TempDir(), "products.txt"))
	require.NoError(t, err)

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.List())

	_, ok := c.GetByID("CHIP01")
	assert.False(t, ok)
}

func TestCatalog_RoundTripPreservesOrder(t *testing.T) {
	products := []models.Product{
		oats(),
		chips(),
		{ID: "BRW003", Name: "Brownie", Price: dec("7.25"), Stock: 0, Description: "", Ingredients: "cocoa", Allergens: "eggs"},
	}
	_, path := newTestCatalog(t, products...)

	reloaded, err := NewCatalog(path)
	require.NoError(t, err)

	got := reloaded.List()
	require.Len(t, got, len(products))
	for i := range products {
		assertProductEqual(t, products[i], got[i])
	}
}

func TestCatalog_FileFormat(t *testing.T) {
	_, path := newTestCatalog(t, chips())

	assert.Equal(t,
		"CHIP01|Choc Chip Cookie|5.00|10|Classic cookie|flour, butter, chocolate|gluten, dairy\n",
		readFile(t, path))
}

func TestCatalog_UpsertReplacesInPlace(t *testing.T) {
	c, _ := newTestCatalog(t, chips(), oats())

	updated := chips()
	updated.Price = dec("6.00")
	updated.Stock = 3
	require.NoError(t, c.Upsert(updated))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "CHIP01", list[0].ID)
	assertProductEqual(t, updated, list[0])
}

func TestCatalog_UpsertRejectsInvalid(t *testing.T) {
	c, _ := newTestCatalog(t)

	cases := map[string]models.Product{
		"empty id":       {ID: " ", Name: "x"},
		"negative price": {ID: "A", Price: dec("-1")},
		"negative stock": {ID: "A", Stock: -1},
		"pipe in name":   {ID: "A", Name: "a|b"},
		"newline":        {ID: "A", Description: "line\nbreak"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			err := c.Upsert(p)
			assert.ErrorIs(t, err, ErrInvalidProduct)
		})
	}
	assert.Equal(t, 0, c.Len())
}

func TestCatalog_Delete(t *testing.T) {
	c, path := newTestCatalog(t, chips(), oats())

	require.NoError(t, c.Delete("CHIP01"))
	require.NoError(t, c.Delete("MISSING"))

	_, ok := c.GetByID("CHIP01")
	assert.False(t, ok)

	reloaded, err := NewCatalog(path)
	require.NoError(t, err)
	list := reloaded.List()
	require.Len(t, list, 1)
	assert.Equal(t, "OAT002", list[0].ID)
}

func TestCatalog_ReduceStock(t *testing.T) {
	c, path := newTestCatalog(t, chips())

	require.NoError(t, c.ReduceStock("CHIP01", 3))
	p, _ := c.GetByID("CHIP01")
	assert.Equal(t, 7, p.Stock)

	// stock floor
	require.NoError(t, c.ReduceStock("CHIP01", 100))
	p, _ = c.GetByID("CHIP01")
	assert.Equal(t, 0, p.Stock)

	reloaded, err := NewCatalog(path)
	require.NoError(t, err)
	p, _ = reloaded.GetByID("CHIP01")
	assert.Equal(t, 0, p.Stock)
}

func TestCatalog_ReduceStockUnknownIsNoop(t *testing.T) {
	c, _ := newTestCatalog(t, chips())

	assert.NoError(t, c.ReduceStock("MISSING", 2))
	assert.NoError(t, c.ReduceStock("CHIP01", 0))

	p, _ := c.GetByID("CHIP01")
	assert.Equal(t, 10, p.Stock)
}

func TestCatalog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.txt")
	writeFile(t, path, ""+
		"CHIP01|Choc Chip Cookie|5.0|10|Classic cookie|flour|gluten\n"+
		"SHORT|only|three\n"+
		"\n"+
		"BADP|Bad Price|abc|1|d|i|a\n"+
		"BADS|Bad Stock|1.00|many|d|i|a\n"+
		"OAT002|Oat Cookie|6.5|4|Chewy|oats|none|extra\r\n")

	c, err := NewCatalog(path)
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "CHIP01", list[0].ID)
	assert.True(t, dec("5").Equal(list[0].Price))
	assert.Equal(t, "OAT002", list[1].ID)
	assert.Equal(t, "none", list[1].Allergens)
}

func TestCatalog_LowStock(t *testing.T) {
	c, _ := newTestCatalog(t, chips(), oats())

	low := c.LowStock(10)
	require.Len(t, low, 1)
	assert.Equal(t, "OAT002", low[0].ID)
}

func TestCatalog_PersistenceFailureKeepsMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "products.txt")
	c, err := NewCatalog(path)
	require.NoError(t, err)

	err = c.Upsert(chips())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))

	p, ok := c.GetByID("CHIP01")
	require.True(t, ok)
	assert.Equal(t, 10, p.Stock)
}

func TestCatalog_LoadRoundsLegacyPrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.txt")
	writeFile(t, path, "CHIP01|Choc Chip Cookie|5.005|10|Classic cookie|flour|gluten\n")

	c, err := NewCatalog(path)
	require.NoError(t, err)

	p, ok := c.GetByID("CHIP01")
	require.True(t, ok)
	assert.Equal(t, "5.01", p.Price.String())
}
