package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 4, 10, 15, 30, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func newTestCatalog(t *testing.T, products ...models.Product) (*Catalog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.txt")
	c, err := NewCatalog(path)
	require.NoError(t, err)
	for _, p := range products {
		require.NoError(t, c.Upsert(p))
	}
	return c, path
}

func newTestLedger(t *testing.T, catalog ProductSource) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "final_orders.txt")
	l, err := NewLedger(path, catalog, WithClock(fixedClock), WithLocation(time.UTC))
	require.NoError(t, err)
	return l, path
}

func chips() models.Product {
	return models.Product{
		ID:          "CHIP01",
		Name:        "Choc Chip Cookie",
		Price:       dec("5.00"),
		Stock:       10,
		Description: "Classic cookie",
		Ingredients: "flour, butter, chocolate",
		Allergens:   "gluten, dairy",
	}
}

func oats() models.Product {
	return models.Product{
		ID:          "OAT002",
		Name:        "Oat Cookie",
		Price:       dec("6.50"),
		Stock:       4,
		Description: "Chewy oat cookie",
		Ingredients: "oats, honey",
		Allergens:   "none",
	}
}

func assertProductEqual(t *testing.T, want, got models.Product) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.True(t, want.Price.Equal(got.Price), "price: want %s, got %s", want.Price, got.Price)
	assert.Equal(t, want.Stock, got.Stock)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Ingredients, got.Ingredients)
	assert.Equal(t, want.Allergens, got.Allergens)
}

func assertLinesEqual(t *testing.T, want, got []models.CartLine) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ProductID, got[i].ProductID)
		assert.Equal(t, want[i].ProductName, got[i].ProductName)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.True(t, want[i].UnitPrice.Equal(got[i].UnitPrice),
			"unit price of %s: want %s, got %s", want[i].ProductID, want[i].UnitPrice, got[i].UnitPrice)
	}
}

func assertOrderEqual(t *testing.T, want, got models.Order) {
	t.Helper()
	assert.Equal(t, want.OrderID, got.OrderID)
	assert.Equal(t, want.CustomerName, got.CustomerName)
	assert.Equal(t, want.Phone, got.Phone)
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, want.PaymentMethod, got.PaymentMethod)
	assert.Equal(t, want.CCNumber, got.CCNumber)
	assert.Equal(t, want.CCExpiry, got.CCExpiry)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.Total.Equal(got.Total), "total: want %s, got %s", want.Total, got.Total)
	assert.True(t, want.OrderDate.Equal(got.OrderDate), "date: want %s, got %s", want.OrderDate, got.OrderDate)
	assertLinesEqual(t, want.Items, got.Items)
}
