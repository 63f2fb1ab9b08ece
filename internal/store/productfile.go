package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

const (
	productFieldSep   = "|"
	productFieldCount = 7
	maxLineBytes      = 1 << 20
)

// encodeProducts renders products as id|name|price|stock|description|ingredients|allergens lines
func encodeProducts(products []models.Product) []byte {
	var buf bytes.Buffer
	for _, p := range products {
		buf.WriteString(strings.Join([]string{
			p.ID,
			p.Name,
			p.Price.StringFixed(2),
			strconv.Itoa(p.Stock),
			p.Description,
			p.Ingredients,
			p.Allergens,
		}, productFieldSep))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// decodeProducts parses the catalog file. Short or unparseable lines are
// reported through warn and skipped; extra trailing fields are ignored.
func decodeProducts(r io.Reader, warn func(error)) ([]models.Product, error) {
	var products []models.Product

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		f := strings.Split(line, productFieldSep)
		if len(f) < productFieldCount {
			warn(malformed(catalogStoreName, lineNo, "expected %d fields, got %d", productFieldCount, len(f)))
			continue
		}

		price, err := decimal.NewFromString(strings.TrimSpace(f[2]))
		if err != nil {
			warn(malformed(catalogStoreName, lineNo, "bad price %q", f[2]))
			continue
		}
		stock, err := strconv.Atoi(strings.TrimSpace(f[3]))
		if err != nil {
			warn(malformed(catalogStoreName, lineNo, "bad stock %q", f[3]))
			continue
		}

		products = append(products, models.Product{
			ID:          f[0],
			Name:        f[1],
			Price:       price.Round(2),
			Stock:       stock,
			Description: f[4],
			Ingredients: f[5],
			Allergens:   f[6],
		})
	}

	if err := scanner.Err(); err != nil {
		return products, fmt.Errorf("failed to read catalog: %w", err)
	}
	return products, nil
}

func validateProduct(p models.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for %s", ErrInvalidProduct, p.ID)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: negative stock for %s", ErrInvalidProduct, p.ID)
	}
	for _, field := range []string{p.ID, p.Name, p.Description, p.Ingredients, p.Allergens} {
		if strings.ContainsAny(field, productFieldSep+"\r\n") {
			return fmt.Errorf("%w: field %q contains a separator or line break", ErrInvalidProduct, field)
		}
	}
	return nil
}
