package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

const (
	orderHeaderPrefix = "--- FINAL ORDER #"
	orderHeaderSuffix = "---"
	orderSeparator    = "-------------------------"
	orderDateLayout   = "Mon Jan 02 15:04:05 MST 2006"
	currencyPrefix    = "RM"
	itemDetailsPrefix = " (Qty:"

	// orderDateLayout without the zone
	orderDateWallLayout = "Mon Jan 02 15:04:05 2006"
)

// hasCardDetails reports whether the Card #/Expiry lines are written for o
func hasCardDetails(o models.Order) bool {
	return o.PaymentMethod == models.PaymentMethodCard && o.CCNumber != models.NotAvailable
}

// encodeOrders renders orders as FINAL ORDER blocks in the given order.
// Dates are written in loc.
func encodeOrders(orders []models.Order, loc *time.Location) []byte {
	var buf bytes.Buffer
	for _, o := range orders {
		fmt.Fprintf(&buf, "%s%d %s\n", orderHeaderPrefix, o.OrderID, orderHeaderSuffix)
		fmt.Fprintf(&buf, "Date: %s\n", o.OrderDate.In(loc).Format(orderDateLayout))
		fmt.Fprintf(&buf, "Name: %s\n", o.CustomerName)
		fmt.Fprintf(&buf, "Phone: %s\n", o.Phone)
		fmt.Fprintf(&buf, "Address: %s\n", o.Address)
		fmt.Fprintf(&buf, "Payment: %s\n", o.PaymentMethod)
		if hasCardDetails(o) {
			fmt.Fprintf(&buf, "  Card #: %s\n", o.CCNumber)
			fmt.Fprintf(&buf, "  Expiry: %s\n", o.CCExpiry)
		}
		if o.Status != models.OrderStatusPending {
			fmt.Fprintf(&buf, "Status: %s\n", o.Status)
		}
		fmt.Fprintf(&buf, "Total: %s %s\n", currencyPrefix, o.Total.StringFixed(2))
		buf.WriteString("Items:\n")
		for _, item := range o.Items {
			fmt.Fprintf(&buf, "  - Product ID: %s (Qty: %d, Price: %s, Subtotal: %s)\n",
				item.ProductID,
				item.Quantity,
				item.UnitPrice.StringFixed(2),
				item.Subtotal().StringFixed(2))
		}
		buf.WriteString(orderSeparator + "\n\n")
	}
	return buf.Bytes()
}

// orderDecoder rebuilds orders from FINAL ORDER blocks
type orderDecoder struct {
	loc         *time.Location
	productName func(id string) (string, bool)
	now         func() time.Time
	warn        func(error)
}

func (d orderDecoder) decode(r io.Reader) ([]models.Order, error) {
	var (
		out    []models.Order
		cur    *models.Order
		skip   bool
		lineNo int
	)

	flush := func() {
		if cur != nil && !skip {
			out = append(out, *cur)
		}
		cur = nil
		skip = false
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == orderSeparator {
			flush()
			continue
		}

		if strings.HasPrefix(line, orderHeaderPrefix) {
			if cur != nil {
				d.warn(malformed(ledgerStoreName, lineNo, "order %d has no closing separator", cur.OrderID))
				flush()
			}
			cur = &models.Order{
				CCNumber: models.NotAvailable,
				CCExpiry: models.NotAvailable,
				Status:   models.OrderStatusPending,
				Items:    []models.CartLine{},
			}
			idStr := strings.TrimSuffix(strings.TrimPrefix(line, orderHeaderPrefix), orderHeaderSuffix)
			id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
			if err != nil {
				d.warn(malformed(ledgerStoreName, lineNo, "bad order header %q", line))
				skip = true
				continue
			}
			cur.OrderID = id
			continue
		}

		if cur == nil {
			d.warn(malformed(ledgerStoreName, lineNo, "line outside of an order block %q", line))
			continue
		}

		switch {
		case strings.HasPrefix(line, "Date:"):
			value := fieldValue(line, "Date:")
			date, err := d.parseDate(value)
			if err != nil {
				d.warn(malformed(ledgerStoreName, lineNo, "bad date %q, using load time", value))
				date = d.now()
			}
			cur.OrderDate = date
		case strings.HasPrefix(line, "Name:"):
			cur.CustomerName = fieldValue(line, "Name:")
		case strings.HasPrefix(line, "Phone:"):
			cur.Phone = fieldValue(line, "Phone:")
		case strings.HasPrefix(line, "Address:"):
			cur.Address = fieldValue(line, "Address:")
		case strings.HasPrefix(line, "Payment:"):
			cur.PaymentMethod = fieldValue(line, "Payment:")
		case strings.HasPrefix(line, "Card #:"):
			cur.CCNumber = fieldValue(line, "Card #:")
		case strings.HasPrefix(line, "Expiry:"):
			cur.CCExpiry = fieldValue(line, "Expiry:")
		case strings.HasPrefix(line, "Status:"):
			cur.Status = fieldValue(line, "Status:")
		case strings.HasPrefix(line, "Total:"):
			value := strings.TrimSpace(strings.TrimPrefix(fieldValue(line, "Total:"), currencyPrefix))
			total, err := decimal.NewFromString(value)
			if err != nil {
				d.warn(malformed(ledgerStoreName, lineNo, "bad total %q, dropping order %d", value, cur.OrderID))
				skip = true
				continue
			}
			cur.Total = total
		case line == "Items:":
		case strings.HasPrefix(line, "- Product ID:"):
			item, err := d.parseItem(line)
			if err != nil {
				d.warn(malformed(ledgerStoreName, lineNo, "%v", err))
				continue
			}
			cur.Items = append(cur.Items, item)
		default:
			d.warn(malformed(ledgerStoreName, lineNo, "unrecognised line %q", line))
		}
	}

	// a trailing block without separator is still an order
	flush()

	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("failed to read ledger: %w", err)
	}
	return out, nil
}

// parseItem reads "- Product ID: OAT002 (Qty: 1, Price: 6.50, Subtotal: 6.50)".
// Subtotal is derived, so it is not read back.
// Ids may contain parentheses, so the id ends at the last " (Qty:".
func (d orderDecoder) parseItem(line string) (models.CartLine, error) {
	cut := strings.LastIndex(line, itemDetailsPrefix)
	if cut == -1 {
		return models.CartLine{}, fmt.Errorf("item without quantity %q", line)
	}
	id := fieldValue(line[:cut], "- Product ID:")
	details := line[cut:]
	qtyStr := between(details, "Qty:", ",")
	priceStr := between(details, "Price:", ",")

	if id == "" {
		return models.CartLine{}, fmt.Errorf("item without product id %q", line)
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil || qty < 1 {
		return models.CartLine{}, fmt.Errorf("bad item quantity %q", line)
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return models.CartLine{}, fmt.Errorf("bad item price %q", line)
	}

	name, ok := d.productName(id)
	if !ok {
		name = id
	}

	return models.CartLine{
		ProductID:   id,
		ProductName: name,
		UnitPrice:   price,
		Quantity:    qty,
	}, nil
}

// parseDate reads an order date. An abbreviation the location does not
// know, such as MYT, parses as a zero-offset zone; those dates are read
// again as wall time in d.loc.
func (d orderDecoder) parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(orderDateLayout, value, d.loc)
	if err != nil {
		return t, err
	}
	name, offset := t.Zone()
	if offset != 0 || t.Location() == d.loc || name == "UTC" || name == "GMT" {
		return t, nil
	}

	f := strings.Fields(value)
	if len(f) != 6 {
		return t, nil
	}
	wall := strings.Join(append(f[:4:4], f[5]), " ")
	return time.ParseInLocation(orderDateWallLayout, wall, d.loc)
}

func fieldValue(line, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, label))
}

// between returns the trimmed text after start up to the next end, or to
// the end of line when end does not follow.
func between(line, start, end string) string {
	i := strings.Index(line, start)
	if i == -1 {
		return ""
	}
	rest := line[i+len(start):]
	if j := strings.Index(rest, end); j != -1 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}
