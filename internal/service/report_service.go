package service

import (
	"context"
	"strings"
	"time"

	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	monthKeyLayout  = "Jan 2006"
	healthyStockMsg = "All stocks healthy"
)

// Dashboard summarises the shop for the admin landing page
type Dashboard struct {
	TotalSales      decimal.Decimal `json:"total_sales"`
	TodayOrders     int             `json:"today_orders"`
	LowStock        []string        `json:"low_stock"`
	LowStockSummary string          `json:"low_stock_summary"`
}

// SalesReport aggregates sales per month and units sold per product name
type SalesReport struct {
	MonthlySales map[string]decimal.Decimal `json:"monthly_sales"`
	ProductSales map[string]int             `json:"product_sales"`
}

// ReportService computes read-only admin reports from the catalog and ledger
type ReportService struct {
	catalog           ProductCatalog
	ledger            OrderLedger
	lowStockThreshold int
	loc               *time.Location
	now               func() time.Time
	logger            *zap.Logger
}

// NewReportService creates a report service. Products with stock below
// lowStockThreshold are reported as low.
func NewReportService(catalog ProductCatalog, ledger OrderLedger, lowStockThreshold int) *ReportService {
	return &ReportService{
		catalog:           catalog,
		ledger:            ledger,
		lowStockThreshold: lowStockThreshold,
		loc:               time.Local,
		now:               time.Now,
		logger:            util.GetLogger(),
	}
}

// Dashboard returns total sales, today's order count and low-stock products
func (rs *ReportService) Dashboard(ctx context.Context) Dashboard {
	_, span := util.StartSpan(ctx, "ReportService.Dashboard")
	defer span.End()

	today := rs.now().In(rs.loc).Format("20060102")

	d := Dashboard{TotalSales: decimal.Zero, LowStock: []string{}}
	for _, o := range rs.ledger.ListAll() {
		d.TotalSales = d.TotalSales.Add(o.Total)
		if o.OrderDate.In(rs.loc).Format("20060102") == today {
			d.TodayOrders++
		}
	}

	for _, p := range rs.catalog.LowStock(rs.lowStockThreshold) {
		d.LowStock = append(d.LowStock, p.Name)
	}
	d.LowStockSummary = healthyStockMsg
	if len(d.LowStock) > 0 {
		d.LowStockSummary = strings.Join(d.LowStock, ", ")
	}

	rs.logger.Debug("Dashboard computed",
		zap.Int("today_orders", d.TodayOrders),
		zap.Int("low_stock", len(d.LowStock)))
	return d
}

// Sales returns sales totals keyed by month ("Jan 2006") and units sold
// keyed by the item's product name.
func (rs *ReportService) Sales(ctx context.Context) SalesReport {
	_, span := util.StartSpan(ctx, "ReportService.Sales")
	defer span.End()

	r := SalesReport{
		MonthlySales: make(map[string]decimal.Decimal),
		ProductSales: make(map[string]int),
	}
	for _, o := range rs.ledger.ListAll() {
		month := o.OrderDate.In(rs.loc).Format(monthKeyLayout)
		r.MonthlySales[month] = r.MonthlySales[month].Add(o.Total)
		for _, item := range o.Items {
			r.ProductSales[item.ProductName] += item.Quantity
		}
	}
	return r
}
