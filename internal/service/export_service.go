package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"orderdesk/internal/repository"
)

// utf8BOM makes spreadsheet software detect the encoding correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportHeader is the fixed column set of the order export.
var ExportHeader = []string{
	"id/number",
	"created_at",
	"customer_name",
	"customer_phone",
	"city",
	"total_cost",
	"status",
	"ttn",
}

type ExportService interface {
	// ExportOrders renders the filtered order listing as CSV and returns
	// the suggested attachment filename alongside the file body.
	ExportOrders(ctx context.Context, filter repository.OrderFilter) (filename string, data []byte, err error)
}

type exportService struct {
	orderRepo repository.OrderRepository
}

func NewExportService(orderRepo repository.OrderRepository) ExportService {
	return &exportService{orderRepo: orderRepo}
}

func (s *exportService) ExportOrders(ctx context.Context, filter repository.OrderFilter) (string, []byte, error) {
	orders, err := s.orderRepo.ListForExport(ctx, filter)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load orders for export: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(ExportHeader); err != nil {
		return "", nil, fmt.Errorf("failed to write export header: %w", err)
	}
	for i := range orders {
		order := &orders[i]
		var customerName, customerPhone string
		if order.Customer != nil {
			customerName = order.Customer.FullName
			customerPhone = order.Customer.Phone
		}
		row := []string{
			order.ID.String(),
			order.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			customerName,
			customerPhone,
			order.City,
			order.TotalCost().StringFixed(2),
			order.Status,
			order.TTN,
		}
		if err := w.Write(row); err != nil {
			return "", nil, fmt.Errorf("failed to write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("failed to flush export: %w", err)
	}

	filename := fmt.Sprintf("orders_%s.csv", time.Now().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}
