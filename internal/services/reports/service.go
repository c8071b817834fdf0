// Package reports builds the operations summary and spreadsheet exports.
package reports

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mendelflow/mendelflowgo/internal/models"
	"github.com/mendelflow/mendelflowgo/internal/store"
)

// Source is the data the reports read
type Source interface {
	OrderStatusCounts(ctx context.Context) ([]store.StatusCount, error)
	AverageProgress(ctx context.Context) (float64, error)
	TaskCounts(ctx context.Context, column string) ([]store.StatusCount, error)
	QueueCounts(ctx context.Context) ([]store.PlaceStatusCount, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error)
	ListTasks(ctx context.Context, f store.TaskFilter) ([]models.Task, error)
}

// Summary is the JSON dashboard payload
type Summary struct {
	GeneratedAt     time.Time                   `json:"generatedAt"`
	OrdersByStatus  map[string]int64            `json:"ordersByStatus"`
	AverageProgress float64                     `json:"averageProgress"`
	TasksByStatus   map[string]int64            `json:"tasksByStatus"`
	TasksByPriority map[string]int64            `json:"tasksByPriority"`
	Queue           map[string]map[string]int64 `json:"queue"` // place -> status -> count
}

// Service produces reports
type Service struct {
	src Source
	log *zap.Logger
	now func() time.Time
}

// NewService creates a report service
func NewService(src Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, log: log, now: time.Now}
}

// Summary aggregates order, task and queue counts
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	orders, err := s.src.OrderStatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	avg, err := s.src.AverageProgress(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.src.TaskCounts(ctx, "status")
	if err != nil {
		return nil, err
	}
	byPriority, err := s.src.TaskCounts(ctx, "priority")
	if err != nil {
		return nil, err
	}
	queue, err := s.src.QueueCounts(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		GeneratedAt:     s.now().UTC(),
		OrdersByStatus:  toMap(orders),
		AverageProgress: math.Round(avg*10) / 10,
		TasksByStatus:   toMap(byStatus),
		TasksByPriority: toMap(byPriority),
		Queue:           make(map[string]map[string]int64),
	}
	for _, row := range queue {
		if sum.Queue[row.Place] == nil {
			sum.Queue[row.Place] = make(map[string]int64)
		}
		sum.Queue[row.Place][row.Status] = row.Count
	}
	return sum, nil
}

func toMap(rows []store.StatusCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Status] = r.Count
	}
	return m
}

var orderColumns = []string{
	"Order", "Status", "Customer", "Invoice", "Progress", "Created",
	"Position", "SKU", "Name", "Location", "Quantity", "Collected", "Item status",
}

// OrdersXLSX exports orders matching f, one row per item. Orders without
// items still get a row.
func (s *Service) OrdersXLSX(ctx context.Context, f store.OrderFilter) ([]byte, error) {
	orders, err := s.src.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}

	var rows [][]interface{}
	for _, o := range orders {
		head := []interface{}{o.OrderNumber, string(o.Status), o.CustomerName, o.InvoiceNumber, o.Progress, o.CreatedAt.Format("2006-01-02 15:04")}
		if len(o.Items) == 0 {
			rows = append(rows, append(head, "", "", "", "", "", "", ""))
			continue
		}
		for _, it := range o.Items {
			row := append(append([]interface{}{}, head...),
				it.Position+1, it.SKU, it.Name, it.Location, it.Quantity, it.QuantityCollected, string(it.Status))
			rows = append(rows, row)
		}
	}

	s.log.Info("orders export", zap.Int("orders", len(orders)), zap.Int("rows", len(rows)))
	return writeSheet("Orders", orderColumns, rows)
}

var taskColumns = []string{
	"Title", "Status", "Priority", "Order", "Location", "Assigned to", "Due", "Created", "Description",
}

// TasksXLSX exports tasks matching f
func (s *Service) TasksXLSX(ctx context.Context, f store.TaskFilter) ([]byte, error) {
	tasks, err := s.src.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(tasks))
	for _, t := range tasks {
		assigned, due := "", ""
		if t.AssignedTo != nil {
			assigned = *t.AssignedTo
		}
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		rows = append(rows, []interface{}{
			t.Title, string(t.Status), string(t.Priority), t.OrderNumber, t.Location,
			assigned, due, t.CreatedAt.Format("2006-01-02 15:04"), t.Description,
		})
	}

	s.log.Info("tasks export", zap.Int("tasks", len(tasks)))
	return writeSheet("Tasks", taskColumns, rows)
}

func writeSheet(sheet string, columns []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(columns))
	f.SetColWidth(sheet, "A", last, 15)
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
