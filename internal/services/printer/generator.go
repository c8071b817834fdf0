package printer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/mendelflow/mendelflowgo/internal/models"
)

// TicketURL is the public status link encoded on a queue slip. The server
// matches the path case-insensitively.
func TicketURL(baseURL, place string, number int64) string {
	return fmt.Sprintf("%s/Q/%s/%d", strings.TrimRight(baseURL, "/"), strings.ToUpper(place), number)
}

// GenerateTicketSlip renders a small receipt-sized slip for a queue ticket
func GenerateTicketSlip(t *models.QueueTicket, baseURL string) ([]byte, error) {
	// 80mm receipt roll
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: 80, Ht: 120},
	})
	pdf.SetMargins(5, 5, 5)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(70, 8, strings.ToUpper(t.Place), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 40)
	pdf.CellFormat(70, 20, fmt.Sprintf("%d", t.Number), "", 1, "C", false, 0, "")

	url := TicketURL(baseURL, t.Place, t.Number)
	if err := embedQR(pdf, "qr_ticket", url, 20, 38, 40); err != nil {
		return nil, err
	}

	pdf.SetXY(5, 82)
	pdf.SetFont("Arial", "", 7)
	pdf.CellFormat(70, 4, url, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(70, 5, "Scan to follow your place in the queue", "", 1, "C", false, 0, "")
	pdf.CellFormat(70, 5, t.CreatedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")

	return output(pdf)
}

// GeneratePickList renders an A4 pick list for an order, items ordered by
// location so the picker walks the aisles once.
func GeneratePickList(o *models.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(140, 10, "Pick list "+o.OrderNumber, "", 0, "L", false, 0, "")
	if err := embedQR(pdf, "qr_order", o.OrderNumber, 165, 12, 28); err != nil {
		return nil, err
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(140, 6, "Customer: "+o.CustomerName, "", 1, "L", false, 0, "")
	if o.InvoiceNumber != "" {
		pdf.CellFormat(140, 6, "Invoice: "+o.InvoiceNumber, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(140, 6, "Printed: "+time.Now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.SetY(45)

	cols := []struct {
		title string
		w     float64
		align string
	}{
		{"Location", 30, "L"},
		{"SKU", 35, "L"},
		{"Name", 75, "L"},
		{"Qty", 20, "R"},
		{"Picked", 20, "R"},
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range cols {
		pdf.CellFormat(c.w, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, it := range SortByLocation(o.Items) {
		pdf.CellFormat(cols[0].w, 7, it.Location, "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1].w, 7, it.SKU, "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2].w, 7, truncate(it.Name, 42), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[3].w, 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(cols[4].w, 7, "", "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if o.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(180, 5, "Notes: "+o.Notes, "", "L", false)
	}

	return output(pdf)
}

// SortByLocation returns a copy of items ordered by location, then position
func SortByLocation(items []models.OrderItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func embedQR(pdf *gofpdf.Fpdf, name, content string, x, y, size float64) error {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, x, y, size, size, false, opts, 0, "")
	return nil
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
