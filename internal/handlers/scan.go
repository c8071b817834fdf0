package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/services/queue"
)

// ScanRequest represents the payload from a scanner
type ScanRequest struct {
	Barcode string `json:"barcode"`
}

// ScanResponse standardizes the scan result
type ScanResponse struct {
	Type    string      `json:"type"`           // order, ticket, product
	Message string      `json:"message"`        // Human readable status
	Data    interface{} `json:"data,omitempty"` // The resulting object
}

// Short queue links end in /q/{place}/{number}, in any case
var ticketLinkPattern = regexp.MustCompile(`(?i)/q/([a-z0-9_-]+)/([0-9]+)$`)

// handleScan is the universal entry point for floor scanners. Pick list QR
// codes carry the order number, slips carry the short queue link, and
// anything else is tried as a product SKU.
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) {
	var body ScanRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	code := strings.TrimSpace(body.Barcode)
	if code == "" {
		respondError(w, http.StatusBadRequest, "Empty barcode")
		return
	}

	if m := ticketLinkPattern.FindStringSubmatch(code); m != nil {
		r.scanTicket(w, req, m[1], m[2])
		return
	}

	order, err := r.store.GetOrderByNumber(req.Context(), code)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, ScanResponse{Type: "order", Message: "Order " + order.OrderNumber + " (" + string(order.Status) + ")", Data: order})
		return
	case !errors.Is(err, apperr.ErrNotFound):
		r.fail(w, req, err)
		return
	}

	product, err := r.store.GetProductBySKU(req.Context(), code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Unknown barcode")
			return
		}
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, ScanResponse{Type: "product", Message: product.Name + " at " + product.Location, Data: product})
}

func (r *Router) scanTicket(w http.ResponseWriter, req *http.Request, rawPlace, rawNumber string) {
	number, _ := strconv.ParseInt(rawNumber, 10, 64)
	place, err := queue.ValidatePlace(rawPlace)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	pos, err := r.queue.Position(req.Context(), place, number)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	msg := "Ticket " + rawNumber + " is not waiting"
	if pos != nil {
		msg = "Ticket " + rawNumber + " is waiting at position " + strconv.Itoa(*pos)
	}
	respondJSON(w, http.StatusOK, ScanResponse{Type: "ticket", Message: msg, Data: PositionResponse{Place: place, Number: number, Position: pos}})
}
