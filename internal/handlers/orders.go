package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"github.com/mendelflow/mendelflowgo/internal/services/printer"
	"github.com/mendelflow/mendelflowgo/internal/store"
)

// OrderItemInput is one line of a new order
type OrderItemInput struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	AvailableQuantity *int   `json:"availableQuantity"`
	Location          string `json:"location"`
	ImageURL          string `json:"imageUrl"`
	Description       string `json:"description"`
}

// CreateOrderRequest is the payload for a new order
type CreateOrderRequest struct {
	OrderNumber     string           `json:"orderNumber"`
	InvoiceNumber   string           `json:"invoiceNumber"`
	CustomerName    string           `json:"customerName"`
	CustomerContact string           `json:"customerContact"`
	Notes           string           `json:"notes"`
	AssignedTo      *string          `json:"assignedTo"`
	Items           []OrderItemInput `json:"items"`
}

// UpdateOrderRequest changes header fields. Absent fields are kept.
type UpdateOrderRequest struct {
	InvoiceNumber   *string `json:"invoiceNumber"`
	CustomerName    *string `json:"customerName"`
	CustomerContact *string `json:"customerContact"`
	Notes           *string `json:"notes"`
}

func (in CreateOrderRequest) toOrder() (*models.Order, error) {
	customer := strings.TrimSpace(in.CustomerName)
	if customer == "" {
		return nil, apperr.Validation("customerName is required")
	}
	order := &models.Order{
		OrderNumber:     strings.TrimSpace(in.OrderNumber),
		InvoiceNumber:   strings.TrimSpace(in.InvoiceNumber),
		CustomerName:    customer,
		CustomerContact: strings.TrimSpace(in.CustomerContact),
		Notes:           in.Notes,
		Status:          models.OrderStatusNew,
		AssignedTo:      in.AssignedTo,
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.SKU) == "" {
			return nil, apperr.Validation("item %d: sku is required", i+1)
		}
		if it.Quantity <= 0 {
			return nil, apperr.Validation("item %d: quantity must be positive", i+1)
		}
		available := it.Quantity
		if it.AvailableQuantity != nil {
			if *it.AvailableQuantity < 0 {
				return nil, apperr.Validation("item %d: availableQuantity cannot be negative", i+1)
			}
			available = *it.AvailableQuantity
		}
		order.Items = append(order.Items, models.OrderItem{
			Position:          i + 1,
			SKU:               strings.TrimSpace(it.SKU),
			Name:              it.Name,
			Quantity:          it.Quantity,
			AvailableQuantity: available,
			Location:          strings.TrimSpace(it.Location),
			Status:            models.OrderItemStatusPending,
			ImageURL:          it.ImageURL,
			Description:       it.Description,
		})
	}
	return order, nil
}

// orderFilter reads list filters shared by the list and export endpoints
func orderFilter(req *http.Request) (store.OrderFilter, error) {
	q := req.URL.Query()
	f := store.OrderFilter{
		OrderNumber:   q.Get("orderNumber"),
		InvoiceNumber: q.Get("invoiceNumber"),
		AssignedTo:    q.Get("assignedTo"),
		Query:         q.Get("q"),
	}
	if f.AssignedTo == "me" {
		if user := currentUser(req); user != nil {
			f.AssignedTo = user.ID
		}
	}
	for _, s := range queryList(req, "status") {
		status := models.OrderStatus(strings.ToUpper(s))
		if !status.Valid() {
			return f, apperr.Validation("unknown order status %q", s)
		}
		f.Status = append(f.Status, status)
	}
	switch view := store.OrderView(q.Get("view")); view {
	case store.OrderViewAll, store.OrderViewOpen, store.OrderViewCompleted:
		f.View = view
	default:
		return f, apperr.Validation("view must be open or completed")
	}

	var err error
	if f.CreatedFrom, err = queryTime(req, "from"); err != nil {
		return f, err
	}
	if f.CreatedTo, err = queryTime(req, "to"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(req, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(req, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func (r *Router) listOrders(w http.ResponseWriter, req *http.Request) {
	f, err := orderFilter(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	orders, err := r.store.ListOrders(req.Context(), f)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (r *Router) getOrder(w http.ResponseWriter, req *http.Request) {
	order, err := r.store.GetOrder(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (r *Router) createOrder(w http.ResponseWriter, req *http.Request) {
	var in CreateOrderRequest
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	order, err := in.toOrder()
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if order.AssignedTo != nil {
		if _, err := r.store.GetUser(req.Context(), *order.AssignedTo); err != nil {
			r.fail(w, req, err)
			return
		}
	}
	if err := r.store.CreateOrder(req.Context(), order); err != nil {
		r.fail(w, req, err)
		return
	}

	r.log.Info("order created", zap.String("order", order.OrderNumber), zap.Int("items", len(order.Items)), zap.String("by", currentUser(req).Username))
	respondJSON(w, http.StatusCreated, order)
}

func (r *Router) updateOrder(w http.ResponseWriter, req *http.Request) {
	var in UpdateOrderRequest
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	updates := map[string]interface{}{}
	if in.InvoiceNumber != nil {
		updates["invoice_number"] = strings.TrimSpace(*in.InvoiceNumber)
	}
	if in.CustomerName != nil {
		name := strings.TrimSpace(*in.CustomerName)
		if name == "" {
			respondError(w, http.StatusBadRequest, "Customer name cannot be empty")
			return
		}
		updates["customer_name"] = name
	}
	if in.CustomerContact != nil {
		updates["customer_contact"] = strings.TrimSpace(*in.CustomerContact)
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if len(updates) == 0 {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	order, err := r.store.UpdateOrder(req.Context(), mux.Vars(req)["id"], updates)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (r *Router) assignOrder(w http.ResponseWriter, req *http.Request) {
	var in struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	if in.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}
	order, err := r.store.AssignOrder(req.Context(), mux.Vars(req)["id"], in.UserID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	r.log.Info("order assigned", zap.String("order", order.OrderNumber), zap.String("to", in.UserID))
	respondJSON(w, http.StatusOK, order)
}

func (r *Router) deleteOrder(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if err := r.store.DeleteOrder(req.Context(), id); err != nil {
		r.fail(w, req, err)
		return
	}
	if r.picking != nil {
		r.picking.Abandon(id)
	}
	r.log.Info("order deleted", zap.String("id", id), zap.String("by", currentUser(req).Username))
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) pickListPDF(w http.ResponseWriter, req *http.Request) {
	order, err := r.store.GetOrder(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	pdf, err := printer.GeneratePickList(order)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondFile(w, "application/pdf", "picklist-"+order.OrderNumber+".pdf", pdf)
}
