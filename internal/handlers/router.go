package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mendelflow/mendelflowgo/internal/access"
	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/config"
	"github.com/mendelflow/mendelflowgo/internal/middleware"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"github.com/mendelflow/mendelflowgo/internal/notify"
	"github.com/mendelflow/mendelflowgo/internal/services/picking"
	"github.com/mendelflow/mendelflowgo/internal/services/queue"
	"github.com/mendelflow/mendelflowgo/internal/services/reports"
	"github.com/mendelflow/mendelflowgo/internal/store"
	"github.com/mendelflow/mendelflowgo/internal/websocket"
)

// Store is the persistence used directly by the handlers
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	ListProducts(ctx context.Context, q string, activeOnly bool) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id string, updates map[string]interface{}) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, id string, updates map[string]interface{}) (*models.Order, error)
	AssignOrder(ctx context.Context, id, userID string) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error

	ListTasks(ctx context.Context, f store.TaskFilter) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, id string, updates map[string]interface{}) (*models.Task, error)
	AddComment(ctx context.Context, taskID string, comment *models.TaskComment) error
	DeleteTask(ctx context.Context, id string) error
}

// Pinger reports database reachability
type Pinger interface {
	Ping() error
}

// Deps are the collaborators of the HTTP layer
type Deps struct {
	Config  *config.Config
	DB      Pinger
	Store   Store
	Auth    *middleware.Auth
	Picking *picking.Service
	Queue   *queue.Service
	Reports *reports.Service
	SMS     notify.Provider
	Hub     *websocket.Hub
	Log     *zap.Logger
}

// Router wraps the mux router and its collaborators
type Router struct {
	*mux.Router
	cfg     *config.Config
	db      Pinger
	store   Store
	auth    *middleware.Auth
	picking *picking.Service
	queue   *queue.Service
	reports *reports.Service
	sms     notify.Provider
	hub     *websocket.Hub
	log     *zap.Logger
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		Router:  mux.NewRouter(),
		cfg:     d.Config,
		db:      d.DB,
		store:   d.Store,
		auth:    d.Auth,
		picking: d.Picking,
		queue:   d.Queue,
		reports: d.Reports,
		sms:     d.SMS,
		hub:     d.Hub,
		log:     log,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/api/status", r.getStatus).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	// Public routes: customer queue and catalog
	public := r.PathPrefix("/public").Subrouter()
	public.HandleFunc("/products", r.listPublicProducts).Methods("GET")
	public.HandleFunc("/queue/{place}/join", r.joinQueue).Methods("POST")
	public.HandleFunc("/queue/{place}/position/{number:[0-9]+}", r.queuePosition).Methods("GET")
	r.HandleFunc("/q/{place}/{number:[0-9]+}", r.queuePosition).Methods("GET")

	// Live queue board
	r.HandleFunc("/ws/queue", r.queueBoard).Methods("GET")

	// Protected API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(r.auth.Middleware)

	api.HandleFunc("/me", r.getMe).Methods("GET")
	api.HandleFunc("/me", r.updateMe).Methods("PATCH")

	api.Handle("/users", need(r.listUsers, access.ManageUsers)).Methods("GET")
	api.Handle("/users", need(r.createUser, access.ManageUsers)).Methods("POST")
	api.Handle("/users/{id}", need(r.updateUser, access.ManageUsers)).Methods("PATCH")
	api.Handle("/users/{id}", need(r.deactivateUser, access.ManageUsers)).Methods("DELETE")

	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/products/{id}", r.getProduct).Methods("GET")
	api.Handle("/products", need(r.createProduct, access.CreateOrder, access.DeleteOrder)).Methods("POST")
	api.Handle("/products/{id}", need(r.updateProduct, access.CreateOrder, access.DeleteOrder)).Methods("PATCH")
	api.Handle("/products/{id}", need(r.deleteProduct, access.ManageUsers, access.DeleteOrder)).Methods("DELETE")

	api.Handle("/orders", need(r.listOrders, access.ViewOrders)).Methods("GET")
	api.Handle("/orders", need(r.createOrder, access.CreateOrder)).Methods("POST")
	api.Handle("/orders/{id}", need(r.getOrder, access.ViewOrders)).Methods("GET")
	api.Handle("/orders/{id}", need(r.updateOrder, access.UpdateOrder)).Methods("PATCH")
	api.Handle("/orders/{id}", need(r.deleteOrder, access.DeleteOrder)).Methods("DELETE")
	api.Handle("/orders/{id}/assign", need(r.assignOrder, access.UpdateOrder)).Methods("PATCH")
	api.Handle("/orders/{id}/picklist.pdf", need(r.pickListPDF, access.ViewOrders)).Methods("GET")

	pick := api.PathPrefix("/orders/{id}/picking").Subrouter()
	pick.Use(middleware.Require(access.UpdateOrder))
	pick.HandleFunc("", r.startPicking).Methods("POST")
	pick.HandleFunc("", r.viewPicking).Methods("GET")
	pick.HandleFunc("", r.abandonPicking).Methods("DELETE")
	pick.HandleFunc("/quantity", r.recordQuantity).Methods("PUT")
	pick.HandleFunc("/take-all", r.takeAll).Methods("POST")
	pick.HandleFunc("/reason", r.setReason).Methods("PUT")
	pick.HandleFunc("/advance", r.advancePicking).Methods("POST")
	pick.HandleFunc("/back", r.backPicking).Methods("POST")
	pick.HandleFunc("/commit", r.commitPicking).Methods("POST")

	api.Handle("/scan", need(r.handleScan, access.ViewOrders)).Methods("POST")

	api.Handle("/tasks", need(r.listTasks, access.ViewTasks)).Methods("GET")
	api.Handle("/tasks", need(r.createTask, access.CreateTask)).Methods("POST")
	api.Handle("/tasks/{id}", need(r.getTask, access.ViewTasks)).Methods("GET")
	api.Handle("/tasks/{id}", need(r.updateTask, access.UpdateTask)).Methods("PATCH")
	api.Handle("/tasks/{id}", need(r.deleteTask, access.DeleteTask)).Methods("DELETE")
	api.Handle("/tasks/{id}/comments", need(r.addComment, access.UpdateTask)).Methods("POST")

	api.Handle("/queue/tickets/{id:[0-9]+}/slip.pdf", need(r.ticketSlip, access.SendNotifications)).Methods("GET")
	api.Handle("/queue/tickets/{id:[0-9]+}/events", need(r.ticketHistory, access.SendNotifications)).Methods("GET")
	api.Handle("/queue/tickets/{id:[0-9]+}/{action}", need(r.ticketAction, access.SendNotifications)).Methods("POST")
	api.Handle("/queue/{place}", need(r.listQueue, access.SendNotifications)).Methods("GET")

	api.Handle("/notifications/sms", need(r.sendSMS, access.SendNotifications)).Methods("POST")

	api.Handle("/reports/summary", need(r.reportSummary, access.ViewReports)).Methods("GET")
	api.Handle("/reports/orders.xlsx", need(r.ordersXLSX, access.CreateReports)).Methods("GET")
	api.Handle("/reports/tasks.xlsx", need(r.tasksXLSX, access.CreateReports)).Methods("GET")

	// Static files
	if d.Config != nil && d.Config.FrontendDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.Config.FrontendDir)))
	}

	return r
}

// Handler returns the router wrapped in the server-wide middleware
func (r *Router) Handler() http.Handler {
	var h http.Handler = r
	h = middleware.CaseInsensitive("/q/")(h)
	h = middleware.RequestLogger(r.log)(h)
	h = middleware.Recover(r.log)(h)
	return h
}

func need(fn http.HandlerFunc, perms ...access.Permission) http.Handler {
	return middleware.Require(perms...)(fn)
}

// currentUser returns the authenticated user. Routes behind the auth
// middleware always have one.
func currentUser(req *http.Request) *models.User {
	user, _ := middleware.UserFromContext(req.Context())
	return user
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondFile sends a download
func respondFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// statusFor maps an application error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidQuantity),
		errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrReasonRequired),
		errors.Is(err, apperr.ErrNoItems):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status for err. Server-side failures are logged and
// their detail is kept out of the response.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusServiceUnavailable:
		r.log.Error("storage failure", zap.String("path", req.URL.Path), zap.Error(err))
		respondError(w, status, "Service temporarily unavailable, please retry")
	case http.StatusInternalServerError:
		r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		respondError(w, status, "Internal server error")
	default:
		respondError(w, status, err.Error())
	}
}

// decodeJSON reads the request body into v
func decodeJSON(req *http.Request, v interface{}) error {
	if req.Body == nil {
		return apperr.Validation("request body required")
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return apperr.Validation("invalid payload: %v", err)
	}
	return nil
}

// queryList splits a comma separated query parameter, also accepting repeats
func queryList(req *http.Request, key string) []string {
	var out []string
	for _, raw := range req.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// queryInt parses an optional non-negative integer parameter
func queryInt(req *http.Request, key string) (int, error) {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("%s must be a non-negative integer", key)
	}
	return n, nil
}

// queryTime parses an optional RFC 3339 timestamp or YYYY-MM-DD date
func queryTime(req *http.Request, key string) (*time.Time, error) {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", key)
}
