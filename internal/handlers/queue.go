package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mendelflow/mendelflowgo/internal/access"
	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/middleware"
	"github.com/mendelflow/mendelflowgo/internal/models"
	rules "github.com/mendelflow/mendelflowgo/internal/queue"
	"github.com/mendelflow/mendelflowgo/internal/services/printer"
	"github.com/mendelflow/mendelflowgo/internal/services/queue"
	"github.com/mendelflow/mendelflowgo/internal/websocket"
)

// JoinResponse is what a customer gets back after joining
type JoinResponse struct {
	ID       uint   `json:"id"`
	Place    string `json:"place"`
	Number   int64  `json:"number"`
	Position *int   `json:"position"`
	Link     string `json:"link"`
}

// PositionResponse is null while the ticket is not waiting
type PositionResponse struct {
	Place    string `json:"place"`
	Number   int64  `json:"number"`
	Position *int   `json:"position"`
}

// joinQueue issues the next ticket number. X-Request-ID makes retries safe.
func (r *Router) joinQueue(w http.ResponseWriter, req *http.Request) {
	var in struct {
		Phone string `json:"phone"`
	}
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}

	ticket, err := r.queue.Join(req.Context(), mux.Vars(req)["place"], in.Phone, req.Header.Get("X-Request-ID"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	pos, err := r.queue.Position(req.Context(), ticket.Place, ticket.Number)
	if err != nil {
		r.fail(w, req, err)
		return
	}

	respondJSON(w, http.StatusCreated, JoinResponse{
		ID:       ticket.ID,
		Place:    ticket.Place,
		Number:   ticket.Number,
		Position: pos,
		Link:     printer.TicketURL(r.publicBaseURL(), ticket.Place, ticket.Number),
	})
}

// queuePosition serves both /public/queue/{place}/position/{number} and the
// short /q/{place}/{number} link
func (r *Router) queuePosition(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	number, err := strconv.ParseInt(vars["number"], 10, 64)
	if err != nil || number <= 0 {
		r.fail(w, req, apperr.Validation("invalid ticket number"))
		return
	}
	place, err := queue.ValidatePlace(vars["place"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	pos, err := r.queue.Position(req.Context(), place, number)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, PositionResponse{Place: place, Number: number, Position: pos})
}

// listQueue is the staff view of a place: every ticket ordered by number
func (r *Router) listQueue(w http.ResponseWriter, req *http.Request) {
	var statuses []models.TicketStatus
	for _, s := range queryList(req, "status") {
		statuses = append(statuses, models.TicketStatus(strings.ToLower(s)))
	}
	tickets, err := r.queue.List(req.Context(), mux.Vars(req)["place"], statuses...)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

func ticketID(req *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid ticket id")
	}
	return uint(id), nil
}

// ticketAction runs call, process, done, skip, return or cancel
func (r *Router) ticketAction(w http.ResponseWriter, req *http.Request) {
	id, err := ticketID(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	action, ok := rules.ParseAction(mux.Vars(req)["action"])
	if !ok {
		r.fail(w, req, apperr.Validation("unknown action %q", mux.Vars(req)["action"]))
		return
	}
	ticket, err := r.queue.Apply(req.Context(), id, action, currentUser(req).ID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

func (r *Router) ticketHistory(w http.ResponseWriter, req *http.Request) {
	id, err := ticketID(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	events, err := r.queue.History(req.Context(), id)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (r *Router) ticketSlip(w http.ResponseWriter, req *http.Request) {
	id, err := ticketID(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	ticket, err := r.queue.Get(req.Context(), id)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	pdf, err := printer.GenerateTicketSlip(ticket, r.publicBaseURL())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondFile(w, "application/pdf", fmt.Sprintf("ticket-%s-%d.pdf", ticket.Place, ticket.Number), pdf)
}

// queueBoard upgrades to the live board websocket for ?place=. Browsers
// cannot set headers on websockets so the token comes in the query.
func (r *Router) queueBoard(w http.ResponseWriter, req *http.Request) {
	user, err := r.auth.Resolve(req)
	if err != nil {
		if errors.Is(err, apperr.ErrPersistence) {
			r.fail(w, req, err)
			return
		}
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := middleware.AuthorizeAny(user, access.SendNotifications, access.ViewOrders); err != nil {
		r.fail(w, req, err)
		return
	}

	placeParam := req.URL.Query().Get("place")
	if placeParam == "" && r.cfg != nil {
		placeParam = r.cfg.Queue.DefaultPlace
	}
	place, err := queue.ValidatePlace(placeParam)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	websocket.ServeWs(r.hub, place, w, req)
}

func (r *Router) publicBaseURL() string {
	if r.cfg == nil {
		return ""
	}
	return r.cfg.Queue.PublicBaseURL
}
