package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/fulfillment"
)

func (r *Router) respondSnapshot(w http.ResponseWriter, req *http.Request, snap fulfillment.Snapshot, err error) {
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (r *Router) startPicking(w http.ResponseWriter, req *http.Request) {
	snap, err := r.picking.Start(req.Context(), mux.Vars(req)["id"], currentUser(req).ID)
	r.respondSnapshot(w, req, snap, err)
}

func (r *Router) viewPicking(w http.ResponseWriter, req *http.Request) {
	snap, err := r.picking.View(mux.Vars(req)["id"])
	r.respondSnapshot(w, req, snap, err)
}

func (r *Router) recordQuantity(w http.ResponseWriter, req *http.Request) {
	var in struct {
		Quantity *int `json:"quantity"`
	}
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	if in.Quantity == nil {
		r.fail(w, req, apperr.Validation("quantity is required"))
		return
	}
	snap, err := r.picking.RecordQuantity(mux.Vars(req)["id"], *in.Quantity)
	r.respondSnapshot(w, req, snap, err)
}

func (r *Router) takeAll(w http.ResponseWriter, req *http.Request) {
	snap, err := r.picking.TakeAll(mux.Vars(req)["id"])
	r.respondSnapshot(w, req, snap, err)
}

func (r *Router) setReason(w http.ResponseWriter, req *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	snap, err := r.picking.SetReason(mux.Vars(req)["id"], in.Reason)
	r.respondSnapshot(w, req, snap, err)
}

func (r *Router) advancePicking(w http.ResponseWriter, req *http.Request) {
	snap, err := r.picking.Advance(req.Context(), mux.Vars(req)["id"])
	r.respondSnapshot(w, req, snap, err)
}

func (r *Router) backPicking(w http.ResponseWriter, req *http.Request) {
	snap, err := r.picking.Back(mux.Vars(req)["id"])
	r.respondSnapshot(w, req, snap, err)
}

func (r *Router) commitPicking(w http.ResponseWriter, req *http.Request) {
	snap, err := r.picking.Commit(req.Context(), mux.Vars(req)["id"])
	r.respondSnapshot(w, req, snap, err)
}

func (r *Router) abandonPicking(w http.ResponseWriter, req *http.Request) {
	if err := r.picking.Abandon(mux.Vars(req)["id"]); err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
