package handlers

import (
	"net/http"
	"time"
)

func (r *Router) reportSummary(w http.ResponseWriter, req *http.Request) {
	summary, err := r.reports.Summary(req.Context())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (r *Router) ordersXLSX(w http.ResponseWriter, req *http.Request) {
	f, err := orderFilter(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	data, err := r.reports.OrdersXLSX(req.Context(), f)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondFile(w, xlsxType, "orders-"+time.Now().Format("20060102")+".xlsx", data)
}

func (r *Router) tasksXLSX(w http.ResponseWriter, req *http.Request) {
	f, err := taskFilter(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	data, err := r.reports.TasksXLSX(req.Context(), f)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondFile(w, xlsxType, "tasks-"+time.Now().Format("20060102")+".xlsx", data)
}
