package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"github.com/mendelflow/mendelflowgo/internal/store"
)

// TaskInput is the create/update payload. Absent fields are kept on update.
type TaskInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	AssignedTo  *string    `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
	OrderNumber *string    `json:"orderNumber"`
	Location    *string    `json:"location"`
}

func (in TaskInput) updates() (map[string]interface{}, error) {
	u := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title cannot be empty")
		}
		u["title"] = title
	}
	if in.Description != nil {
		u["description"] = *in.Description
	}
	if in.Status != nil {
		status := models.TaskStatus(strings.ToUpper(*in.Status))
		if !status.Valid() {
			return nil, apperr.Validation("unknown task status %q", *in.Status)
		}
		u["status"] = status
	}
	if in.Priority != nil {
		priority := models.TaskPriority(strings.ToUpper(*in.Priority))
		if !priority.Valid() {
			return nil, apperr.Validation("unknown task priority %q", *in.Priority)
		}
		u["priority"] = priority
	}
	if in.AssignedTo != nil {
		if *in.AssignedTo == "" {
			u["assigned_to"] = nil
		} else {
			u["assigned_to"] = *in.AssignedTo
		}
	}
	if in.DueDate != nil {
		u["due_date"] = in.DueDate.UTC()
	}
	if in.OrderNumber != nil {
		u["order_number"] = strings.TrimSpace(*in.OrderNumber)
	}
	if in.Location != nil {
		u["location"] = strings.TrimSpace(*in.Location)
	}
	return u, nil
}

func taskFilter(req *http.Request) (store.TaskFilter, error) {
	q := req.URL.Query()
	f := store.TaskFilter{
		AssignedTo:  q.Get("assignedTo"),
		OrderNumber: q.Get("orderNumber"),
	}
	if f.AssignedTo == "me" {
		if user := currentUser(req); user != nil {
			f.AssignedTo = user.ID
		}
	}
	for _, s := range queryList(req, "status") {
		status := models.TaskStatus(strings.ToUpper(s))
		if !status.Valid() {
			return f, apperr.Validation("unknown task status %q", s)
		}
		f.Status = append(f.Status, status)
	}
	for _, p := range queryList(req, "priority") {
		priority := models.TaskPriority(strings.ToUpper(p))
		if !priority.Valid() {
			return f, apperr.Validation("unknown task priority %q", p)
		}
		f.Priority = append(f.Priority, priority)
	}

	var err error
	if f.DueFrom, err = queryTime(req, "dueFrom"); err != nil {
		return f, err
	}
	if f.DueTo, err = queryTime(req, "dueTo"); err != nil {
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

func (r *Router) listTasks(w http.ResponseWriter, req *http.Request) {
	f, err := taskFilter(req)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	tasks, err := r.store.ListTasks(req.Context(), f)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (r *Router) getTask(w http.ResponseWriter, req *http.Request) {
	task, err := r.store.GetTask(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (r *Router) createTask(w http.ResponseWriter, req *http.Request) {
	var in TaskInput
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	if in.Title == nil {
		r.fail(w, req, apperr.Validation("title is required"))
		return
	}
	if _, err := in.updates(); err != nil {
		r.fail(w, req, err)
		return
	}

	creator := currentUser(req).ID
	task := &models.Task{
		Title:     strings.TrimSpace(*in.Title),
		CreatedBy: &creator,
		DueDate:   in.DueDate,
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Status != nil {
		task.Status = models.TaskStatus(strings.ToUpper(*in.Status))
	}
	if in.Priority != nil {
		task.Priority = models.TaskPriority(strings.ToUpper(*in.Priority))
	}
	if in.AssignedTo != nil && *in.AssignedTo != "" {
		if _, err := r.store.GetUser(req.Context(), *in.AssignedTo); err != nil {
			r.fail(w, req, err)
			return
		}
		task.AssignedTo = in.AssignedTo
	}
	if in.OrderNumber != nil {
		task.OrderNumber = strings.TrimSpace(*in.OrderNumber)
	}
	if in.Location != nil {
		task.Location = strings.TrimSpace(*in.Location)
	}

	if err := r.store.CreateTask(req.Context(), task); err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

func (r *Router) updateTask(w http.ResponseWriter, req *http.Request) {
	var in TaskInput
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	updates, err := in.updates()
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if len(updates) == 0 {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	task, err := r.store.UpdateTask(req.Context(), mux.Vars(req)["id"], updates)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (r *Router) addComment(w http.ResponseWriter, req *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		r.fail(w, req, apperr.Validation("comment text is required"))
		return
	}

	user := currentUser(req)
	author := user.FullName
	if author == "" {
		author = user.Username
	}
	comment := &models.TaskComment{Author: author, Text: text}
	if err := r.store.AddComment(req.Context(), mux.Vars(req)["id"], comment); err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

func (r *Router) deleteTask(w http.ResponseWriter, req *http.Request) {
	if err := r.store.DeleteTask(req.Context(), mux.Vars(req)["id"]); err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
