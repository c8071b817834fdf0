package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/notify"
)

// SMSRequest is a manual text message from staff
type SMSRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

const maxSMSLength = 1600

func (r *Router) sendSMS(w http.ResponseWriter, req *http.Request) {
	var in SMSRequest
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	phone, err := notify.NormalizePhone(in.Phone)
	if err != nil {
		r.fail(w, req, apperr.Validation("%v", err))
		return
	}
	body := strings.TrimSpace(in.Message)
	if len(body) > maxSMSLength {
		r.fail(w, req, apperr.Validation("message exceeds %d characters", maxSMSLength))
		return
	}
	msg := notify.Message{To: phone, Body: body}
	if err := msg.Validate(); err != nil {
		r.fail(w, req, apperr.Validation("%v", err))
		return
	}

	receipt, err := r.sms.Send(req.Context(), msg)
	if err != nil {
		r.log.Error("sms send failed", zap.String("provider", r.sms.Code()), zap.Error(err))
		respondError(w, http.StatusBadGateway, "SMS provider rejected the message")
		return
	}
	r.log.Info("sms sent", zap.String("provider", receipt.Provider), zap.String("id", receipt.ID), zap.String("by", currentUser(req).Username))
	respondJSON(w, http.StatusOK, receipt)
}
