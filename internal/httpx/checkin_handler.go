package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/canteenhq/go-canteen-dining/internal/confirmation"
	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/logger"
	"github.com/canteenhq/go-canteen-dining/internal/qrtoken"
)

// QRCodeStore is the slice of the repo the check-in endpoints need for
// administering the physical code registry.
type QRCodeStore interface {
	CreateQRCode(ctx context.Context, q *dining.QRCode) error
	ListQRCodes(ctx context.Context) ([]dining.QRCode, error)
	SetQRCodeStatus(ctx context.Context, id string, status dining.QRStatus) error
}

type CheckinHandler struct {
	Engine *confirmation.Engine
	Tokens *qrtoken.Service
	Codes  QRCodeStore
	Log    *logger.Logger
}

type scanReq struct {
	Token string `json:"token"`
}

type createQRCodeReq struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type confirmResp struct {
	OrderID          string                  `json:"order_id"`
	State            dining.OrderState       `json:"state"`
	MealType         dining.MealType         `json:"meal_type"`
	ActualDiningTime *time.Time              `json:"actual_dining_time,omitempty"`
	ConfirmationType dining.ConfirmationType `json:"confirmation_type"`
}

func (h *CheckinHandler) Register(r chi.Router) {
	r.Post("/orders/{id}/confirm", h.confirmManual)
	r.Post("/orders/{id}/confirm/admin", h.confirmAdmin)
	r.Post("/scan", h.scan)
	r.Get("/qrcodes/{id}/token", h.issueToken)
	r.Post("/qrcodes", h.createQRCode)
	r.Get("/qrcodes", h.listQRCodes)
	r.Post("/qrcodes/{id}/deactivate", h.deactivateQRCode)
}

func (h *CheckinHandler) confirmManual(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.ConfirmManual(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.Log.Info("order_confirmed", middleware.GetReqID(r.Context()), o.ID)
	writeJSON(w, http.StatusOK, toConfirmResp(o))
}

func (h *CheckinHandler) confirmAdmin(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.ConfirmAdmin(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.Log.Info("order_confirmed_admin", middleware.GetReqID(r.Context()), o.ID)
	writeJSON(w, http.StatusOK, toConfirmResp(o))
}

func (h *CheckinHandler) scan(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	var req scanReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, errBody("missing token", dining.KindValidation.Code()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.ConfirmScan(ctx, actor.UserID, req.Token)
	if err != nil {
		h.Log.Debug("scan_rejected", middleware.GetReqID(r.Context()), err.Error())
		writeErr(w, err)
		return
	}
	h.Log.Info("scan_confirmed", middleware.GetReqID(r.Context()), o.ID)
	writeJSON(w, http.StatusOK, toConfirmResp(o))
}

func (h *CheckinHandler) issueToken(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	if !actor.Admin() {
		writeErr(w, dining.E(dining.KindUnauthorized, "token issuance requires an administrator"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	tok, err := h.Tokens.Issue(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (h *CheckinHandler) createQRCode(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	if !actor.Admin() {
		writeErr(w, dining.E(dining.KindUnauthorized, "qr code administration requires an administrator"))
		return
	}
	var req createQRCodeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errBody("missing name", dining.KindValidation.Code()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	code := &dining.QRCode{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Location:  req.Location,
		Status:    dining.QRActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Codes.CreateQRCode(ctx, code); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

func (h *CheckinHandler) listQRCodes(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	if !actor.Admin() {
		writeErr(w, dining.E(dining.KindUnauthorized, "qr code administration requires an administrator"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	codes, err := h.Codes.ListQRCodes(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

func (h *CheckinHandler) deactivateQRCode(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	if !actor.Admin() {
		writeErr(w, dining.E(dining.KindUnauthorized, "qr code administration requires an administrator"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Codes.SetQRCodeStatus(ctx, chi.URLParam(r, "id"), dining.QRInactive); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(dining.QRInactive)})
}

func toConfirmResp(o *dining.DiningOrder) confirmResp {
	return confirmResp{
		OrderID:          o.ID,
		State:            o.State,
		MealType:         o.MealType,
		ActualDiningTime: o.ActualDiningTime,
		ConfirmationType: o.ConfirmationType,
	}
}
