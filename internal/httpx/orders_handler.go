package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/logger"
	"github.com/canteenhq/go-canteen-dining/internal/menu"
	"github.com/canteenhq/go-canteen-dining/internal/registrar"
)

type OrdersHandler struct {
	Registrar *registrar.Service
	Menus     *menu.Resolver
	Log       *logger.Logger
}

type submitOrderReq struct {
	Date     string          `json:"date"`
	MealType dining.MealType `json:"meal_type"`
	Remark   string          `json:"remark"`
}

type batchReq struct {
	Items []registrar.SubmitInput `json:"items"`
}

type departmentOrderReq struct {
	Date      string          `json:"date"`
	MealType  dining.MealType `json:"meal_type"`
	Remark    string          `json:"remark"`
	MemberIDs []string        `json:"member_ids"`
	AllowPast bool            `json:"allow_past"`
}

type orderResp struct {
	OrderID    string            `json:"order_id"`
	State      dining.OrderState `json:"state"`
	Date       string            `json:"date"`
	MealType   dining.MealType   `json:"meal_type"`
	MenuID     string            `json:"menu_id,omitempty"`
	TotalCents int               `json:"total_cents"`
}

type batchItemResp struct {
	UserID     string          `json:"user_id"`
	Date       string          `json:"date"`
	MealType   dining.MealType `json:"meal_type"`
	OrderID    string          `json:"order_id,omitempty"`
	TotalCents int             `json:"total_cents,omitempty"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	ErrorCode  string          `json:"error_code,omitempty"`
}

type batchResp struct {
	SuccessCount int             `json:"success_count"`
	FailedCount  int             `json:"failed_count"`
	Results      []batchItemResp `json:"results"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.submitOrder)
	r.Post("/orders/batch", h.submitBatch)
	r.Post("/orders/department", h.submitDepartment)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/orders/status", h.personalStatus)
	r.Get("/menus", h.getMenu)
}

func (h *OrdersHandler) submitOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	var req submitOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid json", dining.KindValidation.Code()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Registrar.Submit(ctx, actor, registrar.SubmitInput{
		Date: req.Date, MealType: req.MealType, Remark: req.Remark,
	})
	if err != nil {
		h.Log.Debug("order_rejected", middleware.GetReqID(r.Context()), err.Error())
		writeErr(w, err)
		return
	}
	h.Log.Info("order_registered", middleware.GetReqID(r.Context()), o.ID)
	writeJSON(w, http.StatusCreated, toOrderResp(o))
}

func (h *OrdersHandler) submitBatch(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	var req batchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, errBody("invalid json or empty items", dining.KindValidation.Code()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res := h.Registrar.SubmitBatch(ctx, actor, req.Items)
	writeJSON(w, http.StatusOK, toBatchResp(res))
}

func (h *OrdersHandler) submitDepartment(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	var req departmentOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.MemberIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errBody("invalid json or empty member_ids", dining.KindValidation.Code()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Registrar.SubmitForMembers(ctx, actor, registrar.SubmitInput{
		Date: req.Date, MealType: req.MealType, Remark: req.Remark, AllowPast: req.AllowPast,
	}, req.MemberIDs)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.Log.Info("department_order", middleware.GetReqID(r.Context()), req.Date)
	writeJSON(w, http.StatusOK, toBatchResp(res))
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Registrar.Cancel(ctx, actor, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.Log.Info("order_cancelled", middleware.GetReqID(r.Context()), o.ID)
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) personalStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := dining.IdentityFrom(r.Context())
	date := r.URL.Query().Get("date")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sts, err := h.Registrar.PersonalStatus(ctx, actor.UserID, date)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "meals": sts})
}

func (h *OrdersHandler) getMenu(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	meal := dining.MealType(r.URL.Query().Get("meal"))
	if _, err := dining.ParseDate(date); err != nil || !meal.Valid() {
		writeJSON(w, http.StatusBadRequest, errBody("invalid date or meal", dining.KindValidation.Code()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	m, err := h.Menus.Published(ctx, date, meal)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func toOrderResp(o *dining.DiningOrder) orderResp {
	return orderResp{
		OrderID:    o.ID,
		State:      o.State,
		Date:       o.Date,
		MealType:   o.MealType,
		MenuID:     o.MenuID,
		TotalCents: o.TotalCents,
	}
}

func toBatchResp(res registrar.BatchResult) batchResp {
	out := batchResp{SuccessCount: res.SuccessCount, FailedCount: res.FailedCount}
	for _, it := range res.Results {
		item := batchItemResp{UserID: it.UserID, Date: it.Date, MealType: it.MealType}
		if it.Err != nil {
			item.Status = "failed"
			item.Error = it.Err.Error()
			item.ErrorCode = dining.KindOf(it.Err).Code()
		} else {
			item.Status = "registered"
			item.OrderID = it.Order.ID
			item.TotalCents = it.Order.TotalCents
		}
		out.Results = append(out.Results, item)
	}
	return out
}
