// Package registrar creates and cancels dining orders. The store's unique
// index is the final arbiter of the one-active-order rule; the preflight
// check here only exists to give callers a friendly error before insert.
package registrar

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/mealwindow"
)

type Store interface {
	InsertOrder(ctx context.Context, o *dining.DiningOrder) error
	GetOrder(ctx context.Context, id string) (*dining.DiningOrder, error)
	ActiveOrder(ctx context.Context, userID, date string, meal dining.MealType) (*dining.DiningOrder, error)
	OrdersForDate(ctx context.Context, userID, date string) ([]dining.DiningOrder, error)
	CancelOrder(ctx context.Context, id string) (bool, error)
	GetMember(ctx context.Context, id string) (*dining.Member, error)
}

type Menus interface {
	Published(ctx context.Context, date string, meal dining.MealType) (*dining.Menu, error)
	ByID(ctx context.Context, id string) (*dining.Menu, error)
}

type Events interface {
	OrderRegistered(traceID string, o *dining.DiningOrder)
	OrderCancelled(traceID string, o *dining.DiningOrder, cancelledBy string)
}

type Service struct {
	Store   Store
	Menus   Menus
	Windows *mealwindow.Policy
	Events  Events

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

type SubmitInput struct {
	Date     string          `json:"date"`
	MealType dining.MealType `json:"meal_type"`
	Remark   string          `json:"remark"`

	// AllowPast lets administrators backfill orders for past dates; it is
	// ignored for non-admin actors.
	AllowPast bool `json:"allow_past,omitempty"`
}

type ItemResult struct {
	UserID   string          `json:"user_id"`
	Date     string          `json:"date"`
	MealType dining.MealType `json:"meal_type"`
	Order    *dining.DiningOrder
	Err      error
}

type BatchResult struct {
	SuccessCount int
	FailedCount  int
	Results      []ItemResult
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit registers the actor's own order for one meal.
func (s *Service) Submit(ctx context.Context, actor dining.Identity, in SubmitInput) (*dining.DiningOrder, error) {
	return s.submitFor(ctx, actor, actor.UserID, in)
}

// SubmitBatch applies Submit independently per item. One item's rejection
// never aborts its siblings.
func (s *Service) SubmitBatch(ctx context.Context, actor dining.Identity, items []SubmitInput) BatchResult {
	var out BatchResult
	for _, in := range items {
		o, err := s.submitFor(ctx, actor, actor.UserID, in)
		out.add(ItemResult{UserID: actor.UserID, Date: in.Date, MealType: in.MealType, Order: o, Err: err})
	}
	return out
}

// SubmitForMembers registers one meal for each listed member of the
// administrator's own department, reporting per-member results.
func (s *Service) SubmitForMembers(ctx context.Context, admin dining.Identity, in SubmitInput, memberIDs []string) (BatchResult, error) {
	if !admin.Admin() {
		return BatchResult{}, dining.E(dining.KindUnauthorized, "department orders require an administrator")
	}
	var out BatchResult
	for _, memberID := range memberIDs {
		res := ItemResult{UserID: memberID, Date: in.Date, MealType: in.MealType}
		member, err := s.Store.GetMember(ctx, memberID)
		switch {
		case err != nil:
			res.Err = err
		case member.DepartmentID != admin.DepartmentID:
			res.Err = dining.E(dining.KindUnauthorized, "member belongs to another department")
		default:
			res.Order, res.Err = s.submitFor(ctx, admin, memberID, in)
		}
		out.add(res)
	}
	return out, nil
}

func (s *Service) submitFor(ctx context.Context, actor dining.Identity, userID string, in SubmitInput) (*dining.DiningOrder, error) {
	date, err := dining.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if !in.MealType.Valid() {
		return nil, dining.E(dining.KindValidation, "unknown meal type")
	}
	if len(in.Remark) > 255 {
		return nil, dining.E(dining.KindValidation, "remark must be at most 255 characters")
	}

	// One reading of now governs every window judgment in this call.
	now := s.now()

	allowPast := in.AllowPast && actor.Admin()
	past, err := s.Windows.DateInPast(date, now)
	if err != nil {
		return nil, err
	}
	if past && !allowPast {
		return nil, dining.E(dining.KindDatePast, "dining date is in the past")
	}
	if !past && !allowPast {
		open, err := s.Windows.WithinOrderingWindow(date, in.MealType, now)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, dining.E(dining.KindOutsideWindow, "ordering for this meal has closed")
		}
	}

	m, err := s.Menus.Published(ctx, date, in.MealType)
	if err != nil {
		return nil, err
	}

	// Friendly preflight; the unique index still decides under races.
	if existing, err := s.Store.ActiveOrder(ctx, userID, date, in.MealType); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, dining.E(dining.KindDuplicateOrder, "an order already exists for this meal")
	}

	o := &dining.DiningOrder{
		ID:           uuid.NewString(),
		UserID:       userID,
		Date:         date,
		MealType:     in.MealType,
		MenuID:       m.ID,
		TotalCents:   m.TotalCents(),
		Remark:       in.Remark,
		State:        dining.StateOrdered,
		RegisterTime: now.UTC(),
	}
	if err := s.Store.InsertOrder(ctx, o); err != nil {
		return nil, err
	}
	if s.Events != nil {
		s.Events.OrderRegistered(dining.TraceID(ctx), o)
	}
	return o, nil
}

// Cancel soft-terminates an order before the meal's cutoff. Owners cancel
// their own orders; department administrators may cancel for members of
// their department.
func (s *Service) Cancel(ctx context.Context, actor dining.Identity, orderID string) (*dining.DiningOrder, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, o); err != nil {
		return nil, err
	}
	if o.State != dining.StateOrdered {
		return nil, wrongState(o.State)
	}

	now := s.now()
	past, err := s.Windows.PastCancellationCutoff(o.Date, o.MealType, now)
	if err != nil {
		return nil, err
	}
	if past {
		return nil, dining.E(dining.KindPastCutoff, "cancellation for this meal has closed")
	}

	applied, err := s.Store.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !applied {
		// lost the race against a confirmation or another cancel
		cur, err := s.Store.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, wrongState(cur.State)
	}
	o.State = dining.StateCancelled
	if s.Events != nil {
		s.Events.OrderCancelled(dining.TraceID(ctx), o, actor.UserID)
	}
	return o, nil
}

func (s *Service) authorize(ctx context.Context, actor dining.Identity, o *dining.DiningOrder) error {
	if o.UserID == actor.UserID {
		return nil
	}
	if !actor.Admin() {
		return dining.E(dining.KindUnauthorized, "not your order")
	}
	owner, err := s.Store.GetMember(ctx, o.UserID)
	if err != nil {
		return err
	}
	if owner.DepartmentID != actor.DepartmentID {
		return dining.E(dining.KindUnauthorized, "order belongs to another department")
	}
	return nil
}

type MealStatus struct {
	MealType     dining.MealType   `json:"meal_type"`
	IsRegistered bool              `json:"is_registered"`
	State        dining.OrderState `json:"state,omitempty"`
	OrderID      string            `json:"order_id,omitempty"`
	MenuID       string            `json:"menu_id,omitempty"`
	TotalCents   int               `json:"total_cents,omitempty"`
	Dishes       []dining.MenuDish `json:"dishes,omitempty"`
}

// PersonalStatus summarizes a user's registrations for one civil date,
// one entry per configured meal.
func (s *Service) PersonalStatus(ctx context.Context, userID, date string) ([]MealStatus, error) {
	date, err := dining.ParseDate(date)
	if err != nil {
		return nil, err
	}
	orders, err := s.Store.OrdersForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	byMeal := map[dining.MealType]*dining.DiningOrder{}
	for i := range orders {
		o := &orders[i]
		// cancelled rows lose to a live re-registration for the same meal
		if cur, ok := byMeal[o.MealType]; !ok || cur.State == dining.StateCancelled {
			byMeal[o.MealType] = o
		}
	}

	out := make([]MealStatus, 0, len(s.Windows.Meals()))
	for _, meal := range s.Windows.Meals() {
		st := MealStatus{MealType: meal}
		if o, ok := byMeal[meal]; ok {
			st.IsRegistered = o.State != dining.StateCancelled
			st.State = o.State
			st.OrderID = o.ID
			st.MenuID = o.MenuID
			st.TotalCents = o.TotalCents
			if o.MenuID != "" {
				if m, err := s.Menus.ByID(ctx, o.MenuID); err == nil {
					st.Dishes = m.Dishes
				}
			}
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *BatchResult) add(res ItemResult) {
	if res.Err != nil {
		r.FailedCount++
	} else {
		r.SuccessCount++
	}
	r.Results = append(r.Results, res)
}

func wrongState(s dining.OrderState) error {
	switch s {
	case dining.StateDined:
		return dining.E(dining.KindWrongState, "order is already confirmed")
	case dining.StateCancelled:
		return dining.E(dining.KindWrongState, "order is already cancelled")
	default:
		return dining.E(dining.KindWrongState, "order is not in the expected state")
	}
}
