// Package confirmation drives the ordered -> dined transition. Manual,
// administrator, and scan confirmations all funnel through one transition
// path so the window check and the atomic check-and-set are enforced
// identically for every actor.
package confirmation

import (
	"context"
	"time"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/mealwindow"
)

type Store interface {
	GetOrder(ctx context.Context, id string) (*dining.DiningOrder, error)
	ActiveOrder(ctx context.Context, userID, date string, meal dining.MealType) (*dining.DiningOrder, error)
	ConfirmOrder(ctx context.Context, id string, at time.Time, by dining.ConfirmationType, actor string) (bool, error)
	GetMember(ctx context.Context, id string) (*dining.Member, error)
	InsertScan(ctx context.Context, s *dining.ScanRegistration) error
}

type Tokens interface {
	Verify(ctx context.Context, token string) (string, error)
}

type Events interface {
	OrderConfirmed(traceID string, o *dining.DiningOrder)
}

type Engine struct {
	Store   Store
	Windows *mealwindow.Policy
	Tokens  Tokens
	Events  Events

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ConfirmManual lets the order's owner self-report that they dined.
func (e *Engine) ConfirmManual(ctx context.Context, actor dining.Identity, orderID string) (*dining.DiningOrder, error) {
	o, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID {
		return nil, dining.E(dining.KindUnauthorized, "not your order")
	}
	return e.transition(ctx, o, e.now(), dining.ConfirmManual, actor.UserID, false)
}

// ConfirmAdmin lets a department administrator confirm on a member's
// behalf, recording which administrator acted.
func (e *Engine) ConfirmAdmin(ctx context.Context, admin dining.Identity, orderID string) (*dining.DiningOrder, error) {
	if !admin.Admin() {
		return nil, dining.E(dining.KindUnauthorized, "administrator confirmation requires an administrator")
	}
	o, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != admin.UserID {
		owner, err := e.Store.GetMember(ctx, o.UserID)
		if err != nil {
			return nil, err
		}
		if owner.DepartmentID != admin.DepartmentID {
			return nil, dining.E(dining.KindUnauthorized, "order belongs to another department")
		}
	}
	return e.transition(ctx, o, e.now(), dining.ConfirmAdmin, admin.UserID, false)
}

// ConfirmScan confirms via a verified QR token. The meal is resolved from
// the scan's own timestamp, never from client input, and a repeated scan
// of an already-dined order is an idempotent no-op.
func (e *Engine) ConfirmScan(ctx context.Context, userID, token string) (*dining.DiningOrder, error) {
	now := e.now()

	qrCodeID, err := e.Tokens.Verify(ctx, token)
	if err != nil {
		e.recordScan(ctx, userID, qrCodeID, "", now, dining.ScanBadToken)
		return nil, err
	}

	meal, ok := e.Windows.ResolveMealType(now)
	if !ok {
		e.recordScan(ctx, userID, qrCodeID, "", now, dining.ScanOutsideWindow)
		return nil, dining.E(dining.KindOutsideWindow, "no meal is being served right now")
	}

	o, err := e.Store.ActiveOrder(ctx, userID, e.Windows.Today(now), meal)
	if err != nil {
		return nil, err
	}
	if o == nil {
		e.recordScan(ctx, userID, qrCodeID, "", now, dining.ScanNotRegistered)
		return nil, dining.E(dining.KindNotFound, "not registered for this meal")
	}
	if o.State == dining.StateDined {
		e.recordScan(ctx, userID, qrCodeID, o.ID, now, dining.ScanRepeat)
		return o, nil
	}

	confirmed, err := e.transition(ctx, o, now, dining.ConfirmScan, userID, true)
	if err != nil {
		outcome := dining.ScanNotRegistered
		if dining.KindOf(err) == dining.KindOutsideWindow {
			outcome = dining.ScanOutsideWindow
		}
		e.recordScan(ctx, userID, qrCodeID, o.ID, now, outcome)
		return nil, err
	}
	outcome := dining.ScanOK
	if confirmed.ConfirmationType != dining.ConfirmScan || !confirmed.ActualDiningTime.Equal(now.UTC()) {
		outcome = dining.ScanRepeat
	}
	e.recordScan(ctx, userID, qrCodeID, confirmed.ID, now, outcome)
	return confirmed, nil
}

// transition is the single state-machine entry point. A business rejection
// never mutates the row; the store update is a compare-and-set on the
// ordered state.
func (e *Engine) transition(ctx context.Context, o *dining.DiningOrder, now time.Time, by dining.ConfirmationType, actor string, idempotent bool) (*dining.DiningOrder, error) {
	if o.State != dining.StateOrdered {
		if idempotent && o.State == dining.StateDined {
			return o, nil
		}
		return nil, wrongState(o.State)
	}
	if !e.Windows.WithinConfirmationWindow(o.MealType, now) {
		return nil, dining.E(dining.KindOutsideWindow, "outside the confirmation window for this meal")
	}

	at := now.UTC()
	applied, err := e.Store.ConfirmOrder(ctx, o.ID, at, by, actor)
	if err != nil {
		return nil, err
	}
	if !applied {
		// lost a race; report (or absorb) the state that won
		cur, err := e.Store.GetOrder(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if idempotent && cur.State == dining.StateDined {
			return cur, nil
		}
		return nil, wrongState(cur.State)
	}

	confirmed := *o
	confirmed.State = dining.StateDined
	confirmed.ActualDiningTime = &at
	confirmed.ConfirmationType = by
	confirmed.ConfirmedBy = actor
	if e.Events != nil {
		e.Events.OrderConfirmed(dining.TraceID(ctx), &confirmed)
	}
	return &confirmed, nil
}

// recordScan appends the audit row for a scan attempt. Audit failure never
// fails the scan itself.
func (e *Engine) recordScan(ctx context.Context, userID, qrCodeID, orderID string, at time.Time, outcome dining.ScanOutcome) {
	_ = e.Store.InsertScan(ctx, &dining.ScanRegistration{
		UserID:   userID,
		QRCodeID: qrCodeID,
		OrderID:  orderID,
		ScanTime: at.UTC(),
		Outcome:  outcome,
	})
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
