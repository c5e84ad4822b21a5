package registrar

import (
	"context"
	"testing"
	"time"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/mealwindow"
)

type fakeStore struct {
	orders      map[string]*dining.DiningOrder
	members     map[string]*dining.Member
	failInserts bool // simulate losing the insert race to the unique index
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: map[string]*dining.DiningOrder{},
		members: map[string]*dining.Member{
			"u1": {ID: "u1", Name: "An", DepartmentID: "dep-1", Role: "member"},
			"u2": {ID: "u2", Name: "Bo", DepartmentID: "dep-1", Role: "member"},
			"u3": {ID: "u3", Name: "Ci", DepartmentID: "dep-1", Role: "member"},
			"x9": {ID: "x9", Name: "Dee", DepartmentID: "dep-2", Role: "member"},
			"a1": {ID: "a1", Name: "Adm", DepartmentID: "dep-1", Role: "admin"},
		},
	}
}

func (f *fakeStore) InsertOrder(_ context.Context, o *dining.DiningOrder) error {
	if f.failInserts {
		return dining.E(dining.KindDuplicateOrder, "an order already exists for this meal")
	}
	for _, cur := range f.orders {
		if cur.UserID == o.UserID && cur.Date == o.Date && cur.MealType == o.MealType &&
			cur.State != dining.StateCancelled {
			return dining.E(dining.KindDuplicateOrder, "an order already exists for this meal")
		}
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, id string) (*dining.DiningOrder, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, dining.E(dining.KindNotFound, "order not found")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) ActiveOrder(_ context.Context, userID, date string, meal dining.MealType) (*dining.DiningOrder, error) {
	for _, o := range f.orders {
		if o.UserID == userID && o.Date == date && o.MealType == meal && o.State != dining.StateCancelled {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) OrdersForDate(_ context.Context, userID, date string) ([]dining.DiningOrder, error) {
	var out []dining.DiningOrder
	for _, o := range f.orders {
		if o.UserID == userID && o.Date == date {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) CancelOrder(_ context.Context, id string) (bool, error) {
	o, ok := f.orders[id]
	if !ok || o.State != dining.StateOrdered {
		return false, nil
	}
	o.State = dining.StateCancelled
	return true, nil
}

func (f *fakeStore) GetMember(_ context.Context, id string) (*dining.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, dining.E(dining.KindNotFound, "member not found")
	}
	return m, nil
}

type fakeMenus struct {
	menu *dining.Menu
	err  error
}

func (f *fakeMenus) Published(context.Context, string, dining.MealType) (*dining.Menu, error) {
	return f.menu, f.err
}

func (f *fakeMenus) ByID(context.Context, string) (*dining.Menu, error) {
	return f.menu, f.err
}

type fakeEvents struct {
	registered []string
	cancelled  []string
}

func (f *fakeEvents) OrderRegistered(_ string, o *dining.DiningOrder) {
	f.registered = append(f.registered, o.ID)
}

func (f *fakeEvents) OrderCancelled(_ string, o *dining.DiningOrder, _ string) {
	f.cancelled = append(f.cancelled, o.ID)
}

func fixedNow(t *testing.T, value string) func() time.Time {
	t.Helper()
	loc, _ := time.LoadLocation("Asia/Shanghai")
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return func() time.Time { return ts }
}

func newService(t *testing.T, store *fakeStore, menus *fakeMenus, now string) (*Service, *fakeEvents) {
	t.Helper()
	policy, err := mealwindow.New("Asia/Shanghai",
		"breakfast=06:00-10:00,lunch=11:00-14:00,dinner=17:00-20:00", 2*time.Hour)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	events := &fakeEvents{}
	return &Service{
		Store:   store,
		Menus:   menus,
		Windows: policy,
		Events:  events,
		Now:     fixedNow(t, now),
	}, events
}

func publishedLunch() *dining.Menu {
	return &dining.Menu{
		ID:       "menu-1",
		Date:     "2025-09-11",
		MealType: dining.Lunch,
		Status:   dining.MenuPublished,
		Dishes:   []dining.MenuDish{{DishID: "d1", Name: "rice bowl", PriceCents: 1200}},
	}
}

var member = dining.Identity{UserID: "u1", Role: "member", DepartmentID: "dep-1"}
var admin = dining.Identity{UserID: "a1", Role: "admin", DepartmentID: "dep-1"}

func TestSubmit_Success(t *testing.T) {
	store := newFakeStore()
	svc, events := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:00:00")

	o, err := svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch, Remark: "no chili"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.State != dining.StateOrdered {
		t.Errorf("state = %s, want ordered", o.State)
	}
	if o.TotalCents != 1200 {
		t.Errorf("total = %d, want frozen menu price 1200", o.TotalCents)
	}
	if o.MenuID != "menu-1" {
		t.Errorf("menu id = %q", o.MenuID)
	}
	if len(events.registered) != 1 {
		t.Errorf("expected one registered event, got %d", len(events.registered))
	}
}

func TestSubmit_MenuRejections(t *testing.T) {
	for _, kind := range []dining.Kind{dining.KindMenuNotFound, dining.KindMenuUnpublished, dining.KindMenuRevoked} {
		svc, _ := newService(t, newFakeStore(), &fakeMenus{err: dining.E(kind, "menu rejection")}, "2025-09-11 09:00:00")
		_, err := svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch})
		if dining.KindOf(err) != kind {
			t.Errorf("kind %v not propagated, got %v", kind, err)
		}
	}
}

func TestSubmit_Duplicate(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:00:00")

	in := SubmitInput{Date: "2025-09-11", MealType: dining.Lunch}
	if _, err := svc.Submit(context.Background(), member, in); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit(context.Background(), member, in)
	if dining.KindOf(err) != dining.KindDuplicateOrder {
		t.Fatalf("second submit must be duplicate, got %v", err)
	}
}

// A concurrent submitter can pass the preflight check and still lose the
// insert to the unique index; the late conflict must surface as the same
// duplicate rejection.
func TestSubmit_DuplicateFromStoreConflict(t *testing.T) {
	store := newFakeStore()
	store.failInserts = true
	svc, _ := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:00:00")

	_, err := svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch})
	if dining.KindOf(err) != dining.KindDuplicateOrder {
		t.Fatalf("store conflict must map to duplicate-order, got %v", err)
	}
}

func TestSubmit_PastDate(t *testing.T) {
	svc, _ := newService(t, newFakeStore(), &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:00:00")

	_, err := svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-10", MealType: dining.Lunch})
	if dining.KindOf(err) != dining.KindDatePast {
		t.Fatalf("past date must be rejected, got %v", err)
	}

	// the override flag is ignored for ordinary members
	_, err = svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-10", MealType: dining.Lunch, AllowPast: true})
	if dining.KindOf(err) != dining.KindDatePast {
		t.Fatalf("override must not apply to members, got %v", err)
	}

	// administrators may backfill
	o, err := svc.Submit(context.Background(), admin, SubmitInput{Date: "2025-09-10", MealType: dining.Lunch, AllowPast: true})
	if err != nil || o.State != dining.StateOrdered {
		t.Fatalf("admin backfill failed: %v", err)
	}
}

func TestSubmit_OrderingClosed(t *testing.T) {
	svc, _ := newService(t, newFakeStore(), &fakeMenus{menu: publishedLunch()}, "2025-09-11 11:30:00")
	_, err := svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch})
	if dining.KindOf(err) != dining.KindOutsideWindow {
		t.Fatalf("ordering after meal start must be closed, got %v", err)
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newService(t, newFakeStore(), &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:00:00")
	cases := []SubmitInput{
		{Date: "11-09-2025", MealType: dining.Lunch},
		{Date: "2025-09-11", MealType: "brunch"},
	}
	for _, in := range cases {
		if _, err := svc.Submit(context.Background(), member, in); dining.KindOf(err) != dining.KindValidation {
			t.Errorf("input %+v: expected validation error, got %v", in, err)
		}
	}
}

func TestSubmitForMembers_PartialSuccess(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:00:00")

	// member #2 already has an order for that meal
	pre := dining.Identity{UserID: "u2", Role: "member", DepartmentID: "dep-1"}
	if _, err := svc.Submit(context.Background(), pre, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch}); err != nil {
		t.Fatalf("pre-existing order: %v", err)
	}

	res, err := svc.SubmitForMembers(context.Background(), admin,
		SubmitInput{Date: "2025-09-11", MealType: dining.Lunch}, []string{"u1", "u2", "u3"})
	if err != nil {
		t.Fatalf("SubmitForMembers: %v", err)
	}
	if res.SuccessCount != 2 || res.FailedCount != 1 {
		t.Fatalf("success=%d failed=%d, want 2/1", res.SuccessCount, res.FailedCount)
	}
	if dining.KindOf(res.Results[1].Err) != dining.KindDuplicateOrder {
		t.Errorf("member #2 must carry a duplicate reason, got %v", res.Results[1].Err)
	}
	if res.Results[0].Err != nil || res.Results[2].Err != nil {
		t.Errorf("siblings must not be affected: %v, %v", res.Results[0].Err, res.Results[2].Err)
	}
}

func TestSubmitForMembers_Authorization(t *testing.T) {
	svc, _ := newService(t, newFakeStore(), &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:00:00")

	if _, err := svc.SubmitForMembers(context.Background(), member,
		SubmitInput{Date: "2025-09-11", MealType: dining.Lunch}, []string{"u2"}); dining.KindOf(err) != dining.KindUnauthorized {
		t.Fatalf("non-admin must be rejected, got %v", err)
	}

	res, err := svc.SubmitForMembers(context.Background(), admin,
		SubmitInput{Date: "2025-09-11", MealType: dining.Lunch}, []string{"x9"})
	if err != nil {
		t.Fatalf("SubmitForMembers: %v", err)
	}
	if res.FailedCount != 1 || dining.KindOf(res.Results[0].Err) != dining.KindUnauthorized {
		t.Fatalf("cross-department member must fail with unauthorized, got %+v", res.Results[0])
	}
}

func TestCancel(t *testing.T) {
	store := newFakeStore()
	svc, events := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 08:00:00")

	o, err := svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// someone else's order
	other := dining.Identity{UserID: "u2", Role: "member", DepartmentID: "dep-1"}
	if _, err := svc.Cancel(context.Background(), other, o.ID); dining.KindOf(err) != dining.KindUnauthorized {
		t.Fatalf("cancel by non-owner must be unauthorized, got %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), member, o.ID)
	if err != nil || cancelled.State != dining.StateCancelled {
		t.Fatalf("Cancel: %v", err)
	}
	if len(events.cancelled) != 1 {
		t.Errorf("expected one cancelled event")
	}

	if _, err := svc.Cancel(context.Background(), member, o.ID); dining.KindOf(err) != dining.KindWrongState {
		t.Fatalf("second cancel must report wrong state, got %v", err)
	}
}

func TestCancel_PastCutoff(t *testing.T) {
	store := newFakeStore()
	early, _ := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 08:00:00")
	o, err := early.Submit(context.Background(), member, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// cutoff is 2h before the 11:00 lunch start
	late, _ := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:30:00")
	if _, err := late.Cancel(context.Background(), member, o.ID); dining.KindOf(err) != dining.KindPastCutoff {
		t.Fatalf("cancel past cutoff must be rejected, got %v", err)
	}
}

func TestCancel_AdminForDepartmentMember(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 08:00:00")
	o, err := svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), admin, o.ID); err != nil {
		t.Fatalf("admin cancel for own department member: %v", err)
	}
}

func TestPersonalStatus(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(t, store, &fakeMenus{menu: publishedLunch()}, "2025-09-11 09:00:00")
	if _, err := svc.Submit(context.Background(), member, SubmitInput{Date: "2025-09-11", MealType: dining.Lunch}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sts, err := svc.PersonalStatus(context.Background(), "u1", "2025-09-11")
	if err != nil {
		t.Fatalf("PersonalStatus: %v", err)
	}
	if len(sts) != 3 {
		t.Fatalf("expected one entry per configured meal, got %d", len(sts))
	}
	byMeal := map[dining.MealType]MealStatus{}
	for _, st := range sts {
		byMeal[st.MealType] = st
	}
	lunch := byMeal[dining.Lunch]
	if !lunch.IsRegistered || lunch.State != dining.StateOrdered || lunch.TotalCents != 1200 {
		t.Errorf("lunch status wrong: %+v", lunch)
	}
	if len(lunch.Dishes) != 1 {
		t.Errorf("lunch status must carry the menu dishes, got %+v", lunch.Dishes)
	}
	if byMeal[dining.Breakfast].IsRegistered {
		t.Errorf("breakfast must not be registered")
	}
}
