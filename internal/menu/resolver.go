package menu

import (
	"context"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
)

type Store interface {
	ByDateMeal(ctx context.Context, date string, meal dining.MealType) (*dining.Menu, error)
	ByID(ctx context.Context, id string) (*dining.Menu, error)
}

// Resolver answers "which published menu applies to (date, meal)" with a
// typed reason when none does: never created, created but not published,
// or revoked. Only published menus enter the cache.
type Resolver struct {
	Store Store
	Cache Cache
}

// ByID loads a menu by id regardless of publish status. Orders keep their
// menu reference even if the menu is later revoked.
func (r *Resolver) ByID(ctx context.Context, id string) (*dining.Menu, error) {
	m, err := r.Store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, dining.E(dining.KindMenuNotFound, "menu not found")
	}
	return m, nil
}

func (r *Resolver) Published(ctx context.Context, date string, meal dining.MealType) (*dining.Menu, error) {
	if m, ok := r.Cache.Get(ctx, date, meal); ok && m.Status == dining.MenuPublished {
		return m, nil
	}

	m, err := r.Store.ByDateMeal(ctx, date, meal)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, dining.E(dining.KindMenuNotFound, "no menu exists for this meal")
	}
	switch m.Status {
	case dining.MenuPublished:
		r.Cache.Set(ctx, m)
		return m, nil
	case dining.MenuRevoked:
		return nil, dining.E(dining.KindMenuRevoked, "the menu for this meal was revoked")
	default:
		return nil, dining.E(dining.KindMenuUnpublished, "the menu for this meal is not published yet")
	}
}
