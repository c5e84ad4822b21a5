package menu

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
)

type Repo struct{ DB *pgxpool.Pool }

// ByID returns a menu with its dish list, or nil when it does not exist.
func (r *Repo) ByID(ctx context.Context, id string) (*dining.Menu, error) {
	var m dining.Menu
	err := r.DB.QueryRow(ctx, `
		SELECT id, dining_date::text, meal_type, status, created_at, updated_at
		FROM menus WHERE id=$1`, id,
	).Scan(&m.ID, &m.Date, &m.MealType, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadDishes(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ByDateMeal returns the menu for (date, meal) regardless of status, or nil
// when none was ever created. When several rows exist (a revoked one plus a
// new draft) the published one wins, then draft over revoked.
func (r *Repo) ByDateMeal(ctx context.Context, date string, meal dining.MealType) (*dining.Menu, error) {
	var m dining.Menu
	err := r.DB.QueryRow(ctx, `
		SELECT id, dining_date::text, meal_type, status, created_at, updated_at
		FROM menus
		WHERE dining_date=$1 AND meal_type=$2
		ORDER BY CASE status WHEN 'published' THEN 0 WHEN 'draft' THEN 1 ELSE 2 END
		LIMIT 1`,
		date, meal,
	).Scan(&m.ID, &m.Date, &m.MealType, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadDishes(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) loadDishes(ctx context.Context, m *dining.Menu) error {
	rows, err := r.DB.Query(ctx, `
		SELECT dish_id, name, price_cents FROM menu_dishes WHERE menu_id=$1 ORDER BY dish_id`, m.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d dining.MenuDish
		if err := rows.Scan(&d.DishID, &d.Name, &d.PriceCents); err != nil {
			return err
		}
		m.Dishes = append(m.Dishes, d)
	}
	return rows.Err()
}
