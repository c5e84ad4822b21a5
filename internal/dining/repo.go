package dining

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, user_id, dining_date::text, meal_type, menu_id, total_cents,
	remark, state, register_time, actual_dining_time, confirmation_type, confirmed_by`

// InsertOrder persists a new order. The uq_orders_active partial unique
// index is the final arbiter of the one-active-order rule; a conflict is
// reported as the same duplicate-order rejection a preflight check gives.
func (r *Repo) InsertOrder(ctx context.Context, o *DiningOrder) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO dining_orders(id, user_id, dining_date, meal_type, menu_id, total_cents, remark, state, register_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.UserID, o.Date, o.MealType, nullIf(o.MenuID), o.TotalCents, o.Remark, o.State, o.RegisterTime,
	)
	if isUniqueViolation(err) {
		return E(KindDuplicateOrder, "an order already exists for this meal")
	}
	return err
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*DiningOrder, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM dining_orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "order not found")
	}
	return o, err
}

// ActiveOrder returns the non-cancelled order for (user, date, meal), or
// nil when none exists.
func (r *Repo) ActiveOrder(ctx context.Context, userID, date string, meal MealType) (*DiningOrder, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM dining_orders
		WHERE user_id=$1 AND dining_date=$2 AND meal_type=$3 AND state <> 'cancelled'`,
		userID, date, meal,
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (r *Repo) OrdersForDate(ctx context.Context, userID, date string) ([]DiningOrder, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderColumns+` FROM dining_orders
		WHERE user_id=$1 AND dining_date=$2
		ORDER BY register_time`,
		userID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiningOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// ConfirmOrder is the atomic ordered -> dined transition. It reports
// applied=false when the row was not in the ordered state, leaving the row
// untouched.
func (r *Repo) ConfirmOrder(ctx context.Context, id string, at time.Time, by ConfirmationType, actor string) (applied bool, err error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE dining_orders
		SET state='dined', actual_dining_time=$2, confirmation_type=$3, confirmed_by=$4
		WHERE id=$1 AND state='ordered'`,
		id, at, by, actor,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// CancelOrder is the atomic ordered -> cancelled transition.
func (r *Repo) CancelOrder(ctx context.Context, id string) (applied bool, err error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE dining_orders SET state='cancelled'
		WHERE id=$1 AND state='ordered'`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) GetMember(ctx context.Context, id string) (*Member, error) {
	var m Member
	err := r.DB.QueryRow(ctx, `SELECT id, name, department_id, role FROM members WHERE id=$1`, id).
		Scan(&m.ID, &m.Name, &m.DepartmentID, &m.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "member not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) InsertScan(ctx context.Context, s *ScanRegistration) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO scan_registrations(user_id, qr_code_id, order_id, scan_time, outcome)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		s.UserID, nullIf(s.QRCodeID), nullIf(s.OrderID), s.ScanTime, s.Outcome,
	).Scan(&s.ID)
}

func (r *Repo) GetQRCode(ctx context.Context, id string) (*QRCode, error) {
	var q QRCode
	err := r.DB.QueryRow(ctx, `SELECT id, name, location, status, created_at FROM qr_codes WHERE id=$1`, id).
		Scan(&q.ID, &q.Name, &q.Location, &q.Status, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "qr code not found")
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *Repo) CreateQRCode(ctx context.Context, q *QRCode) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO qr_codes(id, name, location, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		q.ID, q.Name, q.Location, q.Status, q.CreatedAt)
	return err
}

func (r *Repo) ListQRCodes(ctx context.Context) ([]QRCode, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, location, status, created_at FROM qr_codes ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QRCode
	for rows.Next() {
		var q QRCode
		if err := rows.Scan(&q.ID, &q.Name, &q.Location, &q.Status, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *Repo) SetQRCodeStatus(ctx context.Context, id string, status QRStatus) error {
	ct, err := r.DB.Exec(ctx, `UPDATE qr_codes SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return E(KindNotFound, "qr code not found")
	}
	return nil
}

func scanOrder(row pgx.Row) (*DiningOrder, error) {
	var (
		o           DiningOrder
		menuID      *string
		ctype       *string
		confirmedBy *string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Date, &o.MealType, &menuID, &o.TotalCents,
		&o.Remark, &o.State, &o.RegisterTime, &o.ActualDiningTime, &ctype, &confirmedBy)
	if err != nil {
		return nil, err
	}
	if menuID != nil {
		o.MenuID = *menuID
	}
	if ctype != nil {
		o.ConfirmationType = ConfirmationType(*ctype)
	}
	if confirmedBy != nil {
		o.ConfirmedBy = *confirmedBy
	}
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIf(s string) any {
	if s == "" {
		return nil
	}
	return s
}
