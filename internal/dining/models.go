package dining

import "time"

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner:
		return true
	}
	return false
}

type MenuStatus string

const (
	MenuDraft     MenuStatus = "draft"
	MenuPublished MenuStatus = "published"
	MenuRevoked   MenuStatus = "revoked"
)

// Menu is the published dish list for one (date, meal). Dish prices are
// frozen at publish time; later catalog edits never change them.
type Menu struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"` // civil date, 2006-01-02
	MealType  MealType   `json:"meal_type"`
	Status    MenuStatus `json:"status"`
	Dishes    []MenuDish `json:"dishes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type MenuDish struct {
	DishID     string `json:"dish_id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
}

func (m *Menu) TotalCents() int {
	var total int
	for _, d := range m.Dishes {
		total += d.PriceCents
	}
	return total
}

type ConfirmationType string

const (
	ConfirmManual ConfirmationType = "manual"
	ConfirmAdmin  ConfirmationType = "admin"
	ConfirmScan   ConfirmationType = "scan"
)

// DiningOrder is one user's registration for one meal. RegisterTime and
// ActualDiningTime are absolute instants; Date is the civil dining date.
type DiningOrder struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	Date             string           `json:"date"`
	MealType         MealType         `json:"meal_type"`
	MenuID           string           `json:"menu_id,omitempty"`
	TotalCents       int              `json:"total_cents"`
	Remark           string           `json:"remark,omitempty"`
	State            OrderState       `json:"state"`
	RegisterTime     time.Time        `json:"register_time"`
	ActualDiningTime *time.Time       `json:"actual_dining_time,omitempty"`
	ConfirmationType ConfirmationType `json:"confirmation_type,omitempty"`
	ConfirmedBy      string           `json:"confirmed_by,omitempty"`
}

type QRStatus string

const (
	QRActive   QRStatus = "active"
	QRInactive QRStatus = "inactive"
)

// QRCode is a durable physical code identity posted at a serving point.
type QRCode struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Status    QRStatus  `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ScanOutcome string

const (
	ScanOK            ScanOutcome = "confirmed"
	ScanRepeat        ScanOutcome = "already_dined"
	ScanNotRegistered ScanOutcome = "not_registered"
	ScanBadToken      ScanOutcome = "bad_token"
	ScanOutsideWindow ScanOutcome = "outside_window"
)

// ScanRegistration is the append-only audit row written for every scan
// attempt, successful or not.
type ScanRegistration struct {
	ID       int64       `json:"id"`
	UserID   string      `json:"user_id"`
	QRCodeID string      `json:"qr_code_id,omitempty"`
	OrderID  string      `json:"order_id,omitempty"`
	ScanTime time.Time   `json:"scan_time"`
	Outcome  ScanOutcome `json:"outcome"`
}

type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID string `json:"department_id"`
	Role         string `json:"role"`
}

// ParseDate validates a civil date in 2006-01-02 form and returns it
// normalized.
func ParseDate(s string) (string, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", E(KindValidation, "invalid date, want YYYY-MM-DD")
	}
	return t.Format("2006-01-02"), nil
}
