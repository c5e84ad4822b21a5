package dining

import "errors"

// Kind is the closed set of failure causes the service distinguishes.
// Callers branch on Kind, never on message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDuplicateOrder
	KindOutsideWindow
	KindDatePast
	KindPastCutoff
	KindUnauthorized
	KindMenuNotFound
	KindMenuUnpublished
	KindMenuRevoked
	KindNotFound
	KindWrongState
	KindTokenExpired
	KindTokenRevoked
	KindTokenInvalid
	KindTransient
)

var kindCodes = map[Kind]string{
	KindUnknown:         "UNKNOWN",
	KindValidation:      "VALIDATION",
	KindDuplicateOrder:  "DUPLICATE_ORDER",
	KindOutsideWindow:   "OUTSIDE_WINDOW",
	KindDatePast:        "DATE_PAST",
	KindPastCutoff:      "PAST_CUTOFF",
	KindUnauthorized:    "UNAUTHORIZED",
	KindMenuNotFound:    "MENU_NOT_FOUND",
	KindMenuUnpublished: "MENU_UNPUBLISHED",
	KindMenuRevoked:     "MENU_REVOKED",
	KindNotFound:        "NOT_FOUND",
	KindWrongState:      "WRONG_STATE",
	KindTokenExpired:    "TOKEN_EXPIRED",
	KindTokenRevoked:    "TOKEN_REVOKED",
	KindTokenInvalid:    "TOKEN_INVALID",
	KindTransient:       "TRANSIENT",
}

func (k Kind) Code() string { return kindCodes[k] }

// Retryable reports whether the caller's infrastructure may retry the
// request as-is. Business rejections are terminal for the request.
func (k Kind) Retryable() bool { return k == KindTransient }

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from an error chain; unrecognized errors are
// reported as KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
