package dining

type OrderState string

const (
	StateOrdered   OrderState = "ordered"
	StateDined     OrderState = "dined"
	StateCancelled OrderState = "cancelled"
)

var validNext = map[OrderState]map[OrderState]bool{
	StateOrdered:   {StateDined: true, StateCancelled: true},
	StateDined:     {},
	StateCancelled: {},
}

func CanTransition(from, to OrderState) bool {
	return validNext[from][to]
}

func (s OrderState) Terminal() bool {
	return len(validNext[s]) == 0
}
