package exchange

// Action is the side of an intent: Buy or Sell.
type Action int

const (
	Buy Action = iota
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseAction parses an upper-cased action token.
func ParseAction(s string) (Action, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, ErrUnknownAction
	}
}
