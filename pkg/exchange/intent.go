package exchange

import (
	"fmt"
	"strings"
)

// TraderID identifies one live connection. It is assigned by the transport
// (the connection's remote port) and is unique while the connection lives.
type TraderID uint64

// Intent is one parsed client request: buy or sell one unit of a product.
// Created once per accepted line, never mutated.
type Intent struct {
	TraderID TraderID
	Action   Action
	Product  Product
}

func (in Intent) String() string {
	return fmt.Sprintf("new %s order ('%d', %s)", strings.ToLower(in.Action.String()), in.TraderID, in.Product)
}

// ParseIntent parses one inbound line of the form <ACTION>:<PRODUCT>.
// Tokens are case-insensitive and whitespace around them is trimmed; only
// the text before the first newline of the chunk is considered. A missing
// colon yields ErrInvalidMessage.
func ParseIntent(id TraderID, line string) (Intent, error) {
	actionTok, productTok, ok := splitAtColon(line)
	if !ok {
		return Intent{}, ErrInvalidMessage
	}
	action, err := ParseAction(strings.ToUpper(actionTok))
	if err != nil {
		return Intent{}, err
	}
	product, err := ParseProduct(strings.ToUpper(productTok))
	if err != nil {
		return Intent{}, err
	}
	return Intent{TraderID: id, Action: action, Product: product}, nil
}

// splitAtColon splits the first logical line of msg at its first colon,
// trimming whitespace around both parts.
func splitAtColon(msg string) (string, string, bool) {
	line, _, _ := strings.Cut(msg, "\n")
	line = strings.TrimSpace(line)
	before, after, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}
