package exchange

// Product is one of the five catalog items traders can buy or sell.
// The catalog is closed: anything else fails parsing with ErrUnknownProduct.
type Product int

const (
	Apple Product = iota
	Pear
	Tomato
	Potato
	Onion
)

// Products returns the full catalog in its canonical order.
func Products() []Product {
	return []Product{Apple, Pear, Tomato, Potato, Onion}
}

func (p Product) String() string {
	switch p {
	case Apple:
		return "APPLE"
	case Pear:
		return "PEAR"
	case Tomato:
		return "TOMATO"
	case Potato:
		return "POTATO"
	case Onion:
		return "ONION"
	default:
		return "UNKNOWN"
	}
}

// ParseProduct parses an upper-cased product token.
func ParseProduct(s string) (Product, error) {
	switch s {
	case "APPLE":
		return Apple, nil
	case "PEAR":
		return Pear, nil
	case "TOMATO":
		return Tomato, nil
	case "POTATO":
		return Potato, nil
	case "ONION":
		return Onion, nil
	default:
		return 0, ErrUnknownProduct
	}
}
