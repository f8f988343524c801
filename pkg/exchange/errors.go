package exchange

import "errors"

// Content errors are sent verbatim as the error line back to the offending
// trader; the connection stays open.
var (
	ErrUnknownProduct = errors.New("Unknown product. Choose between: APPLE, PEAR, TOMATO, POTATO or ONION")
	ErrUnknownAction  = errors.New("Unknown action. Choose between: BUY or SELL")
	ErrInvalidMessage = errors.New("Invalid transaction message. Should be <Action>:<Item>")
)
