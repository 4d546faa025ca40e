package netsweep

import (
	"errors"
	"fmt"
)

// ParseErrorKind classifies specification parse failures so callers can
// react programmatically instead of matching message text.
type ParseErrorKind int

const (
	// ParseInvalidFormat is used when the input matches no known grammar.
	ParseInvalidFormat ParseErrorKind = iota
	// ParseInvalidOctet is used when an address octet is outside 0-255.
	ParseInvalidOctet
	// ParseRangeOrder is used when a range's start address is above its end.
	ParseRangeOrder
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseInvalidFormat:
		return "invalid_format"
	case ParseInvalidOctet:
		return "invalid_octet"
	case ParseRangeOrder:
		return "range_order"
	default:
		return "unknown"
	}
}

// ParseError reports a malformed network specification. It carries the
// offending input and a kind for programmatic handling.
type ParseError struct {
	Input  string
	Kind   ParseErrorKind
	Reason string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid network specification %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid network specification %q", e.Input)
}

func newParseError(input string, kind ParseErrorKind, reason string) *ParseError {
	return &ParseError{Input: input, Kind: kind, Reason: reason}
}

// IsParseError checks if an error is a specification parse error
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsInvalidFormatError checks if an error is a format parse error
func IsInvalidFormatError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == ParseInvalidFormat
}

// IsInvalidOctetError checks if an error is an octet-range parse error
func IsInvalidOctetError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == ParseInvalidOctet
}

// IsRangeOrderError checks if an error reports a reversed address range
func IsRangeOrderError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == ParseRangeOrder
}

// InvalidAddressError reports a malformed address handed to the probe
// engine. The enumerator only emits valid dotted quads, so this is a
// defensive check and should not surface in normal operation.
type InvalidAddressError struct {
	Address string
}

// Error implements the error interface
func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid probe address %q", e.Address)
}

// IsInvalidAddressError checks if an error is an engine address error
func IsInvalidAddressError(err error) bool {
	var ae *InvalidAddressError
	return errors.As(err, &ae)
}
