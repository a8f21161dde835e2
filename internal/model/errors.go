package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAttribute marks a present value outside its plausible range
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrEnrichmentUnavailable marks any failure of the optional enrichment pass
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

	// ErrUnknownAttribute is returned for names outside the recognized set
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrFrozen is returned when modifying an attribute map after costing began
	ErrFrozen = errors.New("attribute map is frozen")
)

// InvalidAttributeError names the offending attribute and why it was rejected
type InvalidAttributeError struct {
	Name   AttributeName
	Source Source
	Value  string
	Reason string
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("invalid attribute %s=%s: %s", e.Name, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidAttribute) match
func (e *InvalidAttributeError) Is(target error) bool {
	return target == ErrInvalidAttribute
}

// NewInvalidAttribute builds an InvalidAttributeError from an attribute
func NewInvalidAttribute(a Attribute, reason string) *InvalidAttributeError {
	return &InvalidAttributeError{Name: a.Name, Source: a.Source, Value: a.Display(), Reason: reason}
}
