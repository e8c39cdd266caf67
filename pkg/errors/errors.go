// Package errors provides common domain error types for the triage CLI.
//
// This package defines sentinel errors for domain conditions like "generation
// failed" or "store unavailable" that are used across packages. Using typed
// errors enables consistent handling with errors.Is() checks: recoverable
// conditions (generation, parse, store) are logged and degraded, validation
// errors are fatal at startup.
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrValidation indicates invalid configuration or input. Fatal at startup.
	ErrValidation = errors.New("validation error")

	// ErrGeneration indicates the text-generation service failed (transport
	// error or timeout). Recovered locally at per-item/per-chunk granularity.
	ErrGeneration = errors.New("generation failed")

	// ErrParse indicates the generation output could not be parsed as the
	// expected structure. Recovered locally with a safe default.
	ErrParse = errors.New("parse failed")

	// ErrStoreUnavailable indicates the dedup store backing file or server is
	// missing or unreadable. Degrades to processing everything as new.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDispatch indicates a reply send failed. Recorded per item.
	ErrDispatch = errors.New("dispatch failed")

	// ErrQuit indicates the operator quit the interactive approval loop.
	ErrQuit = errors.New("quit")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")
)

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsGeneration reports whether any error in err's chain is ErrGeneration.
func IsGeneration(err error) bool {
	return errors.Is(err, ErrGeneration)
}

// IsParse reports whether any error in err's chain is ErrParse.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsStoreUnavailable reports whether any error in err's chain is ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsDispatch reports whether any error in err's chain is ErrDispatch.
func IsDispatch(err error) bool {
	return errors.Is(err, ErrDispatch)
}

// IsQuit reports whether any error in err's chain is ErrQuit.
func IsQuit(err error) bool {
	return errors.Is(err, ErrQuit)
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
