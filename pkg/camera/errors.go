package camera

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// Sentinel errors, one per failure kind. Every error returned by this
// package wraps exactly one of them.
var (
	ErrConnection       = errors.New("camera: connection failure")
	ErrDisconnect       = errors.New("camera: disconnect failure")
	ErrSubscribe        = errors.New("camera: subscribe failure")
	ErrUnsubscribe      = errors.New("camera: unsubscribe failure")
	ErrNodeCreation     = errors.New("camera: node creation failure")
	ErrNodeValue        = errors.New("camera: node value failure")
	ErrInvalidParameter = errors.New("camera: invalid parameter")
	ErrStream           = errors.New("camera: stream failure")
	ErrGrabTimeout      = errors.New("camera: grab timeout")
	ErrInvalidFrame     = errors.New("camera: invalid frame")
	ErrConversion       = errors.New("camera: conversion failure")
	ErrCommand          = errors.New("camera: command failure")

	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state.
	ErrInvalidState = errors.New("camera: invalid session state")

	// ErrDiscovery is returned when the driver fails to enumerate cameras.
	ErrDiscovery = errors.New("camera: discovery failure")

	// ErrNotFound is returned by Manager lookups.
	ErrNotFound = errors.New("camera: session not found")
)

// OpError records which step failed and the driver status behind it.
type OpError struct {
	Op     string         // step, e.g. "set", "create node", "start grabbing"
	Attr   string         // attribute name, if any
	Status genicam.Status // driver status, zero when the failure is local
	Err    error          // one of the sentinel errors
}

// Error implements the error interface.
func (e *OpError) Error() string {
	msg := "camera: " + e.Op
	if e.Attr != "" {
		msg += " " + e.Attr
	}
	msg += ": " + trimPrefix(e.Err)
	if e.Status != genicam.StatusOK {
		msg += fmt.Sprintf(" [%s]", e.Status)
	}
	return msg
}

// Unwrap returns the sentinel error.
func (e *OpError) Unwrap() error {
	return e.Err
}

func trimPrefix(err error) string {
	const p = "camera: "
	s := err.Error()
	if len(s) > len(p) && s[:len(p)] == p {
		return s[len(p):]
	}
	return s
}

func opErr(op, attr string, st genicam.Status, kind error) error {
	return &OpError{Op: op, Attr: attr, Status: st, Err: kind}
}

func paramErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// IsTimeout reports whether err is a grab timeout, the expected
// "no frame this cycle" condition.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrGrabTimeout)
}

// Reason returns a short metric label for err.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGrabTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidFrame):
		return "invalid_frame"
	case errors.Is(err, ErrConversion):
		return "conversion"
	case errors.Is(err, ErrStream):
		return "stream"
	case errors.Is(err, ErrInvalidState):
		return "state"
	default:
		return "other"
	}
}
