package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrSlotUnavailable     = errors.New("the selected time is no longer available")
	ErrAlreadyCancelled    = errors.New("reservation is already cancelled")
	ErrCancellationClosed  = errors.New("reservation can no longer be cancelled online")
	ErrInvalidTransition   = errors.New("reservation status cannot change that way")
	ErrStatusChanged       = errors.New("reservation was updated concurrently")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("an account with this email already exists")
)

// ValidationError lists the rejected input fields with a message each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
