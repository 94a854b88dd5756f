// Package repository provides raw SQL data access for the booking
// service.  This file defines error values reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios
// without string matching.
package repository

import "errors"

// mysqlTimeLayout is the DATETIME literal format MySQL expects for
// parameterised time values. All stored timestamps are UTC.
const mysqlTimeLayout = "2006-01-02 15:04:05"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a trip that still has active bookings. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create when the normalized
// email is already registered.
var ErrEmailExists = errors.New("email already exists")
