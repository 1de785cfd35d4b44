// Package sanitizer normalizes free-text and numeric input before it is
// validated and stored.
//
// Every function is idempotent and never fails: bad input collapses to an
// empty string, an empty slice or a clamped number.
package sanitizer
