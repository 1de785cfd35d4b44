// Package conflict decides whether a candidate booking window collides with
// the bookings already holding a resource.
package conflict

import (
	"bookit/pkg/config"
	"context"
	"fmt"
	"time"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// Finder returns whether any booking of resourceID in one of statuses
// overlaps [start,end), ignoring excludeID.
type Finder interface {
	ExistsOverlapping(ctx context.Context, resourceID string, start, end time.Time, excludeID string, statuses []config.BookingStatus) (bool, error)
}

type Detector struct {
	finder Finder
}

func NewDetector(finder Finder) *Detector {
	return &Detector{finder: finder}
}

// HasConflict has no side effects. Callers that act on a negative answer
// must run it inside the same transaction as their write.
func (d *Detector) HasConflict(ctx context.Context, resourceID string, start, end time.Time, excludeID string, blocking []config.BookingStatus) (bool, error) {
	if len(blocking) == 0 {
		return false, nil
	}
	found, err := d.finder.ExistsOverlapping(ctx, resourceID, start, end, excludeID, blocking)
	if err != nil {
		return false, fmt.Errorf("conflict check for resource %s: %w", resourceID, err)
	}
	return found, nil
}

var (
	// CreateBlocking are the statuses that occupy a slot for new requests.
	CreateBlocking = []config.BookingStatus{config.Pending, config.Approved}
	// ApproveBlocking are the statuses that prevent an approval.
	ApproveBlocking = []config.BookingStatus{config.Approved}
)
