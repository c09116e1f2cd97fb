// Package flow implements the buffer space flow controller. It caches the
// last reported buffer space per (destination, channel) and tracks which
// destinations have a query in flight. Admission is advisory: the controller
// enables the submitter's policy, it does not throttle submissions itself.
package flow

import (
	"github.com/synchrolab/drtsim/drtio"
)

type spaceKey struct {
	destination uint8
	channel     uint16
}

// A Controller owns the only mutable shared state of the control path: the
// per-(destination, channel) available space records.
type Controller struct {
	space       map[spaceKey]int
	outstanding map[uint8]bool
}

// NewController creates a flow controller with no cached state.
func NewController() *Controller {
	return &Controller{
		space:       make(map[spaceKey]int),
		outstanding: make(map[uint8]bool),
	}
}

// RequestSpace marks a buffer space query outstanding for the destination.
// A second request before the first reply is rejected with
// DuplicateQueryError; the caller retries after the reply arrives.
func (c *Controller) RequestSpace(destination uint8) error {
	if c.outstanding[destination] {
		return &drtio.DuplicateQueryError{Destination: destination}
	}

	c.outstanding[destination] = true
	return nil
}

// Outstanding reports whether a query is in flight for the destination.
func (c *Controller) Outstanding(destination uint8) bool {
	return c.outstanding[destination]
}

// OnReply records the space reported by a destination and clears its
// outstanding flag. The report overwrites whatever was cached before.
func (c *Controller) OnReply(destination uint8, channel uint16, space int) {
	c.space[spaceKey{destination, channel}] = space
	delete(c.outstanding, destination)
}

// AvailableSpace returns the last reported space for a channel, and whether
// any report has been received since the last invalidation.
func (c *Controller) AvailableSpace(
	destination uint8, channel uint16,
) (int, bool) {
	space, known := c.space[spaceKey{destination, channel}]
	return space, known
}

// CanAdmit compares a write's footprint against the last known space. An
// unknown channel cannot admit anything; the submitter must query first.
func (c *Controller) CanAdmit(
	destination uint8, channel uint16, footprint int,
) bool {
	space, known := c.space[spaceKey{destination, channel}]
	return known && footprint <= space
}

// Debit reduces the cached space of a channel after a write was applied.
func (c *Controller) Debit(destination uint8, channel uint16, footprint int) {
	key := spaceKey{destination, channel}
	if space, known := c.space[key]; known {
		c.space[key] = space - footprint
	}
}

// Invalidate destroys all state for a destination. It is called on link
// reset or when a reply timeout fires, since stale space reports must not
// admit writes over a dead link.
func (c *Controller) Invalidate(destination uint8) {
	delete(c.outstanding, destination)
	for key := range c.space {
		if key.destination == destination {
			delete(c.space, key)
		}
	}
}
