package coordinator

import (
	"fmt"

	"github.com/ndyer/rendezvous/envelope"
)

// invalidArgument builds an envelope.RendezvousError of kind InvalidArgument
// naming the offending field, mirroring the root package's helper of the
// same name (kept package-local to avoid a dependency from coordinator back
// up to rendezvous).
func invalidArgument(field, reason string) *envelope.RendezvousError {
	return envelope.NewError(envelope.KindInvalidArgument, fmt.Sprintf("%s: %s", field, reason), nil)
}

// coordinatorInternal builds a CoordinatorInternal error from a store or
// pub/sub failure. cause may be nil when the failure has no underlying Go
// error (e.g. an unexpectedly closed subscription).
func coordinatorInternal(op string, cause error) *envelope.RendezvousError {
	msg := op
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", op, cause)
	}
	return envelope.NewError(envelope.KindCoordinatorInternal, msg, nil)
}
