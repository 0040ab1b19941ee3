package rendezvous

import (
	"fmt"

	"github.com/ndyer/rendezvous/envelope"
)

// Namespace is this package's name, mirroring the teacher package's
// Namespace constant in its own errors.go. The error helpers below do not
// add it to the messages they build.
const Namespace = "rendezvous"

// invalidArgument builds an envelope.RendezvousError of kind InvalidArgument
// naming the offending field (§4.G: "the failing field name must be
// reported").
func invalidArgument(field, reason string) *envelope.RendezvousError {
	return envelope.NewError(envelope.KindInvalidArgument, fmt.Sprintf("%s: %s", field, reason), nil)
}

// handlerFailed builds a HandlerFailed error from the final retry attempt's
// error (§4.E, §7).
func handlerFailed(displayName string, attempts int, cause error) *envelope.RendezvousError {
	origin := fmt.Sprintf("%s (after %d attempt(s))", displayName, attempts)
	return envelope.NewError(envelope.KindHandlerFailed, cause.Error(), &origin)
}

// coordinatorInternal builds a CoordinatorInternal error from a store or
// pub/sub failure (§7). It wraps the failure as given; the failed operation
// is not retried before the error is built.
func coordinatorInternal(op string, cause error) *envelope.RendezvousError {
	return envelope.NewError(envelope.KindCoordinatorInternal, fmt.Sprintf("%s: %v", op, cause), nil)
}

// serializationFailed builds a SerializationFailed error for a waiter-side
// codec failure — e.g. a stored payload that doesn't decode into the
// caller's requested T (§4.A, §7).
func serializationFailed(typeTag string, cause error) *envelope.RendezvousError {
	return envelope.NewError(envelope.KindSerializationFailed, fmt.Sprintf("decode %s: %v", typeTag, cause), nil)
}
