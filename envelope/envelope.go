// Package envelope implements the codec and wire types shared by both
// coordinator variants: the terminal state of a task, serialized once as an
// opaque byte string suitable for in-process storage, remote key/value
// storage, and pub/sub notification alike.
//
// The wire format is CBOR (github.com/fxamacker/cbor/v2). CBOR structs
// default to keyed (map) encoding rather than positional (array) encoding,
// which is what lets a producer and a consumer on different binary versions
// of the same release disagree about field order, additions, or removals
// without breaking decode — the self-describing-for-evolution requirement.
package envelope

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Status is the monotonic lifecycle state of a task.
type Status uint8

const (
	StatusPending Status = iota
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ErrorKind is the closed set of error kinds an envelope may carry.
type ErrorKind string

const (
	KindTimeout              ErrorKind = "Timeout"
	KindCancelled            ErrorKind = "Cancelled"
	KindHandlerFailed        ErrorKind = "HandlerFailed"
	KindSerializationFailed  ErrorKind = "SerializationFailed"
	KindCoordinatorInternal  ErrorKind = "CoordinatorInternal"
	KindInvalidArgument      ErrorKind = "InvalidArgument"
	KindNotFound             ErrorKind = "NotFound"
)

// validKinds is consulted by Decode to reject envelopes from a future
// release that introduced a kind this binary doesn't know about.
var validKinds = map[ErrorKind]struct{}{
	KindTimeout:             {},
	KindCancelled:           {},
	KindHandlerFailed:       {},
	KindSerializationFailed: {},
	KindCoordinatorInternal: {},
	KindInvalidArgument:     {},
	KindNotFound:            {},
}

// ErrorInfo carries enough information to reconstruct a raised failure on
// the waiter side without re-executing the remote call stack.
type ErrorInfo struct {
	Kind    ErrorKind `cbor:"kind"`
	Message string    `cbor:"message"`
	Origin  string    `cbor:"origin,omitempty"`
	HasOrigin bool    `cbor:"has_origin"`
}

// RendezvousError is the error type reconstructed on the waiter side from a
// Failed envelope. It is never constructed by re-running the original call
// stack; Kind is always one of the closed set above.
type RendezvousError struct {
	Kind    ErrorKind
	Message string
	Origin  string // "" unless HasOrigin was true on the wire
}

func (e *RendezvousError) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("%s: %s (origin: %s)", e.Kind, e.Message, e.Origin)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError constructs a RendezvousError. origin may be nil.
func NewError(kind ErrorKind, message string, origin *string) *RendezvousError {
	e := &RendezvousError{Kind: kind, Message: message}
	if origin != nil {
		e.Origin = *origin
	}
	return e
}

// Outcome is the decoded terminal state of a task: exactly one of Payload
// (when Completed) or Err (when Failed) is meaningful.
type Outcome struct {
	Completed  bool
	Payload    []byte
	HasPayload bool // distinguishes an empty/nil payload from no payload at all
	Err        *RendezvousError
}

// wireOutcome is the minimal CBOR-serialized form of a terminal outcome, per
// the §4.A codec contract. It intentionally does not carry task_id or
// timestamps; Record (below) is the superset used for the distributed
// coordinator's stored/published wire envelope (§6).
type wireOutcome struct {
	TypeTag    string     `cbor:"type_tag"`
	Status     Status     `cbor:"status"`
	Result     []byte     `cbor:"result,omitempty"`
	HasResult  bool       `cbor:"has_result"`
	Error      *ErrorInfo `cbor:"error,omitempty"`
}

// EncodeSuccess serializes a Completed outcome. payload is the caller's
// already-marshaled application result; nil is a valid, round-trippable
// payload distinct from "no payload" (HasResult is always true here: a
// success always has a result, even if it's zero bytes).
func EncodeSuccess(payload []byte, typeTag string) ([]byte, error) {
	w := wireOutcome{
		TypeTag:   typeTag,
		Status:    StatusCompleted,
		Result:    payload,
		HasResult: true,
	}
	data, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode success: %w", err)
	}
	return data, nil
}

// EncodeFailure serializes a Failed outcome. origin may be nil when no
// origin frame is available.
func EncodeFailure(kind ErrorKind, message string, origin *string) ([]byte, error) {
	if _, ok := validKinds[kind]; !ok {
		return nil, fmt.Errorf("envelope: unknown error kind %q", kind)
	}
	info := &ErrorInfo{Kind: kind, Message: message}
	if origin != nil {
		info.Origin = *origin
		info.HasOrigin = true
	}
	w := wireOutcome{Status: StatusFailed, Error: info}
	data, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode failure: %w", err)
	}
	return data, nil
}

// Decode reconstructs the terminal Outcome from bytes produced by
// EncodeSuccess/EncodeFailure. expectedTypeTag is checked only against
// successful outcomes (failures carry no application type).
func Decode(data []byte, expectedTypeTag string) (Outcome, error) {
	var w wireOutcome
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Outcome{}, fmt.Errorf("envelope: decode: %w", err)
	}

	switch w.Status {
	case StatusCompleted:
		if expectedTypeTag != "" && w.TypeTag != "" && w.TypeTag != expectedTypeTag {
			return Outcome{}, fmt.Errorf(
				"envelope: type tag mismatch: got %q, want %q", w.TypeTag, expectedTypeTag,
			)
		}
		return Outcome{Completed: true, Payload: w.Result, HasPayload: w.HasResult}, nil

	case StatusFailed:
		if w.Error == nil {
			return Outcome{}, fmt.Errorf("envelope: failed outcome missing error info")
		}
		if _, ok := validKinds[w.Error.Kind]; !ok {
			return Outcome{}, fmt.Errorf("envelope: unknown error kind %q", w.Error.Kind)
		}
		var origin *string
		if w.Error.HasOrigin {
			o := w.Error.Origin
			origin = &o
		}
		return Outcome{Err: NewError(w.Error.Kind, w.Error.Message, origin)}, nil

	default:
		return Outcome{}, fmt.Errorf("envelope: cannot decode non-terminal status %v", w.Status)
	}
}

// Record is the superset wire format described in §6: the full terminal (or
// pending) state of a task as stored under the distributed coordinator's
// "<prefix>task:<task_id>" key and published on its completion channel.
//
// CreatedAt/CompletedAt are Unix nanosecond timestamps rather than
// time.Time: CBOR has no canonical encoding for Go's time.Time (whose
// fields are unexported), so carrying the wire clock as a plain int64 keeps
// the format unambiguous across producer/consumer binary versions.
// CompletedAt is zero until the terminal transition.
type Record struct {
	TaskID          string     `cbor:"task_id"`
	ResponseTypeTag string     `cbor:"response_type_tag"`
	CreatedAt       int64      `cbor:"created_at"`
	CompletedAt     int64      `cbor:"completed_at,omitempty"`
	Status          Status     `cbor:"status"`
	Result          []byte     `cbor:"result,omitempty"`
	HasResult       bool       `cbor:"has_result"`
	Error           *ErrorInfo `cbor:"error,omitempty"`
}

// EncodeRecord serializes a full Record for storage/publication.
func EncodeRecord(r Record) ([]byte, error) {
	data, err := cbor.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode record: %w", err)
	}
	return data, nil
}

// DecodeRecord deserializes a full Record.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("envelope: decode record: %w", err)
	}
	return r, nil
}

// Outcome extracts the terminal Outcome from a Record. It panics if called
// on a Pending record; callers must check Status first.
func (r Record) Outcome() Outcome {
	switch r.Status {
	case StatusCompleted:
		return Outcome{Completed: true, Payload: r.Result, HasPayload: r.HasResult}
	case StatusFailed:
		var origin *string
		if r.Error != nil && r.Error.HasOrigin {
			o := r.Error.Origin
			origin = &o
		}
		var info *RendezvousError
		if r.Error != nil {
			info = NewError(r.Error.Kind, r.Error.Message, origin)
		}
		return Outcome{Err: info}
	default:
		panic("envelope: Outcome called on a Pending record")
	}
}
