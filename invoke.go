package rendezvous

import (
	"context"
	"fmt"
)

// invokeDispatch runs dispatcher.Dispatch on request, recovering any panic
// raised by the user's handler into an error rather than letting it
// propagate onto the Job Engine's worker goroutine (§4.E: a handler panic
// must surface as HandlerFailed, identical to a returned error, never as a
// crashed worker). Mirrors the teacher's task-execution goroutine/select
// idiom: dispatch happens off-goroutine so a cancelled ctx still returns
// promptly even if the handler itself ignores cancellation.
func invokeDispatch(ctx context.Context, dispatcher HandlerDispatcher, request interface{}) (interface{}, error) {
	var (
		result interface{}
		err    error
	)

	done := make(chan struct{}, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panicked: %v", r)
			}
			done <- struct{}{}
		}()
		result, err = dispatcher.Dispatch(ctx, request)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return result, err
	}
}

// invokePublish runs dispatcher.Publish on notification under the same
// panic-recovery and cancellation discipline as invokeDispatch.
func invokePublish(ctx context.Context, dispatcher HandlerDispatcher, notification interface{}) error {
	var err error

	done := make(chan struct{}, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panicked: %v", r)
			}
			done <- struct{}{}
		}()
		err = dispatcher.Publish(ctx, notification)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return err
	}
}
