package envelope

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_SuccessRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		typeTag string
	}{
		{name: "normal payload", payload: []byte("hello"), typeTag: "string"},
		{name: "empty payload", payload: []byte{}, typeTag: "string"},
		{name: "nil payload", payload: nil, typeTag: "string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeSuccess(tt.payload, tt.typeTag)
			require.NoError(t, err)

			out, err := Decode(data, tt.typeTag)
			require.NoError(t, err)

			require.True(t, out.Completed)
			require.True(t, out.HasPayload)
			require.Nil(t, out.Err)
			if diff := cmp.Diff(tt.payload, out.Payload); diff != "" && len(tt.payload) != 0 {
				t.Fatalf("payload mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, len(tt.payload), len(out.Payload))
		})
	}
}

func TestEncodeDecode_FailureRoundTrip(t *testing.T) {
	origin := "file.go:42"

	tests := []struct {
		name   string
		kind   ErrorKind
		msg    string
		origin *string
	}{
		{name: "with origin", kind: KindHandlerFailed, msg: "boom", origin: &origin},
		{name: "without origin", kind: KindTimeout, msg: "deadline exceeded", origin: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFailure(tt.kind, tt.msg, tt.origin)
			require.NoError(t, err)

			out, err := Decode(data, "anything")
			require.NoError(t, err)

			require.False(t, out.Completed)
			require.NotNil(t, out.Err)
			require.Equal(t, tt.kind, out.Err.Kind)
			require.Equal(t, tt.msg, out.Err.Message)
			if tt.origin != nil {
				require.Equal(t, *tt.origin, out.Err.Origin)
			} else {
				require.Empty(t, out.Err.Origin)
			}
		})
	}
}

func TestEncodeFailure_RejectsUnknownKind(t *testing.T) {
	_, err := EncodeFailure(ErrorKind("NotARealKind"), "x", nil)
	require.Error(t, err)
}

func TestDecode_TypeTagMismatch(t *testing.T) {
	data, err := EncodeSuccess([]byte("1"), "int")
	require.NoError(t, err)

	_, err = Decode(data, "string")
	require.Error(t, err)
}

func TestRecord_RoundTripAndOutcome(t *testing.T) {
	r := Record{
		TaskID:          "abc123",
		ResponseTypeTag: "string",
		Status:          StatusCompleted,
		Result:          []byte("hi"),
		HasResult:       true,
	}
	data, err := EncodeRecord(r)
	require.NoError(t, err)

	got, err := DecodeRecord(data)
	require.NoError(t, err)
	require.Equal(t, r.TaskID, got.TaskID)
	require.Equal(t, r.Status, got.Status)

	out := got.Outcome()
	require.True(t, out.Completed)
	require.Equal(t, []byte("hi"), out.Payload)
}

func TestRecord_Outcome_PanicsOnPending(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for Pending record")
		}
	}()
	Record{Status: StatusPending}.Outcome()
}
