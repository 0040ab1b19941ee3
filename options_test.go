package rendezvous

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndyer/rendezvous/envelope"
)

func TestNewOptions_Defaults(t *testing.T) {
	o, err := NewOptions(WithInMemoryCoordination())
	require.NoError(t, err)

	assert.True(t, o.UseInMemoryCoordination)
	assert.Equal(t, "hangfire-mediatr:", o.RemoteKeyPrefix)
	assert.Equal(t, 30*time.Minute, o.DefaultTaskTimeout)
	assert.Equal(t, 0, o.DefaultRetryBudget)
	assert.Equal(t, time.Hour, o.JobExecutionTimeout)
	assert.Equal(t, 7*24*time.Hour, o.JobRetentionPeriod)
	assert.Equal(t, 5*time.Minute, o.CleanupInterval)
	assert.True(t, o.EnableConsoleLogging)
	assert.False(t, o.EnableDetailedLogging)
	assert.False(t, o.AutoDeleteSuccessfulJobs)
}

func TestNewOptions_RemoteStoreEndpointRequiredUnlessInMemory(t *testing.T) {
	_, err := NewOptions()
	var rerr *envelope.RendezvousError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, envelope.KindInvalidArgument, rerr.Kind)
}

func TestNewOptions_RemoteStoreEndpointSelectsDistributedVariant(t *testing.T) {
	o, err := NewOptions(WithRemoteStoreEndpoint("redis://localhost:6379"))
	require.NoError(t, err)
	assert.False(t, o.UseInMemoryCoordination)
	assert.Equal(t, "redis://localhost:6379", o.RemoteStoreEndpoint)
}

func TestNewOptions_NilOptionRejected(t *testing.T) {
	_, err := NewOptions(WithInMemoryCoordination(), nil)
	var rerr *envelope.RendezvousError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, envelope.KindInvalidArgument, rerr.Kind)
}

func TestNewOptions_ClosedInvariantSet(t *testing.T) {
	cases := []struct {
		name string
		opt  Option
	}{
		{"empty key prefix", WithRemoteKeyPrefix("")},
		{"zero task timeout", WithDefaultTaskTimeout(0)},
		{"negative retry budget", WithDefaultRetryBudget(-1)},
		{"zero max concurrent jobs", WithMaxConcurrentJobs(0)},
		{"zero job execution timeout", WithJobExecutionTimeout(0)},
		{"zero job retention period", WithJobRetentionPeriod(0)},
		{"zero cleanup interval", WithCleanupInterval(0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOptions(WithInMemoryCoordination(), tc.opt)
			var rerr *envelope.RendezvousError
			require.ErrorAsf(t, err, &rerr, "case %q", tc.name)
			assert.Equal(t, envelope.KindInvalidArgument, rerr.Kind)
		})
	}
}
