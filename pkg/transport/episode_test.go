package transport

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/redial-io/redial-go/pkg/socket"
	"github.com/redial-io/redial-go/pkg/socket/mocks"
)

func newIdleTransport(t *testing.T) *Transport {
	t.Helper()
	tr, err := New(Config{
		Endpoint:    "ws://device.test:8443/events",
		PayloadMode: socket.ModeBinary,
	},
		WithDialer(mocks.NewMockDialer(t)),
		WithClock(clockwork.NewFakeClock()),
		WithLogger(zap.NewNop().Sugar()),
	)
	require.NoError(t, err)
	return tr
}

// Close can land between Reconnect releasing the lock and the episode
// being published.
func TestEpisodeAfterCloseSettles(t *testing.T) {
	tr := newIdleTransport(t)
	tr.mu.Lock()
	tr.state = StateClosed
	tr.mu.Unlock()

	ep := tr.startEpisode()

	select {
	case <-ep.done:
	case <-time.After(time.Second):
		t.Fatal("episode never settled")
	}
	assert.ErrorIs(t, ep.err, ErrClosed)
	assert.Nil(t, tr.episode)
	assert.Equal(t, 0, tr.Episodes())
}
