package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeServer struct {
	stopped bool
}

func (s *fakeServer) Shutdown(ctx context.Context) error {
	s.stopped = true
	return nil
}

func TestManager_ReverseOrder(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	var order []string
	m.RegisterNoErr("database", func() { order = append(order, "database") })
	m.RegisterNoErr("http", func() { order = append(order, "http") })
	m.RegisterNoErr("metrics", func() { order = append(order, "metrics") })

	require.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"metrics", "http", "database"}, order)
}

func TestManager_ContinuesAfterFailure(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	server := &fakeServer{}
	m.RegisterHTTPServer("http", server)
	m.Register("broken", func(context.Context) error { return errors.New("stuck") })

	err := m.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: stuck")
	assert.True(t, server.stopped)
}

func TestManager_ComponentsShareDeadline(t *testing.T) {
	m := NewManager(zap.NewNop(), 50*time.Millisecond)

	var deadline time.Time
	m.Register("probe", func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	})

	require.NoError(t, m.Shutdown())
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
}
