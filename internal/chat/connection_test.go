package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnection_NicknameSetOnce(t *testing.T) {
	req := require.New(t)
	c, _ := activeConn("c1", "alice", 4)
	defer c.Close()

	req.Equal("alice", c.Nickname())
	req.ErrorIs(c.SetNickname("bob"), ErrNicknameSet)
	req.Equal("alice", c.Nickname())

	other := NewConnection("c2", &recordWriter{}, 4)
	defer other.Close()
	req.ErrorIs(other.SetNickname(""), ErrEmptyNickname)
}

func TestConnection_StateMachine(t *testing.T) {
	req := require.New(t)
	c := NewConnection("c1", &recordWriter{}, 4)
	req.Equal(StateConnecting, c.State())

	req.ErrorIs(c.Transition(StateConnecting, StateActive), ErrBadTransition)
	req.NoError(c.Transition(StateConnecting, StateHandshaking))
	req.NoError(c.Transition(StateHandshaking, StateActive))

	c.Close()
	req.Equal(StateClosed, c.State())
	req.ErrorIs(c.Transition(StateClosed, StateConnecting), ErrBadTransition)
}

func TestConnection_SendWritesInOrder(t *testing.T) {
	c, w := activeConn("c1", "alice", 8)
	defer c.Close()

	for _, m := range []string{"one", "two", "three"} {
		require.NoError(t, c.SendString(m))
	}
	require.Eventually(t, func() bool { return len(w.Messages()) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"one", "two", "three"}, w.Messages())
}

func TestConnection_SendAfterClose(t *testing.T) {
	c, _ := activeConn("c1", "alice", 2)
	c.Close()
	require.ErrorIs(t, c.SendString("late"), ErrClosed)
	require.True(t, c.IsClosed())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatalf("writer goroutine did not exit")
	}
}

func TestConnection_OverflowClosesConnection(t *testing.T) {
	w := &recordWriter{block: make(chan struct{})}
	c := NewConnection("c1", w, 1)
	defer close(w.block)

	// 写协程阻塞在第一条上，第二条填满队列，第三条溢出
	require.NoError(t, c.SendString("a"))
	require.Eventually(t, func() bool { return len(c.out) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, c.SendString("b"))
	require.ErrorIs(t, c.SendString("c"), ErrOverflow)
	require.True(t, c.IsClosed())
}

func TestConnection_CloseIdempotent(t *testing.T) {
	c, w := activeConn("c1", "alice", 2)
	c.Close()
	c.Close()
	require.True(t, c.IsClosed())
	require.True(t, w.closed)
}
