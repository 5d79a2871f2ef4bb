package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AddRemove(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	a, _ := activeConn("a", "alice", 4)
	b, _ := activeConn("b", "bob", 4)
	defer a.Close()
	defer b.Close()

	req.NoError(reg.Add(a))
	req.NoError(reg.Add(b))
	req.Equal([]string{"alice", "bob"}, reg.Names())
	req.Equal(StateActive, a.State())
	req.ErrorIs(reg.Add(a), ErrDuplicate)

	req.True(reg.Remove(a))
	req.False(reg.Contains(a))
	req.Equal([]string{"bob"}, reg.Names())
}

func TestRegistry_AddRequiresNickname(t *testing.T) {
	reg := NewRegistry()
	c := NewConnection("x", &recordWriter{}, 4)
	defer c.Close()
	_ = c.Transition(StateConnecting, StateHandshaking)

	require.ErrorIs(t, reg.Add(c), ErrNoNickname)
	require.Equal(t, 0, reg.Len())
}

func TestRegistry_AddRejectsClosed(t *testing.T) {
	reg := NewRegistry()
	c, _ := activeConn("x", "xavier", 4)
	c.Close()

	require.ErrorIs(t, reg.Add(c), ErrBadTransition)
	require.Equal(t, 0, reg.Len())
}

func TestRegistry_RemoveIdempotent(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	a, _ := activeConn("a", "alice", 4)
	defer a.Close()
	req.NoError(reg.Add(a))

	req.True(reg.Remove(a))
	req.False(reg.Remove(a))
	req.Equal(0, reg.Len())

	never, _ := activeConn("n", "nobody", 4)
	defer never.Close()
	req.False(reg.Remove(never))
}

func TestRegistry_BroadcastReachesEveryone(t *testing.T) {
	reg := NewRegistry()
	a, wa := activeConn("a", "alice", 4)
	b, wb := activeConn("b", "bob", 4)
	defer a.Close()
	defer b.Close()
	require.NoError(t, reg.Add(a))
	require.NoError(t, reg.Add(b))

	reg.Broadcast([]byte("hello"))

	require.Eventually(t, func() bool {
		return wa.count("hello") == 1 && wb.count("hello") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_BroadcastSkipsRemoved(t *testing.T) {
	reg := NewRegistry()
	a, wa := activeConn("a", "alice", 4)
	b, wb := activeConn("b", "bob", 4)
	defer a.Close()
	defer b.Close()
	require.NoError(t, reg.Add(a))
	require.NoError(t, reg.Add(b))

	reg.Remove(b)
	reg.Broadcast([]byte("after"))
	reg.Broadcast([]byte("marker"))

	require.Eventually(t, func() bool { return wa.count("marker") == 1 }, time.Second, 5*time.Millisecond)
	require.Zero(t, wb.count("after"))
}

func TestRegistry_BroadcastToleratesFailedRecipient(t *testing.T) {
	reg := NewRegistry()
	a, wa := activeConn("a", "alice", 4)
	b, _ := activeConn("b", "bob", 4)
	c, wc := activeConn("c", "carol", 4)
	defer a.Close()
	defer c.Close()
	for _, conn := range []*Connection{a, b, c} {
		require.NoError(t, reg.Add(conn))
	}
	// b 已断开但其 Reader 尚未清理
	b.Close()

	reg.Broadcast([]byte("still here"))

	require.Eventually(t, func() bool {
		return wa.count("still here") == 1 && wc.count("still here") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_ConcurrentConsistency(t *testing.T) {
	const (
		stable    = 4
		churners  = 8
		payloads  = 200
		churnIter = 50
	)
	reg := NewRegistry()

	writers := make([]*recordWriter, 0, stable)
	for i := 0; i < stable; i++ {
		c, w := activeConn(fmt.Sprintf("s%d", i), fmt.Sprintf("stable%d", i), payloads+1)
		defer c.Close()
		require.NoError(t, reg.Add(c))
		writers = append(writers, w)
	}

	var wg sync.WaitGroup
	for i := 0; i < churners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < churnIter; j++ {
				c, _ := activeConn(fmt.Sprintf("c%d-%d", i, j), "churn", payloads+1)
				if err := reg.Add(c); err != nil {
					t.Errorf("add: %v", err)
				}
				reg.Remove(c)
				reg.Remove(c)
				c.Close()
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < payloads; i++ {
			reg.Broadcast([]byte(fmt.Sprintf("m%d", i)))
		}
	}()
	wg.Wait()

	require.Equal(t, stable, reg.Len())
	for _, w := range writers {
		w := w
		require.Eventually(t, func() bool { return len(w.Messages()) == payloads }, 2*time.Second, 5*time.Millisecond)
		msgs := w.Messages()
		for i := 0; i < payloads; i++ {
			require.Equal(t, fmt.Sprintf("m%d", i), msgs[i])
		}
	}
}

func TestAnnouncements(t *testing.T) {
	require.Equal(t, "alice has joined in room", string(JoinAnnouncement("alice")))
	require.Equal(t, "bob left !!!", string(LeaveAnnouncement("bob")))
}
