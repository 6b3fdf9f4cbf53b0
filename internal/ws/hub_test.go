package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records written frames and can be made to fail.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	types  []int
	failAt int // fail every write once len(frames) >= failAt; 0 = never
	closed bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.frames) >= c.failAt {
		return errors.New("broken pipe")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	c.types = append(c.types, messageType)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestHub_BroadcastReachesAllSessions(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	c1 := &fakeConn{}
	c2 := &fakeConn{}
	hub.Attach(c1)
	hub.Attach(c2)

	frame := []byte(`{"pnr":"GHTW42","status":"SUCCESS","timestamp":1718000000000}`)
	hub.Broadcast(frame)

	waitFor(t, func() bool { return c1.frameCount() == 1 && c2.frameCount() == 1 })

	c1.mu.Lock()
	assert.Equal(t, frame, c1.frames[0])
	assert.Equal(t, 1, c1.types[0], "frames must be text messages")
	c1.mu.Unlock()
}

func TestHub_DetachRemovesSession(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	c := &fakeConn{}
	s := hub.Attach(c)
	require.Equal(t, 1, hub.SessionCount())

	hub.Detach(s)
	assert.Equal(t, 0, hub.SessionCount())
	assert.True(t, c.isClosed())

	hub.Broadcast([]byte("after detach"))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, c.frameCount())
}

func TestHub_BrokenSessionDoesNotAffectOthers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	broken := &fakeConn{failAt: 1}
	healthy := &fakeConn{}
	hub.Attach(broken)
	hub.Attach(healthy)

	hub.Broadcast([]byte("one"))
	hub.Broadcast([]byte("two"))

	// The healthy session gets both frames; the broken one is evicted
	// after its first failed write.
	waitFor(t, func() bool { return healthy.frameCount() == 2 })
	waitFor(t, func() bool { return hub.SessionCount() == 1 })
	assert.True(t, broken.isClosed())
}

func TestHub_SlowSessionIsEvictedNotWaitedOn(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// A session whose writer never drains: stop the write loop by
	// detaching the session from the hub's perspective is not enough —
	// instead saturate the buffer faster than the writer can drain by
	// broadcasting more frames than the buffer holds before the writer
	// runs. Eviction must happen without Broadcast ever blocking.
	c := &fakeConn{}
	s := newSession(c)
	hub.mu.Lock()
	hub.sessions[s] = struct{}{}
	hub.mu.Unlock()
	// No writeLoop started: the send buffer only fills.

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer+8; i++ {
			hub.Broadcast([]byte("frame"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a slow session")
	}
	assert.Equal(t, 0, hub.SessionCount())
}
