package server

import (
	"errors"
	"testing"
	"time"

	"voxelrelay.ai/internal/protocol"
)

func TestClientSend_OverflowDisconnects(t *testing.T) {
	np, _ := fakePlayer("slow")
	c := newClient(np, ClientConfig{OutboundQueue: 2}, testLogger())

	for i := 0; i < 2; i++ {
		if err := c.Send(protocol.KeepAliveMsg{Type: protocol.TypeKeepAlive, ID: int64(i)}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	err := c.Send(protocol.KeepAliveMsg{Type: protocol.TypeKeepAlive, ID: 3})
	if !errors.Is(err, ErrSlowClient) {
		t.Fatalf("overflow err=%v", err)
	}
	if !c.IsDisconnected() || c.DisconnectReason() != "Outbound queue full" {
		t.Fatalf("disconnected=%v reason=%q", c.IsDisconnected(), c.DisconnectReason())
	}
	if err := c.Send(protocol.KeepAliveMsg{Type: protocol.TypeKeepAlive}); !errors.Is(err, ErrClientDisconnected) {
		t.Fatalf("send after disconnect err=%v", err)
	}
}

func TestClientSend_HonorsClientQueueCap(t *testing.T) {
	np, _ := fakePlayer("small")
	np.MaxQueue = 1
	c := newClient(np, ClientConfig{OutboundQueue: 64}, testLogger())
	if cap(c.out) != 1 {
		t.Fatalf("queue cap=%d want 1", cap(c.out))
	}
}

func TestClientDisconnect_OnlyFirstWins(t *testing.T) {
	np, conn := fakePlayer("alice")
	c := newClient(np, ClientConfig{}, testLogger())
	c.start()

	c.Disconnect(protocol.ErrTimeout, "Timed out")
	c.Disconnect(protocol.ErrShutdown, "Server closed")
	if c.DisconnectReason() != "Timed out" {
		t.Fatalf("reason=%q", c.DisconnectReason())
	}
	waitFor(t, "connection closed", conn.isClosed)
	var msg protocol.DisconnectMsg
	if !conn.lastOf(protocol.TypeDisconnect, &msg) || msg.Code != protocol.ErrTimeout {
		t.Fatalf("final message: %v", conn.types())
	}
}

func TestClientReader_QueuesFramesAndAcks(t *testing.T) {
	np, conn := fakePlayer("alice")
	c := newClient(np, ClientConfig{InboundQueue: 2}, testLogger())
	c.start()
	defer c.Disconnect("", "done")

	conn.reads <- []byte(`{"type":"KEEP_ALIVE","id":5}`)
	conn.reads <- []byte(`{"type":"HELD_ITEM","slot":1}`)
	conn.reads <- []byte(`{"type":"HELD_ITEM","slot":2}`)
	conn.reads <- []byte(`{"type":"HELD_ITEM","slot":3}`)

	waitFor(t, "keepalive ack", func() bool { return c.lastAck.Load() == 5 })
	var frames [][]byte
	waitFor(t, "inbound frames", func() bool {
		frames = append(frames, c.DrainInbound()...)
		return len(frames) > 0 && string(frames[len(frames)-1]) == `{"type":"HELD_ITEM","slot":3}`
	})
	if len(frames) > 3 {
		t.Fatalf("got %d frames", len(frames))
	}
}

func TestClientReader_ClosedConnDisconnects(t *testing.T) {
	np, conn := fakePlayer("alice")
	c := newClient(np, ClientConfig{}, testLogger())
	c.start()
	conn.Close()
	waitFor(t, "disconnect", c.IsDisconnected)
}

func TestKeepaliveOverdue(t *testing.T) {
	np, _ := fakePlayer("alice")
	c := newClient(np, ClientConfig{}, testLogger())
	t0 := time.Unix(100, 0)

	if c.KeepaliveOverdue(t0, time.Second) {
		t.Fatalf("overdue before any keepalive")
	}
	_ = c.SendKeepAlive(1, t0)
	_ = c.SendKeepAlive(2, t0.Add(500*time.Millisecond))
	if c.KeepaliveOverdue(t0.Add(900*time.Millisecond), time.Second) {
		t.Fatalf("overdue too early")
	}
	if !c.KeepaliveOverdue(t0.Add(1100*time.Millisecond), time.Second) {
		t.Fatalf("oldest unanswered keepalive should be overdue")
	}
	c.lastAck.Store(1)
	if c.KeepaliveOverdue(t0.Add(5*time.Second), time.Second) {
		t.Fatalf("acknowledged keepalive still overdue")
	}
}

func TestPushLatest_DropsOldest(t *testing.T) {
	ch := make(chan []byte, 2)
	pushLatest(ch, []byte("a"))
	pushLatest(ch, []byte("b"))
	pushLatest(ch, []byte("c"))
	if got := string(<-ch) + string(<-ch); got != "bc" {
		t.Fatalf("got %q want bc", got)
	}
}
