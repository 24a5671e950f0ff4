package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/go-chat/protocol"
)

func startEchoPeer(t *testing.T) (addr string, accepted <-chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ln.Close()
	})

	conns := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		conns <- conn
	}()

	return ln.Addr().String(), conns
}

func acceptedConn(t *testing.T, accepted <-chan net.Conn) net.Conn {
	t.Helper()

	select {
	case conn := <-accepted:
		t.Cleanup(func() {
			_ = conn.Close()
		})
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server side never accepted")
		return nil
	}
}

func TestConn_ConnectAndSend(t *testing.T) {
	addr, accepted := startEchoPeer(t)

	c := NewConn(DefaultConfig(addr))
	require.NoError(t, c.Connect())
	t.Cleanup(func() {
		_ = c.Close()
	})

	assert.True(t, c.IsConnected())

	peer := acceptedConn(t, accepted)

	require.NoError(t, c.Send(protocol.EncodeRequest("Alice", protocol.ActionChat, "", "hi")))

	buf := make([]byte, 64)
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := peer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.EncodeRequest("Alice", protocol.ActionChat, "", "hi"), buf[:n])
}

func TestConn_DecodesSplitAndCoalescedReplies(t *testing.T) {
	addr, accepted := startEchoPeer(t)

	msgs := make(chan string, 8)
	c := NewConn(DefaultConfig(addr))
	c.OnMessage(func(text string) {
		msgs <- text
	})

	require.NoError(t, c.Connect())
	t.Cleanup(func() {
		_ = c.Close()
	})

	peer := acceptedConn(t, accepted)

	// Two frames written as three arbitrary chunks: the first frame split
	// mid-length, the second coalesced with the first's tail.
	stream := append(protocol.EncodeReply("hello there"), protocol.EncodeReply("second")...)
	for _, chunk := range [][]byte{stream[:1], stream[1:7], stream[7:]} {
		_, err := peer.Write(chunk)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	for _, want := range []string{"hello there", "second"} {
		select {
		case got := <-msgs:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestConn_PeerCloseEmitsDisconnected(t *testing.T) {
	addr, accepted := startEchoPeer(t)

	states := make(chan StateEvent, 8)
	c := NewConn(DefaultConfig(addr))
	c.OnState(func(ev StateEvent) {
		states <- ev
	})

	require.NoError(t, c.Connect())
	t.Cleanup(func() {
		_ = c.Close()
	})

	peer := acceptedConn(t, accepted)
	_ = peer.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-states:
			if ev.State == Disconnected && ev.Err != nil {
				return
			}
		case <-deadline:
			t.Fatal("never observed a disconnect event")
		}
	}
}

func TestConn_Lifecycle(t *testing.T) {
	t.Run("connect to a dead address fails", func(t *testing.T) {
		cfg := DefaultConfig("127.0.0.1:1")
		cfg.ConnectTimeout = 200 * time.Millisecond

		c := NewConn(cfg)
		assert.Error(t, c.Connect())
		assert.Equal(t, Disconnected, c.State())
	})

	t.Run("send before connect fails", func(t *testing.T) {
		c := NewConn(DefaultConfig("127.0.0.1:1"))
		assert.Error(t, c.Send([]byte("x")))
	})

	t.Run("close is idempotent and ends in Closed", func(t *testing.T) {
		addr, accepted := startEchoPeer(t)

		c := NewConn(DefaultConfig(addr))
		require.NoError(t, c.Connect())
		acceptedConn(t, accepted)

		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		assert.Equal(t, Closed, c.State())

		assert.Error(t, c.Connect())
	})
}
