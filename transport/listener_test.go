package transport

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func TestListenDialAccept(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan error, 1)
	go func() {
		conn, err := l.Accept(ctx)
		if err != nil {
			accepted <- err
			return
		}
		defer conn.Close()
		_, err = conn.Write([]byte("ping"))
		accepted <- err
	}()

	conn, err := Dial(ctx, l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
	require.NoError(t, <-accepted)
}

func TestDialRefused(t *testing.T) {
	ln, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = Dial(ctx, addr)
	require.Error(t, err)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "dial", opErr.Op)
	assert.Equal(t, addr, opErr.Addr)
	assert.True(t, IsConnectionError(err))
}

func TestListenAddressInUse(t *testing.T) {
	ln, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	defer ln.Close()

	_, err = Listen(ln.Addr().String())
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.Contains(t, err.Error(), "transport listen")
}

func TestAcceptHonorsContext(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Accept(ctx)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, IsConnectionError(err))
	case <-time.After(5 * time.Second):
		t.Fatal("Accept did not return after context cancellation")
	}

	assert.NoError(t, l.Close(), "second Close should be a no-op")
}

func TestOpErrorFormatting(t *testing.T) {
	base := errors.New("boom")

	withAddr := newOpError("dial", "127.0.0.1:3000", base)
	assert.Equal(t, "transport dial 127.0.0.1:3000: boom", withAddr.Error())
	assert.ErrorIs(t, withAddr, base)

	noAddr := newOpError("accept", "", base)
	assert.Equal(t, "transport accept: boom", noAddr.Error())

	assert.False(t, IsConnectionError(base))
}
