//go:build linux

// End-to-end scenarios against a real kernel ring. Every test skips cleanly
// on kernels without io_uring (or without the features the runtime probes
// for), so the suite is safe to run anywhere.
package integration

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreglyph/ringio"
)

func newRuntime(t *testing.T) *ringio.Runtime {
	t.Helper()
	rt, err := ringio.New(ringio.DefaultOptions())
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestDelayElapses(t *testing.T) {
	rt := newRuntime(t)

	err := rt.Run(context.Background(), func(ctx context.Context) error {
		start := time.Now()
		if err := ringio.Delay(ctx, 50*time.Millisecond); err != nil {
			return err
		}
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
		assert.LessOrEqual(t, elapsed, 2*time.Second)
		return nil
	})
	require.NoError(t, err)
}

func TestTCPEchoRoundTrip(t *testing.T) {
	rt := newRuntime(t)

	err := rt.Run(context.Background(), func(ctx context.Context) error {
		ln, err := ringio.ListenTCP(ctx, "127.0.0.1:0")
		if err != nil {
			return err
		}
		defer ln.Close(ctx)

		rt.Go(ctx, func(ctx context.Context) error {
			conn, _, err := ln.Accept(ctx)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)
			return conn.WriteAll(ctx, []byte("helloworld"))
		})

		conn, err := ringio.DialTCP(ctx, ln.Addr().String())
		if err != nil {
			return err
		}
		defer conn.Close(ctx)

		got := make([]byte, 0, 10)
		buf := make([]byte, 4) // force reads across operation boundaries
		for len(got) < 10 {
			n, err := conn.Read(ctx, buf)
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			got = append(got, buf[:n]...)
		}
		assert.Equal(t, "helloworld", string(got))
		return rt.Wait()
	})
	require.NoError(t, err)
}

func TestUDPRecvFromReportsSender(t *testing.T) {
	rt := newRuntime(t)

	err := rt.Run(context.Background(), func(ctx context.Context) error {
		server, err := ringio.BindUDP(ctx, "127.0.0.1:0")
		if err != nil {
			return err
		}
		defer server.Close(ctx)

		client, err := ringio.DialUDP(ctx, server.LocalAddr().String())
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		if _, err := client.Send(ctx, []byte("abcde")); err != nil {
			return err
		}

		buf := make([]byte, 64)
		n, peer, err := server.RecvFrom(ctx, buf)
		if err != nil {
			return err
		}
		assert.Equal(t, 5, n)
		assert.Equal(t, "abcde", string(buf[:n]))
		assert.Equal(t, client.LocalAddr().String(), peer.String())
		return nil
	})
	require.NoError(t, err)
}

func TestTimeoutOnUnreachableConnect(t *testing.T) {
	rt := newRuntime(t)

	err := rt.Run(context.Background(), func(ctx context.Context) error {
		start := time.Now()
		err := ringio.WithTimeout(ctx, 10*time.Millisecond, func(ctx context.Context) error {
			// Port 1 on loopback: nothing listens there, so this either
			// fails fast with ECONNREFUSED or outlives the deadline.
			_, err := ringio.DialTCP(ctx, "127.0.0.1:1")
			return err
		})
		require.Error(t, err)
		if !ringio.IsKind(err, ringio.KindTimedOut) {
			assert.True(t, ringio.IsKind(err, ringio.KindKernel), "got %v", err)
		}
		assert.Less(t, time.Since(start), 2*time.Second, "must never hang")
		return nil
	})
	require.NoError(t, err)
}

func TestAcceptMultiYieldsConnectsInOrder(t *testing.T) {
	rt := newRuntime(t)

	err := rt.Run(context.Background(), func(ctx context.Context) error {
		ln, err := ringio.ListenTCP(ctx, "127.0.0.1:0")
		if err != nil {
			return err
		}
		defer ln.Close(ctx)

		inbound, err := ln.Incoming(ctx)
		if err != nil {
			return err
		}
		defer inbound.Cancel()

		// Three sequential connects, each identified by one payload byte.
		for i := 0; i < 3; i++ {
			conn, err := ringio.DialTCP(ctx, ln.Addr().String())
			if err != nil {
				return err
			}
			if err := conn.WriteAll(ctx, []byte{byte('a' + i)}); err != nil {
				return err
			}
			if err := conn.Close(ctx); err != nil {
				return err
			}
		}

		for i := 0; i < 3; i++ {
			conn, _, ok, err := inbound.Next(ctx)
			if err != nil {
				return err
			}
			require.True(t, ok)
			buf := make([]byte, 1)
			if _, err := conn.Read(ctx, buf); err != nil {
				return err
			}
			assert.Equal(t, byte('a'+i), buf[0], "connections must arrive in connect order")
			if err := conn.Close(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDropWhilePendingDoesNotLeak(t *testing.T) {
	rt := newRuntime(t)

	err := rt.Run(context.Background(), func(ctx context.Context) error {
		// A receive on an idle socket never completes; the timeout cancels
		// it, leaving the operation parked until the kernel's terminal CQE.
		sock, err := ringio.BindUDP(ctx, "127.0.0.1:0")
		if err != nil {
			return err
		}

		err = ringio.WithTimeout(ctx, 10*time.Millisecond, func(ctx context.Context) error {
			buf := make([]byte, 64)
			_, err := sock.Recv(ctx, buf)
			return err
		})
		assert.True(t, ringio.IsKind(err, ringio.KindTimedOut), "got %v", err)

		if err := sock.Close(ctx); err != nil {
			return err
		}

		// The pool must still have capacity: a fresh socket pair exchanges
		// data through kernel-selected buffers without error.
		for i := 0; i < 3; i++ {
			server, err := ringio.BindUDP(ctx, "127.0.0.1:0")
			if err != nil {
				return err
			}
			client, err := ringio.DialUDP(ctx, server.LocalAddr().String())
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("ping-%d", i)
			if _, err := client.Send(ctx, []byte(msg)); err != nil {
				return err
			}
			buf := make([]byte, 64)
			n, _, err := server.RecvFrom(ctx, buf)
			if err != nil {
				return err
			}
			assert.Equal(t, msg, string(buf[:n]))
			client.Close(ctx)
			server.Close(ctx)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestUnixStreamRoundTrip(t *testing.T) {
	rt := newRuntime(t)

	path := t.TempDir() + "/echo.sock"
	err := rt.Run(context.Background(), func(ctx context.Context) error {
		ln, err := ringio.ListenUnix(ctx, path)
		if err != nil {
			return err
		}
		defer ln.Close(ctx)

		rt.Go(ctx, func(ctx context.Context) error {
			conn, _, err := ln.Accept(ctx)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)
			return conn.WriteAll(ctx, []byte("over unix"))
		})

		conn, err := ringio.DialUnix(ctx, path)
		if err != nil {
			return err
		}
		defer conn.Close(ctx)

		got := make([]byte, 0, 9)
		buf := make([]byte, 16)
		for len(got) < 9 {
			n, err := conn.Read(ctx, buf)
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			got = append(got, buf[:n]...)
		}
		assert.Equal(t, "over unix", string(got))
		return rt.Wait()
	})
	require.NoError(t, err)
}
