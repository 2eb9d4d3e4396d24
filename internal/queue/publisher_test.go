package queue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/film-festival/internal/logging"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublisher_DialGivesUpOnSilentBroker(t *testing.T) {
	p := NewPublisher(silentBroker(t), ActivityQueue, logging.Discard())
	p.dialTimeout = 200 * time.Millisecond
	defer func() { _ = p.Close() }()

	start := time.Now()
	err := p.Publish(context.Background(), NewActivity(FilmWatched, start))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPublisher_DialHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t), ActivityQueue, logging.Discard())
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Publish(ctx, NewActivity(FilmWatched, start))
	require.Error(t, err)
	assert.Less(t, time.Since(start), DialTimeout)

	expired, cancel := context.WithDeadline(context.Background(), start)
	defer cancel()
	err = p.Publish(expired, NewActivity(FilmWatched, start))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
