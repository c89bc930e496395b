package fastview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Pending updates are flushed to the page at most this often.
	pubResolution  = time.Millisecond * 100
	pingResolution = time.Millisecond * 500
	// The number of lost pongs tolerated before the peer is considered gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// A client publishes element updates one way to a single page over a
// websocket. Reads are only drained to service control frames.
type client[T any] struct {
	updates <-chan T
	ws      *websock
	rootCtx context.Context
}

// NewClient upgrades the request and returns a client publishing updates.
// Updates should be idempotent: when several arrive within pubResolution
// only the latest is written.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the request.
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	return &client[T]{
		updates: updates,
		ws:      NewWebSocket(ws),
		rootCtx: r.Context(),
	}, nil
}

// errUpdatesClosed ends a sync when the update source is exhausted.
var errUpdatesClosed = errors.New("update source closed")

// Sync publishes updates until the page disconnects, the request context
// ends, or the updates channel closes. Only unexpected failures are returned.
func (cli *client[T]) Sync() error {
	group, groupCtx := errgroup.WithContext(cli.rootCtx)

	group.Go(func() error {
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		return cli.publish(groupCtx)
	})
	// A blocked read only returns once the connection is closed.
	go func() {
		<-groupCtx.Done()
		cli.ws.Close()
	}()

	switch err := group.Wait(); {
	case err == nil,
		errors.Is(err, errUpdatesClosed),
		errors.Is(err, net.ErrClosed),
		isClosure(err):
		return nil
	default:
		return err
	}
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// pingPong checks the page is alive. Pongs are only seen while
// readMessages is running.
func (cli *client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				err = fmt.Errorf("ping failed: %w", err)
			}
			return
		})
}

// readMessages drains the page's messages. Read errors are permanent.
func (cli *client[T]) readMessages(ctx context.Context) error {
	for ctx.Err() == nil {
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				_, _, readErr = ws.ReadMessage()
				return
			})
		if err != nil && !errors.Is(err, ErrSockCongestion) {
			return err
		}
	}
	return nil
}

// publish writes the latest pending update every pubResolution, so a burst
// collapses into its last value and the final update is never lost.
func (cli *client[T]) publish(ctx context.Context) error {
	var (
		pending T
		dirty   bool
	)
	flush := func() error {
		if !dirty {
			return nil
		}
		dirty = false
		return cli.ws.Write(
			ctx,
			func(ws *websocket.Conn) (writeErr error) {
				if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
					return fmt.Errorf("failed to set deadline: %w", writeErr)
				}
				if writeErr = ws.WriteJSON(pending); writeErr != nil {
					writeErr = fmt.Errorf("publish failed: %w", writeErr)
				}
				return
			})
	}

	ticks := channerics.NewTicker(ctx.Done(), pubResolution)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			if !ok {
				if err := flush(); err != nil {
					return err
				}
				return errUpdatesClosed
			}
			pending, dirty = update, true
		case <-ticks:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	semWait          = time.Second
	closeGracePeriod = time.Second
)

// websock serializes reads and writes on the websocket, which allows one
// concurrent reader and one concurrent writer.
type websock struct {
	readSem   chan struct{}
	writeSem  chan struct{}
	ws        *websocket.Conn
	closeOnce chan struct{}
}

func NewWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:   make(chan struct{}, 1),
		writeSem:  make(chan struct{}, 1),
		ws:        ws,
		closeOnce: make(chan struct{}, 1),
	}
}

// Conn returns the underlying websocket, for setup such as adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close frame, waits briefly for writers to finish, and closes
// the connection, which unblocks any pending read. Later calls do nothing.
func (sock *websock) Close() {
	select {
	case sock.closeOnce <- struct{}{}:
	default:
		return
	}

	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		<-sock.writeSem
	case <-time.After(closeGracePeriod):
	}
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(semWait):
		return ErrSockCongestion
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(semWait):
		return ErrSockCongestion
	}
}
