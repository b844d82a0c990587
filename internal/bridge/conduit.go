package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Conduit is the single logical call channel to the external worker. A nil
// result with nil error means "no changes, keep the native context".
//
// Implementations must accept concurrent calls without serializing callers
// on submission; responses may arrive in any order across different calls,
// but each call observes only its own response.
type Conduit interface {
	Call(ctx context.Context, wc *WireContext) (*WireResult, error)
}

// ErrConduitClosed reports a call against a closed conduit.
var ErrConduitClosed = errors.New("bridge: conduit closed")

type callFrame struct {
	ID      string       `msgpack:"id"`
	Context *WireContext `msgpack:"context"`
}

type replyFrame struct {
	ID     string      `msgpack:"id"`
	Result *WireResult `msgpack:"result"`
	Err    string      `msgpack:"err"`
}

const sendQueueDepth = 64

// PipeClient frames msgpack calls over a byte stream to one worker. Calls
// are queued to a writer goroutine so many concurrent builds never contend
// on submission; a reader goroutine matches replies to pending calls by id.
type PipeClient struct {
	sendq chan callFrame

	mu      sync.Mutex
	pending map[string]chan replyFrame
	closed  bool
	done    chan struct{}
}

// NewPipeClient starts the writer and reader loops over rw.
func NewPipeClient(rw io.ReadWriter) *PipeClient {
	c := &PipeClient{
		sendq:   make(chan callFrame, sendQueueDepth),
		pending: make(map[string]chan replyFrame),
		done:    make(chan struct{}),
	}
	go c.writeLoop(rw)
	go c.readLoop(rw)
	return c
}

func (c *PipeClient) writeLoop(w io.Writer) {
	enc := msgpack.NewEncoder(w)
	for {
		select {
		case frame := <-c.sendq:
			if err := enc.Encode(&frame); err != nil {
				c.fail()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *PipeClient) readLoop(r io.Reader) {
	dec := msgpack.NewDecoder(r)
	for {
		var frame replyFrame
		if err := dec.Decode(&frame); err != nil {
			c.fail()
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[frame.ID]
		delete(c.pending, frame.ID)
		c.mu.Unlock()
		if ok {
			// Buffered; an abandoned caller simply never reads it.
			ch <- frame
		}
	}
}

// fail wakes every pending caller after a transport error.
func (c *PipeClient) fail() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
}

// Close tears the client down. In-flight calls fail with ErrConduitClosed.
func (c *PipeClient) Close() {
	c.fail()
}

// Call dispatches one request and awaits its reply. Abandoning the call by
// cancelling ctx discards the eventual response; the worker is not
// interrupted mid-flight.
func (c *PipeClient) Call(ctx context.Context, wc *WireContext) (*WireResult, error) {
	id := uuid.NewString()
	ch := make(chan replyFrame, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConduitClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	select {
	case c.sendq <- callFrame{ID: id, Context: wc}:
	case <-ctx.Done():
		c.drop(id)
		return nil, ctx.Err()
	case <-c.done:
		c.drop(id)
		return nil, ErrConduitClosed
	}

	select {
	case frame := <-ch:
		if frame.Err != "" {
			return nil, fmt.Errorf("bridge: worker: %s", frame.Err)
		}
		return frame.Result, nil
	case <-ctx.Done():
		c.drop(id)
		return nil, ctx.Err()
	case <-c.done:
		c.drop(id)
		return nil, ErrConduitClosed
	}
}

func (c *PipeClient) drop(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Handler processes one call on the worker side of a pipe.
type Handler func(*WireContext) (*WireResult, error)

// Serve runs the worker side: decode calls, handle each on its own
// goroutine (the worker owns its internal concurrency), and write replies
// in completion order. Returns when the stream ends or ctx is cancelled.
func Serve(ctx context.Context, rw io.ReadWriter, handler Handler) error {
	dec := msgpack.NewDecoder(rw)
	enc := msgpack.NewEncoder(rw)
	var writeMu sync.Mutex

	for {
		var frame callFrame
		if err := dec.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func(frame callFrame) {
			reply := replyFrame{ID: frame.ID}
			result, err := handler(frame.Context)
			if err != nil {
				reply.Err = err.Error()
			} else {
				reply.Result = result
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = enc.Encode(&reply)
		}(frame)
	}
}
