// Package inspector implements a minimal client for the JSON inspector
// protocol spoken by JavaScript runtimes over a websocket.
//
// Only the pieces needed to place URL-regex breakpoints and observe parsed
// scripts are covered. Requests carry an incrementing id; responses are
// routed back to the waiting caller and everything else is treated as an
// event and dispatched by method name.
package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultWriteTimeout bounds a single websocket write.
const DefaultWriteTimeout = 10 * time.Second

// ErrClientClosed is returned by calls made after Close.
var ErrClientClosed = errors.New("inspector client is closed")

// ProtocolError is an error reported by the remote inspector.
type ProtocolError struct {
	Method  string
	Code    int64
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s (code %d)", e.Method, e.Message, e.Code)
}

// Option configures Dial.
type Option func(*options)

type options struct {
	dialer       *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithHeader adds headers to the websocket handshake.
func WithHeader(h http.Header) Option {
	return func(o *options) {
		o.header = h
	}
}

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// Client is a connection to an inspector endpoint.
type Client struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex

	seq       atomic.Int64
	pending   map[int64]*pendingCall
	pendingMu sync.Mutex

	handlers  map[string][]func(gjson.Result)
	handlerMu sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
	err       error
	errMu     sync.RWMutex
	wg        sync.WaitGroup
}

type pendingCall struct {
	method    string
	done      chan struct{}
	closeOnce sync.Once
	result    gjson.Result
	err       error
}

func (p *pendingCall) finish(result gjson.Result, err error) {
	p.closeOnce.Do(func() {
		p.result = result
		p.err = err
		close(p.done)
	})
}

// Dial connects to the inspector at wsURL, typically a URL returned by
// endpoint.AllocateEndpoint.
func Dial(ctx context.Context, wsURL string, opts ...Option) (*Client, error) {
	o := options{
		dialer:       websocket.DefaultDialer,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	conn, _, err := o.dialer.DialContext(ctx, wsURL, o.header)
	if err != nil {
		return nil, fmt.Errorf("dial inspector %s: %w", wsURL, err)
	}

	c := &Client{
		conn:         conn,
		writeTimeout: o.writeTimeout,
		pending:      make(map[int64]*pendingCall),
		handlers:     make(map[string][]func(gjson.Result)),
		done:         make(chan struct{}),
	}
	c.wg.Add(1)
	go c.readLoop()
	return c, nil
}

// Close closes the connection. Pending calls fail with ErrClientClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
		c.wg.Wait()
		c.failPending(ErrClientClosed)
	})
	return err
}

// Err returns the error that ended the read loop, if any.
func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

// On registers fn for events with the given method. Handlers run on the
// read goroutine and must not block on Call.
func (c *Client) On(method string, fn func(params gjson.Result)) {
	c.handlerMu.Lock()
	c.handlers[method] = append(c.handlers[method], fn)
	c.handlerMu.Unlock()
}

// Call sends a request and waits for its result.
func (c *Client) Call(ctx context.Context, method string, params any) (gjson.Result, error) {
	select {
	case <-c.done:
		return gjson.Result{}, ErrClientClosed
	default:
	}

	id := c.seq.Add(1)
	msg, err := encodeRequest(id, method, params)
	if err != nil {
		return gjson.Result{}, err
	}

	call := &pendingCall{method: method, done: make(chan struct{})}
	c.pendingMu.Lock()
	c.pending[id] = call
	c.pendingMu.Unlock()

	// The read loop fails pending calls once; a call registered after
	// that would never complete.
	if err := c.Err(); err != nil {
		c.removePending(id)
		return gjson.Result{}, err
	}

	if err := c.write(msg); err != nil {
		c.removePending(id)
		return gjson.Result{}, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.removePending(id)
		return gjson.Result{}, ctx.Err()
	case <-call.done:
		return call.result, call.err
	}
}

func encodeRequest(id int64, method string, params any) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{}`), "id", id)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if msg, err = sjson.SetBytes(msg, "method", method); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	switch p := params.(type) {
	case nil:
	case json.RawMessage:
		msg, err = sjson.SetRawBytes(msg, "params", p)
	default:
		msg, err = sjson.SetBytes(msg, "params", p)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", method, err)
	}
	return msg, nil
}

func (c *Client) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Client) removePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[int64]*pendingCall)
	c.pendingMu.Unlock()

	for _, call := range pending {
		call.finish(gjson.Result{}, err)
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			err = fmt.Errorf("inspector connection: %w", err)
			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()
			c.failPending(err)
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	if !gjson.ValidBytes(data) {
		return
	}
	msg := gjson.ParseBytes(data)

	if id := msg.Get("id"); id.Exists() {
		c.handleResponse(id.Int(), msg)
		return
	}
	if method := msg.Get("method").String(); method != "" {
		c.handleEvent(method, msg.Get("params"))
	}
}

func (c *Client) handleResponse(id int64, msg gjson.Result) {
	c.pendingMu.Lock()
	call, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}

	if e := msg.Get("error"); e.Exists() {
		call.finish(gjson.Result{}, &ProtocolError{
			Method:  call.method,
			Code:    e.Get("code").Int(),
			Message: e.Get("message").String(),
		})
		return
	}
	call.finish(msg.Get("result"), nil)
}

func (c *Client) handleEvent(method string, params gjson.Result) {
	c.handlerMu.RLock()
	handlers := append([]func(gjson.Result){}, c.handlers[method]...)
	c.handlerMu.RUnlock()

	for _, fn := range handlers {
		fn(params)
	}
}
