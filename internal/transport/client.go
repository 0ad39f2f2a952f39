package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const defaultTimeout = 5 * time.Second

// Client is a Modbus TCP master for one gateway endpoint. A single TCP
// connection is kept open and reused; requests are serialized so responses
// can never interleave. All SolarEdge devices behind the gateway share this
// client, addressed by unit ID.
type Client struct {
	addr    string
	timeout time.Duration
	log     *slog.Logger

	mu   sync.Mutex
	conn net.Conn
	tid  uint16
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request deadline used when the caller's context
// has none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger routes frame-level debug logging.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient returns a client for addr (host:port). No connection is made
// until the first request or an explicit Connect.
func NewClient(addr string, opts ...Option) *Client {
	c := &Client{
		addr:    addr,
		timeout: defaultTimeout,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Addr returns the gateway endpoint.
func (c *Client) Addr() string { return c.addr }

// Connect dials the gateway eagerly so startup can fail fast on a bad
// endpoint. Safe to skip; requests dial on demand.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	return c.dial(ctx)
}

// Close tears down the connection. A later request will reconnect.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drop()
}

// ReadHoldingRegisters issues function 0x03 for count registers starting at
// address, on behalf of unitID. Count must not exceed MaxReadRegisters;
// larger spans are split by the caller.
func (c *Client) ReadHoldingRegisters(ctx context.Context, unitID byte, address, count uint16) ([]uint16, error) {
	if count == 0 || count > MaxReadRegisters {
		return nil, &Error{Addr: c.addr, Op: "read",
			Err: fmt.Errorf("register count %d outside 1..%d", count, MaxReadRegisters)}
	}
	req := []byte{byte(address >> 8), byte(address), byte(count >> 8), byte(count)}
	data, err := c.roundTrip(ctx, unitID, funcReadHolding, req)
	if err != nil {
		return nil, err
	}
	if len(data) < 1 || int(data[0]) != len(data)-1 || len(data)-1 != int(count)*2 {
		return nil, &Error{Addr: c.addr, Op: "read",
			Err: fmt.Errorf("malformed read response of %d bytes for %d registers", len(data), count)}
	}
	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = uint16(data[1+2*i])<<8 | uint16(data[2+2*i])
	}
	return regs, nil
}

// WriteRegister issues function 0x06 for a single register.
func (c *Client) WriteRegister(ctx context.Context, unitID byte, address, value uint16) error {
	req := []byte{byte(address >> 8), byte(address), byte(value >> 8), byte(value)}
	data, err := c.roundTrip(ctx, unitID, funcWriteRegister, req)
	if err != nil {
		return err
	}
	if len(data) != 4 {
		return &Error{Addr: c.addr, Op: "write",
			Err: fmt.Errorf("malformed write echo of %d bytes", len(data))}
	}
	return nil
}

// WriteRegisters issues function 0x10 for a contiguous block.
func (c *Client) WriteRegisters(ctx context.Context, unitID byte, address uint16, values []uint16) error {
	if len(values) == 0 || len(values) > 123 {
		return &Error{Addr: c.addr, Op: "write",
			Err: fmt.Errorf("register count %d outside 1..123", len(values))}
	}
	req := make([]byte, 5+2*len(values))
	req[0] = byte(address >> 8)
	req[1] = byte(address)
	req[2] = byte(len(values) >> 8)
	req[3] = byte(len(values))
	req[4] = byte(2 * len(values))
	for i, v := range values {
		req[5+2*i] = byte(v >> 8)
		req[6+2*i] = byte(v)
	}
	data, err := c.roundTrip(ctx, unitID, funcWriteRegisters, req)
	if err != nil {
		return err
	}
	if len(data) != 4 {
		return &Error{Addr: c.addr, Op: "write",
			Err: fmt.Errorf("malformed write echo of %d bytes", len(data))}
	}
	return nil
}

// roundTrip serializes one request/response exchange. On an I/O failure the
// connection is dropped, redialed once, and the request retried; a second
// failure is returned to the caller, who retries no sooner than its next
// poll cycle.
func (c *Client) roundTrip(ctx context.Context, unitID, function byte, pdu []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dial(ctx); err != nil {
			return nil, err
		}
	}

	data, err := c.exchange(ctx, unitID, function, pdu)
	if err == nil {
		return data, nil
	}
	var ex *ExceptionError
	if errors.As(err, &ex) {
		return nil, ex
	}

	// One reconnect attempt, then give up until the next cycle.
	c.log.Debug("reconnecting gateway", "addr", c.addr, "error", err)
	_ = c.drop()
	if derr := c.dial(ctx); derr != nil {
		return nil, derr
	}
	data, err = c.exchange(ctx, unitID, function, pdu)
	if err != nil {
		if errors.As(err, &ex) {
			return nil, ex
		}
		_ = c.drop()
		return nil, err
	}
	return data, nil
}

// exchange runs a single framed request on the open connection.
// Caller holds the mutex.
func (c *Client) exchange(ctx context.Context, unitID, function byte, pdu []byte) ([]byte, error) {
	c.tid++
	req := &adu{transactionID: c.tid, unitID: unitID, function: function, data: pdu}
	raw, err := req.encode()
	if err != nil {
		return nil, &Error{Addr: c.addr, Op: "encode", Err: err}
	}

	if err := c.conn.SetDeadline(c.deadline(ctx)); err != nil {
		return nil, &Error{Addr: c.addr, Op: "send", Err: err}
	}
	if _, err := c.conn.Write(raw); err != nil {
		return nil, &Error{Addr: c.addr, Op: "send", Err: err}
	}

	header := make([]byte, 6)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return nil, &Error{Addr: c.addr, Op: "recv", Err: err}
	}
	length := int(header[4])<<8 | int(header[5])
	if length < 2 || 6+length > aduMaxSize {
		return nil, &Error{Addr: c.addr, Op: "recv",
			Err: fmt.Errorf("frame length %d out of range", length)}
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, &Error{Addr: c.addr, Op: "recv", Err: err}
	}

	resp, err := req.decodeResponse(header, payload)
	if err != nil {
		if ex, ok := err.(*ExceptionError); ok {
			return nil, ex
		}
		return nil, &Error{Addr: c.addr, Op: "recv", Err: err}
	}
	return resp.data, nil
}

func (c *Client) dial(ctx context.Context) error {
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return &Error{Addr: c.addr, Op: "connect", Err: err}
	}
	c.conn = conn
	return nil
}

func (c *Client) drop() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(c.timeout)
}
