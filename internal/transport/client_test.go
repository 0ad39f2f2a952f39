package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// fakeSlave accepts connections and answers each request through handle.
// handle receives the unit ID, function code and PDU data and returns the
// response function code and data; returning function 0 drops the
// connection instead of answering.
type fakeSlave struct {
	ln     net.Listener
	handle func(unit, function byte, data []byte) (byte, []byte)
}

func startFakeSlave(t *testing.T, handle func(unit, function byte, data []byte) (byte, []byte)) *fakeSlave {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSlave{ln: ln, handle: handle}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeSlave) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serveConn(conn)
	}
}

func (s *fakeSlave) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		header := make([]byte, 6)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		length := int(header[4])<<8 | int(header[5])
		payload := make([]byte, length)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		fn, data := s.handle(payload[0], payload[1], payload[2:])
		if fn == 0 {
			return
		}
		resp := make([]byte, 6+2+len(data))
		copy(resp, header[:4])
		respLen := 2 + len(data)
		resp[4] = byte(respLen >> 8)
		resp[5] = byte(respLen)
		resp[6] = payload[0]
		resp[7] = fn
		copy(resp[8:], data)
		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

func readResponse(regs []uint16) []byte {
	data := make([]byte, 1+2*len(regs))
	data[0] = byte(2 * len(regs))
	for i, r := range regs {
		data[1+2*i] = byte(r >> 8)
		data[2+2*i] = byte(r)
	}
	return data
}

func TestReadHoldingRegisters(t *testing.T) {
	var gotUnit byte
	var gotAddr, gotCount uint16
	slave := startFakeSlave(t, func(unit, fn byte, data []byte) (byte, []byte) {
		gotUnit = unit
		gotAddr = uint16(data[0])<<8 | uint16(data[1])
		gotCount = uint16(data[2])<<8 | uint16(data[3])
		regs := make([]uint16, gotCount)
		for i := range regs {
			regs[i] = gotAddr + uint16(i)
		}
		return fn, readResponse(regs)
	})

	c := NewClient(slave.ln.Addr().String(), WithTimeout(2*time.Second))
	defer c.Close()

	regs, err := c.ReadHoldingRegisters(context.Background(), 5, 40000, 4)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gotUnit != 5 || gotAddr != 40000 || gotCount != 4 {
		t.Fatalf("request not framed as sent: unit=%d addr=%d count=%d", gotUnit, gotAddr, gotCount)
	}
	want := []uint16{40000, 40001, 40002, 40003}
	for i, r := range regs {
		if r != want[i] {
			t.Fatalf("register %d: got %d, want %d", i, r, want[i])
		}
	}
}

func TestReadCountLimit(t *testing.T) {
	c := NewClient("127.0.0.1:1") // never dialed
	if _, err := c.ReadHoldingRegisters(context.Background(), 1, 0, 126); err == nil {
		t.Fatal("expected error for count above the single-read limit")
	}
	if _, err := c.ReadHoldingRegisters(context.Background(), 1, 0, 0); err == nil {
		t.Fatal("expected error for zero count")
	}
}

func TestExceptionResponse(t *testing.T) {
	slave := startFakeSlave(t, func(unit, fn byte, data []byte) (byte, []byte) {
		return fn | 0x80, []byte{ExceptionIllegalDataAddress}
	})

	c := NewClient(slave.ln.Addr().String(), WithTimeout(2*time.Second))
	defer c.Close()

	_, err := c.ReadHoldingRegisters(context.Background(), 1, 57348, 14)
	var ex *ExceptionError
	if !errors.As(err, &ex) {
		t.Fatalf("want ExceptionError, got %v", err)
	}
	if ex.Code != ExceptionIllegalDataAddress || ex.Function != 0x03 {
		t.Fatalf("unexpected exception contents: %+v", ex)
	}
	if !IsIllegalAddress(err) {
		t.Fatal("IsIllegalAddress should match")
	}
}

func TestWriteRegisterEcho(t *testing.T) {
	slave := startFakeSlave(t, func(unit, fn byte, data []byte) (byte, []byte) {
		return fn, data[:4]
	})

	c := NewClient(slave.ln.Addr().String(), WithTimeout(2*time.Second))
	defer c.Close()

	if err := c.WriteRegister(context.Background(), 1, 57348, 4); err != nil {
		t.Fatalf("write single: %v", err)
	}
	if err := c.WriteRegisters(context.Background(), 1, 57350, []uint16{0x0000, 0x461C}); err != nil {
		t.Fatalf("write multiple: %v", err)
	}
}

func TestReconnectOnce(t *testing.T) {
	var calls int
	slave := startFakeSlave(t, func(unit, fn byte, data []byte) (byte, []byte) {
		calls++
		if calls == 1 {
			return 0, nil // drop the connection mid-exchange
		}
		return fn, readResponse([]uint16{7})
	})

	c := NewClient(slave.ln.Addr().String(), WithTimeout(2*time.Second))
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	regs, err := c.ReadHoldingRegisters(context.Background(), 1, 100, 1)
	if err != nil {
		t.Fatalf("read after reconnect: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one retry, slave saw %d requests", calls)
	}
	if regs[0] != 7 {
		t.Fatalf("got %d, want 7", regs[0])
	}
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := NewClient(addr, WithTimeout(500*time.Millisecond))
	_, err = c.ReadHoldingRegisters(context.Background(), 1, 0, 1)
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("want transport Error, got %v", err)
	}
	if te.Op != "connect" {
		t.Fatalf("want connect failure, got op %q", te.Op)
	}
}

func TestTransactionIDMismatch(t *testing.T) {
	// A slave that garbles the transaction ID should fail verification on
	// both the first exchange and the reconnect retry.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				for {
					header := make([]byte, 6)
					if _, err := io.ReadFull(conn, header); err != nil {
						return
					}
					length := int(header[4])<<8 | int(header[5])
					payload := make([]byte, length)
					if _, err := io.ReadFull(conn, payload); err != nil {
						return
					}
					resp := []byte{0xDE, 0xAD, 0, 0, 0, 5, payload[0], payload[1], 2, 0, 1}
					if _, err := conn.Write(resp); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	c := NewClient(ln.Addr().String(), WithTimeout(time.Second))
	defer c.Close()
	if _, err := c.ReadHoldingRegisters(context.Background(), 1, 0, 1); err == nil {
		t.Fatal("expected transaction id verification to fail")
	}
}
