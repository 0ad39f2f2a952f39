// Package simulator implements a Modbus TCP slave that emulates a SolarEdge
// gateway: several unit IDs behind one endpoint, each with its own sparse
// holding-register image. It backs the simulator command and the test suites.
package simulator

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
)

const (
	functionReadHoldingRegs  = 0x03
	functionWriteSingleReg   = 0x06
	functionWriteMultipleReg = 0x10

	exceptionIllegalFunction = 0x01
	exceptionIllegalDataAddr = 0x02
	exceptionIllegalDataVal  = 0x03
)

var (
	errUnmapped      = errors.New("address not mapped")
	errInvalidQty    = errors.New("invalid quantity")
	errInvalidPDULen = errors.New("invalid pdu length")
)

// Server is a minimal Modbus TCP slave serving holding-register reads and
// writes for a set of unit IDs.
type Server struct {
	listener  net.Listener
	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	units map[byte]*Unit
	conns map[net.Conn]struct{}
}

// Unit is the register image for one unit ID. Registers are sparse: reading
// an unmapped address yields an illegal-data-address exception, which is how
// a real gateway answers for blocks a device does not implement.
type Unit struct {
	mu     sync.RWMutex
	regs   map[uint16]uint16
	silent bool
}

// NewServer constructs a server with no units mapped.
func NewServer() *Server {
	return &Server{
		units: make(map[byte]*Unit),
		conns: make(map[net.Conn]struct{}),
		quit:  make(chan struct{}),
	}
}

// AddUnit maps a unit ID and returns its register image.
func (s *Server) AddUnit(id byte) *Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &Unit{regs: make(map[uint16]uint16)}
	s.units[id] = u
	return u
}

func (s *Server) unit(id byte) *Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units[id]
}

// Listen starts accepting Modbus TCP connections on the provided address.
func (s *Server) Listen(address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = l

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			continue
		}

		if !s.trackConn(conn) {
			conn.Close()
			return
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// trackConn registers a live connection so Close can tear it down; a
// connection accepted during shutdown is refused instead.
func (s *Server) trackConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.quit:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrackConn(conn)
	defer conn.Close()

	header := make([]byte, 7)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}

		length := binary.BigEndian.Uint16(header[4:6])
		pduLength := int(length) - 1
		if pduLength <= 0 {
			continue
		}

		unitID := header[6]
		pdu := make([]byte, pduLength)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		response := s.handlePDU(unitID, pdu)
		if len(response) == 0 {
			// Silenced unit: swallow the request so the master times out.
			continue
		}

		binary.BigEndian.PutUint16(header[2:4], 0)
		binary.BigEndian.PutUint16(header[4:6], uint16(len(response)+1))
		header[6] = unitID

		if _, err := conn.Write(header); err != nil {
			return
		}
		if _, err := conn.Write(response); err != nil {
			return
		}
	}
}

func (s *Server) handlePDU(unitID byte, pdu []byte) []byte {
	if len(pdu) == 0 {
		return exceptionResponse(0, exceptionIllegalFunction)
	}
	function := pdu[0]

	u := s.unit(unitID)
	if u == nil {
		return exceptionResponse(function, exceptionIllegalDataAddr)
	}
	if u.silenced() {
		return nil
	}

	switch function {
	case functionReadHoldingRegs:
		data, err := u.readRegisters(pdu)
		if err != nil {
			return exceptionResponse(function, errToCode(err))
		}
		return append([]byte{function, byte(len(data))}, data...)
	case functionWriteSingleReg:
		echo, err := u.writeSingle(pdu)
		if err != nil {
			return exceptionResponse(function, errToCode(err))
		}
		return append([]byte{function}, echo...)
	case functionWriteMultipleReg:
		echo, err := u.writeMultiple(pdu)
		if err != nil {
			return exceptionResponse(function, errToCode(err))
		}
		return append([]byte{function}, echo...)
	default:
		return exceptionResponse(function, exceptionIllegalFunction)
	}
}

func (u *Unit) readRegisters(pdu []byte) ([]byte, error) {
	if len(pdu) < 5 {
		return nil, errInvalidPDULen
	}
	start := binary.BigEndian.Uint16(pdu[1:3])
	quantity := binary.BigEndian.Uint16(pdu[3:5])
	if quantity == 0 || quantity > 125 {
		return nil, errInvalidQty
	}

	u.mu.RLock()
	defer u.mu.RUnlock()

	result := make([]byte, quantity*2)
	for i := 0; i < int(quantity); i++ {
		v, ok := u.regs[start+uint16(i)]
		if !ok {
			return nil, errUnmapped
		}
		binary.BigEndian.PutUint16(result[i*2:(i+1)*2], v)
	}
	return result, nil
}

func (u *Unit) writeSingle(pdu []byte) ([]byte, error) {
	if len(pdu) < 5 {
		return nil, errInvalidPDULen
	}
	addr := binary.BigEndian.Uint16(pdu[1:3])
	value := binary.BigEndian.Uint16(pdu[3:5])

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.regs[addr]; !ok {
		return nil, errUnmapped
	}
	u.regs[addr] = value
	return pdu[1:5], nil
}

func (u *Unit) writeMultiple(pdu []byte) ([]byte, error) {
	if len(pdu) < 6 {
		return nil, errInvalidPDULen
	}
	addr := binary.BigEndian.Uint16(pdu[1:3])
	quantity := binary.BigEndian.Uint16(pdu[3:5])
	byteCount := int(pdu[5])
	if quantity == 0 || quantity > 123 || byteCount != int(quantity)*2 {
		return nil, errInvalidQty
	}
	if len(pdu) < 6+byteCount {
		return nil, errInvalidPDULen
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	for i := 0; i < int(quantity); i++ {
		if _, ok := u.regs[addr+uint16(i)]; !ok {
			return nil, errUnmapped
		}
	}
	for i := 0; i < int(quantity); i++ {
		u.regs[addr+uint16(i)] = binary.BigEndian.Uint16(pdu[6+i*2 : 8+i*2])
	}
	return pdu[1:5], nil
}

func exceptionResponse(function byte, code byte) []byte {
	if function == 0 {
		function = 0x80
	} else {
		function = function | 0x80
	}
	return []byte{function, code}
}

func errToCode(err error) byte {
	switch {
	case errors.Is(err, errUnmapped):
		return exceptionIllegalDataAddr
	case errors.Is(err, errInvalidQty), errors.Is(err, errInvalidPDULen):
		return exceptionIllegalDataVal
	default:
		return exceptionIllegalFunction
	}
}

// Close stops the server, tears down established connections and waits for
// all goroutines to exit. Without the teardown an idle master holding a
// connection would pin its handler in a blocking read forever.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
	})
	s.wg.Wait()
}

// SetRegister maps or updates a single register.
func (u *Unit) SetRegister(address, value uint16) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.regs[address] = value
}

// SetRegisters maps or updates a contiguous block starting at address.
func (u *Unit) SetRegisters(address uint16, values []uint16) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, v := range values {
		u.regs[address+uint16(i)] = v
	}
}

// Register returns the current value at address.
func (u *Unit) Register(address uint16) (uint16, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.regs[address]
	return v, ok
}

// Registers returns count values starting at address; ok is false if any of
// them is unmapped.
func (u *Unit) Registers(address, count uint16) ([]uint16, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]uint16, count)
	for i := range out {
		v, ok := u.regs[address+uint16(i)]
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Silence makes the unit swallow requests without answering, so the master
// runs into its timeout. Used to exercise failure handling.
func (u *Unit) Silence(on bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.silent = on
}

func (u *Unit) silenced() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.silent
}
