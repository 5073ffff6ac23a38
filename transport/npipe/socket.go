/*
Copyright The engine-go Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package npipe emulates a connected stream socket over a Windows named pipe.
//
// A named pipe handle is exclusive and only honors a subset of the socket
// contract: it can be connected, read, written and closed. Operations that
// only make sense for network sockets fail with
// errdef.ErrUnsupportedOperation.
package npipe

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/enginekit/engine-go/errdef"
)

// Network is the network name reported by Addr.
const Network = "npipe"

// Addr is the address of a named pipe.
type Addr struct {
	// Path is the pipe path, e.g. //./pipe/docker_engine.
	Path string
}

// Network returns "npipe".
func (a Addr) Network() string { return Network }

// String returns the pipe path.
func (a Addr) String() string { return a.Path }

type state int

const (
	stateUnconnected state = iota
	stateConnected
	stateClosed
)

// dialFunc opens an exclusive read/write handle to the pipe at path.
// A zero timeout blocks until ctx is done.
type dialFunc func(ctx context.Context, path string, timeout time.Duration) (io.ReadWriteCloser, error)

// Socket is a stream socket backed by one named pipe handle.
// A Socket moves from unconnected to connected to closed and cannot be
// reused once closed.
type Socket struct {
	// connectLock allows at most one connect attempt at a time.
	connectLock sync.Mutex

	// lock guards the fields below.
	lock           sync.Mutex
	state          state
	inputShutdown  bool
	outputShutdown bool
	handle         io.ReadWriteCloser
	addr           Addr

	dial dialFunc
}

// NewSocket returns an unconnected named pipe socket.
func NewSocket() *Socket {
	return &Socket{dial: dialPipe}
}

// Connect opens the pipe identified by addr. timeout must not be negative;
// zero means block until ctx is done.
func (s *Socket) Connect(ctx context.Context, addr net.Addr, timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("connect timeout %v: %w", timeout, errdef.ErrInvalidArgument)
	}
	var pipeAddr Addr
	switch a := addr.(type) {
	case Addr:
		pipeAddr = a
	case *Addr:
		if a == nil {
			return fmt.Errorf("nil pipe address: %w", errdef.ErrUnsupportedAddress)
		}
		pipeAddr = *a
	default:
		return fmt.Errorf("%T: %w", addr, errdef.ErrUnsupportedAddress)
	}

	s.connectLock.Lock()
	defer s.connectLock.Unlock()

	s.lock.Lock()
	current := s.state
	s.lock.Unlock()
	switch current {
	case stateClosed:
		return errdef.ErrClosed
	case stateConnected:
		return errdef.ErrAlreadyConnected
	}

	handle, err := s.dial(ctx, pipeAddr.Path, timeout)
	if err != nil {
		return &net.OpError{Op: "dial", Net: Network, Addr: pipeAddr, Err: err}
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.state == stateClosed {
		// closed while dialing
		handle.Close()
		return errdef.ErrClosed
	}
	s.handle = handle
	s.addr = pipeAddr
	s.state = stateConnected
	return nil
}

// InputStream returns the read side of the socket. Closing the returned
// stream shuts down input without closing the pipe handle.
func (s *Socket) InputStream() (io.ReadCloser, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if s.inputShutdown {
		return nil, fmt.Errorf("input: %w", errdef.ErrShutdown)
	}
	return &inputStream{socket: s}, nil
}

// OutputStream returns the write side of the socket. Closing the returned
// stream shuts down output without closing the pipe handle.
func (s *Socket) OutputStream() (io.WriteCloser, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if s.outputShutdown {
		return nil, fmt.Errorf("output: %w", errdef.ErrShutdown)
	}
	return &outputStream{socket: s}, nil
}

// ShutdownInput marks the read side as shut down.
func (s *Socket) ShutdownInput() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.inputShutdown = true
	return nil
}

// ShutdownOutput marks the write side as shut down.
func (s *Socket) ShutdownOutput() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.outputShutdown = true
	return nil
}

// Close closes the pipe handle and shuts down both directions.
// Close is valid in any state and calling it again is a no-op.
func (s *Socket) Close() error {
	s.lock.Lock()
	if s.state == stateClosed {
		s.lock.Unlock()
		return nil
	}
	s.state = stateClosed
	s.inputShutdown = true
	s.outputShutdown = true
	handle := s.handle
	s.lock.Unlock()

	if handle == nil {
		return nil
	}
	return handle.Close()
}

// IsConnected reports whether the socket has been connected, even if it
// has been closed since.
func (s *Socket) IsConnected() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.handle != nil
}

// IsClosed reports whether the socket is closed.
func (s *Socket) IsClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state == stateClosed
}

// IsInputShutdown reports whether the read side is shut down.
func (s *Socket) IsInputShutdown() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.inputShutdown
}

// IsOutputShutdown reports whether the write side is shut down.
func (s *Socket) IsOutputShutdown() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.outputShutdown
}

// RemoteAddr returns the connected pipe address, or nil if the socket was
// never connected.
func (s *Socket) RemoteAddr() net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.handle == nil {
		return nil
	}
	return s.addr
}

// Bind is not supported by named pipes.
func (s *Socket) Bind(net.Addr) error {
	return unsupported("bind")
}

// SendBufferSize is not supported by named pipes.
func (s *Socket) SendBufferSize() (int, error) {
	return 0, unsupported("get send buffer size")
}

// SetSendBufferSize is not supported by named pipes.
func (s *Socket) SetSendBufferSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("send buffer size %d: %w", size, errdef.ErrInvalidArgument)
	}
	return unsupported("set send buffer size")
}

// ReceiveBufferSize is not supported by named pipes.
func (s *Socket) ReceiveBufferSize() (int, error) {
	return 0, unsupported("get receive buffer size")
}

// SetReceiveBufferSize is not supported by named pipes.
func (s *Socket) SetReceiveBufferSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("receive buffer size %d: %w", size, errdef.ErrInvalidArgument)
	}
	return unsupported("set receive buffer size")
}

// TrafficClass is not supported by named pipes.
func (s *Socket) TrafficClass() (int, error) {
	return 0, unsupported("get traffic class")
}

// ReuseAddress is not supported by named pipes.
func (s *Socket) ReuseAddress() (bool, error) {
	return false, unsupported("get reuse address")
}

// checkOpen requires the connected state. The caller must hold s.lock.
func (s *Socket) checkOpen() error {
	switch s.state {
	case stateClosed:
		return errdef.ErrClosed
	case stateUnconnected:
		return errdef.ErrNotConnected
	}
	return nil
}

func (s *Socket) read(p []byte) (int, error) {
	s.lock.Lock()
	if s.state == stateClosed {
		s.lock.Unlock()
		return 0, errdef.ErrClosed
	}
	if s.inputShutdown {
		s.lock.Unlock()
		return 0, io.EOF
	}
	handle := s.handle
	s.lock.Unlock()
	return handle.Read(p)
}

func (s *Socket) write(p []byte) (int, error) {
	s.lock.Lock()
	if s.state == stateClosed {
		s.lock.Unlock()
		return 0, errdef.ErrClosed
	}
	if s.outputShutdown {
		s.lock.Unlock()
		return 0, fmt.Errorf("output: %w", errdef.ErrShutdown)
	}
	handle := s.handle
	s.lock.Unlock()
	return handle.Write(p)
}

func unsupported(op string) error {
	return fmt.Errorf("%s on named pipe: %w", op, errdef.ErrUnsupportedOperation)
}

type inputStream struct {
	socket *Socket
}

func (in *inputStream) Read(p []byte) (int, error) {
	return in.socket.read(p)
}

func (in *inputStream) Close() error {
	in.socket.lock.Lock()
	defer in.socket.lock.Unlock()
	in.socket.inputShutdown = true
	return nil
}

type outputStream struct {
	socket *Socket
}

func (out *outputStream) Write(p []byte) (int, error) {
	return out.socket.write(p)
}

func (out *outputStream) Close() error {
	out.socket.lock.Lock()
	defer out.socket.lock.Unlock()
	out.socket.outputShutdown = true
	return nil
}
