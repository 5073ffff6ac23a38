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

package npipe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/enginekit/engine-go/errdef"
)

// deadliner is implemented by pipe handles that support I/O deadlines.
type deadliner interface {
	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Dial connects a new socket to the pipe at path and returns it as a
// net.Conn. Each call opens its own exclusive handle.
func Dial(ctx context.Context, path string, timeout time.Duration) (net.Conn, error) {
	s := NewSocket()
	if err := s.Connect(ctx, Addr{Path: path}, timeout); err != nil {
		return nil, err
	}
	return s.Conn()
}

// Conn returns a net.Conn view of a connected socket. Closing the returned
// connection closes the socket.
func (s *Socket) Conn() (net.Conn, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return &conn{socket: s}, nil
}

type conn struct {
	socket *Socket
}

func (c *conn) Read(p []byte) (int, error) {
	return c.socket.read(p)
}

func (c *conn) Write(p []byte) (int, error) {
	return c.socket.write(p)
}

func (c *conn) Close() error {
	return c.socket.Close()
}

func (c *conn) LocalAddr() net.Addr {
	return c.socket.RemoteAddr()
}

func (c *conn) RemoteAddr() net.Addr {
	return c.socket.RemoteAddr()
}

func (c *conn) SetDeadline(t time.Time) error {
	d, err := c.deadliner()
	if err != nil {
		return err
	}
	return d.SetDeadline(t)
}

func (c *conn) SetReadDeadline(t time.Time) error {
	d, err := c.deadliner()
	if err != nil {
		return err
	}
	return d.SetReadDeadline(t)
}

func (c *conn) SetWriteDeadline(t time.Time) error {
	d, err := c.deadliner()
	if err != nil {
		return err
	}
	return d.SetWriteDeadline(t)
}

func (c *conn) deadliner() (deadliner, error) {
	c.socket.lock.Lock()
	defer c.socket.lock.Unlock()
	if c.socket.state == stateClosed {
		return nil, errdef.ErrClosed
	}
	d, ok := c.socket.handle.(deadliner)
	if !ok {
		return nil, fmt.Errorf("deadline on %T: %w", c.socket.handle, errdef.ErrUnsupportedOperation)
	}
	return d, nil
}
