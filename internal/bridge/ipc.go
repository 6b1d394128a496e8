package bridge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

const commandTimeout = 2 * time.Second

// ipcMessage is one newline-delimited JSON message from mpv: either a
// command response (request_id set) or an asynchronous event.
type ipcMessage struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Name      string          `json:"name"`
}

// ipcConn is a JSON IPC connection to one mpv process.
type ipcConn struct {
	conn    net.Conn
	onEvent func(ipcMessage)

	mu      sync.Mutex
	pending map[int64]chan ipcMessage
	nextID  int64
	closed  bool

	done chan struct{}
}

// newIPCConn wraps conn and starts the read loop. Asynchronous events
// are delivered to onEvent in the read loop goroutine.
func newIPCConn(conn net.Conn, onEvent func(ipcMessage)) *ipcConn {
	c := &ipcConn{
		conn:    conn,
		onEvent: onEvent,
		pending: make(map[int64]chan ipcMessage),
		nextID:  1,
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *ipcConn) readLoop() {
	defer c.shutdown()
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.RequestID != 0 {
			c.mu.Lock()
			ch := c.pending[msg.RequestID]
			delete(c.pending, msg.RequestID)
			c.mu.Unlock()
			if ch != nil {
				ch <- msg
			}
			continue
		}
		if msg.Event != "" && c.onEvent != nil {
			c.onEvent(msg)
		}
	}
}

// shutdown fails all pending commands and marks the connection dead.
func (c *ipcConn) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[int64]chan ipcMessage)
	c.mu.Unlock()

	close(c.done)
	for _, ch := range pending {
		close(ch)
	}
}

// Done is closed when the connection is lost.
func (c *ipcConn) Done() <-chan struct{} { return c.done }

// Close tears the connection down.
func (c *ipcConn) Close() error {
	err := c.conn.Close()
	c.shutdown()
	return err
}

// command sends an mpv command and waits for its response.
func (c *ipcConn) command(args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("ipc: connection closed")
	}
	id := c.nextID
	c.nextID++
	ch := make(chan ipcMessage, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := struct {
		Command   []any `json:"command"`
		RequestID int64 `json:"request_id"`
	}{Command: args, RequestID: id}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("ipc: connection closed")
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("ipc: %s", msg.Error)
		}
		return msg.Data, nil
	case <-time.After(commandTimeout):
		c.forget(id)
		return nil, fmt.Errorf("ipc: command timed out")
	}
}

func (c *ipcConn) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// setProperty sets an mpv property, ignoring the response payload.
func (c *ipcConn) setProperty(name string, value any) error {
	_, err := c.command("set_property", name, value)
	return err
}

// getFloat reads a numeric property, 0 when unset or on error.
func (c *ipcConn) getFloat(name string) float64 {
	data, err := c.command("get_property", name)
	if err != nil {
		return 0
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0
	}
	return v
}

// observe subscribes to property-change events for name.
func (c *ipcConn) observe(id int64, name string) error {
	_, err := c.command("observe_property", id, name)
	return err
}
