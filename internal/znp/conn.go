package znp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Default link settings.
const (
	DefaultBaudRate       = 115200
	DefaultRequestTimeout = 6 * time.Second

	// skipBootloader is written after opening the port; CC2652 sticks
	// otherwise sit in the serial bootloader for several seconds.
	skipBootloader = 0xef
)

// Config describes how to reach the coprocessor.
type Config struct {
	// Port is a serial device path or "tcp://host:port".
	Port           string
	BaudRate       int
	RequestTimeout time.Duration
	SkipBootloader bool
}

// Logger is the logging surface the package needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Conn is an MT link to a Z-Stack coprocessor.
type Conn struct {
	rw      io.ReadWriteCloser
	reader  *bufio.Reader
	logger  Logger
	timeout time.Duration

	// sreqMu admits one synchronous request at a time.
	sreqMu  sync.Mutex
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   *pendingRequest

	handlerMu sync.RWMutex
	handlers  map[CommandID][]func(Frame)

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type pendingRequest struct {
	want CommandID
	ch   chan Frame
}

// Open dials the coprocessor described by cfg.
func Open(ctx context.Context, cfg Config, logger Logger) (*Conn, error) {
	if cfg.Port == "" {
		return nil, errors.New("znp: port is required")
	}

	var rw io.ReadWriteCloser
	if addr, ok := strings.CutPrefix(cfg.Port, "tcp://"); ok {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("znp: dial %s: %w", addr, err)
		}
		rw = conn
	} else {
		baud := cfg.BaudRate
		if baud == 0 {
			baud = DefaultBaudRate
		}
		port, err := serial.Open(cfg.Port, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("znp: open %s: %w", cfg.Port, err)
		}
		_ = port.SetDTR(false) //nolint:errcheck // not every adapter wires DTR
		_ = port.SetRTS(false) //nolint:errcheck // not every adapter wires RTS
		rw = port
	}

	c := NewConn(rw, cfg, logger)
	if cfg.SkipBootloader {
		c.writeMu.Lock()
		_, err := rw.Write([]byte{skipBootloader})
		c.writeMu.Unlock()
		if err != nil {
			c.Close() //nolint:errcheck // returning the write error
			return nil, fmt.Errorf("znp: skip bootloader: %w", err)
		}
	}
	return c, nil
}

// NewConn wraps an already open link and starts its read loop.
func NewConn(rw io.ReadWriteCloser, cfg Config, logger Logger) *Conn {
	if logger == nil {
		logger = nopLogger{}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	c := &Conn{
		rw:       rw,
		reader:   bufio.NewReader(rw),
		logger:   logger,
		timeout:  timeout,
		handlers: make(map[CommandID][]func(Frame)),
		done:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.readLoop()
	return c
}

// Request sends a synchronous request and waits for its response.
//
// The request is bounded by ctx and by the link's request timeout,
// whichever ends first.
func (c *Conn) Request(ctx context.Context, cmd CommandID, data []byte) (Frame, error) {
	if cmd.Type() != TypeSREQ {
		return Frame{}, fmt.Errorf("znp: %s is not a synchronous request", cmd)
	}

	c.sreqMu.Lock()
	defer c.sreqMu.Unlock()

	p := &pendingRequest{want: cmd.Response(), ch: make(chan Frame, 1)}
	c.pendingMu.Lock()
	c.pending = p
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		if c.pending == p {
			c.pending = nil
		}
		c.pendingMu.Unlock()
	}()

	if err := c.write(Frame{Command: cmd, Data: data}); err != nil {
		return Frame{}, err
	}
	c.logger.Debug("znp request", "cmd", cmd.String(), "len", len(data))

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case f, ok := <-p.ch:
		if !ok {
			return Frame{}, ErrClosed
		}
		return f, nil
	case <-timer.C:
		c.logger.Warn("znp request timed out", "cmd", cmd.String(), "timeout", c.timeout)
		return Frame{}, fmt.Errorf("%w: %s", ErrTimeout, cmd)
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-c.done:
		return Frame{}, ErrClosed
	}
}

// Send writes an asynchronous request.
func (c *Conn) Send(cmd CommandID, data []byte) error {
	if cmd.Type() != TypeAREQ {
		return fmt.Errorf("znp: %s is not an asynchronous request", cmd)
	}
	return c.write(Frame{Command: cmd, Data: data})
}

// OnAsync registers fn for inbound AREQ frames with id cmd. Callbacks run on
// the read loop and must not call Request.
func (c *Conn) OnAsync(cmd CommandID, fn func(Frame)) {
	c.handlerMu.Lock()
	c.handlers[cmd] = append(c.handlers[cmd], fn)
	c.handlerMu.Unlock()
}

func (c *Conn) write(f Frame) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	raw, err := f.MarshalBinary()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	_, err = c.rw.Write(raw)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("znp: write %s: %w", f.Command, err)
	}
	return nil
}

func (c *Conn) readLoop() {
	defer c.wg.Done()

	backoff := 10 * time.Millisecond
	const maxBackoff = 2 * time.Second

	for {
		select {
		case <-c.done:
			return
		default:
		}

		f, err := ReadFrame(c.reader)
		if err != nil {
			if errors.Is(err, ErrBadChecksum) || errors.Is(err, ErrFrameTooLong) {
				c.logger.Warn("znp dropped frame", "error", err)
				continue
			}
			select {
			case <-c.done:
				return
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.logger.Error("znp link lost", "error", err)
				c.shutdown() //nolint:errcheck // already reporting the read error
				return
			}
			c.logger.Error("znp read error", "error", err)
			select {
			case <-time.After(backoff):
			case <-c.done:
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = 10 * time.Millisecond

		switch f.Command.Type() {
		case TypeSRSP:
			c.deliver(f)
		case TypeAREQ:
			c.dispatchAsync(f)
		default:
			c.logger.Debug("znp ignored frame", "cmd", f.Command.String())
		}
	}
}

func (c *Conn) deliver(f Frame) {
	c.pendingMu.Lock()
	p := c.pending
	if p != nil && p.want == f.Command {
		c.pending = nil
	} else {
		p = nil
	}
	c.pendingMu.Unlock()

	if p == nil {
		c.logger.Warn("znp orphaned response", "cmd", f.Command.String())
		return
	}
	p.ch <- f
}

func (c *Conn) dispatchAsync(f Frame) {
	c.handlerMu.RLock()
	fns := c.handlers[f.Command]
	c.handlerMu.RUnlock()

	if len(fns) == 0 {
		c.logger.Debug("znp unhandled indication", "cmd", f.Command.String())
		return
	}
	for _, fn := range fns {
		fn(f)
	}
}

// Close shuts the link and waits for the read loop to exit.
func (c *Conn) Close() error {
	err := c.shutdown()
	c.wg.Wait()
	return err
}

func (c *Conn) shutdown() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.rw.Close()

		c.pendingMu.Lock()
		if c.pending != nil {
			close(c.pending.ch)
			c.pending = nil
		}
		c.pendingMu.Unlock()
	})
	return err
}

// Done is closed when the link shuts down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
