package ftp

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// TransferType selects how file bytes cross the data channel.
type TransferType string

const (
	// TypeBinary transfers bytes exactly as stored (TYPE I).
	TypeBinary TransferType = "I"

	// TypeASCII transfers through UTF-8 text framing with CRLF line
	// endings on the wire (TYPE A).
	TypeASCII TransferType = "A"
)

// Client represents an FTP session. A Client moves through three states:
// disconnected (no control socket), connected (greeting read, not yet
// authenticated) and ready (after Login). Any unrecovered I/O fault on the
// control socket demotes the session to disconnected; further commands fail
// with ErrNotConnected until a new session is dialed.
type Client struct {
	// conn is the control channel; nil means disconnected
	conn net.Conn

	// reader is a buffered reader over the control channel
	reader *bufio.Reader

	// timeout bounds dialing and every control-channel read/write;
	// data sockets inherit it as a rolling deadline
	timeout time.Duration

	// logger is used for protocol-level debug logging
	logger *slog.Logger

	// dialer is used to establish the control and passive data connections
	dialer *net.Dialer

	// host and port of the server
	host string
	port string

	// activeMode selects PORT negotiation instead of PASV
	activeMode bool

	// transferType is the session default, applied by SetTransferType
	transferType TransferType

	// bufSize bounds the chunk size of streamed transfers
	bufSize int

	// greeting is the 220 reply read when the session was opened
	greeting *Reply

	// mu serializes command/reply exchanges on the control channel
	mu sync.Mutex
}

// Dial connects to an FTP server at the given "host:port" address, reads the
// greeting and returns a connected (but not yet authenticated) session.
//
// Example:
//
//	client, err := ftp.Dial("ftp.example.com:21", ftp.WithTimeout(10*time.Second))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
func Dial(addr string, options ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	c := &Client{
		host:         host,
		port:         port,
		timeout:      30 * time.Second,
		dialer:       &net.Dialer{},
		logger:       slog.New(slog.NewTextHandler(nil, &slog.HandlerOptions{Level: slog.LevelError + 1})), // No-op logger by default
		transferType: TypeBinary,
		bufSize:      32 * 1024,
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	c.dialer.Timeout = c.timeout

	conn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, &ConnError{Op: "dial", Addr: addr, Err: err}
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)

	// The server speaks first: read and keep the greeting
	if c.timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			conn.Close()
			return nil, &ConnError{Op: "greeting", Addr: addr, Err: err}
		}
	}

	rep, err := readReply(c.reader)
	if err != nil {
		conn.Close()
		return nil, &ConnError{Op: "greeting", Addr: addr, Err: err}
	}

	c.logger.Debug("ftp greeting", "code", rep.Code, "text", rep.Text)

	if rep.Code != 220 {
		conn.Close()
		return nil, &ServerError{Command: "CONNECT", Reply: rep}
	}
	c.greeting = rep

	return c, nil
}

// Greeting returns the text of the welcome reply the server sent when the
// session was opened.
func (c *Client) Greeting() string {
	if c.greeting == nil {
		return ""
	}
	return c.greeting.Text
}

// Connected reports whether the control channel is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Login authenticates with the server using the two-step USER/PASS exchange
// and returns the text of the final reply. A 5xx reply (e.g. bad credentials)
// surfaces as a permanent *ServerError, a 4xx as a transient one.
func (c *Client) Login(username, password string) (string, error) {
	rep, err := c.cmd("USER", username)
	if err != nil {
		return "", err
	}

	// Some servers log anonymous users in without a password
	if rep.Code == 230 {
		return rep.Text, nil
	}

	if rep.Code != 331 {
		return "", &ServerError{Command: "USER", Reply: rep}
	}

	rep, err = c.cmd("PASS", password)
	if err != nil {
		return "", err
	}

	if rep.Code != 230 {
		return "", &ServerError{Command: "PASS", Reply: rep}
	}

	return rep.Text, nil
}

// Quit sends the QUIT command, reads its reply best-effort and releases the
// control socket unconditionally, even if the server never answers or the
// write fails. After Quit the session is disconnected.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	// Best effort; a half-dead connection must not leak the descriptor
	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	if _, err := fmt.Fprintf(c.conn, "QUIT\r\n"); err == nil {
		_, _ = readReply(c.reader)
	}

	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// Noop sends a NOOP command. Useful to probe whether the control connection
// is still alive.
func (c *Client) Noop() error {
	_, err := c.expect2xx("NOOP")
	return err
}

// SetPassive selects between passive (PASV, the default) and active (PORT)
// data channel negotiation for subsequent operations.
func (c *Client) SetPassive(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeMode = !on
}

// SetTransferType sets the session's default transfer type. If the session is
// connected, the TYPE command is sent immediately; otherwise only the local
// state changes and the type is applied on the next negotiation.
func (c *Client) SetTransferType(t TransferType) error {
	if t != TypeBinary && t != TypeASCII {
		return fmt.Errorf("ftp: unsupported transfer type %q", t)
	}

	c.mu.Lock()
	c.transferType = t
	connected := c.conn != nil
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.setType(t)
}

// setType sends the TYPE command for the given transfer type.
func (c *Client) setType(t TransferType) error {
	_, err := c.expect2xx("TYPE", string(t))
	return err
}
