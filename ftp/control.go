package ftp

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reply represents a complete FTP server reply.
type Reply struct {
	// Code is the three-digit reply code (e.g. 220, 550)
	Code int

	// MultiLine is true when the reply spanned more than one line
	MultiLine bool

	// Text is the human-readable reply text. For multi-line replies the
	// code prefixes are stripped and the lines joined with "\n".
	Text string
}

// Is2xx returns true if the reply code is in the 2xx range (success).
func (r *Reply) Is2xx() bool {
	return r.Code >= 200 && r.Code < 300
}

// Is3xx returns true if the reply code is in the 3xx range (intermediate).
func (r *Reply) Is3xx() bool {
	return r.Code >= 300 && r.Code < 400
}

// Is4xx returns true if the reply code is in the 4xx range (transient failure).
func (r *Reply) Is4xx() bool {
	return r.Code >= 400 && r.Code < 500
}

// Is5xx returns true if the reply code is in the 5xx range (permanent failure).
func (r *Reply) Is5xx() bool {
	return r.Code >= 500 && r.Code < 600
}

// readReply reads one complete FTP reply from the reader.
//
// Single-line format: "220 Welcome\r\n"
// Multi-line format:
//
//	"220-Welcome to FTP\r\n"
//	"220-This is line 2\r\n"
//	"220 Ready\r\n"
//
// Intermediate lines usually repeat the code followed by a hyphen, but some
// servers emit RFC 2389 space-continuations or bare text; all three forms are
// tolerated. The reply is complete only when a line starts with the opening
// code followed by a space.
func readReply(r *bufio.Reader) (*Reply, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}

	line = strings.TrimRight(line, "\r\n")
	if len(line) < 4 {
		return nil, &SyntaxError{What: "reply", Raw: line}
	}

	code, err := strconv.Atoi(line[0:3])
	if err != nil || code < 100 || code > 599 {
		return nil, &SyntaxError{What: "reply code", Raw: line}
	}

	// Common single-line case
	if line[3] == ' ' {
		return &Reply{
			Code: code,
			Text: line[4:],
		}, nil
	}

	if line[3] != '-' {
		return nil, &SyntaxError{What: "reply", Raw: line}
	}

	texts := []string{line[4:]}
	terminator := fmt.Sprintf("%03d ", code)
	for {
		line, err = r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, terminator) {
			texts = append(texts, line[4:])
			break
		}

		// Continuation line: strip a repeated "ddd-" prefix when present,
		// keep anything else verbatim.
		if len(line) >= 4 && line[0:3] == terminator[0:3] && line[3] == '-' {
			texts = append(texts, line[4:])
		} else {
			texts = append(texts, line)
		}
	}

	return &Reply{
		Code:      code,
		MultiLine: true,
		Text:      strings.Join(texts, "\n"),
	}, nil
}

// cmd sends an FTP command with the required CRLF terminator and reads the
// reply. Replies in the 4xx and 5xx ranges are returned as a *ServerError
// alongside the reply itself. A control-socket I/O fault demotes the session
// to disconnected.
func (c *Client) cmd(verb string, args ...string) (*Reply, error) {
	line := verb
	if len(args) > 0 {
		line = fmt.Sprintf("%s %s", verb, strings.Join(args, " "))
	}

	c.logger.Debug("ftp command", "cmd", line)

	// One command/reply exchange at a time on the control channel
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, c.fault("write", err)
		}
	}

	// The terminated command goes out in a single write
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", line); err != nil {
		return nil, c.fault("write", err)
	}

	return c.response(verb)
}

// response reads the next reply from the control socket under the configured
// read deadline and classifies it. The caller must hold c.mu.
func (c *Client) response(verb string) (*Reply, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, c.fault("read", err)
		}
	}

	rep, err := readReply(c.reader)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			// The connection may still be usable; only the operation dies.
			return nil, err
		}
		return nil, c.fault("read", err)
	}

	c.logger.Debug("ftp reply", "code", rep.Code, "text", rep.Text)

	if rep.Is4xx() || rep.Is5xx() {
		return rep, &ServerError{Command: verb, Reply: rep}
	}

	return rep, nil
}

// fault records an unrecoverable control-socket failure: the socket is
// released and the session becomes disconnected. The caller must hold c.mu.
func (c *Client) fault(op string, err error) error {
	addr := ""
	if c.conn != nil {
		addr = c.conn.RemoteAddr().String()
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
	return &ConnError{Op: op, Addr: addr, Err: err}
}

// expect2xx sends a command and requires a reply in the 2xx range.
func (c *Client) expect2xx(verb string, args ...string) (*Reply, error) {
	rep, err := c.cmd(verb, args...)
	if err != nil {
		return rep, err
	}

	if !rep.Is2xx() {
		return rep, &ServerError{Command: verb, Reply: rep}
	}

	return rep, nil
}
