package ftp

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

// pasvRegex matches the address tuple inside a PASV reply:
// 227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)
var pasvRegex = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)

// parsePASV extracts the data channel endpoint from a PASV reply.
// Example: "Entering Passive Mode (192,168,1,1,195,149)"
// Returns: "192.168.1.1:50069" (195*256 + 149 = 50069)
func parsePASV(text string) (string, error) {
	matches := pasvRegex.FindStringSubmatch(text)
	if len(matches) != 7 {
		return "", &SyntaxError{What: "PASV reply", Raw: text}
	}

	var h [4]int
	for i := 0; i < 4; i++ {
		val, err := strconv.Atoi(matches[i+1])
		if err != nil || val < 0 || val > 255 {
			return "", &SyntaxError{What: "PASV address octet", Raw: text}
		}
		h[i] = val
	}
	host := fmt.Sprintf("%d.%d.%d.%d", h[0], h[1], h[2], h[3])

	p1, err1 := strconv.Atoi(matches[5])
	p2, err2 := strconv.Atoi(matches[6])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return "", &SyntaxError{What: "PASV port octets", Raw: text}
	}
	port := p1*256 + p2

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// formatPORT renders a local address as a PORT argument.
// Converts "192.168.1.100:50000" to "192,168,1,100,195,80"
func formatPORT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("invalid IP address: %s", host)
	}
	ip = ip.To4()
	if ip == nil {
		return "", fmt.Errorf("PORT requires an IPv4 address")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid port: %s", portStr)
	}

	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], port/256, port%256), nil
}

// resolveDataAddr replaces a 0.0.0.0 host in a PASV address with the control
// connection host. NAT-ed servers often advertise the wildcard address.
func resolveDataAddr(pasvAddr, controlHost string) string {
	host, port, err := net.SplitHostPort(pasvAddr)
	if err != nil {
		return pasvAddr
	}
	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}
	return pasvAddr
}

// openDataConn negotiates a data connection using either passive (PASV, the
// default) or active (PORT) mode.
func (c *Client) openDataConn() (net.Conn, error) {
	if c.activeMode {
		return c.openActiveDataConn()
	}
	return c.openPassiveDataConn()
}

// openPassiveDataConn sends PASV and dials the endpoint the server announced.
func (c *Client) openPassiveDataConn() (net.Conn, error) {
	rep, err := c.cmd("PASV")
	if err != nil {
		return nil, err
	}

	addr, err := parsePASV(rep.Text)
	if err != nil {
		return nil, err
	}
	addr = resolveDataAddr(addr, c.host)

	dataConn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, &ConnError{Op: "data dial", Addr: addr, Err: err}
	}

	if c.timeout > 0 {
		return &deadlineConn{Conn: dataConn, timeout: c.timeout}, nil
	}
	return dataConn, nil
}

// openActiveDataConn listens on an ephemeral local port, announces it with
// PORT and returns a connection that accepts the server's dial-back lazily.
// The server only connects after the transfer command is sent, so the accept
// happens on the first read or write.
func (c *Client) openActiveDataConn() (net.Conn, error) {
	// Listen on the interface the control connection uses, so the
	// announced address is reachable from the server
	localAddr := c.conn.LocalAddr().String()
	host, _, err := net.SplitHostPort(localAddr)
	if err != nil {
		host = "127.0.0.1"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		listener, err = net.Listen("tcp", ":0")
		if err != nil {
			return nil, fmt.Errorf("failed to create listener: %w", err)
		}
	}

	portArg, err := formatPORT(listener.Addr().String())
	if err != nil {
		listener.Close()
		return nil, err
	}

	if _, err := c.expect2xx("PORT", portArg); err != nil {
		listener.Close()
		return nil, err
	}

	return &activeDataConn{
		listener: listener,
		timeout:  c.timeout,
	}, nil
}

// activeDataConn wraps a listener for active mode connections. It satisfies
// net.Conn; the underlying socket is accepted on first use.
type activeDataConn struct {
	listener net.Listener
	conn     net.Conn
	timeout  time.Duration
}

func (a *activeDataConn) accept() error {
	if a.timeout > 0 {
		if l, ok := a.listener.(*net.TCPListener); ok {
			_ = l.SetDeadline(time.Now().Add(a.timeout))
		}
	}
	c, err := a.listener.Accept()
	if err != nil {
		return err
	}
	a.conn = c
	return nil
}

func (a *activeDataConn) Read(p []byte) (n int, err error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetReadDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Read(p)
}

func (a *activeDataConn) Write(p []byte) (n int, err error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetWriteDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Write(p)
}

func (a *activeDataConn) Close() error {
	var err1, err2 error
	if a.conn != nil {
		err1 = a.conn.Close()
	}
	if a.listener != nil {
		err2 = a.listener.Close()
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (a *activeDataConn) LocalAddr() net.Addr {
	if a.conn != nil {
		return a.conn.LocalAddr()
	}
	return a.listener.Addr()
}

func (a *activeDataConn) RemoteAddr() net.Addr {
	if a.conn != nil {
		return a.conn.RemoteAddr()
	}
	return nil
}

func (a *activeDataConn) SetDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetDeadline(t)
	}
	return nil
}

func (a *activeDataConn) SetReadDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetReadDeadline(t)
	}
	return nil
}

func (a *activeDataConn) SetWriteDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetWriteDeadline(t)
	}
	return nil
}

// startTransfer negotiates a data connection, applies the transfer type and
// sends the transfer command. The caller owns the returned connection and
// must call finishDataConn after moving the data.
func (c *Client) startTransfer(t TransferType, verb string, args ...string) (net.Conn, error) {
	if err := c.setType(t); err != nil {
		return nil, err
	}

	dataConn, err := c.openDataConn()
	if err != nil {
		return nil, err
	}

	rep, err := c.cmd(verb, args...)
	if err != nil {
		dataConn.Close()
		return nil, err
	}

	// Expect 1xx (transfer starting) or 2xx (already complete)
	if rep.Code >= 300 {
		dataConn.Close()
		return nil, &ServerError{Command: verb, Reply: rep}
	}

	return dataConn, nil
}

// finishDataConn closes the data connection and reads the transfer completion
// reply, which must be 2xx (typically 226). The reply is read even when the
// close fails, so the control channel never carries a stale reply into the
// next command.
func (c *Client) finishDataConn(verb string, dataConn net.Conn) error {
	closeErr := dataConn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	rep, err := c.response(verb)
	if err != nil {
		return err
	}

	c.logger.Debug("ftp transfer complete", "code", rep.Code, "text", rep.Text)

	if !rep.Is2xx() {
		return &ServerError{Command: verb, Reply: rep}
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close data connection: %w", closeErr)
	}
	return nil
}
