package scangw

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ClientConfig carries everything Submit needs to reach a gateway. The
// endpoint travels as an explicit value; there is no process-wide default.
type ClientConfig struct {
	// Addr is the gateway endpoint, "host:port"
	Addr string

	// Timeout bounds dialing and every read/write on the connection.
	// Zero means 30 seconds.
	Timeout time.Duration

	// ChunkSize bounds payload streaming chunks. Zero means 32 KiB.
	ChunkSize int

	// Logger receives per-submission fields; nil disables logging
	Logger logrus.FieldLogger
}

// Submit uploads the file at filePath to the gateway over a fresh connection
// and returns the verdict. Submit never returns an error: a refused
// connection, an I/O fault mid-exchange or an unreadable local file all
// collapse to a ProtocolError verdict, so callers decide on exactly one axis.
func Submit(cfg ClientConfig, filePath string) Verdict {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}

	start := time.Now()
	v := submit(cfg.Addr, timeout, chunkSize, filePath)

	if cfg.Logger != nil {
		cfg.Logger.WithFields(logrus.Fields{
			"gateway":  cfg.Addr,
			"file":     filePath,
			"verdict":  v.String(),
			"duration": time.Since(start).String(),
		}).Info("scan submission finished")
	}

	return v
}

func submit(addr string, timeout time.Duration, chunkSize int, filePath string) Verdict {
	file, err := os.Open(filePath)
	if err != nil {
		return Verdict{Kind: ProtocolError, Detail: fmt.Sprintf("open %s: %v", filePath, err)}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Verdict{Kind: ProtocolError, Detail: fmt.Sprintf("stat %s: %v", filePath, err)}
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return Verdict{Kind: ProtocolError, Detail: fmt.Sprintf("dial %s: %v", addr, err)}
	}
	defer conn.Close()

	rc := &rollingConn{Conn: conn, timeout: timeout}

	name := filepath.Base(filePath)
	if err := writeHeader(rc, name, uint64(info.Size())); err != nil {
		return Verdict{Kind: ProtocolError, Detail: fmt.Sprintf("send header: %v", err)}
	}

	if err := sendPayload(rc, file, info.Size(), chunkSize); err != nil {
		return Verdict{Kind: ProtocolError, Detail: fmt.Sprintf("send payload: %v", err)}
	}

	// One verdict line, then the server closes. The line is short; bound
	// the read so a misbehaving peer cannot grow the buffer without limit.
	line, err := bufio.NewReaderSize(io.LimitReader(rc, 64*1024), 4096).ReadString('\n')
	if err != nil && len(line) == 0 {
		return Verdict{Kind: ProtocolError, Detail: fmt.Sprintf("read verdict: %v", err)}
	}

	return parseVerdict(line)
}

// sendPayload streams exactly size bytes from r to w. The header already
// declared size; a source that grew or shrank since then must not change what
// goes on the wire, so extra bytes are cut off and missing bytes are an error.
func sendPayload(w io.Writer, r io.Reader, size int64, chunkSize int) error {
	n, err := io.CopyBuffer(w, io.LimitReader(r, size), make([]byte, chunkSize))
	if err != nil {
		return err
	}
	if n != size {
		return fmt.Errorf("sent %d of %d bytes", n, size)
	}
	return nil
}

// rollingConn refreshes the connection deadline before every read and write,
// so a stalled exchange times out instead of hanging.
type rollingConn struct {
	net.Conn
	timeout time.Duration
}

func (c *rollingConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *rollingConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
