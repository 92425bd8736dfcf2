package ftp

import (
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Option configures a Client during Dial.
type Option func(*Client) error

// WithTimeout sets the timeout applied to dialing and to every read and
// write on the control and data channels. Zero disables deadlines.
// Defaults to 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("negative timeout: %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithActiveMode makes the client negotiate data connections with PORT
// instead of PASV. In active mode the client listens on an ephemeral local
// port and the server dials back, which usually requires the client to be
// reachable from the server.
func WithActiveMode() Option {
	return func(c *Client) error {
		c.activeMode = true
		return nil
	}
}

// WithTransferType sets the session's default transfer type.
// Defaults to TypeBinary.
func WithTransferType(t TransferType) Option {
	return func(c *Client) error {
		if t != TypeBinary && t != TypeASCII {
			return fmt.Errorf("unsupported transfer type %q", t)
		}
		c.transferType = t
		return nil
	}
}

// WithBufferSize sets the buffer size used when streaming file transfers.
// It bounds the chunk size observed by progress callbacks.
// Defaults to 32 KiB.
func WithBufferSize(size int) Option {
	return func(c *Client) error {
		if size <= 0 {
			return fmt.Errorf("buffer size must be positive, got %d", size)
		}
		c.bufSize = size
		return nil
	}
}

// WithLogger enables debug logging using the provided logger.
// All FTP commands and replies are logged at debug level.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	client, _ := ftp.Dial("ftp.example.com:21", ftp.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithDialer sets a custom net.Dialer used for the control connection and
// for passive-mode data connections. Its Timeout field is overwritten with
// the client timeout.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) error {
		if dialer == nil {
			return fmt.Errorf("nil dialer")
		}
		c.dialer = dialer
		return nil
	}
}
