package ftp

import (
	"errors"
	"fmt"
	"net"
)

// ErrNotConnected is returned when a command is issued on a session whose
// control connection is not open.
var ErrNotConnected = errors.New("ftp: not connected")

// ConnError represents a connectivity failure: name resolution, a refused or
// timed-out connect, or a socket that closed mid-conversation. It is always
// fatal to the session or data channel that produced it.
type ConnError struct {
	// Op names the phase that failed (e.g. "dial", "greeting", "read",
	// "data dial", "data accept")
	Op string

	// Addr is the remote address involved, if known
	Addr string

	// Err is the underlying error
	Err error
}

// Error implements the error interface.
func (e *ConnError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("ftp: %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("ftp: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *ConnError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// SyntaxError reports peer output that does not match the protocol grammar:
// a malformed reply line or an unparsable PASV address tuple. It is fatal to
// the current operation but does not invalidate the control connection.
type SyntaxError struct {
	// What names the construct being parsed (e.g. "reply", "PASV address")
	What string

	// Raw is the offending text as received
	Raw string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("ftp: invalid %s: %q", e.What, e.Raw)
}

// ServerError is a completed reply whose code signals failure for the command
// that produced it. Codes in the 4xx range are transient (the operation may
// succeed if retried after corrective action); 5xx codes are permanent.
// The client never retries either kind on its own.
type ServerError struct {
	// Command is the FTP command that was sent (e.g. "STOR file.txt")
	Command string

	// Reply is the full server reply
	Reply *Reply
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("ftp: %s failed: %s (code %d)", e.Command, e.Reply.Text, e.Reply.Code)
}

// Code returns the numeric reply code.
func (e *ServerError) Code() int { return e.Reply.Code }

// Temporary reports whether the failure is transient (4xx).
func (e *ServerError) Temporary() bool { return e.Reply.Is4xx() }

// Permanent reports whether the failure is permanent (5xx).
func (e *ServerError) Permanent() bool { return e.Reply.Is5xx() }
