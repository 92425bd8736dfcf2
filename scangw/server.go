package scangw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrGatewayClosed is returned by Serve and ListenAndServe after Shutdown.
var ErrGatewayClosed = errors.New("scangw: gateway closed")

// Gateway accepts scan submissions and answers each with one verdict line.
// Every connection carries exactly one file and is handled end-to-end on its
// own goroutine.
type Gateway struct {
	addr   string
	engine Engine
	logger logrus.FieldLogger

	// spoolDir receives the per-request temp files; defaults to os.TempDir
	spoolDir string

	// maxFileSize rejects declared payload sizes above this many bytes.
	// Zero disables the ceiling.
	maxFileSize uint64

	// scanTimeout bounds a single engine invocation
	scanTimeout time.Duration

	// ioTimeout bounds each read/write on a client connection
	ioTimeout time.Duration

	// Shutdown handling
	mu         sync.Mutex
	listener   net.Listener
	conns      map[net.Conn]struct{}
	inShutdown atomic.Bool
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithSpoolDir sets the directory for per-request spool files.
func WithSpoolDir(dir string) Option {
	return func(g *Gateway) error {
		g.spoolDir = dir
		return nil
	}
}

// WithMaxFileSize sets the largest declared payload the gateway accepts,
// in bytes. Zero disables the ceiling.
func WithMaxFileSize(n uint64) Option {
	return func(g *Gateway) error {
		g.maxFileSize = n
		return nil
	}
}

// WithScanTimeout bounds a single engine invocation.
func WithScanTimeout(d time.Duration) Option {
	return func(g *Gateway) error {
		if d <= 0 {
			return fmt.Errorf("scan timeout must be positive, got %v", d)
		}
		g.scanTimeout = d
		return nil
	}
}

// WithIOTimeout bounds each read/write on a client connection.
func WithIOTimeout(d time.Duration) Option {
	return func(g *Gateway) error {
		if d <= 0 {
			return fmt.Errorf("io timeout must be positive, got %v", d)
		}
		g.ioTimeout = d
		return nil
	}
}

// WithLogger sets the gateway's logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// NewGateway creates a gateway listening on addr once served. The engine is
// required.
//
// Default values:
//   - SpoolDir: the OS temp directory
//   - ScanTimeout: 5 minutes
//   - IOTimeout: 30 seconds
//   - MaxFileSize: 0 (no ceiling)
func NewGateway(addr string, engine Engine, options ...Option) (*Gateway, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	g := &Gateway{
		addr:        addr,
		engine:      engine,
		logger:      logrus.StandardLogger(),
		spoolDir:    os.TempDir(),
		scanTimeout: 5 * time.Minute,
		ioTimeout:   30 * time.Second,
		conns:       make(map[net.Conn]struct{}),
	}

	for _, opt := range options {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// ListenAndServe starts the gateway on the configured address. It blocks
// until Shutdown is called or an unrecoverable error occurs.
func (g *Gateway) ListenAndServe() error {
	ln, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.addr, err)
	}

	g.logger.WithField("addr", ln.Addr().String()).Info("scan gateway listening")
	return g.Serve(ln)
}

// Serve accepts submissions on the listener l. Each connection is handled in
// a separate goroutine.
func (g *Gateway) Serve(l net.Listener) error {
	g.mu.Lock()
	if g.inShutdown.Load() {
		g.mu.Unlock()
		l.Close()
		return ErrGatewayClosed
	}
	g.listener = l
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		if g.listener == l {
			g.listener = nil
		}
		g.mu.Unlock()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if g.inShutdown.Load() {
				return ErrGatewayClosed
			}
			g.logger.WithError(err).Error("accept error")
			continue
		}

		go g.handleConn(conn)
	}
}

// Shutdown stops the gateway. It closes the listener and every active
// connection; in-flight scans are abandoned.
func (g *Gateway) Shutdown() error {
	g.inShutdown.Store(true)

	g.mu.Lock()
	ln := g.listener
	g.listener = nil
	conns := g.conns
	g.conns = make(map[net.Conn]struct{})
	g.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for conn := range conns {
		conn.Close()
	}

	return err
}

// trackConn returns false if the gateway is shutting down.
func (g *Gateway) trackConn(conn net.Conn, add bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inShutdown.Load() {
		return false
	}
	if add {
		g.conns[conn] = struct{}{}
	} else {
		delete(g.conns, conn)
	}
	return true
}

// handleConn processes one submission: header, spool, scan, verdict. Exactly
// one verdict line goes out per connection, and the spool file is deleted no
// matter how the scan ends.
func (g *Gateway) handleConn(conn net.Conn) {
	defer conn.Close()

	if !g.trackConn(conn, true) {
		return
	}
	defer g.trackConn(conn, false)

	start := time.Now()
	log := g.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"remote":     conn.RemoteAddr().String(),
	})

	rc := &rollingConn{Conn: conn, timeout: g.ioTimeout}

	verdict := g.process(rc, log)

	if _, err := fmt.Fprintf(rc, "%s\n", verdict.wireLine()); err != nil {
		log.WithError(err).Warn("failed to write verdict")
	}

	log.WithFields(logrus.Fields{
		"verdict":  verdict.String(),
		"duration": time.Since(start).String(),
	}).Info("submission handled")
}

// process runs the exchange up to (but not including) the verdict write.
func (g *Gateway) process(rc io.Reader, log logrus.FieldLogger) Verdict {
	name, size, err := readHeader(rc)
	if err != nil {
		log.WithError(err).Warn("failed to read envelope header")
		return Verdict{Kind: ProtocolError, Detail: "ClientDisconnected"}
	}

	log = log.WithFields(logrus.Fields{"file": name, "size": size})

	if size > math.MaxInt64 || (g.maxFileSize > 0 && size > g.maxFileSize) {
		log.Warn("declared size above ceiling")
		return Verdict{Kind: ProtocolError, Detail: "FileTooLarge"}
	}

	spool, err := os.CreateTemp(g.spoolDir, "scangw-*")
	if err != nil {
		log.WithError(err).Error("failed to create spool file")
		return Verdict{Kind: ScanError, Detail: "SpoolFailure"}
	}
	spoolPath := spool.Name()
	defer os.Remove(spoolPath)

	_, err = io.CopyN(spool, rc, int64(size))
	if closeErr := spool.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		log.WithError(err).Warn("payload transfer incomplete")
		return Verdict{Kind: ProtocolError, Detail: "TruncatedTransfer"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.scanTimeout)
	defer cancel()

	outcome := g.engine.Scan(ctx, spoolPath)
	switch {
	case outcome.Err != nil:
		log.WithError(outcome.Err).Error("engine failure")
		return Verdict{Kind: ScanError, Detail: "EngineFailure"}
	case outcome.Infected:
		return Verdict{Kind: Infected, Detail: outcome.Signature}
	default:
		return Verdict{Kind: Clean}
	}
}
