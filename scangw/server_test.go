package scangw

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine returns a fixed outcome and records the spool path it was given.
type stubEngine struct {
	outcome   Outcome
	scannedAt chan string
}

func newStubEngine(outcome Outcome) *stubEngine {
	return &stubEngine{outcome: outcome, scannedAt: make(chan string, 8)}
}

func (e *stubEngine) Scan(ctx context.Context, path string) Outcome {
	e.scannedAt <- path
	return e.outcome
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// startGateway serves on a loopback listener and tears everything down with
// the test.
func startGateway(t *testing.T, engine Engine, options ...Option) (*Gateway, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	options = append([]Option{WithLogger(quietLogger()), WithSpoolDir(t.TempDir())}, options...)
	g, err := NewGateway(ln.Addr().String(), engine, options...)
	require.NoError(t, err)

	go func() { _ = g.Serve(ln) }()
	t.Cleanup(func() { _ = g.Shutdown() })

	return g, ln.Addr().String()
}

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestSubmit_Clean(t *testing.T) {
	engine := newStubEngine(Outcome{})
	_, addr := startGateway(t, engine)

	path := writeTempFile(t, []byte("perfectly ordinary bytes"))
	v := Submit(ClientConfig{Addr: addr, Timeout: 2 * time.Second}, path)

	assert.Equal(t, Verdict{Kind: Clean}, v)
}

func TestSubmit_InfectedAndSpoolDeleted(t *testing.T) {
	engine := newStubEngine(Outcome{Infected: true, Signature: "Eicar-Test-Signature"})

	spoolDir := t.TempDir()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	g, err := NewGateway(ln.Addr().String(), engine,
		WithLogger(quietLogger()), WithSpoolDir(spoolDir))
	require.NoError(t, err)
	go func() { _ = g.Serve(ln) }()
	defer func() { _ = g.Shutdown() }()

	eicar := []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)
	path := writeTempFile(t, eicar)

	v := Submit(ClientConfig{Addr: ln.Addr().String(), Timeout: 2 * time.Second}, path)
	assert.Equal(t, Verdict{Kind: Infected, Detail: "Eicar-Test-Signature"}, v)

	// The spool file existed when the engine ran and is gone afterwards
	spooled := <-engine.scannedAt
	assert.Equal(t, spoolDir, filepath.Dir(spooled))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(spooled)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond, "spool file should be deleted")
}

func TestSubmit_ScanError(t *testing.T) {
	engine := newStubEngine(Outcome{Err: context.DeadlineExceeded})
	_, addr := startGateway(t, engine)

	path := writeTempFile(t, []byte("whatever"))
	v := Submit(ClientConfig{Addr: addr, Timeout: 2 * time.Second}, path)

	assert.Equal(t, ScanError, v.Kind)
}

func TestSubmit_EmptyFile(t *testing.T) {
	engine := newStubEngine(Outcome{})
	_, addr := startGateway(t, engine)

	path := writeTempFile(t, nil)
	v := Submit(ClientConfig{Addr: addr, Timeout: 2 * time.Second}, path)

	assert.Equal(t, Verdict{Kind: Clean}, v)
}

func TestSubmit_GatewayUnreachable(t *testing.T) {
	// Grab a port and close it so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	path := writeTempFile(t, []byte("data"))
	v := Submit(ClientConfig{Addr: addr, Timeout: time.Second}, path)

	assert.Equal(t, ProtocolError, v.Kind)
}

func TestSubmit_MissingLocalFile(t *testing.T) {
	engine := newStubEngine(Outcome{})
	_, addr := startGateway(t, engine)

	v := Submit(ClientConfig{Addr: addr, Timeout: time.Second}, filepath.Join(t.TempDir(), "ghost"))
	assert.Equal(t, ProtocolError, v.Kind)
}

func TestSendPayload_ExactlyDeclaredSize(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		size    int64
		want    string
		wantErr bool
	}{
		{"source matches", "0123456789", 10, "0123456789", false},
		{"source grew after stat", "0123456789extra", 10, "0123456789", false},
		{"source shrank after stat", "0123", 10, "", true},
		{"empty", "", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sink bytes.Buffer
			err := sendPayload(&sink, strings.NewReader(tt.source), tt.size, 4)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sink.String())
		})
	}
}

// rawExchange dials raw, runs the given exchange, half-closes the write side
// and returns the verdict the gateway answered with.
func rawExchange(t *testing.T, addr string, exchange func(*net.TCPConn)) Verdict {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	tcp := conn.(*net.TCPConn)
	exchange(tcp)
	require.NoError(t, tcp.CloseWrite())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return parseVerdict(line)
}

func TestGateway_ClientDisconnectsMidHeader(t *testing.T) {
	engine := newStubEngine(Outcome{})
	_, addr := startGateway(t, engine)

	v := rawExchange(t, addr, func(conn *net.TCPConn) {
		_, _ = conn.Write([]byte{0x00, 0x00}) // two bytes of the name length, then silence
	})

	assert.Equal(t, Verdict{Kind: ProtocolError, Detail: "ClientDisconnected"}, v)
	assert.Empty(t, engine.scannedAt, "engine must not run without a complete header")
}

func TestGateway_ClientDisconnectsImmediately(t *testing.T) {
	engine := newStubEngine(Outcome{})
	_, addr := startGateway(t, engine)

	v := rawExchange(t, addr, func(conn *net.TCPConn) {
		// no bytes at all
	})

	assert.Equal(t, Verdict{Kind: ProtocolError, Detail: "ClientDisconnected"}, v)
	assert.Empty(t, engine.scannedAt)

	// The failed connection must not poison the gateway for the next one
	path := writeTempFile(t, []byte("still serving"))
	got := Submit(ClientConfig{Addr: addr, Timeout: 2 * time.Second}, path)
	assert.Equal(t, Verdict{Kind: Clean}, got)
}

func TestGateway_TruncatedPayload(t *testing.T) {
	engine := newStubEngine(Outcome{})
	_, addr := startGateway(t, engine)

	v := rawExchange(t, addr, func(conn *net.TCPConn) {
		require.NoError(t, writeHeader(conn, "short.bin", 100))
		_, _ = conn.Write(make([]byte, 10))
	})

	assert.Equal(t, Verdict{Kind: ProtocolError, Detail: "TruncatedTransfer"}, v)
	assert.Empty(t, engine.scannedAt, "engine must not run on a partial payload")
}

func TestGateway_FileTooLarge(t *testing.T) {
	engine := newStubEngine(Outcome{})
	_, addr := startGateway(t, engine, WithMaxFileSize(64))

	v := rawExchange(t, addr, func(conn *net.TCPConn) {
		require.NoError(t, writeHeader(conn, "huge.bin", 65))
	})

	assert.Equal(t, Verdict{Kind: ProtocolError, Detail: "FileTooLarge"}, v)
	assert.Empty(t, engine.scannedAt)
}

func TestGateway_OneVerdictPerConnection(t *testing.T) {
	engine := newStubEngine(Outcome{})
	_, addr := startGateway(t, engine)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	payload := []byte("abc")
	require.NoError(t, writeHeader(conn, "one.bin", uint64(len(payload))))
	_, err = conn.Write(payload)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, Verdict{Kind: Clean}, parseVerdict(line))

	// After the verdict the gateway hangs up; nothing else arrives
	_, err = r.ReadByte()
	assert.Error(t, err)
}

func TestGateway_Shutdown(t *testing.T) {
	engine := newStubEngine(Outcome{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	g, err := NewGateway(ln.Addr().String(), engine, WithLogger(quietLogger()))
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- g.Serve(ln) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, g.Shutdown())

	select {
	case err := <-served:
		assert.ErrorIs(t, err, ErrGatewayClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}

	// Serving again on a closed gateway refuses immediately
	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, g.Serve(ln2), ErrGatewayClosed)
}
