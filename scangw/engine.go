package scangw

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/IntelXLabs-LLC/go-clamd"
)

// Outcome is an engine's answer for a single file.
type Outcome struct {
	// Infected is true when a signature matched; Signature names it
	Infected  bool
	Signature string

	// Err is set when the engine could not complete the scan
	Err error
}

// Engine scans a spooled file. Implementations must honor ctx cancellation
// and report an error Outcome when the deadline expires.
type Engine interface {
	Scan(ctx context.Context, path string) Outcome
}

// ExecEngine invokes the clamscan binary as a subprocess per file.
type ExecEngine struct {
	// Binary is the clamscan executable; defaults to "clamscan" on PATH
	Binary string

	// MaxFileSize caps both --max-filesize and --max-scansize, in bytes
	MaxFileSize uint64
}

// Scan runs clamscan against the file. Exit status 0 means clean, 1 means a
// signature matched (parsed from stdout), anything else is a scan failure.
func (e *ExecEngine) Scan(ctx context.Context, path string) Outcome {
	binary := e.Binary
	if binary == "" {
		binary = "clamscan"
	}

	args := []string{"--stdout", "--no-summary", "--quiet", "--infected"}
	if e.MaxFileSize > 0 {
		args = append(args,
			fmt.Sprintf("--max-filesize=%d", e.MaxFileSize),
			fmt.Sprintf("--max-scansize=%d", e.MaxFileSize))
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.Output()

	if ctx.Err() != nil {
		return Outcome{Err: fmt.Errorf("scan timed out: %w", ctx.Err())}
	}
	if err == nil {
		return Outcome{}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return Outcome{Infected: true, Signature: parseSignature(string(out))}
	}

	return Outcome{Err: fmt.Errorf("clamscan failed: %w", err)}
}

// parseSignature extracts the signature name from clamscan's infected-file
// report line, e.g. "/tmp/spool123: Eicar-Test-Signature FOUND".
func parseSignature(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutSuffix(line, " FOUND")
		if !ok {
			continue
		}
		if _, sig, ok := strings.Cut(rest, ": "); ok {
			return sig
		}
		return rest
	}
	return "unknown signature"
}

// ClamdEngine scans through a running clamd daemon, avoiding the per-file
// process spawn and signature database load of ExecEngine.
type ClamdEngine struct {
	c *clamd.Clamd
}

// NewClamdEngine connects to a clamd daemon at the given address, e.g.
// "tcp://127.0.0.1:3310" or "/var/run/clamav/clamd.sock".
func NewClamdEngine(addr string) *ClamdEngine {
	return &ClamdEngine{c: clamd.NewClamd(addr)}
}

// Scan asks the daemon to scan the file. The spool directory must be readable
// by the clamd process.
func (e *ClamdEngine) Scan(ctx context.Context, path string) Outcome {
	ch, err := e.c.ScanFile(path)
	if err != nil {
		return Outcome{Err: fmt.Errorf("clamd scan failed: %w", err)}
	}

	select {
	case res, ok := <-ch:
		if !ok || res == nil {
			return Outcome{Err: fmt.Errorf("clamd returned no result for %s", path)}
		}
		switch res.Status {
		case clamd.RES_OK:
			return Outcome{}
		case clamd.RES_FOUND:
			return Outcome{Infected: true, Signature: res.Description}
		default:
			return Outcome{Err: fmt.Errorf("clamd error: %s", res.Raw)}
		}
	case <-ctx.Done():
		return Outcome{Err: fmt.Errorf("scan timed out: %w", ctx.Err())}
	}
}
