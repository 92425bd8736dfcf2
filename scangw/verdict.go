package scangw

import (
	"fmt"
	"strings"
)

// Kind classifies a scan verdict.
type Kind int

const (
	// Clean means the engine found nothing.
	Clean Kind = iota

	// Infected means the engine matched a signature; Detail carries it.
	Infected

	// ScanError means the engine could not complete the scan.
	ScanError

	// ProtocolError means the exchange itself broke down: the peer
	// disconnected, sent a malformed envelope, or answered with a line
	// no decoder rule matches.
	ProtocolError
)

// Verdict is the outcome of submitting one file to the gateway.
type Verdict struct {
	Kind   Kind
	Detail string
}

// String renders the verdict for humans and logs.
func (v Verdict) String() string {
	switch v.Kind {
	case Clean:
		return "clean"
	case Infected:
		return fmt.Sprintf("infected (%s)", v.Detail)
	case ScanError:
		return fmt.Sprintf("scan error (%s)", v.Detail)
	default:
		return fmt.Sprintf("protocol error (%s)", v.Detail)
	}
}

// wireLine renders the verdict as its single-line wire form.
func (v Verdict) wireLine() string {
	switch v.Kind {
	case Clean:
		return "OK"
	case Infected:
		return "INFECTED:" + v.Detail
	case ScanError:
		return "SCAN_ERROR:" + v.Detail
	default:
		return "ERROR:" + v.Detail
	}
}

// parseVerdict decodes a wire line into a Verdict. "OK" must match exactly;
// prefixed forms keep everything after the colon as detail; any other input,
// the empty string included, is a protocol error carrying the raw line.
func parseVerdict(line string) Verdict {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case line == "OK":
		return Verdict{Kind: Clean}
	case strings.HasPrefix(line, "INFECTED:"):
		return Verdict{Kind: Infected, Detail: line[len("INFECTED:"):]}
	case strings.HasPrefix(line, "SCAN_ERROR:"):
		return Verdict{Kind: ScanError, Detail: line[len("SCAN_ERROR:"):]}
	case strings.HasPrefix(line, "ERROR:"):
		return Verdict{Kind: ProtocolError, Detail: line[len("ERROR:"):]}
	default:
		return Verdict{Kind: ProtocolError, Detail: "unrecognized verdict: " + line}
	}
}
