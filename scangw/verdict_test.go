package scangw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdictWireRoundTrip(t *testing.T) {
	tests := []Verdict{
		{Kind: Clean},
		{Kind: Infected, Detail: "Eicar-Test-Signature"},
		{Kind: ScanError, Detail: "EngineFailure"},
		{Kind: ProtocolError, Detail: "TruncatedTransfer"},
	}

	for _, v := range tests {
		assert.Equal(t, v, parseVerdict(v.wireLine()), "wire form %q", v.wireLine())
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Verdict
	}{
		{"clean", "OK", Verdict{Kind: Clean}},
		{"clean with CRLF", "OK\r\n", Verdict{Kind: Clean}},
		{"infected", "INFECTED:Win.Test.EICAR_HDB-1", Verdict{Kind: Infected, Detail: "Win.Test.EICAR_HDB-1"}},
		{"infected empty signature", "INFECTED:", Verdict{Kind: Infected, Detail: ""}},
		{"scan error", "SCAN_ERROR:db load failed", Verdict{Kind: ScanError, Detail: "db load failed"}},
		{"protocol error", "ERROR:ClientDisconnected", Verdict{Kind: ProtocolError, Detail: "ClientDisconnected"}},
		{"ok with trailing text is not clean", "OK maybe", Verdict{Kind: ProtocolError, Detail: "unrecognized verdict: OK maybe"}},
		{"lowercase ok is not clean", "ok", Verdict{Kind: ProtocolError, Detail: "unrecognized verdict: ok"}},
		{"empty line", "", Verdict{Kind: ProtocolError, Detail: "unrecognized verdict: "}},
		{"garbage", "HELLO", Verdict{Kind: ProtocolError, Detail: "unrecognized verdict: HELLO"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseVerdict(tt.line))
		})
	}
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "clean", Verdict{Kind: Clean}.String())
	assert.Equal(t, "infected (X)", Verdict{Kind: Infected, Detail: "X"}.String())
	assert.Contains(t, Verdict{Kind: ScanError, Detail: "y"}.String(), "scan error")
	assert.Contains(t, Verdict{Kind: ProtocolError, Detail: "z"}.String(), "protocol error")
}
