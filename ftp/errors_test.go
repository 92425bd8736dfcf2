package ftp

import (
	"errors"
	"os"
	"testing"
)

func TestServerErrorClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code      int
		temporary bool
		permanent bool
	}{
		{421, true, false},
		{450, true, false},
		{500, false, true},
		{530, false, true},
		{550, false, true},
	}

	for _, tt := range tests {
		se := &ServerError{Command: "X", Reply: &Reply{Code: tt.code, Text: "nope"}}
		if se.Temporary() != tt.temporary {
			t.Errorf("code %d: Temporary() = %v, want %v", tt.code, se.Temporary(), tt.temporary)
		}
		if se.Permanent() != tt.permanent {
			t.Errorf("code %d: Permanent() = %v, want %v", tt.code, se.Permanent(), tt.permanent)
		}
		if se.Code() != tt.code {
			t.Errorf("Code() = %d, want %d", se.Code(), tt.code)
		}
	}
}

func TestConnErrorUnwrap(t *testing.T) {
	t.Parallel()
	ce := &ConnError{Op: "dial", Addr: "nohost:21", Err: os.ErrDeadlineExceeded}
	if !errors.Is(ce, os.ErrDeadlineExceeded) {
		t.Error("ConnError should unwrap to its cause")
	}
	if !ce.Timeout() {
		t.Error("deadline exceeded should report as timeout")
	}
}
