package ftp

import (
	"errors"
	"fmt"
	"testing"
)

func TestParsePASV(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{
			name: "typical reply",
			text: "Entering Passive Mode (192,168,1,1,195,149)",
			want: "192.168.1.1:50069",
		},
		{
			name: "minimum port",
			text: "Entering Passive Mode (10,0,0,5,0,1)",
			want: "10.0.0.5:1",
		},
		{
			name: "maximum port",
			text: "Entering Passive Mode (10,0,0,5,255,255)",
			want: "10.0.0.5:65535",
		},
		{
			name:    "missing tuple",
			text:    "Entering Passive Mode",
			wantErr: true,
		},
		{
			name:    "octet out of range",
			text:    "Entering Passive Mode (300,0,0,1,10,10)",
			wantErr: true,
		},
		{
			name:    "port octet out of range",
			text:    "Entering Passive Mode (10,0,0,1,256,10)",
			wantErr: true,
		},
		{
			name:    "too few fields",
			text:    "Entering Passive Mode (10,0,0,1,10)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parsePASV(tt.text)
			if tt.wantErr {
				var se *SyntaxError
				if !errors.As(err, &se) {
					t.Fatalf("expected *SyntaxError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePASV failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatPORT(t *testing.T) {
	t.Parallel()
	tests := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{addr: "192.168.1.100:50000", want: "192,168,1,100,195,80"},
		{addr: "127.0.0.1:1", want: "127,0,0,1,0,1"},
		{addr: "127.0.0.1:65535", want: "127,0,0,1,255,255"},
		{addr: "[::1]:2121", wantErr: true},
		{addr: "not-an-ip:2121", wantErr: true},
		{addr: "missing-port", wantErr: true},
	}

	for _, tt := range tests {
		got, err := formatPORT(tt.addr)
		if tt.wantErr {
			if err == nil {
				t.Errorf("formatPORT(%q): expected error", tt.addr)
			}
			continue
		}
		if err != nil {
			t.Errorf("formatPORT(%q) failed: %v", tt.addr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("formatPORT(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

// The PORT argument and the PASV tuple use the same p1*256+p2 encoding, so
// formatting an address and parsing it back must round-trip any valid port.
func TestPortEncodingRoundTrip(t *testing.T) {
	t.Parallel()
	for _, port := range []int{1, 21, 255, 256, 1024, 50069, 65535} {
		addr := fmt.Sprintf("10.1.2.3:%d", port)
		arg, err := formatPORT(addr)
		if err != nil {
			t.Fatalf("formatPORT(%q) failed: %v", addr, err)
		}
		back, err := parsePASV("(" + arg + ")")
		if err != nil {
			t.Fatalf("parsePASV of %q failed: %v", arg, err)
		}
		if back != addr {
			t.Errorf("port %d: round-trip gave %q, want %q", port, back, addr)
		}
	}
}

func TestResolveDataAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pasvAddr    string
		controlHost string
		want        string
	}{
		{"192.168.1.1:50069", "ftp.example.com", "192.168.1.1:50069"},
		{"0.0.0.0:50069", "203.0.113.7", "203.0.113.7:50069"},
		{"garbage", "203.0.113.7", "garbage"},
	}

	for _, tt := range tests {
		if got := resolveDataAddr(tt.pasvAddr, tt.controlHost); got != tt.want {
			t.Errorf("resolveDataAddr(%q, %q) = %q, want %q",
				tt.pasvAddr, tt.controlHost, got, tt.want)
		}
	}
}
