package ftp

import "io"

// asciiToWire wraps a local source and converts bare LF line endings to CRLF
// for ASCII-mode uploads. Existing CRLF sequences pass through untouched.
type asciiToWire struct {
	r         io.Reader
	prevWasCR bool
	buf       []byte
}

func (a *asciiToWire) Read(p []byte) (int, error) {
	if len(p) < 2 {
		return 0, io.ErrShortBuffer
	}
	if a.buf == nil {
		a.buf = make([]byte, 16*1024)
	}

	// Worst case every byte is an LF that doubles into CRLF, so read at
	// most half of what fits in p
	max := len(p) / 2
	if max > len(a.buf) {
		max = len(a.buf)
	}

	n, err := a.r.Read(a.buf[:max])

	out := 0
	for _, b := range a.buf[:n] {
		if b == '\n' && !a.prevWasCR {
			p[out] = '\r'
			out++
		}
		p[out] = b
		out++
		a.prevWasCR = b == '\r'
	}

	return out, err
}

// asciiFromWire wraps a local destination and converts CRLF line endings back
// to bare LF for ASCII-mode downloads. A lone CR is preserved. A CR at the end
// of a chunk is held back until the next chunk decides its fate; call flush
// once the stream ends.
type asciiFromWire struct {
	w         io.Writer
	pendingCR bool
}

func (a *asciiFromWire) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	out := make([]byte, 0, len(p)+1)
	if a.pendingCR {
		if p[0] != '\n' {
			out = append(out, '\r')
		}
		a.pendingCR = false
	}

	for i := 0; i < len(p); i++ {
		b := p[i]
		if b == '\r' {
			if i == len(p)-1 {
				a.pendingCR = true
				break
			}
			if p[i+1] == '\n' {
				continue
			}
		}
		out = append(out, b)
	}

	if _, err := a.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// flush writes out a trailing CR held back by the last chunk.
func (a *asciiFromWire) flush() error {
	if !a.pendingCR {
		return nil
	}
	a.pendingCR = false
	_, err := a.w.Write([]byte{'\r'})
	return err
}
