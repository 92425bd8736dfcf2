package ftp

import "io"

// ProgressFunc is called after each chunk of a transfer with the number of
// bytes moved in that chunk. Implementations must be fast; they run inline
// with the transfer.
type ProgressFunc func(n int)

// progressReader wraps an io.Reader and reports per-chunk progress.
type progressReader struct {
	r  io.Reader
	fn ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if pr.fn != nil && n > 0 {
		pr.fn(n)
	}
	return n, err
}

// progressWriter wraps an io.Writer and reports per-chunk progress.
type progressWriter struct {
	w  io.Writer
	fn ProgressFunc
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	if pw.fn != nil && n > 0 {
		pw.fn(n)
	}
	return n, err
}
