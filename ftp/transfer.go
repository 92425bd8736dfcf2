package ftp

import (
	"fmt"
	"io"
	"os"
)

// Retrieve downloads the remote file into w using the session's transfer
// type. The TYPE command is sent before every transfer. onChunk, if not nil,
// is called after each read from the data connection with the number of bytes
// in that chunk; pass nil when progress is not needed.
//
// Example:
//
//	file, err := os.Create("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Retrieve("remote.txt", file, nil)
func (c *Client) Retrieve(remotePath string, w io.Writer, onChunk ProgressFunc) error {
	c.mu.Lock()
	t := c.transferType
	bufSize := c.bufSize
	c.mu.Unlock()

	dataConn, err := c.startTransfer(t, "RETR", remotePath)
	if err != nil {
		return err
	}

	var src io.Reader = dataConn
	if onChunk != nil {
		src = &progressReader{r: dataConn, fn: onChunk}
	}

	var dst io.Writer = w
	var ascii *asciiFromWire
	if t == TypeASCII {
		ascii = &asciiFromWire{w: w}
		dst = ascii
	}

	_, copyErr := io.CopyBuffer(dst, src, make([]byte, bufSize))
	if copyErr == nil && ascii != nil {
		copyErr = ascii.flush()
	}

	// Always finish the data connection (close and read the 226)
	finishErr := c.finishDataConn("RETR", dataConn)

	if copyErr != nil {
		return fmt.Errorf("download failed: %w", copyErr)
	}
	return finishErr
}

// RetrieveTo downloads a remote file to a local path.
// This is a convenience wrapper around Retrieve.
func (c *Client) RetrieveTo(remotePath, localPath string, onChunk ProgressFunc) error {
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer file.Close()

	return c.Retrieve(remotePath, file, onChunk)
}

// Store uploads data from r to the remote path using the session's transfer
// type. The TYPE command is sent before every transfer. onChunk, if not nil,
// is called after each chunk is pushed onto the data connection with the
// number of bytes in that chunk.
//
// Example:
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Store("remote.txt", file, nil)
func (c *Client) Store(remotePath string, r io.Reader, onChunk ProgressFunc) error {
	c.mu.Lock()
	t := c.transferType
	bufSize := c.bufSize
	c.mu.Unlock()

	dataConn, err := c.startTransfer(t, "STOR", remotePath)
	if err != nil {
		return err
	}

	var src io.Reader = r
	if t == TypeASCII {
		src = &asciiToWire{r: src}
	}
	if onChunk != nil {
		src = &progressReader{r: src, fn: onChunk}
	}

	_, copyErr := io.CopyBuffer(dataConn, src, make([]byte, bufSize))

	// Always finish the data connection (close and read the 226)
	finishErr := c.finishDataConn("STOR", dataConn)

	if copyErr != nil {
		return fmt.Errorf("upload failed: %w", copyErr)
	}
	return finishErr
}

// StoreFrom uploads a local file to the remote path.
// This is a convenience wrapper around Store.
func (c *Client) StoreFrom(remotePath, localPath string, onChunk ProgressFunc) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	return c.Store(remotePath, file, onChunk)
}
