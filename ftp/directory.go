package ftp

import (
	"bufio"
	"fmt"
	"strings"
)

// List returns the names of files and directories under path, one entry per
// NLST line, in server order. If path is empty the current directory is
// listed. Blank lines are dropped. An empty directory yields an empty slice.
func (c *Client) List(path string) ([]string, error) {
	var args []string
	if path != "" {
		args = append(args, path)
	}

	// Listings are line-oriented text, so they always travel in ASCII mode
	dataConn, err := c.startTransfer(TypeASCII, "NLST", args...)
	if err != nil {
		return nil, err
	}

	names := []string{}
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			names = append(names, name)
		}
	}

	readErr := scanner.Err()

	// Always finish the data connection (close and read the 226), even when
	// the listing read failed: the completion reply must be consumed or it
	// would answer the next command.
	finishErr := c.finishDataConn("NLST", dataConn)

	if readErr != nil {
		return nil, fmt.Errorf("failed to read name list: %w", readErr)
	}
	if finishErr != nil {
		return nil, finishErr
	}

	return names, nil
}

// ChangeDir changes the current working directory.
func (c *Client) ChangeDir(path string) error {
	_, err := c.expect2xx("CWD", path)
	return err
}

// CurrentDir returns the current working directory as reported by PWD.
// Servers quote the path in the reply, e.g.
//
//	257 "/home/user" is the current directory
//
// If the reply carries no quoted segment, "unknown" is returned without an
// error; the session stays usable either way.
func (c *Client) CurrentDir() (string, error) {
	rep, err := c.expect2xx("PWD")
	if err != nil {
		return "", err
	}

	text := rep.Text
	start := strings.Index(text, "\"")
	if start == -1 {
		return "unknown", nil
	}
	end := strings.Index(text[start+1:], "\"")
	if end == -1 {
		return "unknown", nil
	}

	return text[start+1 : start+1+end], nil
}

// MakeDir creates a new directory.
func (c *Client) MakeDir(path string) error {
	_, err := c.expect2xx("MKD", path)
	return err
}

// RemoveDir removes a directory.
func (c *Client) RemoveDir(path string) error {
	_, err := c.expect2xx("RMD", path)
	return err
}

// Delete deletes a file.
func (c *Client) Delete(path string) error {
	_, err := c.expect2xx("DELE", path)
	return err
}

// Rename renames a file or directory with the RNFR/RNTO pair. RNFR must be
// answered with 350 before RNTO is sent.
func (c *Client) Rename(from, to string) error {
	rep, err := c.cmd("RNFR", from)
	if err != nil {
		return err
	}

	if rep.Code != 350 {
		return &ServerError{Command: "RNFR", Reply: rep}
	}

	_, err = c.expect2xx("RNTO", to)
	return err
}

// Size returns the size of a remote file in bytes using the SIZE command.
func (c *Client) Size(path string) (int64, error) {
	rep, err := c.expect2xx("SIZE", path)
	if err != nil {
		return 0, err
	}

	var size int64
	if _, err := fmt.Sscanf(rep.Text, "%d", &size); err != nil {
		return 0, &SyntaxError{What: "SIZE reply", Raw: rep.Text}
	}

	return size, nil
}
