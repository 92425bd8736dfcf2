// Package ftp implements an FTP client directly on top of TCP, with no
// protocol library assistance.
//
// # Overview
//
// The package provides:
//   - A control channel that sends CRLF-terminated commands and parses
//     single- and multi-line replies
//   - Data channel negotiation in passive (PASV) and active (PORT) mode
//   - Streamed uploads and downloads in binary or ASCII mode with per-chunk
//     progress callbacks
//   - Directory operations (NLST, CWD, PWD, MKD, RMD, DELE, RNFR/RNTO, SIZE)
//
// # Basic Usage
//
//	client, err := ftp.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	if _, err := client.Login("username", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
// # File Transfers
//
// Transfers stream through an io.Reader/io.Writer and report progress once
// per underlying socket read or write:
//
//	f, _ := os.Create("local.bin")
//	defer f.Close()
//	err = client.Retrieve("remote.bin", f, func(n int) {
//	    fmt.Printf("+%d bytes\n", n)
//	})
//
// # Error Handling
//
// Failures are reported as typed errors: *ConnError for connectivity faults
// (fatal to the session), *SyntaxError for replies or address tuples that do
// not match the protocol grammar (fatal to the operation only), and
// *ServerError for completed replies whose code signals failure. A
// *ServerError distinguishes transient (4xx) from permanent (5xx) failures:
//
//	if err := client.ChangeDir("/pub"); err != nil {
//	    var se *ftp.ServerError
//	    if errors.As(err, &se) && se.Permanent() {
//	        // retrying will not help
//	    }
//	}
//
// The client never retries on its own; recovery policy belongs to the caller.
package ftp
