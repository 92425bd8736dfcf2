// Package scangw implements the scan gateway protocol: a client uploads one
// file per TCP connection and receives exactly one verdict line back.
//
// The request is a length-prefixed envelope followed by the raw payload:
//
//	uint32 big-endian  name length
//	name bytes
//	uint64 big-endian  payload size
//	payload bytes
//
// The response is a single text line: "OK", "INFECTED:<signature>",
// "SCAN_ERROR:<detail>" or "ERROR:<detail>".
//
// The package provides the client procedure (Submit), the gateway server
// (Gateway) and the scanning engine abstraction (Engine) with clamscan
// subprocess and clamd daemon implementations.
package scangw
