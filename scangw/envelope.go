package scangw

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxNameLen bounds the name field of an envelope header. A peer announcing a
// longer name is not speaking this protocol.
const maxNameLen = 4096

// writeHeader writes the envelope header: name length, name bytes and payload
// size. The payload itself is streamed separately by the caller.
func writeHeader(w io.Writer, name string, size uint64) error {
	if len(name) == 0 || len(name) > maxNameLen {
		return fmt.Errorf("invalid file name length %d", len(name))
	}

	buf := make([]byte, 0, 4+len(name)+8)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(name)))
	buf = append(buf, name...)
	buf = binary.BigEndian.AppendUint64(buf, size)

	_, err := w.Write(buf)
	return err
}

// readHeader reads the envelope header with exact-length reads. Any short
// read surfaces as an error; TCP segmentation never splits a field from the
// reader's point of view.
func readHeader(r io.Reader) (name string, size uint64, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", 0, err
	}

	nameLen := binary.BigEndian.Uint32(lenBuf[:])
	if nameLen == 0 || nameLen > maxNameLen {
		return "", 0, fmt.Errorf("invalid file name length %d", nameLen)
	}

	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return "", 0, err
	}

	var sizeBuf [8]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return "", 0, err
	}

	return string(nameBuf), binary.BigEndian.Uint64(sizeBuf[:]), nil
}
