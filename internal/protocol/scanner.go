package protocol

import (
	"bufio"
	"errors"
	"io"
)

// Returned by [Scanner.Next] for a frame longer than the scanner's limit.
// The whole frame has been consumed; the next call starts a fresh frame.
var ErrFrameTooLong = errors.New("frame exceeds maximum length")

// Size of the read buffer used by [NewScanner].
const readBufferSize = 4096

// Reads null-terminated frames from a byte stream.
//
// Frames may span any number of reads and a single read may carry several
// frames. A Scanner is not safe for concurrent use.
type Scanner struct {
	r     *bufio.Reader
	limit int
	buf   []byte
}

// Creates a scanner over r.
//
// Frames longer than limit bytes are discarded and reported with
// [ErrFrameTooLong]. A limit of zero or less disables the check.
func NewScanner(r io.Reader, limit int) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, readBufferSize), limit: limit}
}

// Returns the next frame without its delimiter.
//
// The returned slice is only valid until the next call. At a clean end of
// stream Next returns [io.EOF]; if the stream ends in the middle of a frame
// it returns [io.ErrUnexpectedEOF] and the partial frame is dropped. Any
// other read error is returned as is and the partial frame is dropped too.
func (s *Scanner) Next() ([]byte, error) {
	s.buf = s.buf[:0]
	oversized := false

	for {
		chunk, err := s.r.ReadSlice(Delimiter)
		if !oversized {
			if s.limit > 0 && len(s.buf)+len(chunk) > s.limit+1 {
				oversized = true
				s.buf = s.buf[:0]
			} else {
				s.buf = append(s.buf, chunk...)
			}
		}

		switch {
		case err == nil:
			if oversized {
				return nil, ErrFrameTooLong
			}
			return s.buf[:len(s.buf)-1], nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(s.buf) == 0 && !oversized {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}
