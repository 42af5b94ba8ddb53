package pipeline

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// ItemReader yields one raw JSON value at a time from a stream of
// concatenated, whitespace-separated values. A malformed fragment is logged
// and skipped; the reader resynchronizes at the next line boundary and the
// stream continues.
type ItemReader struct {
	src io.Reader
	dec *json.Decoder
	log zerolog.Logger
}

// NewItemReader wraps an input stream.
func NewItemReader(r io.Reader, log zerolog.Logger) *ItemReader {
	br := bufio.NewReader(r)
	return &ItemReader{
		src: br,
		dec: json.NewDecoder(br),
		log: log.With().Str("component", "stream").Logger(),
	}
}

// Next returns the next well-formed JSON value, or io.EOF at end of stream.
// Only I/O failures are returned as errors; malformed input is consumed and
// skipped with one warning per fragment.
func (r *ItemReader) Next() (json.RawMessage, error) {
	for {
		var raw json.RawMessage
		err := r.dec.Decode(&raw)
		if err == nil {
			return raw, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			r.log.Warn().Msg("input stream ends inside a JSON value; fragment discarded")
			return nil, io.EOF
		}

		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			r.log.Warn().Int64("offset", syntaxErr.Offset).Err(err).
				Msg("skipping malformed JSON in input stream")
			if err := r.resync(); err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
}

// resync discards input through the next newline and rebuilds the decoder
// on the remainder. Returns io.EOF when the stream ends inside the
// malformed fragment.
func (r *ItemReader) resync() error {
	rest := bufio.NewReader(io.MultiReader(r.dec.Buffered(), r.src))
	if _, err := rest.ReadString('\n'); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return err
	}
	r.src = rest
	r.dec = json.NewDecoder(rest)
	return nil
}
