package container

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultMimeType is the generic container every build supports. It is a
// stream of msgpack values: one header followed by one record per sample.
const DefaultMimeType = "video/x-callmedia+msgpack"

const formatVersion = 1

var errHeaderWritten = errors.New("container: header already written")

func init() {
	Register(DefaultMimeType, func(w io.Writer) (Muxer, error) {
		return NewMsgpackMuxer(w), nil
	})
}

// Header is the first value of a msgpack recording.
type Header struct {
	Version int         `msgpack:"v"`
	Created time.Time   `msgpack:"created"`
	Tracks  []TrackInfo `msgpack:"tracks"`
}

// Record is one sample of a msgpack recording.
type Record struct {
	TrackID   string        `msgpack:"t"`
	Timestamp time.Time     `msgpack:"ts"`
	Duration  time.Duration `msgpack:"d"`
	Data      []byte        `msgpack:"data"`
}

type msgpackMuxer struct {
	enc    *msgpack.Encoder
	header bool
	tracks map[string]struct{}
}

// NewMsgpackMuxer returns a muxer writing the DefaultMimeType format to w.
func NewMsgpackMuxer(w io.Writer) Muxer {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return &msgpackMuxer{enc: enc, tracks: make(map[string]struct{})}
}

func (m *msgpackMuxer) WriteHeader(tracks []TrackInfo) error {
	if m.header {
		return errHeaderWritten
	}
	for _, t := range tracks {
		m.tracks[t.ID] = struct{}{}
	}
	m.header = true
	return m.enc.Encode(&Header{
		Version: formatVersion,
		Created: time.Now().UTC(),
		Tracks:  tracks,
	})
}

func (m *msgpackMuxer) WriteSample(trackID string, s media.Sample) error {
	if !m.header {
		return fmt.Errorf("container: sample written before header")
	}
	if _, ok := m.tracks[trackID]; !ok {
		return fmt.Errorf("container: unknown track %q", trackID)
	}
	return m.enc.Encode(&Record{
		TrackID:   trackID,
		Timestamp: s.Timestamp,
		Duration:  s.Duration,
		Data:      s.Data,
	})
}

func (m *msgpackMuxer) Close() error {
	return nil
}

// Reader reads back a DefaultMimeType recording.
type Reader struct {
	dec    *msgpack.Decoder
	Header Header
}

// NewReader reads the header of a recording from r.
func NewReader(r io.Reader) (*Reader, error) {
	dec := msgpack.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("container: read header: %w", err)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("container: unsupported version %d", h.Version)
	}
	return &Reader{dec: dec, Header: h}, nil
}

// Next returns the next record, or io.EOF at the end of the recording.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("container: read record: %w", err)
	}
	return &rec, nil
}
