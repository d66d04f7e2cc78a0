package callmedia

import (
	"bytes"
	"io"
)

// Blob is a finished recording.
// Reference: https://w3c.github.io/FileAPI/#blob-section
type Blob struct {
	Type string
	Data []byte
}

// NewBlob concatenates chunks into a Blob of the given type.
func NewBlob(chunks [][]byte, mimeType string) *Blob {
	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}
	return &Blob{Type: mimeType, Data: data}
}

// Size returns the size of the blob in bytes.
func (b *Blob) Size() int {
	return len(b.Data)
}

// Reader returns a reader over the blob bytes.
func (b *Blob) Reader() io.Reader {
	return bytes.NewReader(b.Data)
}

// WriteTo implements io.WriterTo.
func (b *Blob) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Data)
	return int64(n), err
}
