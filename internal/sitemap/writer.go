package sitemap

import (
	"bytes"
	"encoding/xml"
	"os"
)

// Namespace is the sitemap protocol namespace written on both root elements.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

const indentUnit = "  "

// Field is one child element of a record. Empty values are not written.
type Field struct {
	Name  string
	Value string
}

type streamState int

const (
	streamUnopened streamState = iota
	streamOpen
	streamClosed
)

// StreamWriter builds one XML document in memory and drains it to a single
// file on every FlushToSink, so memory stays bounded by what was written
// since the previous flush.
//
// The file is created (or truncated) on the first flush, not on Open.
// A StreamWriter is not safe for concurrent use.
type StreamWriter struct {
	path   string
	indent bool
	state  streamState
	root   string
	buf    bytes.Buffer
	enc    *xml.Encoder
	file   *os.File
	size   int64
}

// NewStreamWriter returns an unopened writer. indent selects pretty-printed
// output; it only changes whitespace.
func NewStreamWriter(indent bool) *StreamWriter {
	return &StreamWriter{indent: indent}
}

// Path returns the target file path, empty before Open.
func (w *StreamWriter) Path() string {
	return w.path
}

// Size returns the length of the document so far, drained or still
// buffered, excluding the closing root element.
func (w *StreamWriter) Size() int64 {
	return w.size + int64(w.buf.Len())
}

// RecordSize returns how many bytes WriteRecord would add for the record.
func (w *StreamWriter) RecordSize(name string, fields []Field) int64 {
	var scratch bytes.Buffer
	enc := xml.NewEncoder(&scratch)
	if w.indent {
		enc.Indent("", indentUnit)
	}
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "r"}})
	_ = enc.Flush()
	start := scratch.Len()
	for _, tok := range recordTokens(name, fields) {
		if err := enc.EncodeToken(tok); err != nil {
			return 0
		}
	}
	_ = enc.Flush()
	return int64(scratch.Len() - start)
}

// ClosingSize returns how many bytes Close adds to end the document.
func (w *StreamWriter) ClosingSize() int64 {
	n := int64(len("</>") + len(w.root))
	if w.indent {
		// newline before the end tag and after it
		n += 2
	}
	return n
}

// Open starts a new document targeting path. It panics if the writer was
// already opened.
func (w *StreamWriter) Open(path string) {
	if w.state != streamUnopened {
		panic("sitemap: StreamWriter opened twice")
	}
	w.path = path
	w.state = streamOpen
	w.buf.WriteString(xml.Header)
	w.enc = xml.NewEncoder(&w.buf)
	if w.indent {
		w.enc.Indent("", indentUnit)
	}
}

// StartRoot writes the root element with the sitemap namespace.
func (w *StreamWriter) StartRoot(name, namespace string) error {
	w.mustBeOpen()
	w.root = name
	start := xml.StartElement{
		Name: xml.Name{Local: name},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: namespace}},
	}
	if err := w.enc.EncodeToken(start); err != nil {
		return w.fail("failed to encode root element", ErrIOWriteFailed, err)
	}
	if err := w.enc.Flush(); err != nil {
		return w.fail("failed to encode root element", ErrIOWriteFailed, err)
	}
	return nil
}

// WriteRecord writes one element holding fields in order, skipping fields
// with an empty value.
func (w *StreamWriter) WriteRecord(name string, fields []Field) error {
	w.mustBeOpen()
	for _, tok := range recordTokens(name, fields) {
		if err := w.enc.EncodeToken(tok); err != nil {
			return w.fail("failed to encode "+name+" record", ErrIOWriteFailed, err)
		}
	}
	// keeps Size exact
	if err := w.enc.Flush(); err != nil {
		return w.fail("failed to encode "+name+" record", ErrIOWriteFailed, err)
	}
	return nil
}

func recordTokens(name string, fields []Field) []xml.Token {
	tokens := make([]xml.Token, 0, 2+3*len(fields))
	tokens = append(tokens, xml.StartElement{Name: xml.Name{Local: name}})
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		tokens = append(tokens,
			xml.StartElement{Name: xml.Name{Local: f.Name}},
			xml.CharData(f.Value),
			xml.EndElement{Name: xml.Name{Local: f.Name}},
		)
	}
	return append(tokens, xml.EndElement{Name: xml.Name{Local: name}})
}

// FlushToSink drains everything written since the last flush to the file.
// It can be called any number of times while the document is open.
func (w *StreamWriter) FlushToSink() error {
	w.mustBeOpen()
	if err := w.enc.Flush(); err != nil {
		return w.fail("failed to encode buffered records", ErrIOWriteFailed, err)
	}
	return w.drain()
}

// Close ends the root element and the document, then performs a final
// flush. Afterwards the writer is inert; closing again is a no-op.
func (w *StreamWriter) Close() error {
	if w.state != streamOpen {
		return nil
	}
	if w.root != "" {
		if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: w.root}}); err != nil {
			return w.fail("failed to encode closing root element", ErrIOWriteFailed, err)
		}
	}
	if err := w.enc.Close(); err != nil {
		return w.fail("failed to finish document", ErrIOWriteFailed, err)
	}
	if w.indent {
		w.buf.WriteByte('\n')
	}
	if err := w.drain(); err != nil {
		return err
	}

	w.state = streamClosed
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			w.file = nil
			return &IOError{Path: w.path, Message: "failed to close file", Kind: ErrIOWriteFailed, Cause: err}
		}
		w.file = nil
	}
	return nil
}

func (w *StreamWriter) drain() error {
	if w.buf.Len() == 0 {
		return nil
	}
	if w.file == nil {
		f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return w.fail("unable to open file", ErrIOUnavailable, err)
		}
		w.file = f
	}
	n, err := w.file.Write(w.buf.Bytes())
	w.size += int64(n)
	if err != nil {
		return w.fail("unable to write in file", ErrIOWriteFailed, err)
	}
	w.buf.Reset()
	return nil
}

// fail makes the writer terminal and releases the file handle.
func (w *StreamWriter) fail(msg string, kind, cause error) error {
	w.state = streamClosed
	w.buf.Reset()
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	return &IOError{Path: w.path, Message: msg, Kind: kind, Cause: cause}
}

func (w *StreamWriter) mustBeOpen() {
	switch w.state {
	case streamUnopened:
		panic("sitemap: StreamWriter used before Open")
	case streamClosed:
		panic("sitemap: StreamWriter used after Close")
	}
}
