package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"
)

// Common errors
var (
	ErrInvalidDocument  = errors.New("invalid document")
	ErrDocumentNotFound = errors.New("document not found")
	ErrCorruptDocument  = errors.New("stored document is corrupted")
)

// Document is the single persisted JSON value holding all client state.
// It is kept as raw text so key order and number precision survive.
type Document json.RawMessage

// EmptyDocument is served whenever no usable document is stored.
var EmptyDocument = Document("{}")

// Bytes returns the raw JSON text
func (d Document) Bytes() []byte {
	return []byte(d)
}

// Size returns the document size in bytes
func (d Document) Size() int {
	return len(d)
}

// Valid reports whether the document is a single well-formed JSON value
func (d Document) Valid() bool {
	return len(bytes.TrimSpace(d)) > 0 && json.Valid(d)
}

// Parse validates raw JSON text and returns it as a Document. The returned
// error wraps ErrInvalidDocument and carries the decoder's message.
func Parse(raw []byte) (Document, error) {
	if !utf8.Valid(raw) {
		return nil, &DocumentError{Err: errors.New("body is not valid UTF-8")}
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		return nil, &DocumentError{Err: err}
	}
	// Reject trailing values such as `{} {}`
	if dec.More() {
		return nil, &DocumentError{Err: errors.New("unexpected data after top-level value")}
	}
	if !json.Valid(raw) {
		return nil, &DocumentError{Err: errors.New("malformed JSON")}
	}
	return Document(raw), nil
}

// Format re-indents the document with the given indent unit. Keys keep
// their order and no characters are escaped. An empty indent compacts.
func (d Document) Format(indent string) (Document, error) {
	var buf bytes.Buffer
	var err error
	if indent == "" {
		err = json.Compact(&buf, d)
	} else {
		err = json.Indent(&buf, d, "", indent)
	}
	if err != nil {
		return nil, &DocumentError{Err: err}
	}
	return Document(buf.Bytes()), nil
}

// DocumentError describes why a document was rejected
type DocumentError struct {
	Err error
}

func (e *DocumentError) Error() string {
	return ErrInvalidDocument.Error() + ": " + e.Err.Error()
}

// Unwrap lets errors.Is match both ErrInvalidDocument and the decoder error
func (e *DocumentError) Unwrap() []error {
	return []error{ErrInvalidDocument, e.Err}
}
