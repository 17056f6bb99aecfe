// Package serde defines the primitives to serialize and deserialize (serde)
// the messages of the engine.
//
// A message does not know about the encoding. It asks a format engine,
// registered for the format of the context, to produce the bytes. The formats
// available are:
// - JSON
// - CBOR
//
// Documentation Last Review: 14.10.2026
//
package serde

import "io"

// Format is the identifier of a serialization format.
type Format string

const (
	// FormatJSON is the identifier for the JSON format.
	FormatJSON Format = "JSON"

	// FormatCBOR is the identifier for the CBOR format.
	FormatCBOR Format = "CBOR"
)

// Message is the interface that a data model must implement to be serialized.
type Message interface {
	// Serialize returns the data of the message according to the format of the
	// context.
	Serialize(ctx Context) ([]byte, error)
}

// Factory is the interface to implement to instantiate a message from its
// serialized data.
type Factory interface {
	// Deserialize returns the message of the data according to the format of
	// the context.
	Deserialize(ctx Context, data []byte) (Message, error)
}

// FormatEngine is the interface to implement to support a message in a given
// format.
type FormatEngine interface {
	// Encode returns the bytes of the message for the format.
	Encode(ctx Context, message Message) ([]byte, error)

	// Decode returns the message populated from the data.
	Decode(ctx Context, data []byte) (Message, error)
}

// Fingerprinter is the interface of a message that can be written in a
// deterministic binary form, mostly to compute a digest.
type Fingerprinter interface {
	// Fingerprint writes a deterministic binary representation of the object
	// into the writer.
	Fingerprint(writer io.Writer) error
}
