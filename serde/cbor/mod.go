// Package cbor implements the context engine for the CBOR format.
//
// The engine uses the core deterministic encoding options so that two replicas
// serializing the same message produce the same bytes. Messages reuse the JSON
// struct tags as the library falls back to them when no CBOR tag is present.
package cbor

import (
	"github.com/fxamacker/cbor/v2"
	"go.dedis.ch/delay/serde"
	"golang.org/x/xerrors"
)

// cborEngine is a context engine to marshal and unmarshal in CBOR format.
//
// - implements serde.ContextEngine
type cborEngine struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewContext returns a CBOR context.
func NewContext() serde.Context {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		// The options are static and known to be valid.
		panic(xerrors.Errorf("invalid encoding options: %v", err))
	}

	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(xerrors.Errorf("invalid decoding options: %v", err))
	}

	return serde.NewContext(cborEngine{enc: enc, dec: dec})
}

// GetFormat implements serde.FormatEngine. It returns the CBOR format name.
func (ctx cborEngine) GetFormat() serde.Format {
	return serde.FormatCBOR
}

// Marshal implements serde.FormatEngine. It returns the bytes of the message
// marshaled in CBOR format.
func (ctx cborEngine) Marshal(m interface{}) ([]byte, error) {
	return ctx.enc.Marshal(m)
}

// Unmarshal implements serde.FormatEngine. It populates the message using the
// CBOR format definition.
func (ctx cborEngine) Unmarshal(data []byte, m interface{}) error {
	return ctx.dec.Unmarshal(data, m)
}
