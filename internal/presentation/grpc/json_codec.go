package grpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype clients select ("application/grpc+json")
// to talk to the leasing service with the plain messages in proto.go.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec decodes strictly: a misspelled field such as "amout" on a
// payment must fail rather than record a zero amount.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("decode %T: trailing data after message", v)
	}
	return nil
}

func (jsonCodec) Name() string {
	return CodecName
}
