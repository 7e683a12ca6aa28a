package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"mercator-hq/chproxy/pkg/transcript"
)

// bodyCodec identifies how a body is stored in the records table.
type bodyCodec int

const (
	bodyRaw  bodyCodec = 0
	bodyZstd bodyCodec = 1
)

// minCompressSize is the smallest body worth trying to compress.
const minCompressSize = 256

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	// zstd encoders and decoders are safe for concurrent use.
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("storage: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("storage: zstd decoder initialization failed: " + err.Error())
	}
}

// storedMeta is the CBOR column holding everything but the body and shingles.
type storedMeta struct {
	Headers []transcript.Header `cbor:"1,keyasint"`
	Tokens  []string            `cbor:"2,keyasint"`
}

func encodeMeta(headers []transcript.Header, tokens []string) ([]byte, error) {
	return encMode.Marshal(storedMeta{Headers: headers, Tokens: tokens})
}

func decodeMeta(data []byte) (storedMeta, error) {
	var meta storedMeta
	err := decMode.Unmarshal(data, &meta)
	return meta, err
}

// compressBody returns the stored form of body. Bodies that are small or
// do not shrink are kept raw.
func compressBody(body []byte) ([]byte, bodyCodec) {
	if len(body) < minCompressSize {
		return body, bodyRaw
	}
	compressed := zstdEncoder.EncodeAll(body, nil)
	if len(compressed) >= len(body) {
		return body, bodyRaw
	}
	return compressed, bodyZstd
}

// decompressBody reverses compressBody. size is the original length.
func decompressBody(stored []byte, codec bodyCodec, size int) ([]byte, error) {
	switch codec {
	case bodyRaw:
		if len(stored) != size {
			return nil, fmt.Errorf("raw body: size %d does not match expected %d", len(stored), size)
		}
		return stored, nil
	case bodyZstd:
		body, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(body) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(body), size)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("unknown body codec %d", codec)
	}
}
