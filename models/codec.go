package models

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

type PayloadHeader struct {
	Signature [4]byte
	BodySize  uint32
	Flags     uint32
}

const flagCompressed uint32 = 1 << 0

// Payloads above this are refused before allocating.
const maxPayloadBody = 64 << 20

var (
	songSignature        = [4]byte{'l', 'y', 's', 'g'}
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrPayloadTruncated  = errors.New("payload truncated")
)

// EncodeSong serializes a song as a fixed header followed by an lz4 block of
// its JSON form. Incompressible bodies are stored raw.
func EncodeSong(song *Song) ([]byte, error) {
	body, err := json.Marshal(song)
	if err != nil {
		return nil, err
	}
	h := PayloadHeader{
		Signature: songSignature,
		BodySize:  uint32(len(body)),
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(body)))
	compressor := lz4.CompressorHC{Level: lz4.Level9}
	n, err := compressor.CompressBlock(body, compressed)
	if err != nil {
		return nil, err
	}
	payload := body
	if n > 0 && n < len(body) {
		h.Flags |= flagCompressed
		payload = compressed[:n]
	}
	header := make([]byte, binary.Size(h))
	if _, err := binary.Encode(header, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return append(header, payload...), nil
}

// DecodeSong reverses EncodeSong and normalizes the result.
func DecodeSong(data []byte) (*Song, error) {
	var h PayloadHeader
	n, err := binary.Decode(data, binary.LittleEndian, &h)
	if err != nil {
		return nil, ErrPayloadTruncated
	}
	if h.Signature != songSignature {
		return nil, ErrSignatureMismatch
	}
	if h.BodySize > maxPayloadBody {
		return nil, ErrPayloadTooLarge
	}
	body := data[n:]
	if h.Flags&flagCompressed != 0 {
		inflated := make([]byte, h.BodySize)
		m, err := lz4.UncompressBlock(body, inflated)
		if err != nil {
			return nil, fmt.Errorf("uncompress song: %w", err)
		}
		body = inflated[:m]
	}
	if uint32(len(body)) != h.BodySize {
		return nil, ErrPayloadTruncated
	}
	song := &Song{}
	if err := json.Unmarshal(body, song); err != nil {
		return nil, fmt.Errorf("parse song: %w", err)
	}
	return song.Normalize(), nil
}
