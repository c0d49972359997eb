// Package pack implements the optional packfile interop format from
// spec.md §6: a single-file export of a set of objects, optionally
// zstd-compressed per WLL_COMPRESSION, trailed by a whole-file integrity
// hash. It is a supplemental exporter/importer layered on top of
// objectstore — nothing in the ledger, gate or replay packages ever
// depends on it — grounded on the same canon.Writer/Reader
// length-prefixed discipline the rest of the repo uses for on-the-wire
// byte layouts.
package pack

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/crypto"
	"github.com/mapleaiorg/wll/model"
	"github.com/mapleaiorg/wll/objectstore"
)

// magic identifies a WLL packfile; version lets a future incompatible
// layout change without guessing from content.
var magic = [4]byte{'W', 'L', 'L', 'P'}

const version = uint32(1)

// compression flag values, one byte written right after the entry count.
// WLL_COMPRESSION selects between these at export time (config.Config.Compression).
const (
	compressionNone uint8 = 0
	compressionZstd uint8 = 1
)

// trailerSize is the width of the plain (non domain-separated) BLAKE3
// trailer spec.md §6 specifies for this format. Every other hash in the
// system goes through crypto.HashWithDomain; the packfile trailer is the
// one deliberate exception, since it exists purely for interop with
// whatever else produces or consumes this exact wire format, and an
// untagged hash is what the spec's byte layout calls for.
const trailerSize = 32

// blake3Sum computes a plain, untagged BLAKE3-256 digest using the same
// streaming Hasher constructor crypto.NewDomainHasher wraps, so this
// package does not need to guess at a convenience function the library
// may or may not export.
func blake3Sum(data []byte) [trailerSize]byte {
	h := blake3.New(trailerSize, nil)
	h.Write(data)
	var out [trailerSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Entry is one object bound for a packfile: its store kind, its content
// id, and its raw (uncompressed) bytes as held by the object store.
type Entry struct {
	Kind objectstore.Kind
	ID   model.ObjectId
	Data []byte
}

// Write serializes entries into a single packfile body and returns the
// bytes, compressing entry bodies with zstd iff compress is true — the
// caller passes config.Config.Compression, so WLL_COMPRESSION=none
// produces an uncompressed (but still magic/trailer-verified) packfile.
// Entries are written in the order given; callers that want a stable,
// diffable pack should sort them by ID first.
func Write(entries []Entry, compress bool) ([]byte, error) {
	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("pack: new zstd encoder: %w", err)
		}
		defer enc.Close()
	}

	var body bytes.Buffer
	body.Write(magic[:])

	var head canon.Writer
	head.PutU32LE(version)
	head.PutVarint(uint64(len(entries)))
	if compress {
		head.PutU8(compressionZstd)
	} else {
		head.PutU8(compressionNone)
	}
	body.Write(head.Bytes())

	for _, e := range entries {
		out := e.Data
		if compress {
			out = enc.EncodeAll(e.Data, nil)
		}

		var w canon.Writer
		w.PutU8(uint8(e.Kind))
		w.PutFixed(e.ID[:])
		w.PutVarint(uint64(len(out)))
		body.Write(w.Bytes())
		body.Write(out)
	}

	trailer := blake3Sum(body.Bytes())
	body.Write(trailer[:])
	return body.Bytes(), nil
}

// Read parses a packfile produced by Write, verifying the magic header,
// version and trailer hash before decompressing any entry bodies.
func Read(raw []byte) ([]Entry, error) {
	if len(raw) < len(magic)+trailerSize {
		return nil, canon.ErrTruncated
	}

	bodyLen := len(raw) - trailerSize
	body, trailer := raw[:bodyLen], raw[bodyLen:]

	want := blake3Sum(body)
	if !bytes.Equal(want[:], trailer) {
		return nil, ErrTrailerMismatch
	}

	if !bytes.Equal(body[:len(magic)], magic[:]) {
		return nil, ErrBadMagic
	}

	r := canon.NewReader(body[len(magic):])
	gotVersion, err := r.U32LE()
	if err != nil {
		return nil, fmt.Errorf("pack: version: %w", err)
	}
	if gotVersion != version {
		return nil, ErrUnsupportedVersion
	}

	count, err := r.Varint()
	if err != nil {
		return nil, fmt.Errorf("pack: count: %w", err)
	}

	compressionByte, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("pack: compression flag: %w", err)
	}
	if compressionByte != compressionNone && compressionByte != compressionZstd {
		return nil, ErrUnknownCompression
	}

	var dec *zstd.Decoder
	if compressionByte == compressionZstd {
		dec, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("pack: new zstd decoder: %w", err)
		}
		defer dec.Close()
	}

	entries := make([]Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		kindByte, err := r.U8()
		if err != nil {
			return nil, fmt.Errorf("pack: entry %d kind: %w", i, err)
		}
		idBytes, err := r.Fixed(crypto.Size)
		if err != nil {
			return nil, fmt.Errorf("pack: entry %d id: %w", i, err)
		}
		size, err := r.Varint()
		if err != nil {
			return nil, fmt.Errorf("pack: entry %d size: %w", i, err)
		}
		stored, err := r.Fixed(int(size))
		if err != nil {
			return nil, fmt.Errorf("pack: entry %d body: %w", i, err)
		}

		data := stored
		if dec != nil {
			data, err = dec.DecodeAll(stored, nil)
			if err != nil {
				return nil, fmt.Errorf("pack: entry %d decompress: %w", i, err)
			}
		} else {
			data = append([]byte(nil), stored...)
		}

		var id model.ObjectId
		copy(id[:], idBytes)
		entries = append(entries, Entry{Kind: objectstore.Kind(kindByte), ID: id, Data: data})
	}

	return entries, nil
}
