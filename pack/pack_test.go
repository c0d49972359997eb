package pack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapleaiorg/wll/config"
	"github.com/mapleaiorg/wll/crypto"
	"github.com/mapleaiorg/wll/model"
	"github.com/mapleaiorg/wll/objectstore"
)

func entryFor(kind objectstore.Kind, domain string, data []byte) Entry {
	return Entry{
		Kind: kind,
		ID:   model.ObjectIdFromDigest(crypto.HashWithDomain(domain, data)),
		Data: data,
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	entries := []Entry{
		entryFor(objectstore.KindBlob, crypto.DomainBlob, []byte("hello world")),
		entryFor(objectstore.KindTree, crypto.DomainTree, []byte("a tree body")),
		entryFor(objectstore.KindReceipt, crypto.DomainReceipt, []byte("a receipt body")),
	}

	raw, err := Write(entries, true)
	require.NoError(t, err)

	got, err := Read(raw)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, e := range got {
		require.Equal(t, entries[i].Kind, e.Kind)
		require.Equal(t, entries[i].ID, e.ID)
		require.Equal(t, entries[i].Data, e.Data)
	}
}

func TestReadRejectsCorruptedMagic(t *testing.T) {
	raw, err := Write([]Entry{entryFor(objectstore.KindBlob, crypto.DomainBlob, []byte("x"))}, true)
	require.NoError(t, err)
	raw[0] = 'X'

	// Corrupting the header also invalidates the whole-file trailer hash,
	// so the trailer check (which runs first) is what actually fires here.
	_, err = Read(raw)
	require.ErrorIs(t, err, ErrTrailerMismatch)
}

func TestReadRejectsTamperedBody(t *testing.T) {
	raw, err := Write([]Entry{entryFor(objectstore.KindBlob, crypto.DomainBlob, []byte("x"))}, true)
	require.NoError(t, err)
	raw[10] ^= 0xFF

	_, err = Read(raw)
	require.ErrorIs(t, err, ErrTrailerMismatch)
}

func TestEmptyPackfileRoundTrips(t *testing.T) {
	raw, err := Write(nil, true)
	require.NoError(t, err)

	got, err := Read(raw)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestCompressionActuallyShrinksRepetitiveData(t *testing.T) {
	repetitive := make([]byte, 4096)
	for i := range repetitive {
		repetitive[i] = 'a'
	}
	entries := []Entry{entryFor(objectstore.KindBlob, crypto.DomainBlob, repetitive)}
	raw, err := Write(entries, true)
	require.NoError(t, err)
	require.Less(t, len(raw), len(repetitive))
}

func TestCompressionNoneStoresEntriesUncompressed(t *testing.T) {
	entries := []Entry{entryFor(objectstore.KindBlob, crypto.DomainBlob, []byte("plain body"))}

	raw, err := Write(entries, false)
	require.NoError(t, err)

	got, err := Read(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, entries[0].Data, got[0].Data)
}

func TestWriteHonorsConfigCompressionFlag(t *testing.T) {
	t.Setenv("WLL_COMPRESSION", "none")
	cfg := config.Load()
	require.False(t, cfg.Compression)

	entries := []Entry{entryFor(objectstore.KindBlob, crypto.DomainBlob, []byte("plain body"))}
	raw, err := Write(entries, cfg.Compression)
	require.NoError(t, err)

	got, err := Read(raw)
	require.NoError(t, err)
	require.Equal(t, entries[0].Data, got[0].Data)
}

func TestBuildAndParseIndexRoundTrip(t *testing.T) {
	var entries []IndexEntry
	offset := uint64(4)
	for i := byte(0); i < 20; i++ {
		id := model.ObjectIdFromDigest(crypto.HashWithDomain(crypto.DomainBlob, []byte{i}))
		entries = append(entries, IndexEntry{ID: id, Offset: offset})
		offset += 64
	}

	raw := BuildIndex(entries)
	parsed, err := ParseIndex(raw)
	require.NoError(t, err)
	require.Len(t, parsed, len(entries))

	for _, e := range entries {
		off, err := Lookup(parsed, e.ID)
		require.NoError(t, err)
		require.Equal(t, e.Offset, off)
	}
}

func TestLookupMissingIDIsNotFound(t *testing.T) {
	entries := []IndexEntry{
		{ID: model.ObjectIdFromDigest(crypto.HashWithDomain(crypto.DomainBlob, []byte("a"))), Offset: 0},
	}
	raw := BuildIndex(entries)
	parsed, err := ParseIndex(raw)
	require.NoError(t, err)

	missing := model.ObjectIdFromDigest(crypto.HashWithDomain(crypto.DomainBlob, []byte("missing")))
	_, err = Lookup(parsed, missing)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupOnEmptyIndexIsEmptyIndexError(t *testing.T) {
	_, err := Lookup(nil, model.ObjectId{})
	require.ErrorIs(t, err, ErrEmptyIndex)
}
