package checkpoint

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/blobstore"
	"github.com/hupe1980/seqpack/codec"
	"github.com/hupe1980/seqpack/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batches(seed int64, n, rows, capacity int) []*seqpack.Batch {
	rng := testutil.NewRNG(seed)
	out := make([]*seqpack.Batch, n)
	for i := range out {
		ids, mask := testutil.PadRight(rng.Sequences(rows, 1, capacity, 500), capacity, 0)
		out[i] = &seqpack.Batch{InputIDs: ids, AttentionMask: mask}
	}
	return out
}

func packedState(t *testing.T) (*seqpack.Packer, []*seqpack.Batch) {
	t.Helper()
	p, err := seqpack.NewPacker(32, 4)
	require.NoError(t, err)

	bs := batches(5, 8, 12, 32)
	for _, b := range bs[:4] {
		_, err := p.Pack(b)
		require.NoError(t, err)
	}
	require.NotEmpty(t, p.Leftover())
	return p, bs[4:]
}

func TestEncodeDecode(t *testing.T) {
	p, _ := packedState(t)
	st := p.State()

	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		for _, ct := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
			t.Run(c.Name()+"/"+ct.String(), func(t *testing.T) {
				data, err := Encode(st, c, ct)
				require.NoError(t, err)

				got, h, err := Decode(data)
				require.NoError(t, err)
				assert.Equal(t, FormatVersion, h.Version)
				assert.Equal(t, ct, h.Compression)
				assert.Equal(t, c.Name(), h.Codec)
				assert.Equal(t, st, got)
			})
		}
	}
}

func TestDecodeCorrupt(t *testing.T) {
	p, _ := packedState(t)
	data, err := Encode(p.State(), codec.JSON{}, CompressionNone)
	require.NoError(t, err)

	t.Run("short", func(t *testing.T) {
		_, _, err := Decode(data[:5])
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 'X'
		_, _, err := Decode(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		binary.LittleEndian.PutUint16(bad[4:], 99)
		_, _, err := Decode(bad)
		assert.ErrorIs(t, err, ErrIncompatibleVersion)
	})

	t.Run("checksum", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-2] ^= 0xff
		_, _, err := Decode(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, err := Decode(data[:len(data)-10])
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	cs := NewStore(blobstore.NewMemoryStore(), WithPrefix("worker-0/"))

	_, err := cs.Load(ctx)
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	p, _ := packedState(t)
	id, err := cs.Save(ctx, p.State())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	st, err := cs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.State(), st)

	p.Reset()
	id, err = cs.Save(ctx, p.State())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)

	latest, err := cs.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest.Leftover)

	first, err := cs.LoadVersion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, st, first)

	ids, err := cs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)
}

func TestStore_RestoreReproducesOutput(t *testing.T) {
	ctx := context.Background()
	cs := NewStore(blobstore.NewLocalStore(t.TempDir()), WithCompression(CompressionZSTD), WithCodec(codec.JSON{}))

	orig, rest := packedState(t)
	_, err := cs.Save(ctx, orig.State())
	require.NoError(t, err)

	resumed, err := seqpack.NewPacker(32, 4)
	require.NoError(t, err)
	ok, err := cs.Restore(ctx, resumed)
	require.NoError(t, err)
	require.True(t, ok)

	for i, b := range rest {
		want, err := orig.Pack(b)
		require.NoError(t, err)
		got, err := resumed.Pack(b)
		require.NoError(t, err)
		assert.Equal(t, want, got, "batch %d", i)
	}
}

func TestStore_RestoreWithoutCheckpoint(t *testing.T) {
	p, err := seqpack.NewPacker(32, 4)
	require.NoError(t, err)

	ok, err := NewStore(blobstore.NewMemoryStore()).Restore(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RestoreMismatch(t *testing.T) {
	ctx := context.Background()
	cs := NewStore(blobstore.NewMemoryStore())

	orig, _ := packedState(t)
	_, err := cs.Save(ctx, orig.State())
	require.NoError(t, err)

	other, err := seqpack.NewPacker(64, 4)
	require.NoError(t, err)
	_, err = cs.Restore(ctx, other)
	assert.ErrorIs(t, err, seqpack.ErrStateMismatch)
}

func TestStore_CorruptCurrent(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	cs := NewStore(mem)

	require.NoError(t, mem.Put(ctx, CurrentFileName, []byte("MANIFEST-000001")))
	_, err := cs.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, mem.Put(ctx, CurrentFileName, []byte(FileName(7))))
	_, err = cs.Load(ctx)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	cs := NewStore(mem)

	p, _ := packedState(t)
	for range 5 {
		_, err := cs.Save(ctx, p.State())
		require.NoError(t, err)
	}

	removed, err := cs.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	ids, err := cs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, ids)

	// CURRENT still resolves.
	_, err = cs.Load(ctx)
	require.NoError(t, err)

	removed, err = cs.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	names, err := mem.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{CurrentFileName, FileName(5)}, names)
}

func TestStore_ListOrdersIDsNumerically(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	cs := NewStore(mem)

	// Past six digits the blob names no longer sort in id order.
	for _, id := range []uint64{1_000_000, 999_999, 7} {
		require.NoError(t, mem.Put(ctx, FileName(id), []byte("x")))
	}

	ids, err := cs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 999_999, 1_000_000}, ids)

	p, _ := packedState(t)
	id, err := cs.Save(ctx, p.State())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_001), id)
}
