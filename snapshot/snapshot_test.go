package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memcube/blobstore"
	"github.com/hupe1980/memcube/codec"
	"github.com/hupe1980/memcube/model"
)

func testRecords(n, dim int) []*model.MemoryRecord {
	records := make([]*model.MemoryRecord, 0, n)
	for i := 0; i < n; i++ {
		emb := make([]float32, dim)
		for j := range emb {
			emb[j] = float32(i*dim + j)
		}
		records = append(records, &model.MemoryRecord{
			ID:        model.NewRecordID(),
			Text:      "memory",
			Embedding: emb,
			SourceTurns: []model.Message{
				{Role: model.RoleUser, Content: "hello"},
			},
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		})
	}
	return records
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := blobstore.NewMemory()

	in := testRecords(5, 4)
	m, err := Write(ctx, bucket, in, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, m.RecordCount)
	assert.Equal(t, 4, m.Dimension)
	assert.Equal(t, CompressionZstd, m.Compression)
	assert.Equal(t, codec.Default.Name(), m.Codec)

	gotManifest, out, err := Read(ctx, bucket)
	require.NoError(t, err)
	assert.Equal(t, m.ID, gotManifest.ID)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Text, out[i].Text)
		assert.Equal(t, in[i].Embedding, out[i].Embedding)
		assert.Equal(t, in[i].SourceTurns, out[i].SourceTurns)
		assert.True(t, in[i].CreatedAt.Equal(out[i].CreatedAt))
	}
}

func TestRoundTripUncompressedStdlibCodec(t *testing.T) {
	ctx := context.Background()
	bucket := blobstore.NewMemory()

	in := testRecords(2, 3)
	m, err := Write(ctx, bucket, in, 3, func(o *WriteOptions) {
		o.Compress = false
		o.Codec = codec.JSON{}
	})
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, m.Compression)
	assert.Equal(t, "json", m.Codec)

	_, out, err := Read(ctx, bucket)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestWriteAdvancesManifestID(t *testing.T) {
	ctx := context.Background()
	bucket := blobstore.NewMemory()

	m1, err := Write(ctx, bucket, testRecords(1, 2), 2)
	require.NoError(t, err)
	m2, err := Write(ctx, bucket, testRecords(2, 2), 2)
	require.NoError(t, err)
	assert.Greater(t, m2.ID, m1.ID)

	// CURRENT points at the newest snapshot.
	_, out, err := Read(ctx, bucket)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestWriteRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	bucket := blobstore.NewMemory()

	_, err := Write(ctx, bucket, testRecords(1, 3), 4)
	require.Error(t, err)

	exists, err := Exists(ctx, bucket)
	require.NoError(t, err)
	assert.False(t, exists, "failed write must not leave a snapshot behind")
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("NoSnapshot", func(t *testing.T) {
		_, _, err := Read(ctx, blobstore.NewMemory())
		require.ErrorIs(t, err, ErrNoSnapshot)
	})

	t.Run("CorruptCurrent", func(t *testing.T) {
		bucket := blobstore.NewMemory()
		require.NoError(t, bucket.Put(ctx, CurrentFileName, []byte("garbage")))

		_, _, err := Read(ctx, bucket)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
	})

	t.Run("UnsupportedManifestVersion", func(t *testing.T) {
		bucket := blobstore.NewMemory()
		_, err := Write(ctx, bucket, testRecords(1, 2), 2)
		require.NoError(t, err)

		require.NoError(t, bucket.Put(ctx, "MANIFEST-000001.json",
			[]byte(`{"version":99,"id":1,"record_count":1,"dimension":2,"codec":"go-json","compression":"zstd","records_file":"RECORDS-000001.mcr"}`)))

		_, _, err = Read(ctx, bucket)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe.Error(), "version")
	})

	t.Run("UnknownCodec", func(t *testing.T) {
		bucket := blobstore.NewMemory()
		_, err := Write(ctx, bucket, testRecords(1, 2), 2)
		require.NoError(t, err)

		require.NoError(t, bucket.Put(ctx, "MANIFEST-000001.json",
			[]byte(`{"version":1,"id":1,"record_count":1,"dimension":2,"codec":"msgpack","compression":"zstd","records_file":"RECORDS-000001.mcr"}`)))

		_, _, err = Read(ctx, bucket)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
	})

	t.Run("CorruptRecordsPayload", func(t *testing.T) {
		bucket := blobstore.NewMemory()
		m, err := Write(ctx, bucket, testRecords(3, 2), 2)
		require.NoError(t, err)

		data, err := blobstore.ReadAll(ctx, bucket, m.RecordsFile)
		require.NoError(t, err)
		data[20] ^= 0xFF // flip a payload bit
		require.NoError(t, bucket.Put(ctx, m.RecordsFile, data))

		_, _, err = Read(ctx, bucket)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe.Error(), "checksum")
	})

	t.Run("TruncatedRecordsFile", func(t *testing.T) {
		bucket := blobstore.NewMemory()
		m, err := Write(ctx, bucket, testRecords(3, 2), 2)
		require.NoError(t, err)

		require.NoError(t, bucket.Put(ctx, m.RecordsFile, []byte{1, 2, 3}))

		_, _, err = Read(ctx, bucket)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
	})
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	bucket := blobstore.NewMemory()

	exists, err := Exists(ctx, bucket)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = Write(ctx, bucket, nil, 2)
	require.NoError(t, err)

	exists, err = Exists(ctx, bucket)
	require.NoError(t, err)
	assert.True(t, exists)
}
