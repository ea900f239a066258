package session

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	tracks, ref := compiledTracks(t)
	snap := New()
	snap.Chromosomes = []Chromosome{{Name: "1", Length: 1005}}
	snap.Genomes = []Genome{{RawName: "G1", DisplayName: "G1", Group: "g"}, {RawName: "G2", DisplayName: "G2", Group: "g"}}
	snap.AddTrack(tracks["G1"])
	snap.AddTrack(tracks["G2"])
	snap.AddTrack(ref)
	return snap
}

// storeContract exercises the behaviour every Store shares.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	snap := sampleSnapshot(t)
	require.NoError(t, store.Save(ctx, "beta", snap))
	require.NoError(t, store.Save(ctx, "alpha", snap))
	require.NoError(t, store.Save(ctx, "beta", snap))

	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	loaded, err := store.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, loaded.ID)
	assert.Equal(t, snap.Genomes, loaded.Genomes)
	assert.Len(t, loaded.Tracks, 3)

	assert.Error(t, store.Save(ctx, "../escape", snap))
}

func TestFileStore(t *testing.T) {
	storeContract(t, NewFileStore(filepath.Join(t.TempDir(), "sessions")))
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	storeContract(t, s)

	ok, err := s.Delete(context.Background(), "alpha")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(context.Background(), "alpha")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	storeContract(t, newS3Store(fake, "bucket", ""))

	assert.Contains(t, fake.objects, "sessions/alpha.gob")
	assert.Greater(t, fake.listCalls, 1, "listing follows continuation tokens")
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestFileStore_Valid(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.vcf")
	require.NoError(t, os.WriteFile(src, []byte("##fileformat=VCFv4.2\n"), 0644))

	fp, err := StatFile(src)
	require.NoError(t, err)

	store := NewFileStore(filepath.Join(dir, "sessions"))
	snap := sampleSnapshot(t)
	snap.Files = []Fingerprint{fp}
	require.NoError(t, store.Save(context.Background(), "s", snap))

	assert.True(t, store.Valid("s", []Fingerprint{fp}))
	assert.False(t, store.Valid("s", nil))
	assert.False(t, store.Valid("other", []Fingerprint{fp}))
	assert.Empty(t, snap.Stale())

	changed := fp
	changed.Size++
	assert.False(t, store.Valid("s", []Fingerprint{changed}))

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, later, later))
	assert.Equal(t, []string{src}, snap.Stale())

	store.Clear("s")
	assert.False(t, store.Valid("s", []Fingerprint{fp}))
}

// fakeS3 is an in-memory bucket returning one key per list page.
type fakeS3 struct {
	objects   map[string][]byte
	listCalls int
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listCalls++
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if start < len(keys) {
		out.Contents = []types.Object{{Key: aws.String(keys[start])}}
		if start+1 < len(keys) {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(strconv.Itoa(start + 1))
		}
	}
	return out, nil
}
