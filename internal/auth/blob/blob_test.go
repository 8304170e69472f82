package blob_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/blob"
	"github.com/aussiebroadwan/gatekeeper/internal/testutil"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s blob.Storage) blob.Descriptor {
	t.Helper()
	ctx := context.Background()

	body := "hello, world"
	d, err := s.Upload(ctx, blob.Object{Key: "owner/file.txt", ContentType: "text/plain", Size: int64(len(body))}, strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, "owner/file.txt", d.Key)
	require.Equal(t, int64(len(body)), d.Size)
	require.NotEmpty(t, d.ETag)

	u, err := s.SignedURL(ctx, d, time.Minute)
	require.NoError(t, err)
	require.Contains(t, u, "owner/file.txt")

	return d
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := blob.NewMemoryStorage()

	d := exercise(t, s)
	got, ok := s.Get(d.Key)
	require.True(t, ok)
	require.Equal(t, "hello, world", string(got))

	require.NoError(t, s.Delete(ctx, d))
	require.NoError(t, s.Delete(ctx, d))
	_, err := s.SignedURL(ctx, d, time.Minute)
	require.ErrorIs(t, err, blob.ErrObjectNotFound)
}

func TestMinioStorage(t *testing.T) {
	endpoint := testutil.StartMinio(t)
	ctx := context.Background()

	s, err := blob.NewMinioStorage(ctx, blob.MinioConfig{
		Endpoint:  endpoint,
		AccessKey: testutil.MinioAccessKey,
		SecretKey: testutil.MinioSecretKey,
		Bucket:    "gatekeeper-test",
	})
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	// second construction finds the existing bucket
	_, err = blob.NewMinioStorage(ctx, blob.MinioConfig{
		Endpoint:  endpoint,
		AccessKey: testutil.MinioAccessKey,
		SecretKey: testutil.MinioSecretKey,
		Bucket:    "gatekeeper-test",
	})
	require.NoError(t, err)

	d := exercise(t, s)

	u, err := s.SignedURL(ctx, d, time.Minute)
	require.NoError(t, err)
	resp, err := http.Get(u)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Delete(ctx, d))
	_, err = s.SignedURL(ctx, d, time.Minute)
	require.ErrorIs(t, err, blob.ErrObjectNotFound)
}
