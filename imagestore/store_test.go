package imagestore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledStore(t *testing.T) {
	store, err := New(context.Background(), Options{Driver: "none"})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "k", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, store.Delete(context.Background(), "k"), ErrDisabled)

	_, err = New(context.Background(), Options{Driver: "ftp"})
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	key, err := CardImageKey("u1", "c1", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "cards/u1/c1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	other, err := CardImageKey("u1", "c1", "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	sample, err := SampleImageKey("u1", "home", "IMAGE/JPEG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sample, "samples/u1/home/"))
	assert.True(t, strings.HasSuffix(sample, ".jpg"))

	_, err = CardImageKey("u1", "c1", "application/pdf")
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example/cards/a.png", publicURL("https://cdn.example/", "b", "/cards/a.png"))
	assert.Equal(t, "https://b.example/k", publicURL("https://{bucket}.example", "b", "k"))
	assert.Equal(t, "", publicURL("", "b", "k"))
}

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        string
}

func TestS3StoreAgainstCompatibleEndpoint(t *testing.T) {
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(body)})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := New(context.Background(), Options{
		Driver:      "s3",
		Bucket:      "tarjetas",
		S3Region:    "us-east-1",
		S3Endpoint:  srv.URL,
		S3AccessKey: "minioadmin",
		S3SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "cards/u1/c1/x.png", "image/png", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/tarjetas/cards/u1/c1/x.png", url)

	require.NoError(t, store.Delete(context.Background(), "cards/u1/c1/x.png"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/tarjetas/cards/u1/c1/x.png", reqs[0].path)
	assert.Equal(t, "image/png", reqs[0].contentType)
	assert.Contains(t, reqs[0].body, "pixels")
	assert.Equal(t, http.MethodDelete, reqs[1].method)
}

func TestS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), Options{Driver: "s3"})
	assert.Error(t, err)
}
