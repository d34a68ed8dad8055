package fs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tweetvault/tweetvault/pkg/model"
)

func TestTransferrer_Transfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("media bytes"))
	}))
	defer srv.Close()

	stor, err := NewLocal(t.TempDir(), "localhost")
	require.NoError(t, err)

	tr := NewTransferrer(stor)

	location, err := tr.Transfer(testCtx, model.ResolvedMedia{
		SourceURL:   srv.URL + "/vid/high.mp4",
		Name:        "high.mp4",
		ContentType: "video/mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/high.mp4", location)
}

func TestTransferrer_TransferEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	stor, err := NewLocal(t.TempDir(), "localhost")
	require.NoError(t, err)

	tr := NewTransferrer(stor)

	location, err := tr.Transfer(testCtx, model.ResolvedMedia{
		SourceURL:   srv.URL + "/empty.jpg",
		Name:        "empty.jpg",
		ContentType: "image/jpg",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, location)
}

func TestTransferrer_TransferSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	stor, err := NewLocal(t.TempDir(), "localhost")
	require.NoError(t, err)

	tr := NewTransferrer(stor)

	_, err = tr.Transfer(testCtx, model.ResolvedMedia{
		SourceURL: srv.URL + "/gone.jpg",
		Name:      "gone.jpg",
	})
	assert.Error(t, err)
}
