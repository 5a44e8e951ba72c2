package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{
		"timestamp": "1700000000",
		"api_key":   "key",
		"folder":    "badges",
		"empty":     "",
	})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=badges&timestamp=1700000000secret")))
	assert.Equal(t, want, got)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/raw/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "badges", r.FormValue("folder"))
		assert.Equal(t, "event-badges", r.FormValue("public_id"))
		assert.Equal(t, "1792141200", r.FormValue("timestamp"))
		assert.NotEmpty(t, r.FormValue("signature"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "badges.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-1.3", string(data))

		_, _ = io.WriteString(w, `{"public_id":"badges/event-badges","secure_url":"https://cdn.test/badges.pdf","resource_type":"raw","bytes":8}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "badges")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1792141200, 0) }

	res, err := c.Upload(context.Background(), []byte("%PDF-1.3"), "badges.pdf", "event-badges", ResourceRaw)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/badges.pdf", res.SecureURL)
	assert.Equal(t, 8, res.Bytes)
}

func TestUpload_Errors(t *testing.T) {
	_, err := New("", "", "", "").Upload(context.Background(), nil, "x", "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err = c.Upload(context.Background(), []byte("x"), "x.pdf", "", ResourceRaw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
