package netx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPresigned_Success(t *testing.T) {
	var (
		gotMethod, gotCT string
		gotBody          []byte
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := UploadPresigned(context.Background(), ts.Client(), ts.URL+"/img?X-Amz-Signature=abc", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "image/png", gotCT)
	assert.Equal(t, "png-bytes", string(gotBody))
}

func TestUploadPresigned_DefaultContentType(t *testing.T) {
	var gotCT string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	require.NoError(t, UploadPresigned(context.Background(), nil, ts.URL, "", []byte("x")))
	assert.Equal(t, "application/octet-stream", gotCT)
}

func TestUploadPresigned_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("SignatureDoesNotMatch"))
	}))
	defer ts.Close()

	err := UploadPresigned(context.Background(), ts.Client(), ts.URL, "image/png", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload failed: 403")
	assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
}

func TestUploadPresigned_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	err := UploadPresigned(context.Background(), nil, url, "", []byte("x"))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "upload failed")
}

func TestUploadPresigned_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := UploadPresigned(ctx, ts.Client(), ts.URL, "", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
