package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notesJSON = `[{"id":"n1","title":"Groceries"}]`

// jsonHandler отвечает как API заметок: JSON с явной длиной.
var jsonHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(notesJSON)))
	_, _ = w.Write([]byte(notesJSON))
})

func gunzip(t *testing.T, b []byte) []byte {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer zr.Close()
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	return out
}

func TestWithGzip_ResponseEncoding(t *testing.T) {
	cases := []struct {
		name           string
		acceptEncoding string
		compressed     bool
	}{
		{name: "no header", acceptEncoding: "", compressed: false},
		{name: "identity only", acceptEncoding: "identity", compressed: false},
		{name: "gzip among others", acceptEncoding: "br, gzip;q=0.8", compressed: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			if tc.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tc.acceptEncoding)
			}
			rr := httptest.NewRecorder()
			WithGzip(jsonHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			body := rr.Body.Bytes()
			if tc.compressed {
				assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
				assert.Equal(t, "Accept-Encoding", rr.Header().Get("Vary"))
				assert.Empty(t, rr.Header().Get("Content-Length"), "длина несжатого тела не должна уходить клиенту")
				body = gunzip(t, body)
			} else {
				assert.Empty(t, rr.Header().Get("Content-Encoding"))
			}
			var notes []map[string]string
			require.NoError(t, json.Unmarshal(body, &notes))
			require.Len(t, notes, 1)
			assert.Equal(t, "Groceries", notes[0]["title"])
		})
	}
}

func TestWithGzip_RequestBody(t *testing.T) {
	var got []byte
	h := WithGzip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(`{"title":"x","body":"Купить молоко"}`))
	require.NoError(t, zw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/notes", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"title":"x","body":"Купить молоко"}`, string(got))

	got = nil
	bad := httptest.NewRequest(http.MethodPost, "/api/notes", bytes.NewBufferString(`{"title":"x"}`))
	bad.Header.Set("Content-Encoding", "gzip")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, bad)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, got, "хендлер не вызывается для битого тела")
}
