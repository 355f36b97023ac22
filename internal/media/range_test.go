package media

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	cases := []struct {
		name   string
		header string
		size   int64
		want   ByteRange
		ok     bool
	}{
		{"empty header", "", 100, ByteRange{}, false},
		{"full range", "bytes=0-99", 100, ByteRange{0, 99}, true},
		{"open end", "bytes=10-", 100, ByteRange{10, 99}, true},
		{"open start", "bytes=-49", 100, ByteRange{0, 49}, true},
		{"middle", "bytes=25-74", 100, ByteRange{25, 74}, true},
		{"end clamped to size", "bytes=50-5000", 100, ByteRange{50, 99}, true},
		{"negative start clamped", "bytes=-5-", 100, ByteRange{}, false},
		{"start past end", "bytes=80-20", 100, ByteRange{}, false},
		{"start past eof", "bytes=200-", 100, ByteRange{}, false},
		{"wrong unit", "items=0-10", 100, ByteRange{}, false},
		{"garbage", "bytes=abc-def", 100, ByteRange{}, false},
		{"no dash", "bytes=42", 100, ByteRange{}, false},
		{"single byte", "bytes=0-0", 100, ByteRange{0, 0}, true},
		{"last byte", "bytes=99-99", 100, ByteRange{99, 99}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseRange(tc.header, tc.size)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func writeTestFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "clip.avi")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func serve(t *testing.T, path, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, ServeFile(rec, path, rangeHeader))
	return rec
}

func TestServeFileWholeFile(t *testing.T) {
	path := writeTestFile(t, 1000)
	rec := serve(t, path, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "video/x-msvideo", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Len(t, rec.Body.Bytes(), 1000)
}

func TestServeFilePartial(t *testing.T) {
	path := writeTestFile(t, 1000)
	rec := serve(t, path, "bytes=100-299")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 100-299/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, "200", rec.Header().Get("Content-Length"))

	body := rec.Body.Bytes()
	require.Len(t, body, 200)
	assert.Equal(t, byte(100%251), body[0])
	assert.Equal(t, byte(299%251), body[199])
}

func TestServeFileOpenEndedRange(t *testing.T) {
	path := writeTestFile(t, 500)
	rec := serve(t, path, "bytes=450-")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 450-499/500", rec.Header().Get("Content-Range"))
	assert.Len(t, rec.Body.Bytes(), 50)
}

func TestServeFileMalformedRangeFallsBack(t *testing.T) {
	path := writeTestFile(t, 300)
	for _, header := range []string{"bytes=zz-10", "bytes=200-100", "chunks=0-10"} {
		rec := serve(t, path, header)
		assert.Equal(t, http.StatusOK, rec.Code, "header %q", header)
		assert.Len(t, rec.Body.Bytes(), 300)
	}
}

func TestServeFileRangeLargerThanChunk(t *testing.T) {
	size := chunkSize*2 + 123
	path := writeTestFile(t, size)
	rec := serve(t, path, fmt.Sprintf("bytes=0-%d", size-1))

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Len(t, rec.Body.Bytes(), size)
}

func TestServeFileZeroLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mp4")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	rec := serve(t, path, "bytes=0-")
	assert.Equal(t, http.StatusOK, rec.Code, "no valid range exists in an empty file")
	assert.Empty(t, rec.Body.Bytes())
}

func TestServeFileMissing(t *testing.T) {
	rec := httptest.NewRecorder()
	err := ServeFile(rec, filepath.Join(t.TempDir(), "nope.avi"), "")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "video/x-msvideo", ContentType("a/b.avi"))
	assert.Equal(t, "video/mp4", ContentType("clip.mp4"))
	assert.Equal(t, "image/jpeg", ContentType("snap.jpg"))
	assert.Equal(t, "application/octet-stream", ContentType("file.bin"))
}
