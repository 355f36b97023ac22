package media

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// chunkSize bounds how much of a file is held in memory while streaming.
const chunkSize = 1 << 20 // 1 MiB

// ByteRange is an inclusive byte range within a file.
type ByteRange struct {
	Start int64
	End   int64
}

// ParseRange parses a "bytes=<start>-<end>" header against the file size.
// start and end are both optional. Malformed headers, and ranges that are
// empty after clamping, report ok=false: the caller serves the whole file
// as if no header were present.
func ParseRange(header string, size int64) (ByteRange, bool) {
	if header == "" {
		return ByteRange{}, false
	}

	units, spec, found := strings.Cut(header, "=")
	if !found || strings.TrimSpace(strings.ToLower(units)) != "bytes" {
		return ByteRange{}, false
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return ByteRange{}, false
	}

	start := int64(0)
	end := size - 1

	if s := strings.TrimSpace(startStr); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ByteRange{}, false
		}
		start = v
	}
	if s := strings.TrimSpace(endStr); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ByteRange{}, false
		}
		end = v
	}

	if end >= size {
		end = size - 1
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		return ByteRange{}, false
	}
	return ByteRange{Start: start, End: end}, true
}

// ServeFile streams a file to the client, honoring an optional Range
// header with 206 semantics. The file handle lives for the duration of
// the response and is always released, including on client disconnect.
func ServeFile(w http.ResponseWriter, path, rangeHeader string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", ContentType(path))

	rng, partial := ParseRange(rangeHeader, size)
	if !partial {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		copyRange(w, f, 0, size-1)
		return nil
	}

	w.Header().Set("Content-Range",
		fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
	w.Header().Set("Content-Length", strconv.FormatInt(rng.End-rng.Start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	copyRange(w, f, rng.Start, rng.End)
	return nil
}

// copyRange streams bytes [start,end] in bounded chunks, stopping on the
// first write error (consumer gone).
func copyRange(w io.Writer, f *os.File, start, end int64) {
	if end < start {
		return
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return
	}

	remaining := end - start + 1
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := f.Read(buf[:n])
		if read > 0 {
			if _, werr := w.Write(buf[:read]); werr != nil {
				return
			}
			remaining -= int64(read)
		}
		if err != nil {
			return
		}
	}
}

// ContentType picks a media type from the file extension.
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".avi":
		return "video/x-msvideo"
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
