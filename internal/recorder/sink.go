package recorder

import (
	"encoding/binary"
	"fmt"
	"os"
)

// FrameSink receives encoded JPEG frames and writes them to a media file.
// Open must be called once, with the dimensions of the first frame, before
// any WriteFrame. Close must always be called, even after errors.
type FrameSink interface {
	Open(width, height int) error
	WriteFrame(jpegData []byte) error
	Close() error
}

// aviSink writes a Motion-JPEG AVI file. Frames are appended as 00dc
// chunks; the RIFF sizes, frame counts and the idx1 index are patched in
// on Close so the file is seekable by ordinary players.
type aviSink struct {
	path string
	fps  int

	file      *os.File
	width     int
	height    int
	moviStart int64 // file offset of the movi LIST size field
	frames    []idxEntry

	// header patch offsets
	riffSizeOff    int64
	totalFramesOff int64
	streamLenOff   int64
}

type idxEntry struct {
	offset uint32 // relative to the movi list data start
	size   uint32
}

func newAVISink(path string, fps int) *aviSink {
	return &aviSink{path: path, fps: fps}
}

const (
	avifHasIndex  = 0x00000010
	aviifKeyframe = 0x00000010
)

func (s *aviSink) Open(width, height int) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("cannot open recording sink: %w", err)
	}
	s.file = f
	s.width = width
	s.height = height

	h := newChunkWriter()

	h.fourcc("RIFF")
	s.riffSizeOff = h.len()
	h.u32(0) // patched on close
	h.fourcc("AVI ")

	// hdrl list: avih + one video stream (strl)
	h.fourcc("LIST")
	h.u32(4 + 64 + 124)
	h.fourcc("hdrl")

	h.fourcc("avih")
	h.u32(56)
	h.u32(uint32(1000000 / s.fps)) // dwMicroSecPerFrame
	h.u32(0)                       // dwMaxBytesPerSec
	h.u32(0)                       // dwPaddingGranularity
	h.u32(avifHasIndex)            // dwFlags
	s.totalFramesOff = h.len()
	h.u32(0) // dwTotalFrames, patched on close
	h.u32(0) // dwInitialFrames
	h.u32(1) // dwStreams
	h.u32(0) // dwSuggestedBufferSize
	h.u32(uint32(width))
	h.u32(uint32(height))
	h.u32(0)
	h.u32(0)
	h.u32(0)
	h.u32(0)

	h.fourcc("LIST")
	h.u32(4 + 64 + 48)
	h.fourcc("strl")

	h.fourcc("strh")
	h.u32(56)
	h.fourcc("vids")
	h.fourcc("MJPG")
	h.u32(0)               // dwFlags
	h.u32(0)               // wPriority + wLanguage
	h.u32(0)               // dwInitialFrames
	h.u32(1)               // dwScale
	h.u32(uint32(s.fps))   // dwRate
	h.u32(0)               // dwStart
	s.streamLenOff = h.len()
	h.u32(0)               // dwLength (frames), patched on close
	h.u32(0)               // dwSuggestedBufferSize
	h.u32(0xFFFFFFFF)      // dwQuality
	h.u32(0)               // dwSampleSize
	h.u16(0)               // rcFrame
	h.u16(0)
	h.u16(uint16(width))
	h.u16(uint16(height))

	h.fourcc("strf")
	h.u32(40)
	h.u32(40) // biSize
	h.u32(uint32(width))
	h.u32(uint32(height))
	h.u16(1)  // biPlanes
	h.u16(24) // biBitCount
	h.fourcc("MJPG")
	h.u32(uint32(width * height * 3)) // biSizeImage
	h.u32(0)
	h.u32(0)
	h.u32(0)
	h.u32(0)

	h.fourcc("LIST")
	s.moviStart = h.len()
	h.u32(0) // movi list size, patched on close
	h.fourcc("movi")

	if _, err := f.Write(h.bytes()); err != nil {
		f.Close()
		os.Remove(s.path)
		s.file = nil
		return fmt.Errorf("cannot write avi header: %w", err)
	}
	return nil
}

func (s *aviSink) WriteFrame(jpegData []byte) error {
	if s.file == nil {
		return fmt.Errorf("sink not open")
	}

	// chunk payloads are padded to even length
	padded := len(jpegData)
	if padded%2 != 0 {
		padded++
	}

	pos, err := s.file.Seek(0, 2)
	if err != nil {
		return err
	}

	chunk := newChunkWriter()
	chunk.fourcc("00dc")
	chunk.u32(uint32(len(jpegData)))
	chunk.raw(jpegData)
	if padded != len(jpegData) {
		chunk.raw([]byte{0})
	}
	if _, err := s.file.Write(chunk.bytes()); err != nil {
		return err
	}

	// index offsets are relative to the movi list data start
	s.frames = append(s.frames, idxEntry{
		offset: uint32(pos - (s.moviStart + 4)),
		size:   uint32(len(jpegData)),
	})
	return nil
}

func (s *aviSink) Close() error {
	if s.file == nil {
		return nil
	}
	defer func() {
		s.file.Close()
		s.file = nil
	}()

	// idx1 index
	idx := newChunkWriter()
	idx.fourcc("idx1")
	idx.u32(uint32(16 * len(s.frames)))
	for _, e := range s.frames {
		idx.fourcc("00dc")
		idx.u32(aviifKeyframe)
		idx.u32(e.offset)
		idx.u32(e.size)
	}
	if _, err := s.file.Write(idx.bytes()); err != nil {
		return err
	}

	end, err := s.file.Seek(0, 2)
	if err != nil {
		return err
	}

	moviEnd := end - int64(len(idx.bytes()))
	if err := s.patch(s.riffSizeOff, uint32(end-8)); err != nil {
		return err
	}
	if err := s.patch(s.moviStart, uint32(moviEnd-s.moviStart-4)); err != nil {
		return err
	}
	if err := s.patch(s.totalFramesOff, uint32(len(s.frames))); err != nil {
		return err
	}
	if err := s.patch(s.streamLenOff, uint32(len(s.frames))); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *aviSink) patch(off int64, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := s.file.WriteAt(buf[:], off)
	return err
}

// chunkWriter builds little-endian RIFF byte sequences.
type chunkWriter struct {
	buf []byte
}

func newChunkWriter() *chunkWriter { return &chunkWriter{} }

func (w *chunkWriter) len() int64     { return int64(len(w.buf)) }
func (w *chunkWriter) bytes() []byte  { return w.buf }
func (w *chunkWriter) raw(b []byte)   { w.buf = append(w.buf, b...) }
func (w *chunkWriter) fourcc(s string) { w.buf = append(w.buf, s[:4]...) }

func (w *chunkWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *chunkWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
