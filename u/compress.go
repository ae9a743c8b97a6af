package u

import (
	"compress/bzip2"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// implement io.ReadCloser over os.File wrapped with io.Reader.
// io.Closer goes to os.File, io.Reader goes to wrapping reader
type readerWrappedFile struct {
	f *os.File
	r io.Reader
}

func (rc *readerWrappedFile) Close() error {
	if c, ok := rc.r.(io.Closer); ok {
		_ = c.Close()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

func wrapInReadCloser(f *os.File, r io.Reader, err error) (io.ReadCloser, error) {
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readerWrappedFile{
		f: f,
		r: r,
	}, nil
}

// zstd.Decoder.Close() doesn't return an error so it's not io.Closer
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

func compressionFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".zstd" {
		ext = ".zst"
	}
	return ext
}

// OpenFileMaybeCompressed opens a file that might be compressed with gzip
// or bzip2 or zstd or brotli, based on file extension
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch compressionFromPath(path) {
	case ".gz":
		r, err := gzip.NewReader(f)
		return wrapInReadCloser(f, r, err)
	case ".bz2":
		r := bzip2.NewReader(f)
		return wrapInReadCloser(f, r, nil)
	case ".zst":
		r, err := zstd.NewReader(f)
		if err != nil {
			return wrapInReadCloser(f, nil, err)
		}
		return wrapInReadCloser(f, zstdReadCloser{r}, nil)
	case ".br":
		r := brotli.NewReader(f)
		return wrapInReadCloser(f, r, nil)
	}
	return f, nil
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// writer that first closes the compressor and then the file
type compressedFileWriter struct {
	f    *os.File
	w    io.WriteCloser
	path string
}

func (w *compressedFileWriter) Write(d []byte) (int, error) {
	return w.w.Write(d)
}

// Close finishes compressed stream and closes the file.
// The file is deleted if any of that fails
func (w *compressedFileWriter) Close() error {
	err := w.w.Close()
	err2 := w.f.Close()
	if err = getErr(err, err2); err != nil {
		os.Remove(w.path)
		return err
	}
	return nil
}

func zstdNewWriter(dst io.Writer) (*zstd.Encoder, error) {
	// zstd.SpeedBestCompression is much slower and not much better
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

// CreateFileMaybeCompressed creates a file that will be compressed
// based on extension: .gz (gzip), .zst / .zstd (zstd), .br (brotli).
// Other extensions create a regular file.
func CreateFileMaybeCompressed(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	var w io.WriteCloser
	switch compressionFromPath(path) {
	case ".gz":
		w = gzip.NewWriter(f)
	case ".zst":
		w, err = zstdNewWriter(f)
	case ".br":
		w = brotli.NewWriterLevel(f, brotli.DefaultCompression)
	default:
		return f, nil
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return &compressedFileWriter{
		f:    f,
		w:    w,
		path: path,
	}, nil
}
