// Package backup writes compressed snapshots of documents to a local
// directory or to an S3-compatible bucket.
package backup

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

type Method string

const (
	None   Method = "none"
	Gzip   Method = "gzip"
	Zstd   Method = "zstd"
	Brotli Method = "brotli"
)

// Ext returns extension added to snapshot file names
func (m Method) Ext() string {
	switch m {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case Brotli:
		return ".br"
	}
	return ""
}

func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Zstd, nil
	case None, Gzip, Zstd, Brotli:
		return m, nil
	}
	return "", fmt.Errorf("unknown compression '%s', must be one of: none, gzip, zstd, brotli", s)
}

// MethodFromPath guesses compression from file extension
func MethodFromPath(path string) Method {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return Gzip
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".zstd"):
		return Zstd
	case strings.HasSuffix(path, ".br"):
		return Brotli
	}
	return None
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func zstdNewWriter(dst io.Writer) (*zstd.Encoder, error) {
	// documents are small, best compression is cheap
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
}

func Compress(d []byte, m Method) ([]byte, error) {
	var dst bytes.Buffer
	var w io.WriteCloser
	switch m {
	case None:
		return append([]byte{}, d...), nil
	case Gzip:
		gw, err := gzip.NewWriterLevel(&dst, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		w = gw
	case Zstd:
		zw, err := zstdNewWriter(&dst)
		if err != nil {
			return nil, err
		}
		w = zw
	case Brotli:
		w = brotli.NewWriterLevel(&dst, brotli.BestCompression)
	default:
		return nil, fmt.Errorf("unknown compression '%s'", m)
	}
	_, err := w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func Decompress(d []byte, m Method) ([]byte, error) {
	r := bytes.NewReader(d)
	switch m {
	case None:
		return append([]byte{}, d...), nil
	case Gzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case Brotli:
		return io.ReadAll(brotli.NewReader(r))
	}
	return nil, fmt.Errorf("unknown compression '%s'", m)
}
