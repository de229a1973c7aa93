// Package photo loads contact pictures from disk as data URLs.
package photo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotRegularFile is returned for directories and devices.
var ErrNotRegularFile = errors.New("not a regular file")

// Photo is a picked file. DataURL is empty when the file was larger than
// the limit passed to Load.
type Photo struct {
	Path      string
	MediaType string
	Size      int64
	DataURL   string
}

// Load sniffs the media type of path from its content. The file body is
// only read and encoded when maxSize is zero or the file fits in it, so an
// oversized pick can still be reported with its real size.
func Load(path string, maxSize int64) (Photo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Photo{}, fmt.Errorf("stat photo: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return Photo{}, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Photo{}, fmt.Errorf("detect photo type: %w", err)
	}

	p := Photo{Path: path, MediaType: baseType(mt.String()), Size: fi.Size()}
	if maxSize > 0 && p.Size > maxSize {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Photo{}, fmt.Errorf("read photo: %w", err)
	}
	p.DataURL = DataURL(p.MediaType, data)
	return p, nil
}

// DataURL encodes data as a base64 data URI.
func DataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// MediaTypeOf returns the media type recorded in a data URI, or "".
func MediaTypeOf(dataURL string) string {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return ""
	}
	mt, _, _ := strings.Cut(rest, ";")
	mt, _, _ = strings.Cut(mt, ",")
	return mt
}

// baseType drops parameters such as "; charset=utf-8".
func baseType(mt string) string {
	t, _, _ := strings.Cut(mt, ";")
	return strings.TrimSpace(t)
}
