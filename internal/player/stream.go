package player

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extWAV  = ".wav"
	extOGG  = ".ogg"
)

// readSeekCloser is what the beep decoders need for a seekable stream.
type readSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// openResource opens a local file, or fetches an http(s) resource into
// memory so the decoders can seek in it.
func openResource(resource string) (readSeekCloser, error) {
	if isHTTP(resource) {
		resp, err := http.Get(resource)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: %s", resource, resp.Status)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &memoryStream{Reader: bytes.NewReader(data)}, nil
	}
	return os.Open(resource)
}

func isHTTP(resource string) bool {
	return strings.HasPrefix(resource, "http://") || strings.HasPrefix(resource, "https://")
}

// memoryStream wraps a bytes.Reader with a no-op Close.
type memoryStream struct {
	*bytes.Reader
}

func (m *memoryStream) Close() error { return nil }

// decode picks a decoder from the resource extension.
func decode(src readSeekCloser, resource string) (beep.StreamSeekCloser, beep.Format, error) {
	switch resourceExt(resource) {
	case extMP3:
		return mp3.Decode(src)
	case extFLAC:
		return flac.Decode(src)
	case extWAV:
		return wav.Decode(src)
	case extOGG:
		return vorbis.Decode(src)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format: %s", resourceExt(resource))
	}
}

// resourceExt returns the lowercase extension, stripping URL queries.
func resourceExt(resource string) string {
	if isHTTP(resource) {
		if u, err := url.Parse(resource); err == nil {
			resource = u.Path
		}
	}
	return strings.ToLower(filepath.Ext(resource))
}
