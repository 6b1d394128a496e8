// Package media defines the playable item identity shared by the queue,
// the playback coordinator and the source adapters.
package media

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Kind discriminates how an item is played back.
type Kind int

const (
	// KindDirectAudio is a local file or plain audio URL played by the
	// in-process engine.
	KindDirectAudio Kind = iota
	// KindEmbeddedVideo is a third-party hosted track played through an
	// external player bridge, addressed by its platform media id.
	KindEmbeddedVideo
)

func (k Kind) String() string {
	switch k {
	case KindDirectAudio:
		return "direct-audio"
	case KindEmbeddedVideo:
		return "embedded-video"
	default:
		return "unknown"
	}
}

// Item is one playable unit. ID is a filesystem path or URL for direct
// audio, and the platform media id for embedded video.
type Item struct {
	Kind  Kind
	ID    string
	Title string
}

// Key returns a stable identity string usable as a map key.
func (i Item) Key() string {
	return i.Kind.String() + ":" + i.ID
}

// Same reports whether other refers to the same playable unit.
// Title is display-only and ignored.
func (i Item) Same(other Item) bool {
	return i.Kind == other.Kind && i.ID == other.ID
}

// DisplayTitle returns the title, falling back to something readable
// derived from the id.
func (i Item) DisplayTitle() string {
	if i.Title != "" {
		return i.Title
	}
	if i.Kind == KindDirectAudio {
		base := path.Base(strings.ReplaceAll(i.ID, "\\", "/"))
		if u, err := url.Parse(i.ID); err == nil && u.Scheme != "" {
			base = path.Base(u.Path)
		}
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	return i.ID
}

// mediaIDPattern matches a bare platform media id.
var mediaIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// FromString classifies a user-supplied argument into an Item. Known
// video-platform URLs and bare 11-character media ids become embedded
// video; everything else is treated as direct audio.
func FromString(s string) Item {
	s = strings.TrimSpace(s)

	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		host := strings.TrimPrefix(u.Hostname(), "www.")
		switch host {
		case "youtube.com", "m.youtube.com", "music.youtube.com":
			if id := u.Query().Get("v"); id != "" {
				return Item{Kind: KindEmbeddedVideo, ID: id}
			}
		case "youtu.be":
			if id := strings.Trim(u.Path, "/"); id != "" {
				return Item{Kind: KindEmbeddedVideo, ID: id}
			}
		}
		return Item{Kind: KindDirectAudio, ID: s}
	}

	if mediaIDPattern.MatchString(s) {
		return Item{Kind: KindEmbeddedVideo, ID: s}
	}
	return Item{Kind: KindDirectAudio, ID: s}
}
