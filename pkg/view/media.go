package view

import "path/filepath"

// MediaKind identifies the media category of a message. The values are
// persisted as part of the message binding, so they must stay stable.
type MediaKind string

const (
	MediaNone        MediaKind = "none"
	MediaLinkPreview MediaKind = "link_preview"
	MediaPhoto       MediaKind = "photo"
	MediaAnimation   MediaKind = "animation"
	MediaVideo       MediaKind = "video"
	MediaDocument    MediaKind = "document"
	MediaAudio       MediaKind = "audio"
)

// Media is the common interface over the media variants a Blueprint can carry.
type Media interface {
	MediaKind() MediaKind
	// Source returns the file source for real media. Link previews return a
	// zero FileSource; their identity is the URL itself.
	Source() FileSource
}

// FileSource identifies media content either by a remote reference (URL or
// platform file ID) or by a local file path. Remote references and local
// files are never comparable by content, only by declared identity, which is
// why the two are kept distinct.
type FileSource struct {
	Ref  string // remote URL or platform file ID
	Path string // local file path; takes precedence when set
}

// Remote builds a FileSource from a URL or platform file ID.
func Remote(ref string) FileSource { return FileSource{Ref: ref} }

// Local builds a FileSource from a local file path.
func Local(path string) FileSource { return FileSource{Path: path} }

// IsLocal reports whether the source refers to a local file.
func (s FileSource) IsLocal() bool { return s.Path != "" }

// Identity returns the stable identity used for media diffing: the base
// filename for local files, the reference string otherwise.
func (s FileSource) Identity() string {
	if s.IsLocal() {
		return filepath.Base(s.Path)
	}
	return s.Ref
}

// SizeHint values for link previews.
const (
	PreviewSmall = "small"
	PreviewLarge = "large"
)

// Position values for link previews.
const (
	PreviewAbove = "above"
	PreviewBelow = "below"
)

// LinkPreview attaches a link preview to an otherwise text-only message.
// It is the only media a text-only message can ever gain through an edit.
type LinkPreview struct {
	URL      string
	SizeHint string // "small", "large" or empty
	Position string // "above", "below" or empty
}

func (LinkPreview) MediaKind() MediaKind { return MediaLinkPreview }
func (p LinkPreview) Source() FileSource { return FileSource{Ref: p.URL} }

// Photo media.
type Photo struct {
	File    FileSource
	Spoiler bool
}

func (Photo) MediaKind() MediaKind { return MediaPhoto }
func (p Photo) Source() FileSource { return p.File }

// Animation media (GIF or soundless H.264 video).
type Animation struct {
	File     FileSource
	Duration int
	Width    int
	Height   int
	Spoiler  bool
}

func (Animation) MediaKind() MediaKind { return MediaAnimation }
func (a Animation) Source() FileSource { return a.File }

// Video media.
type Video struct {
	File      FileSource
	Duration  int
	Width     int
	Height    int
	Spoiler   bool
	Streaming bool
}

func (Video) MediaKind() MediaKind { return MediaVideo }
func (v Video) Source() FileSource { return v.File }

// Document media.
type Document struct {
	File                 FileSource
	DisableTypeDetection bool
}

func (Document) MediaKind() MediaKind { return MediaDocument }
func (d Document) Source() FileSource { return d.File }

// Audio media.
type Audio struct {
	File      FileSource
	Duration  int
	Performer string
	Title     string
}

func (Audio) MediaKind() MediaKind { return MediaAudio }
func (a Audio) Source() FileSource { return a.File }

// KindOf returns the media kind of m, MediaNone for nil.
func KindOf(m Media) MediaKind {
	if m == nil {
		return MediaNone
	}
	return m.MediaKind()
}

// IsRealMedia reports whether the kind carries actual media content, as
// opposed to no media or a link preview.
func IsRealMedia(kind MediaKind) bool {
	switch kind {
	case MediaNone, MediaLinkPreview, "":
		return false
	}
	return true
}
