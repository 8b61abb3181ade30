package engine

import "context"

// ChapterRef is one chapter advertised by the source catalog.
// RawID is the unparsed chapter token from the source document; the
// differ normalizes it and skips refs that do not parse.
type ChapterRef struct {
	RawID string
	URL   string
	Title string
}

// Source is implemented by each external catalog the engine can mirror.
// The engine only requires ordering and raw identifiers to be stable
// across calls within one run.
type Source interface {
	// ListChapters returns every chapter currently advertised for a
	// series, in source document order.
	ListChapters(ctx context.Context, slug string) ([]ChapterRef, error)

	// FetchChapterPanels returns the ordered panel image URLs of one
	// chapter.
	FetchChapterPanels(ctx context.Context, chapterURL string) ([]string, error)

	// FetchImage downloads raw image bytes, used only when panel media
	// is mirrored into a media store.
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// MediaStore accepts raw media bytes under a logical path and returns a
// durable reference.
type MediaStore interface {
	Put(ctx context.Context, logicalPath string, data []byte) (string, error)
}
