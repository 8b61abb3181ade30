package source

import (
	"strings"
	"testing"
)

const seriesPageHTML = `
<html><body>
<div class="summary"><a href="/manga/one-piece/">One Piece</a></div>
<ul class="main version-chap">
  <li class="wp-manga-chapter">
    <a href="https://www.mangaread.org/manga/one-piece/chapter-100.5/">Chapter 100.5 - Special</a>
  </li>
  <li class="wp-manga-chapter">
    <a href="https://www.mangaread.org/manga/one-piece/chapter-2/">Chapter 2</a>
  </li>
  <li class="wp-manga-chapter">
    <a href="/manga/one-piece/chapter-1/">Chapter 1 - Romance Dawn</a>
  </li>
  <li><a href="/manga/one-piece/">Series home</a></li>
</ul>
</body></html>`

func TestParseChapterList(t *testing.T) {
	refs, err := parseChapterList(strings.NewReader(seriesPageHTML), "https://www.mangaread.org/manga/one-piece/")
	if err != nil {
		t.Fatalf("parseChapterList: %v", err)
	}

	if len(refs) != 3 {
		t.Fatalf("parsed %d refs, want 3: %+v", len(refs), refs)
	}

	// oldest first
	wantIDs := []string{"1", "2", "100.5"}
	for i, want := range wantIDs {
		if refs[i].RawID != want {
			t.Errorf("refs[%d].RawID = %q, want %q", i, refs[i].RawID, want)
		}
	}

	if refs[0].URL != "https://www.mangaread.org/manga/one-piece/chapter-1/" {
		t.Errorf("relative href not resolved: %q", refs[0].URL)
	}
	if refs[0].Title != "Chapter 1 - Romance Dawn" {
		t.Errorf("title = %q", refs[0].Title)
	}
}

func TestParseChapterListSkipsDuplicates(t *testing.T) {
	html := `
<ul class="main">
  <li><a href="/manga/x/chapter-5/">Chapter 5</a></li>
  <li><a href="/manga/x/chapter-5/">Chapter 5</a></li>
</ul>`

	refs, err := parseChapterList(strings.NewReader(html), "https://www.mangaread.org/manga/x/")
	if err != nil {
		t.Fatalf("parseChapterList: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("parsed %d refs, want 1", len(refs))
	}
}

func TestParseChapterListEmptyPage(t *testing.T) {
	refs, err := parseChapterList(strings.NewReader("<html><body></body></html>"), "https://www.mangaread.org/manga/x/")
	if err != nil {
		t.Fatalf("parseChapterList: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("parsed %d refs from an empty page", len(refs))
	}
}

const chapterPageHTML = `
<html><body>
<div class="reading-content">
  <div class="page-break no-gaps">
    <img id="image-0" src="data:image/gif;base64,R0lGOD" data-src=" https://cdn.mangaread.org/one-piece/ch1/001.jpg ">
  </div>
  <div class="page-break no-gaps">
    <img id="image-1" data-lazy-src="https://cdn.mangaread.org/one-piece/ch1/002.jpg">
  </div>
  <div class="page-break no-gaps">
    <img id="image-2" src="/one-piece/ch1/003.png">
  </div>
</div>
<img src="https://www.mangaread.org/logo.png">
</body></html>`

func TestParsePanelImages(t *testing.T) {
	urls, err := parsePanelImages(strings.NewReader(chapterPageHTML), "https://www.mangaread.org/manga/one-piece/chapter-1/")
	if err != nil {
		t.Fatalf("parsePanelImages: %v", err)
	}

	want := []string{
		"https://cdn.mangaread.org/one-piece/ch1/001.jpg",
		"https://cdn.mangaread.org/one-piece/ch1/002.jpg",
		"https://www.mangaread.org/one-piece/ch1/003.png",
	}
	if len(urls) != len(want) {
		t.Fatalf("parsed %d urls, want %d: %v", len(urls), len(want), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestParsePanelImagesSkipsPlaceholders(t *testing.T) {
	html := `
<div class="page-break no-gaps">
  <img src="data:image/gif;base64,R0lGOD">
</div>`

	urls, err := parsePanelImages(strings.NewReader(html), "https://www.mangaread.org/manga/x/chapter-1/")
	if err != nil {
		t.Fatalf("parsePanelImages: %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("placeholder images must be dropped, got %v", urls)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://a.org/manga/x/", "/manga/x/chapter-1/", "https://a.org/manga/x/chapter-1/"},
		{"https://a.org/manga/x/", "https://b.org/img.jpg", "https://b.org/img.jpg"},
		{"https://a.org/manga/x/chapter-1/", "img/001.jpg", "https://a.org/manga/x/chapter-1/img/001.jpg"},
	}

	for _, tt := range tests {
		if got := resolveURL(tt.base, tt.href); got != tt.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
		}
	}
}
