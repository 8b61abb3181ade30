package source

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/franz/manga-mirror/internal/engine"
)

var chapterNumRe = regexp.MustCompile(`chapter-([\d.]+)`)

// parseChapterList extracts chapter links from a series page. The
// chapter index lives in an ul.main list; anything without a
// /chapter-<number> href is navigation chrome and gets skipped.
// Duplicate hrefs (the list often repeats the newest chapter in a
// teaser block) collapse to one ref.
func parseChapterList(r io.Reader, pageURL string) ([]engine.ChapterRef, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var refs []engine.ChapterRef
	seen := map[string]bool{}

	doc.Find("ul.main li a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if !strings.Contains(href, "/chapter-") {
			return
		}

		m := chapterNumRe.FindStringSubmatch(strings.ToLower(href))
		if m == nil {
			return
		}
		rawID := strings.TrimSuffix(m[1], ".")

		u := resolveURL(pageURL, href)
		if seen[u] {
			return
		}
		seen[u] = true

		refs = append(refs, engine.ChapterRef{
			RawID: rawID,
			URL:   u,
			Title: strings.TrimSpace(a.Text()),
		})
	})

	// series pages list newest first; emit oldest first so downstream
	// ordering matches reading order
	for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
		refs[i], refs[j] = refs[j], refs[i]
	}

	return refs, nil
}

// parsePanelImages extracts the page images of a chapter in document
// order. Reader pages lazy-load, so the real URL may sit in one of
// several data attributes with src pointing at a placeholder.
func parsePanelImages(r io.Reader, chapterURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var urls []string
	seen := map[string]bool{}

	doc.Find(".page-break.no-gaps img, .page-break img").Each(func(_ int, img *goquery.Selection) {
		src := firstImageAttr(img)
		if src == "" {
			return
		}

		u := resolveURL(chapterURL, src)
		if seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	})

	return urls, nil
}

func firstImageAttr(img *goquery.Selection) string {
	for _, key := range []string{"data-src", "data-lazy-src", "data-original", "src"} {
		if v, ok := img.Attr(key); ok {
			v = strings.TrimSpace(v)
			if v != "" && !strings.HasPrefix(v, "data:") {
				return v
			}
		}
	}
	return ""
}

func resolveURL(baseURL, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(u).String()
}
