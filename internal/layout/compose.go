package layout

import (
	"fmt"
	"slices"
	"strings"
)

// TitlePolicy decides what happens to page titles when pages are recomposed.
type TitlePolicy int

const (
	// TitlesKeepUnchanged keeps the previous title of a page whose index and photo
	// membership did not change, and writes the default title everywhere else.
	TitlesKeepUnchanged TitlePolicy = iota
	// TitlesRegenerate always writes "Seite N".
	TitlesRegenerate
)

// ParseTitlePolicy accepts "keep" or "regenerate". Empty means keep.
func ParseTitlePolicy(s string) (TitlePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return TitlesKeepUnchanged, nil
	case "regenerate":
		return TitlesRegenerate, nil
	default:
		return TitlesKeepUnchanged, fmt.Errorf("%w: unknown title policy %q", ErrConfiguration, s)
	}
}

func (p TitlePolicy) String() string {
	if p == TitlesRegenerate {
		return "regenerate"
	}
	return "keep"
}

// Options controls a single composition.
type Options struct {
	ImagesPerPage int
	SortAscending bool
	TitlePolicy   TitlePolicy
}

// Compose sorts photos by DateTaken and partitions them into pages of
// ImagesPerPage photos. previous is the arrangement being replaced; it is only
// read for caption carry-over and title preservation and may be nil.
//
// Input Position values are ignored. Ties on DateTaken keep input order in
// both sort directions.
func Compose(photos []Photo, previous []Page, opts Options) ([]Page, error) {
	if opts.ImagesPerPage <= 0 {
		return nil, fmt.Errorf("%w: images per page must be positive, got %d", ErrConfiguration, opts.ImagesPerPage)
	}
	if len(photos) == 0 {
		return []Page{}, nil
	}

	sorted := append([]Photo(nil), photos...)
	slices.SortStableFunc(sorted, func(a, b Photo) int {
		switch {
		case a.DateTaken == b.DateTaken:
			return 0
		case (a.DateTaken < b.DateTaken) == opts.SortAscending:
			return -1
		default:
			return 1
		}
	})

	captions := previousCaptions(previous)
	prevByIndex := make(map[int]Page, len(previous))
	for _, p := range previous {
		prevByIndex[p.PageIndex] = p
	}

	pages := make([]Page, 0, (len(sorted)+opts.ImagesPerPage-1)/opts.ImagesPerPage)
	for start := 0; start < len(sorted); start += opts.ImagesPerPage {
		end := min(start+opts.ImagesPerPage, len(sorted))
		chunk := sorted[start:end]
		idx := len(pages)

		page := Page{
			PageIndex: idx,
			Title:     DefaultTitle(idx),
			Photos:    make([]Photo, len(chunk)),
		}
		for pos, in := range chunk {
			caption := in.Caption
			if caption == "" {
				caption = captions[in.URI]
			}
			page.Photos[pos] = Photo{
				ID:        in.ID,
				URI:       in.URI,
				Caption:   caption,
				Position:  pos,
				DateTaken: in.DateTaken,
			}
		}

		if prev, ok := prevByIndex[idx]; ok && opts.TitlePolicy == TitlesKeepUnchanged && sameMembership(prev, page) {
			page.ID = prev.ID
			page.Title = prev.Title
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// previousCaptions maps URI to the first non-empty caption found in page/position order.
func previousCaptions(previous []Page) map[string]string {
	captions := make(map[string]string)
	for _, p := range Flatten(previous) {
		if p.Caption == "" {
			continue
		}
		if _, seen := captions[p.URI]; !seen {
			captions[p.URI] = p.Caption
		}
	}
	return captions
}

// sameMembership reports whether two pages hold the same photo URIs (as a multiset).
func sameMembership(a, b Page) bool {
	if len(a.Photos) != len(b.Photos) {
		return false
	}
	counts := make(map[string]int, len(a.Photos))
	for _, p := range a.Photos {
		counts[p.URI]++
	}
	for _, p := range b.Photos {
		counts[p.URI]--
		if counts[p.URI] < 0 {
			return false
		}
	}
	return true
}

// Flatten returns all photos in pageIndex, then position order.
func Flatten(pages []Page) []Photo {
	var out []Photo
	for _, p := range Sorted(pages) {
		out = append(out, p.Photos...)
	}
	return out
}

// Reflow recomputes the full arrangement from the current pages, e.g. after the
// images-per-page setting or the sort direction changed.
func Reflow(pages []Page, opts Options) ([]Page, error) {
	return Compose(Flatten(pages), pages, opts)
}

// Remove drops the photo with the given key and recomposes the remaining photos.
func Remove(pages []Page, photoKey string, opts Options) ([]Page, error) {
	all := Flatten(pages)
	idx := slices.IndexFunc(all, func(p Photo) bool { return p.Key() == photoKey })
	if idx < 0 {
		return nil, fmt.Errorf("%w: photo %q is not part of the project", ErrConsistency, photoKey)
	}
	remaining := slices.Delete(all, idx, idx+1)
	return Compose(remaining, pages, opts)
}

// Reorder returns a copy of page with positions reassigned to follow order, a
// permutation of the page's photo keys. Only Position values change.
func Reorder(page Page, order []string) (Page, error) {
	if len(order) != len(page.Photos) {
		return Page{}, fmt.Errorf("%w: got %d photos for a page of %d", ErrConsistency, len(order), len(page.Photos))
	}
	byKey := make(map[string]Photo, len(page.Photos))
	for _, p := range page.Photos {
		byKey[p.Key()] = p
	}
	if len(byKey) != len(page.Photos) {
		return Page{}, fmt.Errorf("%w: page holds duplicate photo identities", ErrConsistency)
	}

	out := page
	out.Photos = make([]Photo, 0, len(order))
	for pos, key := range order {
		p, ok := byKey[key]
		if !ok {
			return Page{}, fmt.Errorf("%w: photo %q is not on page %d or listed twice", ErrConsistency, key, page.PageIndex)
		}
		delete(byKey, key)
		p.Position = pos
		out.Photos = append(out.Photos, p)
	}
	return out, nil
}

// Validate checks the contiguity invariants of a composed arrangement.
func Validate(pages []Page) error {
	seen := make([]bool, len(pages))
	for _, p := range pages {
		if p.PageIndex < 0 || p.PageIndex >= len(pages) || seen[p.PageIndex] {
			return fmt.Errorf("%w: page indexes are not 0..%d", ErrConsistency, len(pages)-1)
		}
		seen[p.PageIndex] = true

		positions := make([]bool, len(p.Photos))
		for _, ph := range p.Photos {
			if ph.Position < 0 || ph.Position >= len(p.Photos) || positions[ph.Position] {
				return fmt.Errorf("%w: positions on page %d are not 0..%d", ErrConsistency, p.PageIndex, len(p.Photos)-1)
			}
			positions[ph.Position] = true
		}
	}
	return nil
}

// Sorted returns a copy of pages ordered by PageIndex with photos ordered by Position.
func Sorted(pages []Page) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.clone()
		slices.SortStableFunc(out[i].Photos, func(a, b Photo) int { return a.Position - b.Position })
	}
	slices.SortStableFunc(out, func(a, b Page) int { return a.PageIndex - b.PageIndex })
	return out
}
