// Package media picks the single transferable representation of a
// tweet attachment out of the descriptor the timeline API returns.
package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tweetvault/tweetvault/pkg/model"
)

const mp4ContentType = "video/mp4"

var (
	// ErrNoPlayableVariant means a video descriptor carries no mp4
	// variant. Upstream data integrity fault, callers skip the media.
	ErrNoPlayableVariant = errors.New("no mp4 variant available")

	// ErrUnsupportedMedia means the descriptor kind or URL shape is
	// something the archiver can't derive a destination from.
	ErrUnsupportedMedia = errors.New("unsupported media descriptor")
)

// Resolve derives the source URL, destination name and content type
// for one media descriptor. Pure, no I/O.
func Resolve(m model.MediaDescriptor) (model.ResolvedMedia, error) {
	switch m.Kind {
	case model.KindPhoto:
		return resolvePhoto(m)
	case model.KindVideo:
		return resolveVideo(m)
	default:
		return model.ResolvedMedia{}, ErrUnsupportedMedia
	}
}

func resolvePhoto(m model.MediaDescriptor) (model.ResolvedMedia, error) {
	name := lastSegment(m.URL)

	_, ext, ok := strings.Cut(name, ".")
	if !ok || ext == "" {
		return model.ResolvedMedia{}, ErrUnsupportedMedia
	}

	return model.ResolvedMedia{
		SourceURL:   m.URL,
		Name:        name,
		ContentType: fmt.Sprintf("image/%s", ext),
	}, nil
}

func resolveVideo(m model.MediaDescriptor) (model.ResolvedMedia, error) {
	best, ok := largestMp4(m.Variants)
	if !ok {
		return model.ResolvedMedia{}, ErrNoPlayableVariant
	}

	name := lastSegment(best.URL)
	if idx := strings.Index(name, ".mp4"); idx >= 0 {
		// Drop the query string and anything else after the extension.
		name = name[:idx+len(".mp4")]
	}

	return model.ResolvedMedia{
		SourceURL:   best.URL,
		Name:        name,
		ContentType: mp4ContentType,
	}, nil
}

// largestMp4 returns the highest bit rate mp4 variant. Ties resolve to
// the first one encountered.
func largestMp4(variants []model.Variant) (model.Variant, bool) {
	var (
		best  model.Variant
		found bool
	)

	for _, v := range variants {
		if v.ContentType != mp4ContentType {
			continue
		}

		if !found || v.BitRate > best.BitRate {
			best = v
			found = true
		}
	}

	return best, found
}

func lastSegment(url string) string {
	if idx := strings.LastIndexByte(url, '/'); idx >= 0 {
		return url[idx+1:]
	}

	return url
}
