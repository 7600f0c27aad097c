package captions

import (
	"golang.org/x/text/language"
)

// chooseTrack picks the caption track to download. Human-authored
// tracks in a preferred language beat machine-generated ones in the
// same languages; with no preferred-language match selection fails
// unless allowAny, which takes any human-authored track before any
// machine-generated one.
func chooseTrack(tracks []Track, preferred []string, allowAny bool) (Track, bool) {
	manual := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		if !track.Auto() {
			manual = append(manual, track)
		}
	}

	if track, ok := matchByLanguage(manual, preferred); ok {
		return track, true
	}
	if track, ok := matchByLanguage(tracks, preferred); ok {
		return track, true
	}

	if allowAny {
		if len(manual) > 0 {
			return manual[0], true
		}
		if len(tracks) > 0 {
			return tracks[0], true
		}
	}
	return Track{}, false
}

func matchByLanguage(tracks []Track, preferred []string) (Track, bool) {
	if len(tracks) == 0 {
		return Track{}, false
	}

	supported := make([]language.Tag, 0, len(tracks))
	indexes := make([]int, 0, len(tracks))
	for i, track := range tracks {
		tag, err := language.Parse(track.LanguageCode)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		indexes = append(indexes, i)
	}
	if len(supported) == 0 {
		return Track{}, false
	}

	desired := make([]language.Tag, 0, len(preferred))
	for _, code := range preferred {
		tag, err := language.Parse(code)
		if err != nil {
			continue
		}
		desired = append(desired, tag)
	}
	if len(desired) == 0 {
		return Track{}, false
	}

	matcher := language.NewMatcher(supported)
	_, index, confidence := matcher.Match(desired...)
	if confidence < language.High {
		return Track{}, false
	}
	return tracks[indexes[index]], true
}
