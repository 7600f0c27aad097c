package mediafetch

import "fmt"

// knownProfiles are the player client identities the downloader tool
// can impersonate (its youtube:player_client extractor argument).
// Order of iteration comes from configuration, not this set.
var knownProfiles = map[string]struct{}{
	"android":       {},
	"android_music": {},
	"android_vr":    {},
	"ios":           {},
	"ios_music":     {},
	"mweb":          {},
	"tv":            {},
	"tv_embedded":   {},
	"web":           {},
	"web_embedded":  {},
	"web_music":     {},
	"web_safari":    {},
}

func validateProfiles(tags []string) error {
	for _, tag := range tags {
		if _, ok := knownProfiles[tag]; !ok {
			return fmt.Errorf("unknown client profile %q", tag)
		}
	}
	return nil
}
