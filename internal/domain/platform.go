package domain

import "regexp"

// SourcePlatform identifies where a submitted URL points. It is resolved
// once at request-validation time; downstream code switches on the value
// instead of re-matching the URL.
type SourcePlatform string

const (
	PlatformYouTube   SourcePlatform = "youtube"
	PlatformInstagram SourcePlatform = "instagram"
	PlatformTikTok    SourcePlatform = "tiktok"
)

var (
	youtubePattern   = regexp.MustCompile(`^https?://(www\.)?(youtube\.com|youtu\.be)/`)
	instagramPattern = regexp.MustCompile(`^https?://(www\.)?(instagram\.com|instagr\.am)/`)
	tiktokPattern    = regexp.MustCompile(`^https?://((www|vm)\.)?tiktok\.com/`)
)

// DetectPlatform maps a URL to its platform. Unsupported URLs are an
// InvalidSelection error.
func DetectPlatform(rawURL string) (SourcePlatform, error) {
	switch {
	case youtubePattern.MatchString(rawURL):
		return PlatformYouTube, nil
	case instagramPattern.MatchString(rawURL):
		return PlatformInstagram, nil
	case tiktokPattern.MatchString(rawURL):
		return PlatformTikTok, nil
	}
	return "", Errorf(KindInvalidSelection, "unsupported platform for URL %q", rawURL)
}
