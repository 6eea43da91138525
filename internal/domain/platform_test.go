package domain

import "testing"

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url     string
		want    SourcePlatform
		wantErr bool
	}{
		{"https://youtube.com/watch?v=abc123", PlatformYouTube, false},
		{"https://www.youtube.com/watch?v=abc123", PlatformYouTube, false},
		{"http://youtu.be/abc123", PlatformYouTube, false},
		{"https://www.instagram.com/reel/xyz/", PlatformInstagram, false},
		{"https://instagr.am/p/xyz/", PlatformInstagram, false},
		{"https://www.tiktok.com/@user/video/123", PlatformTikTok, false},
		{"https://vm.tiktok.com/ZM123/", PlatformTikTok, false},
		{"https://vimeo.com/123456", "", true},
		{"not a url", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := DetectPlatform(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectPlatform(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DetectPlatform(%q) = %q, want %q", tt.url, got, tt.want)
			}
			if tt.wantErr && !IsKind(err, KindInvalidSelection) {
				t.Errorf("DetectPlatform(%q) error kind = %v, want invalid_selection", tt.url, err)
			}
		})
	}
}
