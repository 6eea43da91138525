package ytdlp

import (
	"context"
	"fmt"
	"os/exec"
)

// FetchStream retrieves the rendition identified by formatID to dest.
func (c *Client) FetchStream(ctx context.Context, url, formatID, dest string) error {
	return c.fetch(ctx, url, formatID, dest)
}

// FetchBest retrieves the best progressive MP4 rendition to dest, used
// for platforms without a quality choice.
func (c *Client) FetchBest(ctx context.Context, url, dest string) error {
	return c.fetch(ctx, url, "mp4", dest)
}

func (c *Client) fetch(ctx context.Context, url, format, dest string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.bin, "--no-playlist", "--no-warnings", "-f", format, "-o", dest, url)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", c.bin, err, string(output))
	}
	return nil
}
