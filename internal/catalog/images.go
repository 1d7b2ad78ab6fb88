package catalog

import (
	"errors"
	"fmt"
)

// ErrNoImageSizes is returned when the remote configuration offers no
// sizes for the requested image class.
var ErrNoImageSizes = errors.New("remote configuration lists no sizes for image class")

// PosterBaseURL returns the base URL for poster images at the preferred
// size, falling back to the smallest offered size when the preferred one
// is not available.
func (c *RemoteConfiguration) PosterBaseURL(preferredSize string) (string, error) {
	return c.imageBaseURL(preferredSize, c.Images.PosterSizes)
}

// BackdropBaseURL returns the base URL for backdrop images.
func (c *RemoteConfiguration) BackdropBaseURL(preferredSize string) (string, error) {
	return c.imageBaseURL(preferredSize, c.Images.BackdropSizes)
}

// StillBaseURL returns the base URL for episode still images.
func (c *RemoteConfiguration) StillBaseURL(preferredSize string) (string, error) {
	return c.imageBaseURL(preferredSize, c.Images.StillSizes)
}

func (c *RemoteConfiguration) imageBaseURL(preferredSize string, sizes []string) (string, error) {
	if len(sizes) == 0 {
		return "", ErrNoImageSizes
	}

	size := sizes[0]
	for _, s := range sizes {
		if s == preferredSize {
			size = preferredSize
			break
		}
	}

	return fmt.Sprintf("%s%s", c.Images.SecureBaseURL, size), nil
}
