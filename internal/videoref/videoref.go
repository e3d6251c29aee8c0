// Package videoref extracts YouTube video identifiers from user-supplied references.
package videoref

import (
	"fmt"
	"regexp"
	"strings"

	"ytchat/internal/domain"
)

var (
	idInURL = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)
	bareID  = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
)

// Extract returns the 11-character video id found in ref, taken from a `v=`
// query parameter or a path segment (youtu.be/ID, /embed/ID, /shorts/ID).
// A bare id is accepted as is.
func Extract(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if bareID.MatchString(ref) {
		return ref, nil
	}
	if m := idInURL.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidVideoReference, ref)
}
