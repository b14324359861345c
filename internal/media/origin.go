package media

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidOrigin is returned when the remote origin is missing or not an
// absolute URL
var ErrInvalidOrigin = errors.New("invalid remote media origin")

// Origin is the remote scheme and host media is served from
type Origin struct {
	Scheme string
	Host   string
}

// ParseOrigin validates raw as an absolute URL and extracts its scheme and
// host. Trailing slashes are ignored.
func ParseOrigin(raw string) (*Origin, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidOrigin)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if u.Scheme == "" || u.Host == "" || u.Opaque != "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidOrigin, raw)
	}

	return &Origin{
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Host,
	}, nil
}

// String returns the origin as scheme://host
func (o *Origin) String() string {
	return o.Scheme + "://" + o.Host
}
