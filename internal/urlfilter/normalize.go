package urlfilter

import (
	"fmt"
	"net/url"
)

// MalformedURLError reports a URL that cannot be parsed or reassembled.
// It signals an upstream data problem and is never treated as an ordinary
// scope rejection.
type MalformedURLError struct {
	URL string
	Err error
}

func (e *MalformedURLError) Error() string {
	return fmt.Sprintf("malformed url %q: %v", e.URL, e.Err)
}

func (e *MalformedURLError) Unwrap() error {
	return e.Err
}

func parse(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &MalformedURLError{URL: raw, Err: err}
	}
	return u, nil
}

// Normalize returns raw with its fragment removed.
func Normalize(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}
	return defragment(u), nil
}

// Resolve makes ref absolute against base and normalizes the result.
func Resolve(base *url.URL, ref string) (string, error) {
	u, err := parse(ref)
	if err != nil {
		return "", err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return defragment(u), nil
}

func defragment(u *url.URL) string {
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
