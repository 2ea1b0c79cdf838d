package cli

import (
	"fmt"
	"net/url"
	"strings"

	"watershed/pkg/pump"
)

// validateHostURL checks a Pump base URL. A path is allowed since the
// service is usually mounted below the cluster master, e.g. /pump.
func validateHostURL(host string) error {
	_, err := parseHostURL(host)
	return err
}

// normalizeHostURL returns the Pump base URL named by host. A bare master
// URL such as http://master:8080 gets the service path appended; an
// explicit path is kept without its trailing slash.
func normalizeHostURL(host string) (string, error) {
	u, err := parseHostURL(host)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	if u.Path == "" {
		u.Path = pump.ServicePath
	}
	return u.String(), nil
}

func parseHostURL(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("invalid host %q: host URL cannot be empty", host)
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid host %q: scheme must be http or https", host)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid host %q: missing host", host)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("invalid host %q: host must not include query or fragment", host)
	}
	return u, nil
}
