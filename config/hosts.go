package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// hostPattern is the accepted shape of a host URL: a scheme followed by a
// dotted name. localhost and IP literals are accepted separately.
var hostPattern = regexp.MustCompile(`^https?://[0-9A-Za-z-]+\.[A-Za-z]+`)

// ValidateURL reports whether raw is an acceptable host URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	if hostPattern.MatchString(raw) || host == "localhost" || net.ParseIP(host) != nil {
		return nil
	}
	return fmt.Errorf("invalid URL %q: use the form https://example.com", raw)
}

// ParseHostList splits a comma-separated host list and validates every entry.
// Surrounding whitespace is trimmed and empty entries are ignored.
func ParseHostList(s string) ([]string, error) {
	var hosts []string
	for _, part := range strings.Split(s, ",") {
		host := strings.TrimSpace(part)
		if host == "" {
			continue
		}
		if err := ValidateURL(host); err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}
	return hosts, nil
}

// ReadHostsFile reads hosts from a file, see [ReadHosts].
func ReadHostsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hosts file: %w", err)
	}
	defer f.Close()

	hosts, err := ReadHosts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return hosts, nil
}

// ReadHosts reads hosts one per line. A line may also hold a comma-separated
// list. Blank lines and lines starting with '#' are skipped.
func ReadHosts(r io.Reader) ([]string, error) {
	var hosts []string

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed, err := ParseHostList(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		hosts = append(hosts, parsed...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hosts: %w", err)
	}

	return hosts, nil
}

// MergeHosts concatenates host lists in order and drops repeated hosts,
// keeping the first occurrence.
func MergeHosts(lists ...[]string) []string {
	var merged []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, host := range list {
			if _, ok := seen[host]; ok {
				continue
			}
			seen[host] = struct{}{}
			merged = append(merged, host)
		}
	}
	return merged
}

// errInvalidGridTarget marks a grid expansion that produced a bad URL.
var errInvalidGridTarget = errors.New("grid produced an invalid URL")
