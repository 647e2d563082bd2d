package webhook

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxNameLength = 191

var validate = validator.New()

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid("name", "is required")
	}
	if len(name) > maxNameLength {
		return "", invalid("name", "must be at most %d characters", maxNameLength)
	}
	return name, nil
}

// normalizeURL accepts absolute http(s) URLs only.
func normalizeURL(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", invalid("url", "is required")
	}
	if err := validate.Var(target, "url"); err != nil {
		return "", invalid("url", "%q is not a valid absolute URL", target)
	}
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", invalid("url", "%q is not a valid absolute URL", target)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", invalid("url", "scheme %q is not supported, use http or https", u.Scheme)
	}
	return target, nil
}

// normalizeEvents trims and deduplicates keys, keeping first-seen order, and
// rejects empty sets and keys missing from the registry.
func normalizeEvents(events []string) ([]string, error) {
	seen := make(map[string]struct{}, len(events))
	out := make([]string, 0, len(events))
	for _, event := range events {
		key := strings.TrimSpace(event)
		if key == "" {
			continue
		}
		if !IsValidEventType(key) {
			return nil, invalid("events", "unknown event type %q", key)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if len(out) == 0 {
		return nil, invalid("events", "at least one event type is required")
	}
	return out, nil
}
