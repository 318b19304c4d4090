package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// SocialLinks maps a network key (whatsapp, telegram, facebook, instagram, ...)
// to a URL or handle. It is stored as a jsonb object.
type SocialLinks map[string]string

func (s SocialLinks) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]string(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (s *SocialLinks) Scan(value interface{}) error {
	if value == nil {
		*s = SocialLinks{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("social links: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*s = SocialLinks{}
		return nil
	}

	decoded := map[string]string{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("social links: %w", err)
	}
	*s = SocialLinks(decoded)
	return nil
}

// Normalize trims keys and values, lowercases keys and drops empty entries.
func (s SocialLinks) Normalize() SocialLinks {
	out := SocialLinks{}
	for k, v := range s {
		key := strings.ToLower(strings.TrimSpace(k))
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

// Validate rejects values that look like URLs but do not parse as http(s).
func (s SocialLinks) Validate() error {
	for k, v := range s {
		if !strings.Contains(v, "://") {
			continue
		}
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("social link %q must be an http(s) url", k)
		}
	}
	return nil
}
