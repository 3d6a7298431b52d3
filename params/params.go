package params

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Conventional attribution keys. None of them are required or enforced.
const (
	UTMSource   = "utm_source"
	UTMMedium   = "utm_medium"
	UTMCampaign = "utm_campaign"
	UTMTerm     = "utm_term"
	UTMContent  = "utm_content"
	FBCLID      = "fbclid"
	GCLID       = "gclid"
	MSCLKID     = "msclkid"
	TTCLID      = "ttclid"
	TWCLID      = "twclid"
	LiFatID     = "li_fat_id"
	SCClickID   = "sc_click_id"
	ClickID     = "click_id"
	CID         = "cid"
	AffiliateID = "affiliate_id"
	SubID       = "sub_id"
	ExternalID  = "external_id"
)

var (
	// ErrInvalidAddress is returned by [BuildAddress] when the base cannot be parsed.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrUnsupportedScheme is returned for absolute bases that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported address scheme")

	// ErrNoOrigin is returned when a relative base is given without an origin.
	ErrNoOrigin = errors.New("relative address requires an origin")
)

// Set is a snapshot of attribution parameters keyed by query key.
//
// Keys are case-sensitive. An empty value is treated as absent when the set
// is persisted or serialized onto a link.
type Set map[string]string

// Clone returns a copy of the set. A nil set clones to an empty set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new set holding s with every entry of over applied on top.
// Neither input is modified.
func (s Set) Merge(over Set) Set {
	out := s.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// With returns a copy of s with the given key/value pairs applied on top.
// A trailing key without a value is ignored.
func (s Set) With(kv ...string) Set {
	out := s.Clone()
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// Compact returns a copy of s without empty values.
func (s Set) Compact() Set {
	out := make(Set, len(s))
	for k, v := range s {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Keys returns the set's keys in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode returns the non-empty values as a query string, sorted by key.
func (s Set) Encode() string {
	q := url.Values{}
	for k, v := range s {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q.Encode()
}

// FromAddress reads the parameters carried by u.
//
// Query pairs are read first. Fragment pairs are added afterwards, but only
// for keys the query did not supply with a non-empty value, so the query
// wins on conflict. A key repeated in the query keeps its last value; a key
// repeated in the fragment keeps its first non-empty value.
// A nil address yields an empty set.
func FromAddress(u *url.URL) Set {
	set := Set{}
	if u == nil {
		return set
	}

	for _, p := range splitPairs(u.RawQuery) {
		set[p[0]] = p[1]
	}

	fragment := u.EscapedFragment()
	if fragment == "" {
		return set
	}
	for _, p := range splitPairs(fragment) {
		if set[p[0]] == "" {
			set[p[0]] = p[1]
		}
	}
	return set
}

// ParseAddress is [FromAddress] for a raw address string. An address that
// cannot be parsed yields an empty set.
func ParseAddress(raw string) Set {
	u, err := url.Parse(raw)
	if err != nil {
		return Set{}
	}
	return FromAddress(u)
}

// splitPairs parses a raw "k=v&k2=v2" string leniently. Undecodable escapes
// are kept verbatim instead of dropping the pair.
func splitPairs(raw string) [][2]string {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil
	}

	var pairs [][2]string
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = unescape(key)
		if key == "" {
			continue
		}
		pairs = append(pairs, [2]string{key, unescape(value)})
	}
	return pairs
}

func unescape(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return strings.ReplaceAll(s, "+", " ")
	}
	return out
}

// BuildAddress returns base with every non-empty value of set applied as a
// query parameter, overwriting keys already present on base.
//
// Absolute bases must use http or https. Relative bases are resolved against
// origin and returned as full addresses. Query segments on base whose key is
// not in set are preserved unchanged, even when they are not strictly valid
// (";" separators, stray "%"). A base that cannot be parsed is a caller error
// and is reported rather than recovered.
func BuildAddress(base string, origin *url.URL, set Set) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, base, err)
	}

	target := ref
	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref.Scheme)
		}
		if ref.Host == "" {
			return "", fmt.Errorf("%w: %q has no host", ErrInvalidAddress, base)
		}
	} else {
		if origin == nil || !origin.IsAbs() {
			return "", fmt.Errorf("%w: %q", ErrNoOrigin, base)
		}
		target = origin.ResolveReference(ref)
	}

	target.RawQuery = mergeQuery(target.RawQuery, set)

	return target.String(), nil
}

// mergeQuery applies the non-empty values of set to a raw query. Segments
// whose key is being replaced are dropped; every other segment is kept
// byte for byte, including ones url.ParseQuery would reject.
func mergeQuery(raw string, set Set) string {
	added := set.Encode()

	var kept []string
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if set[unescape(key)] != "" {
			continue
		}
		kept = append(kept, part)
	}
	if added != "" {
		kept = append(kept, added)
	}
	return strings.Join(kept, "&")
}
