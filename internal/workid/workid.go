package workid

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxNumber is the largest number the canonical padded forms cover. Larger
// numbers still format via the unpadded fallback.
const MaxNumber = 9_999_999

// ID is a parsed work identifier. The zero value marks unparseable input.
type ID struct {
	Family string
	Number uint32
}

// IsZero reports whether the ID is the unparseable-input sentinel.
func (id ID) IsZero() bool {
	return id.Family == ""
}

// String renders the canonical form of the ID.
func (id ID) String() string {
	return Format(id.Family, id.Number)
}

// Format renders family plus zero-padded number: width 6 below 1,000,000,
// width 8 up to MaxNumber. Beyond MaxNumber the number is rendered unpadded;
// callers must not assume fixed width there.
func Format(family string, number uint32) string {
	switch {
	case number < 1_000_000:
		return fmt.Sprintf("%s%06d", family, number)
	case number <= MaxNumber:
		return fmt.Sprintf("%s%08d", family, number)
	default:
		return family + strconv.FormatUint(uint64(number), 10)
	}
}

// Codec parses identifier strings against a registered set of families.
type Codec struct {
	families []string
}

// NewCodec builds a codec for the given family prefixes. Prefixes must be
// non-empty, unique, and uppercase letters only.
func NewCodec(families ...string) (Codec, error) {
	if len(families) == 0 {
		return Codec{}, fmt.Errorf("workid: no families registered")
	}
	seen := make(map[string]struct{}, len(families))
	registered := make([]string, 0, len(families))
	for _, family := range families {
		trimmed := strings.TrimSpace(family)
		if trimmed == "" {
			return Codec{}, fmt.Errorf("workid: empty family prefix")
		}
		for _, r := range trimmed {
			if r < 'A' || r > 'Z' {
				return Codec{}, fmt.Errorf("workid: family prefix %q must be uppercase letters", trimmed)
			}
		}
		if _, dup := seen[trimmed]; dup {
			return Codec{}, fmt.Errorf("workid: duplicate family prefix %q", trimmed)
		}
		seen[trimmed] = struct{}{}
		registered = append(registered, trimmed)
	}
	return Codec{families: registered}, nil
}

// Families returns the registered prefixes in declaration order.
func (c Codec) Families() []string {
	cp := make([]string, len(c.families))
	copy(cp, c.families)
	return cp
}

// Parse maps an identifier string back to its ID. Input whose letter prefix
// is not a registered family, or whose numeric part does not parse, yields
// the zero ID rather than an error.
func (c Codec) Parse(s string) ID {
	letters, digits, ok := splitPrefixDigits(s)
	if !ok {
		return ID{}
	}
	for _, family := range c.families {
		if family != letters {
			continue
		}
		number, err := strconv.ParseUint(digits, 10, 32)
		if err != nil {
			return ID{}
		}
		return ID{Family: family, Number: uint32(number)}
	}
	return ID{}
}

// ShardKey derives the asset directory grouping for an identifier string:
// the numeric part rounded up to the next multiple of 1000, re-padded to the
// source digit width. Purely lexical; the prefix need not be a registered
// family. Returns "" when the input is not letters followed by digits.
func ShardKey(s string) string {
	letters, digits, ok := splitPrefixDigits(s)
	if !ok {
		return ""
	}
	number, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return ""
	}
	shard := (number + 999) / 1000 * 1000
	return letters + padLeft(strconv.FormatUint(shard, 10), len(digits))
}

func splitPrefixDigits(s string) (letters, digits string, ok bool) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return "", "", false
	}
	for j := i; j < len(s); j++ {
		if s[j] < '0' || s[j] > '9' {
			return "", "", false
		}
	}
	return s[:i], s[i:], true
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
