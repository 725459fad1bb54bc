// Package naming derives unique, whitespace-free names for stored artifacts.
package naming

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var whitespace = regexp.MustCompile(`\s+`)

// Allocator joins the original stem, a timestamp, a random token and the
// original extension. The zero value uses the wall clock and uuid tokens.
type Allocator struct {
	Now   func() time.Time
	Token func() string
}

var defaultAllocator Allocator

// Allocate returns a unique name for original using the default allocator.
func Allocate(original string) string {
	return defaultAllocator.Allocate(original)
}

func (a Allocator) Allocate(original string) string {
	ext := filepath.Ext(original)
	stem := strings.TrimSuffix(original, ext)

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	token := randomToken
	if a.Token != nil {
		token = a.Token
	}

	name := stem + "_" + strconv.FormatInt(now().UnixMilli(), 10) + "_" + token() + ext
	return whitespace.ReplaceAllString(name, "_")
}

// randomToken is the first 12 hex digits of a v4 uuid, all random bits.
func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Stem strips the extension from a generated name.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// WithExt swaps the extension of name for ext (which includes the dot).
func WithExt(name, ext string) string {
	return Stem(name) + ext
}
