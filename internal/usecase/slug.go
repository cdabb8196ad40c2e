package usecase

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	minSlugLen    = 3
	maxSlugLen    = 63
	slugSuffixLen = 4
	fallbackSlug  = "institut"
)

var ligatures = strings.NewReplacer("œ", "oe", "Œ", "oe", "æ", "ae", "Æ", "ae", "ß", "ss", "&", " et ")

// Slugify turns an institute name into a subdomain label:
// "Beauté & Spa d'Élise" -> "beaute-et-spa-d-elise".
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, ligatures.Replace(name))
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	// leave room for a collision suffix
	if limit := maxSlugLen - slugSuffixLen - 1; len(slug) > limit {
		slug = strings.TrimRight(slug[:limit], "-")
	}
	switch {
	case slug == "":
		return fallbackSlug
	case len(slug) < minSlugLen:
		return fallbackSlug + "-" + slug
	}
	return slug
}

const suffixAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"

func withSuffix(slug string) (string, error) {
	s, err := randomString(suffixAlphabet, slugSuffixLen)
	if err != nil {
		return "", err
	}
	return slug + "-" + s, nil
}

func randomString(alphabet string, n int) (string, error) {
	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		k, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[k.Int64()]
	}
	return string(out), nil
}
