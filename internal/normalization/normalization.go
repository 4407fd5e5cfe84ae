package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// FoldAccents strips combining marks so "proteína" and "proteina" compare equal.
func FoldAccents(input string) string {
	out, _, err := transform.String(foldTransformer, input)
	if err != nil {
		return input
	}
	return out
}

// NormalizeText folds accents, lowercases, strips punctuation and collapses
// whitespace. All term matching in the relevance gate runs on this form.
func NormalizeText(input string) string {
	folded := FoldAccents(strings.ToLower(strings.TrimSpace(input)))
	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits already-normalized text into terms.
func Tokenize(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// Portuguese filler words that carry no product identity signal.
var stopwords = map[string]bool{
	"a": true, "o": true, "e": true, "de": true, "da": true, "do": true,
	"das": true, "dos": true, "em": true, "com": true, "para": true, "por": true,
	"um": true, "uma": true, "no": true, "na": true, "ao": true, "as": true,
	"os": true, "kit": true, "novo": true, "nova": true, "original": true,
	"promocao": true, "oferta": true, "frete": true, "gratis": true,
	"envio": true, "imediato": true, "pronta": true, "entrega": true,
	"unidade": true, "unidades": true, "cor": true, "tamanho": true,
}

// CompactTitle normalizes a listing title and removes stopwords, producing the
// token list used for identity fingerprinting.
func CompactTitle(title string) []string {
	tokens := Tokenize(NormalizeText(title))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// NormalizePermalinkPath reduces a listing permalink to a stable comparable
// path: scheme, host case, query string and trailing slashes are ignored.
func NormalizePermalinkPath(permalink string) string {
	s := strings.TrimSpace(strings.ToLower(permalink))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "/")
}
