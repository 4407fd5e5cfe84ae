package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/normalization"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

// ErrNoIdentity means no stable key could be derived: the candidate is
// terminal INVALID_SOURCE and never retried automatically.
var ErrNoIdentity = errors.New("no derivable identity for candidate")

// Marketplace catalog product ids embedded in permalinks: /p/MLB123456.
var catalogIDInPermalink = regexp.MustCompile(`(?i)/p/(mlb\d+)`)

// Listing titles need this many tokens of signal before a title fingerprint
// is trusted over the permalink.
const minFingerprintTokens = 10

// IdentityResolver derives the canonical grouping key for a listing. Two
// listings sharing a key describe the same real-world product.
type IdentityResolver struct{}

func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{}
}

// Resolve tries, in priority order: marketplace catalog product id, title
// fingerprint, normalized permalink path, raw external id.
func (r *IdentityResolver) Resolve(c types.Candidate) (string, error) {
	if c.CatalogProductID != "" {
		return "catalog:" + strings.ToUpper(c.CatalogProductID), nil
	}
	if m := catalogIDInPermalink.FindStringSubmatch(c.Permalink); len(m) == 2 {
		return "catalog:" + strings.ToUpper(m[1]), nil
	}

	titleTokens := normalization.Tokenize(normalization.NormalizeText(c.Title))
	if len(titleTokens) >= minFingerprintTokens {
		compact := normalization.CompactTitle(c.Title)
		if len(compact) > 0 {
			return fmt.Sprintf("fp:%s:%s:%s",
				c.MarketplaceCategoryID,
				normalization.NormalizeText(c.Brand),
				strings.Join(compact, "-")), nil
		}
	}

	if path := normalization.NormalizePermalinkPath(c.Permalink); path != "" {
		return "url:" + path, nil
	}
	if c.ExternalID != "" {
		return "ext:" + c.ExternalID, nil
	}
	return "", ErrNoIdentity
}
