package services

import (
	"math"
	"strings"
	"time"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

const (
	// Minimum base/anchor ratio before a scraped price is considered truncated.
	minPriceRatioGeneric = 0.35
	minPriceRatioPrimary = 0.55

	// A pix discount below both bounds is noise, not a promotion.
	minPixDiscountAbs = 0.5
	minPixDiscountPct = 0.5

	// Strike-through price sanity caps.
	listRatioCap        = 1.8
	listRatioCapPromo   = 4.0
	listFreshnessScrape = 12 * time.Hour
	listFreshnessOther  = 24 * time.Hour

	// Historical previous-price substitution.
	historyListMinGainPct = 5.0
	historyDefaultTTL     = 48 * time.Hour

	// PrimaryMarketplace gets the stricter scrape-truncation ratio.
	PrimaryMarketplace = "meli"
)

// PixTrustedSources may publish a pix price; everything else is ignored.
var pixTrustedSources = map[string]bool{
	types.SourceAPI:    true,
	types.SourceManual: true,
}

// listTrustedSources may publish a strike-through price directly.
var listTrustedSources = map[string]bool{
	types.SourceManual:  true,
	types.SourceAuth:    true,
	types.SourcePublic:  true,
	types.SourceAPIBase: true,
	types.SourceAPI:     true,
	types.SourceAPIAuth: true,
}

// ResolveInput is the raw product pricing record. Empty sources default to
// "api" because original/list prices arrive on API item payloads; a nil
// CheckedAt means the quote was observed just now.
type ResolveInput struct {
	Marketplace string

	BasePrice  float64
	BaseSource string

	PixPrice       float64
	PixPriceSource string

	OriginalPrice          float64
	OriginalPriceSource    string
	OriginalPriceCheckedAt *time.Time

	PreviousPrice           float64
	PreviousPriceSource     string
	PreviousPriceDetectedAt *time.Time
	PreviousPriceExpiresAt  *time.Time

	PromoFlag bool
}

// PriceInfo is the consumer-facing pricing outcome.
type PriceInfo struct {
	BasePrice       float64
	PixPrice        float64
	ListPrice       float64
	FinalPrice      float64
	DiscountPercent float64
	UsedPix         bool
	Notes           []string
}

// ResolveFinalPriceInfo applies the pricing trust rules in order: scrape
// anchor sanitation, pix trust + meaningful-discount check, strike-through
// trust/staleness/ratio bounds, then historical previous-price substitution.
func ResolveFinalPriceInfo(in ResolveInput, now time.Time) PriceInfo {
	info := PriceInfo{BasePrice: in.BasePrice}

	// 1. Scraped base prices are sanitized against the anchor: a truncated
	// scrape (R$ 1.599 read as R$ 1.59) must not go live.
	anchor := math.Max(in.OriginalPrice, in.PreviousPrice)
	if strings.EqualFold(in.BaseSource, types.SourceScraper) && anchor > 0 && in.BasePrice > 0 {
		minRatio := minPriceRatioGeneric
		if strings.EqualFold(in.Marketplace, PrimaryMarketplace) {
			minRatio = minPriceRatioPrimary
		}
		if in.BasePrice/anchor < minRatio {
			info.BasePrice = anchor
			info.Notes = append(info.Notes, "base_price_anchored")
		}
	}

	// 2. Pix price needs a trusted source and a meaningful discount.
	if in.PixPrice > 0 && in.PixPrice < info.BasePrice && pixTrustedSources[strings.ToLower(in.PixPriceSource)] {
		diff := info.BasePrice - in.PixPrice
		pct := diff / info.BasePrice * 100
		if diff >= minPixDiscountAbs || pct >= minPixDiscountPct {
			info.PixPrice = in.PixPrice
			info.UsedPix = true
		} else {
			info.Notes = append(info.Notes, "pix_discount_noise")
		}
	}

	// 3. Final price.
	info.FinalPrice = info.BasePrice
	if info.UsedPix {
		info.FinalPrice = info.PixPrice
	}

	// 4. Strike-through list price.
	if in.OriginalPrice > info.FinalPrice {
		source := strings.ToLower(in.OriginalPriceSource)
		if source == "" {
			source = types.SourceAPI
		}
		trusted := listTrustedSources[source]
		scraperPromo := source == types.SourceScraper && in.PromoFlag
		if trusted || scraperPromo {
			if !listQuoteStale(source, in.OriginalPriceCheckedAt, now) {
				cap := listRatioCap
				if info.UsedPix || in.PromoFlag {
					cap = listRatioCapPromo
				}
				if in.OriginalPrice <= info.FinalPrice*cap {
					info.ListPrice = in.OriginalPrice
				} else {
					info.Notes = append(info.Notes, "list_price_over_ratio_cap")
				}
			} else {
				info.Notes = append(info.Notes, "list_price_stale")
			}
		} else {
			info.Notes = append(info.Notes, "list_price_untrusted_source")
		}
	}

	// 5. Historical previous price may substitute as the strike-through.
	if info.ListPrice == 0 && in.PreviousPrice > 0 &&
		strings.EqualFold(in.PreviousPriceSource, types.SourceHistory) &&
		in.PreviousPrice >= info.FinalPrice*(1+historyListMinGainPct/100) &&
		!previousPriceExpired(in, now) {
		info.ListPrice = in.PreviousPrice
		info.Notes = append(info.Notes, "list_price_from_history")
	}

	if info.ListPrice > 0 {
		info.DiscountPercent = math.Round((info.ListPrice-info.FinalPrice)/info.ListPrice*1000) / 10
	}
	return info
}

func listQuoteStale(source string, checkedAt *time.Time, now time.Time) bool {
	if checkedAt == nil {
		return false
	}
	window := listFreshnessOther
	if source == types.SourceScraper {
		window = listFreshnessScrape
	}
	return now.Sub(*checkedAt) > window
}

func previousPriceExpired(in ResolveInput, now time.Time) bool {
	if in.PreviousPriceExpiresAt != nil {
		return now.After(*in.PreviousPriceExpiresAt)
	}
	if in.PreviousPriceDetectedAt != nil {
		return now.Sub(*in.PreviousPriceDetectedAt) > historyDefaultTTL
	}
	// No detection timestamp at all: unusable.
	return true
}

// PriceSanityIssues returns the reasons a price record is SUSPECT_PRICE, or
// nil when the record is sane.
func PriceSanityIssues(basePrice, pixPrice float64) []string {
	var issues []string
	if basePrice <= 0 {
		issues = append(issues, "non_positive_price")
	}
	if pixPrice > 0 && basePrice > 0 {
		if pixPrice >= basePrice {
			issues = append(issues, "pix_not_below_base")
		}
		if pixPrice <= basePrice*0.15 {
			issues = append(issues, "pix_implausibly_low")
		}
	}
	return issues
}

// ResolveInputFromProduct builds the pricing input from a persisted product.
func ResolveInputFromProduct(p *types.Product) ResolveInput {
	return ResolveInput{
		Marketplace:             PrimaryMarketplace,
		BasePrice:               p.Price,
		BaseSource:              p.LastPriceSource,
		PixPrice:                p.PixPrice,
		PixPriceSource:          p.PixPriceSource,
		OriginalPrice:           p.OriginalPrice,
		OriginalPriceSource:     p.LastPriceSource,
		OriginalPriceCheckedAt:  p.LastPriceVerifiedAt,
		PreviousPrice:           p.PreviousPrice,
		PreviousPriceSource:     p.PreviousPriceSource,
		PreviousPriceDetectedAt: p.PreviousPriceDetectedAt,
		PreviousPriceExpiresAt:  p.PreviousPriceExpiresAt,
		PromoFlag:               p.ScraperPromoFlag,
	}
}
