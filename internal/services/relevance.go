package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/normalization"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/policy"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

const (
	DecisionAllow   = "allow"
	DecisionStandby = "standby"
	DecisionReject  = "reject"
)

// Verdict is the gate's output for one candidate. Reasons accumulate rather
// than short-circuit so a multi-cause rejection stays diagnosable.
type Verdict struct {
	Decision string
	Score    float64
	Reasons  []string
}

// RelevanceGate scores a candidate listing against a category's term policy.
// Evaluate is pure: same candidate and config always produce the same verdict.
type RelevanceGate struct {
	cfg policy.Config
}

func NewRelevanceGate(cfg policy.Config) *RelevanceGate {
	return &RelevanceGate{cfg: cfg}
}

func (g *RelevanceGate) Evaluate(c types.Candidate, categorySlug string) Verdict {
	cp := g.cfg.Category(categorySlug)
	normText := normalization.NormalizeText(c.SearchText())
	tokens := map[string]bool{}
	for _, tok := range normalization.Tokenize(normText) {
		tokens[tok] = true
	}

	score := 40.0
	var reasons []string
	rejectForced := false
	standbyForced := false

	// Marketplace category allowlist.
	if len(cp.CategoryAllowlist) == 0 {
		score += 25
	} else if containsString(cp.CategoryAllowlist, c.MarketplaceCategoryID) {
		score += 25
		reasons = append(reasons, "category_allowlisted")
	} else {
		score -= 35
		reasons = append(reasons, fmt.Sprintf("category_not_allowlisted:%s", c.MarketplaceCategoryID))
	}

	// Positive / negative term lists, synonym-expanded.
	posMatches := 0
	for _, term := range cp.PositiveTerms {
		if g.termMatches(term, cp, normText, tokens) {
			posMatches++
			reasons = append(reasons, "positive_term:"+normalization.NormalizeText(term))
		}
	}
	score += math.Min(30, 8*float64(posMatches))

	negMatches := 0
	for _, term := range cp.NegativeTerms {
		if g.termMatches(term, cp, normText, tokens) {
			negMatches++
			reasons = append(reasons, "negative_term:"+normalization.NormalizeText(term))
		}
	}
	score -= math.Min(45, 22*float64(negMatches))

	// Ambiguous trigger without disambiguating context.
	for _, rule := range cp.AmbiguousRules {
		if !g.termMatches(rule.Trigger, cp, normText, tokens) {
			continue
		}
		contextFound := false
		for _, ctxTerm := range rule.Context {
			if g.termMatches(ctxTerm, cp, normText, tokens) {
				contextFound = true
				break
			}
		}
		if !contextFound {
			score -= 28
			reasons = append(reasons, "ambiguous_term:"+normalization.NormalizeText(rule.Trigger))
		}
	}

	// Mapping-level include/exclude terms. Include terms are alternatives: at
	// least one must be present when the list is configured.
	if len(cp.IncludeTerms) > 0 {
		includeHit := false
		for _, term := range cp.IncludeTerms {
			if g.termMatches(term, cp, normText, tokens) {
				includeHit = true
				break
			}
		}
		if !includeHit {
			score -= 20
			reasons = append(reasons, "missing_include_terms")
		}
	}
	for _, term := range cp.ExcludeTerms {
		if g.termMatches(term, cp, normText, tokens) {
			score -= 30
			reasons = append(reasons, "exclude_term:"+normalization.NormalizeText(term))
		}
	}

	// Known brand bonus.
	if c.Brand != "" && containsNormalized(cp.KnownBrands, c.Brand) {
		score += 8
		reasons = append(reasons, "known_brand:"+normalization.NormalizeText(c.Brand))
	}

	if cp.MinPositiveMatches > 0 && posMatches < cp.MinPositiveMatches {
		score -= 18
		reasons = append(reasons, fmt.Sprintf("below_min_positive_matches:%d<%d", posMatches, cp.MinPositiveMatches))
	}

	score = math.Max(0, math.Min(100, score))

	// Regex rules run after scoring: global first, then category.
	for _, rule := range g.cfg.GlobalRegexRules {
		applyRegexRule(rule, normText, &rejectForced, &standbyForced, &reasons)
	}
	for _, rule := range cp.RegexRules {
		applyRegexRule(rule, normText, &rejectForced, &standbyForced, &reasons)
	}

	decision := DecisionReject
	switch {
	case rejectForced:
		decision = DecisionReject
	case score >= cp.AllowThreshold && !standbyForced:
		decision = DecisionAllow
	case score >= cp.StandbyThreshold:
		decision = DecisionStandby
	}
	if decision == DecisionReject && !rejectForced {
		reasons = append(reasons, fmt.Sprintf("score_below_standby_threshold:%.0f<%.0f", score, cp.StandbyThreshold))
	}

	return Verdict{Decision: decision, Score: score, Reasons: reasons}
}

func applyRegexRule(rule policy.RegexRule, normText string, rejectForced, standbyForced *bool, reasons *[]string) {
	if !rule.Matches(normText) {
		return
	}
	switch rule.Action {
	case policy.ActionReject:
		*rejectForced = true
		*reasons = append(*reasons, "regex_reject:"+rule.Reason)
	case policy.ActionStandby:
		*standbyForced = true
		*reasons = append(*reasons, "regex_standby:"+rule.Reason)
	}
}

// termMatches checks a configured term (or any of its synonyms) against the
// normalized text: single words by token, phrases by padded substring.
func (g *RelevanceGate) termMatches(term string, cp policy.CategoryPolicy, normText string, tokens map[string]bool) bool {
	for _, expanded := range g.cfg.ExpandTerm(term, cp) {
		if expanded == "" {
			continue
		}
		if strings.Contains(expanded, " ") {
			if strings.Contains(" "+normText+" ", " "+expanded+" ") {
				return true
			}
			continue
		}
		if tokens[expanded] {
			return true
		}
	}
	return false
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func containsNormalized(list []string, value string) bool {
	norm := normalization.NormalizeText(value)
	for _, item := range list {
		if normalization.NormalizeText(item) == norm {
			return true
		}
	}
	return false
}
