package policy

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/normalization"
)

const (
	ActionReject  = "reject"
	ActionStandby = "standby"
)

// RegexRule is evaluated against the normalized candidate text after scoring.
// Action "reject" overrides any score; "standby" only applies when no reject
// reason fired.
type RegexRule struct {
	Pattern string `yaml:"pattern"`
	Action  string `yaml:"action"`
	Reason  string `yaml:"reason"`

	re *regexp.Regexp
}

func (r *RegexRule) Matches(normalizedText string) bool {
	if r.re == nil {
		return false
	}
	return r.re.MatchString(normalizedText)
}

// AmbiguousRule penalizes a trigger term that appears without any of its
// disambiguating context terms ("garrafa" alone vs "garrafa squeeze academia").
type AmbiguousRule struct {
	Trigger string   `yaml:"trigger"`
	Context []string `yaml:"context"`
}

type CategoryPolicy struct {
	PositiveTerms      []string        `yaml:"positive_terms"`
	NegativeTerms      []string        `yaml:"negative_terms"`
	IncludeTerms       []string        `yaml:"include_terms"`
	ExcludeTerms       []string        `yaml:"exclude_terms"`
	AmbiguousRules     []AmbiguousRule `yaml:"ambiguous_rules"`
	RegexRules         []RegexRule     `yaml:"regex_rules"`
	CategoryAllowlist  []string        `yaml:"category_allowlist"`
	KnownBrands        []string        `yaml:"known_brands"`
	MinPositiveMatches int             `yaml:"min_positive_matches"`
	AllowThreshold     float64         `yaml:"allow_threshold"`
	StandbyThreshold   float64         `yaml:"standby_threshold"`
	Synonyms           map[string][]string `yaml:"synonyms"`
}

type Config struct {
	Synonyms         map[string][]string       `yaml:"synonyms"`
	GlobalRegexRules []RegexRule               `yaml:"global_regex_rules"`
	Categories       map[string]CategoryPolicy `yaml:"categories"`

	ReplacementEnabled bool    `yaml:"replacement_enabled"`
	MinReplacementGain float64 `yaml:"min_replacement_gain"`
}

// Category returns the policy for slug, falling back to the built-in default
// for unknown categories so the gate always has thresholds to work with.
func (c Config) Category(slug string) CategoryPolicy {
	if cp, ok := c.Categories[slug]; ok {
		return cp
	}
	return CategoryPolicy{
		AllowThreshold:   DefaultAllowThreshold,
		StandbyThreshold: DefaultStandbyThreshold,
	}
}

// ExpandTerm returns the term plus its synonyms, category-scoped entries
// shadowing global ones. All returned terms are normalized.
func (c Config) ExpandTerm(term string, cp CategoryPolicy) []string {
	norm := normalization.NormalizeText(term)
	out := []string{norm}
	if syns, ok := cp.Synonyms[norm]; ok {
		for _, s := range syns {
			out = append(out, normalization.NormalizeText(s))
		}
		return out
	}
	if syns, ok := c.Synonyms[norm]; ok {
		for _, s := range syns {
			out = append(out, normalization.NormalizeText(s))
		}
	}
	return out
}

// LoadConfig merges a raw YAML/JSON policy override over the built-in default.
// It is pure: no I/O, no logging. Structural problems never fail the load;
// they come back as warnings and the affected piece keeps its default.
func LoadConfig(raw []byte) (Config, []string) {
	cfg := Defaults()
	var warnings []string
	if len(raw) == 0 {
		return cfg, warnings
	}

	var override Config
	if err := yaml.Unmarshal(raw, &override); err != nil {
		warnings = append(warnings, fmt.Sprintf("policy override is not a valid document, using defaults: %v", err))
		return cfg, warnings
	}

	if override.Synonyms != nil {
		for term, syns := range override.Synonyms {
			cfg.Synonyms[normalization.NormalizeText(term)] = syns
		}
	}
	if len(override.GlobalRegexRules) > 0 {
		compiled, ws := compileRules(override.GlobalRegexRules, "global")
		warnings = append(warnings, ws...)
		cfg.GlobalRegexRules = append(cfg.GlobalRegexRules, compiled...)
	}
	if override.MinReplacementGain > 0 {
		cfg.MinReplacementGain = override.MinReplacementGain
	}

	for slug, ocp := range override.Categories {
		base, ok := cfg.Categories[slug]
		if !ok {
			base = CategoryPolicy{
				AllowThreshold:   DefaultAllowThreshold,
				StandbyThreshold: DefaultStandbyThreshold,
			}
		}
		cfg.Categories[slug] = mergeCategory(base, ocp, slug, &warnings)
	}
	return cfg, warnings
}

func mergeCategory(base, over CategoryPolicy, slug string, warnings *[]string) CategoryPolicy {
	if len(over.PositiveTerms) > 0 {
		base.PositiveTerms = over.PositiveTerms
	}
	if len(over.NegativeTerms) > 0 {
		base.NegativeTerms = over.NegativeTerms
	}
	if len(over.IncludeTerms) > 0 {
		base.IncludeTerms = over.IncludeTerms
	}
	if len(over.ExcludeTerms) > 0 {
		base.ExcludeTerms = over.ExcludeTerms
	}
	if len(over.AmbiguousRules) > 0 {
		base.AmbiguousRules = over.AmbiguousRules
	}
	if len(over.RegexRules) > 0 {
		compiled, ws := compileRules(over.RegexRules, slug)
		*warnings = append(*warnings, ws...)
		base.RegexRules = compiled
	}
	if len(over.CategoryAllowlist) > 0 {
		base.CategoryAllowlist = over.CategoryAllowlist
	}
	if len(over.KnownBrands) > 0 {
		base.KnownBrands = over.KnownBrands
	}
	if over.MinPositiveMatches > 0 {
		base.MinPositiveMatches = over.MinPositiveMatches
	}
	if over.AllowThreshold > 0 {
		base.AllowThreshold = over.AllowThreshold
	}
	if over.StandbyThreshold > 0 {
		base.StandbyThreshold = over.StandbyThreshold
	}
	if over.Synonyms != nil {
		if base.Synonyms == nil {
			base.Synonyms = map[string][]string{}
		}
		for term, syns := range over.Synonyms {
			base.Synonyms[normalization.NormalizeText(term)] = syns
		}
	}
	return base
}

func compileRules(rules []RegexRule, scope string) ([]RegexRule, []string) {
	out := make([]RegexRule, 0, len(rules))
	var warnings []string
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid regex rule %q in scope %s, skipped: %v", r.Pattern, scope, err))
			continue
		}
		if r.Action != ActionReject && r.Action != ActionStandby {
			warnings = append(warnings, fmt.Sprintf("unknown regex action %q in scope %s, skipped", r.Action, scope))
			continue
		}
		r.re = re
		out = append(out, r)
	}
	return out, warnings
}
