package policy

import "regexp"

const (
	DefaultAllowThreshold   = 70.0
	DefaultStandbyThreshold = 50.0
	DefaultMinReplacementGain = 3.0
)

func mustRule(pattern, action, reason string) RegexRule {
	return RegexRule{Pattern: pattern, Action: action, Reason: reason, re: regexp.MustCompile(pattern)}
}

// Defaults is the built-in policy for the four site categories. Term lists are
// matched against normalized text (accents folded, lowercase), so everything
// here is written unaccented.
func Defaults() Config {
	return Config{
		ReplacementEnabled: true,
		MinReplacementGain: DefaultMinReplacementGain,
		Synonyms: map[string][]string{
			"whey":     {"whey protein", "proteina concentrada", "proteina isolada"},
			"squeeze":  {"shakeira", "coqueteleira"},
			"halter":   {"halteres", "dumbbell", "anilha"},
			"legging":  {"leggings", "calca legging"},
			"creatina": {"creatine", "creapure"},
		},
		GlobalRegexRules: []RegexRule{
			mustRule(`\breplica\b|\bfalsificad`, ActionReject, "counterfeit_term"),
			mustRule(`\b(usado|usada|recondicionado)\b`, ActionStandby, "used_condition_term"),
		},
		Categories: map[string]CategoryPolicy{
			"suplementos": {
				PositiveTerms: []string{
					"whey", "creatina", "bcaa", "glutamina", "pre treino",
					"albumina", "hipercalorico", "cafeina", "termogenico",
					"multivitaminico", "omega 3", "proteina",
				},
				NegativeTerms: []string{
					"racao", "pet", "veterinario", "remedio", "tarja",
				},
				IncludeTerms:       nil,
				ExcludeTerms:       []string{"anabolizante"},
				MinPositiveMatches: 1,
				KnownBrands: []string{
					"growth", "max titanium", "integralmedica", "probiotica",
					"dux", "black skull", "optimum nutrition",
				},
				AllowThreshold:   DefaultAllowThreshold,
				StandbyThreshold: DefaultStandbyThreshold,
			},
			"acessorios": {
				PositiveTerms: []string{
					"squeeze", "shaker", "garrafa", "luva", "corda", "halter",
					"caneleira", "tapete", "yoga", "elastico", "faixa",
					"munhequeira", "cinto", "strap", "rolo", "massagem",
				},
				NegativeTerms: []string{
					"cafe", "termica", "cha", "bule", "cozinha", "escolar",
					"infantil", "bebe", "vinho", "cerveja",
				},
				AmbiguousRules: []AmbiguousRule{
					{Trigger: "garrafa", Context: []string{"esportiva", "academia", "shaker", "squeeze", "treino"}},
					{Trigger: "faixa", Context: []string{"elastica", "resistencia", "exercicio", "treino", "crossfit"}},
					{Trigger: "corda", Context: []string{"pular", "crossfit", "treino", "speed"}},
				},
				RegexRules: []RegexRule{
					mustRule(`\bcafe\b|\bcafeteira\b`, ActionReject, "coffee_product"),
				},
				MinPositiveMatches: 1,
				KnownBrands: []string{
					"acte", "vollo", "hidrolight", "gallant", "liveup", "stanley",
				},
				AllowThreshold:   DefaultAllowThreshold,
				StandbyThreshold: DefaultStandbyThreshold,
			},
			"roupas": {
				PositiveTerms: []string{
					"legging", "camiseta", "regata", "short", "bermuda", "top",
					"dry fit", "compressao", "academia", "fitness", "treino",
				},
				NegativeTerms: []string{
					"social", "jeans", "festa", "fantasia", "pijama",
				},
				MinPositiveMatches: 2,
				KnownBrands: []string{
					"lupo", "alto giro", "colcci fitness", "adidas", "nike", "puma",
				},
				AllowThreshold:   DefaultAllowThreshold,
				StandbyThreshold: DefaultStandbyThreshold,
			},
			"equipamentos": {
				PositiveTerms: []string{
					"esteira", "bicicleta ergometrica", "banco", "supino",
					"estacao", "musculacao", "barra", "anilha", "kettlebell",
					"eliptico", "remo", "spinning",
				},
				NegativeTerms: []string{
					"brinquedo", "miniatura", "pecas", "reposicao", "manutencao",
				},
				AmbiguousRules: []AmbiguousRule{
					{Trigger: "banco", Context: []string{"supino", "musculacao", "exercicio", "regulavel", "treino"}},
					{Trigger: "barra", Context: []string{"fixa", "musculacao", "olimpica", "supino", "porta"}},
				},
				MinPositiveMatches: 1,
				KnownBrands: []string{
					"kikos", "movement", "dream fitness", "polimet", "wct fitness",
				},
				AllowThreshold:   DefaultAllowThreshold,
				StandbyThreshold: DefaultStandbyThreshold,
			},
		},
	}
}
