package services

import (
	"reflect"
	"testing"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/policy"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

func TestRelevanceGateEvaluate(t *testing.T) {
	gate := NewRelevanceGate(policy.Defaults())

	tests := []struct {
		name     string
		cand     types.Candidate
		category string
		want     string
	}{
		{
			name: "coffee thermos bottle rejected in accessories",
			cand: types.Candidate{
				ExternalID: "MLB100",
				Title:      "Garrafa Térmica Café 1 Litro Inox",
			},
			category: "acessorios",
			want:     DecisionReject,
		},
		{
			name: "gym shaker bottle allowed in accessories",
			cand: types.Candidate{
				ExternalID: "MLB101",
				Title:      "Garrafa Squeeze Shaker 600ml Academia Treino",
			},
			category: "acessorios",
			want:     DecisionAllow,
		},
		{
			name: "whey from known brand allowed in supplements",
			cand: types.Candidate{
				ExternalID: "MLB102",
				Title:      "Whey Protein Concentrado 1kg Chocolate",
				Brand:      "Growth",
			},
			category: "suplementos",
			want:     DecisionAllow,
		},
		{
			name: "pet food rejected in supplements",
			cand: types.Candidate{
				ExternalID: "MLB103",
				Title:      "Ração Premium Pet Adulto 15kg",
			},
			category: "suplementos",
			want:     DecisionReject,
		},
		{
			name: "used condition forces at most standby",
			cand: types.Candidate{
				ExternalID: "MLB104",
				Title:      "Halter Usado 10kg Par Emborrachado",
			},
			category: "acessorios",
			want:     DecisionStandby,
		},
		{
			name: "counterfeit term rejects regardless of score",
			cand: types.Candidate{
				ExternalID: "MLB105",
				Title:      "Whey Protein Réplica Creatina Importada",
			},
			category: "suplementos",
			want:     DecisionReject,
		},
		{
			name: "single positive match in clothes stays below allow",
			cand: types.Candidate{
				ExternalID: "MLB106",
				Title:      "Camiseta Básica Algodão",
			},
			category: "roupas",
			want:     DecisionStandby,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gate.Evaluate(tt.cand, tt.category)
			if got.Decision != tt.want {
				t.Errorf("Evaluate() decision = %q (score %.1f, reasons %v), want %q",
					got.Decision, got.Score, got.Reasons, tt.want)
			}
			if got.Decision == DecisionReject && len(got.Reasons) == 0 {
				t.Error("reject verdict must carry at least one reason")
			}
		})
	}
}

func TestRelevanceGateIsPure(t *testing.T) {
	gate := NewRelevanceGate(policy.Defaults())
	cand := types.Candidate{
		ExternalID: "MLB200",
		Title:      "Garrafa Squeeze Shaker 600ml Academia Treino",
		Brand:      "Vollo",
	}
	first := gate.Evaluate(cand, "acessorios")
	for i := 0; i < 5; i++ {
		again := gate.Evaluate(cand, "acessorios")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Evaluate() not deterministic: run %d = %+v, first = %+v", i, again, first)
		}
	}
}

func TestRelevanceGateSynonymExpansion(t *testing.T) {
	gate := NewRelevanceGate(policy.Defaults())
	// "coqueteleira" is a synonym of squeeze; the title never says squeeze.
	got := gate.Evaluate(types.Candidate{
		ExternalID: "MLB201",
		Title:      "Coqueteleira Academia 600ml com Mola Treino Shaker",
	}, "acessorios")
	if got.Decision != DecisionAllow {
		t.Errorf("Evaluate() = %q (score %.1f, reasons %v), want allow via synonym",
			got.Decision, got.Score, got.Reasons)
	}
}

func TestRelevanceGateUnknownCategoryFallsBack(t *testing.T) {
	gate := NewRelevanceGate(policy.Defaults())
	got := gate.Evaluate(types.Candidate{
		ExternalID: "MLB202",
		Title:      "Produto Genérico Qualquer",
	}, "categoria-inexistente")
	if got.Decision == DecisionAllow {
		t.Errorf("unknown category with no positive signal must not allow, got score %.1f", got.Score)
	}
}
