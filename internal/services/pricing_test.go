package services

import (
	"math"
	"testing"
	"time"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestResolveFinalPriceInfo(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		in            ResolveInput
		wantFinal     float64
		wantList      float64
		wantUsedPix   bool
		wantBase      float64
		wantDiscount  float64
		checkDiscount bool
	}{
		{
			name: "trusted pix wins final, list kept",
			in: ResolveInput{
				Marketplace:            PrimaryMarketplace,
				BasePrice:              78.90,
				BaseSource:             types.SourceAPI,
				PixPrice:               69.90,
				PixPriceSource:         types.SourceAPI,
				OriginalPrice:          119.90,
				OriginalPriceSource:    types.SourceAPI,
				OriginalPriceCheckedAt: timePtr(now.Add(-time.Hour)),
			},
			wantFinal:     69.90,
			wantList:      119.90,
			wantUsedPix:   true,
			wantBase:      78.90,
			wantDiscount:  41.7,
			checkDiscount: true,
		},
		{
			name: "untrusted pix source ignored",
			in: ResolveInput{
				Marketplace:            PrimaryMarketplace,
				BasePrice:              78.90,
				BaseSource:             types.SourceAPI,
				PixPrice:               69.90,
				PixPriceSource:         types.SourceScraper,
				OriginalPrice:          119.90,
				OriginalPriceSource:    types.SourceAPI,
				OriginalPriceCheckedAt: timePtr(now.Add(-time.Hour)),
			},
			wantFinal:   78.90,
			wantList:    119.90,
			wantUsedPix: false,
			wantBase:    78.90,
		},
		{
			name: "pix discount below noise floor ignored",
			in: ResolveInput{
				Marketplace:    PrimaryMarketplace,
				BasePrice:      50.00,
				BaseSource:     types.SourceAPI,
				PixPrice:       49.80,
				PixPriceSource: types.SourceAPI,
			},
			wantFinal:   50.00,
			wantUsedPix: false,
			wantBase:    50.00,
		},
		{
			name: "truncated scrape anchored to original price",
			in: ResolveInput{
				Marketplace:   PrimaryMarketplace,
				BasePrice:     1.59,
				BaseSource:    types.SourceScraper,
				OriginalPrice: 159.90,
			},
			wantFinal:   159.90,
			wantUsedPix: false,
			wantBase:    159.90,
		},
		{
			name: "stale list quote dropped",
			in: ResolveInput{
				Marketplace:            PrimaryMarketplace,
				BasePrice:              78.90,
				BaseSource:             types.SourceAPI,
				OriginalPrice:          119.90,
				OriginalPriceSource:    types.SourceAPI,
				OriginalPriceCheckedAt: timePtr(now.Add(-30 * time.Hour)),
			},
			wantFinal:   78.90,
			wantList:    0,
			wantUsedPix: false,
			wantBase:    78.90,
		},
		{
			name: "list over ratio cap dropped",
			in: ResolveInput{
				Marketplace:            PrimaryMarketplace,
				BasePrice:              50.00,
				BaseSource:             types.SourceAPI,
				OriginalPrice:          120.00,
				OriginalPriceSource:    types.SourceAPI,
				OriginalPriceCheckedAt: timePtr(now.Add(-time.Hour)),
			},
			wantFinal:   50.00,
			wantList:    0,
			wantUsedPix: false,
			wantBase:    50.00,
		},
		{
			name: "history previous price substitutes as list",
			in: ResolveInput{
				Marketplace:             PrimaryMarketplace,
				BasePrice:               79.90,
				BaseSource:              types.SourceAPI,
				PreviousPrice:           99.90,
				PreviousPriceSource:     types.SourceHistory,
				PreviousPriceDetectedAt: timePtr(now.Add(-time.Hour)),
			},
			wantFinal:   79.90,
			wantList:    99.90,
			wantUsedPix: false,
			wantBase:    79.90,
		},
		{
			name: "expired history previous price unusable",
			in: ResolveInput{
				Marketplace:             PrimaryMarketplace,
				BasePrice:               79.90,
				BaseSource:              types.SourceAPI,
				PreviousPrice:           99.90,
				PreviousPriceSource:     types.SourceHistory,
				PreviousPriceDetectedAt: timePtr(now.Add(-72 * time.Hour)),
			},
			wantFinal:   79.90,
			wantList:    0,
			wantUsedPix: false,
			wantBase:    79.90,
		},
		{
			name: "history below min gain not substituted",
			in: ResolveInput{
				Marketplace:             PrimaryMarketplace,
				BasePrice:               79.90,
				BaseSource:              types.SourceAPI,
				PreviousPrice:           82.00,
				PreviousPriceSource:     types.SourceHistory,
				PreviousPriceDetectedAt: timePtr(now.Add(-time.Hour)),
			},
			wantFinal:   79.90,
			wantList:    0,
			wantUsedPix: false,
			wantBase:    79.90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFinalPriceInfo(tt.in, now)
			if math.Abs(got.FinalPrice-tt.wantFinal) > 1e-9 {
				t.Errorf("FinalPrice = %.2f, want %.2f (notes %v)", got.FinalPrice, tt.wantFinal, got.Notes)
			}
			if math.Abs(got.ListPrice-tt.wantList) > 1e-9 {
				t.Errorf("ListPrice = %.2f, want %.2f (notes %v)", got.ListPrice, tt.wantList, got.Notes)
			}
			if got.UsedPix != tt.wantUsedPix {
				t.Errorf("UsedPix = %v, want %v", got.UsedPix, tt.wantUsedPix)
			}
			if math.Abs(got.BasePrice-tt.wantBase) > 1e-9 {
				t.Errorf("BasePrice = %.2f, want %.2f", got.BasePrice, tt.wantBase)
			}
			if tt.checkDiscount && math.Abs(got.DiscountPercent-tt.wantDiscount) > 1e-9 {
				t.Errorf("DiscountPercent = %.1f, want %.1f", got.DiscountPercent, tt.wantDiscount)
			}
		})
	}
}

func TestPriceSanityIssues(t *testing.T) {
	tests := []struct {
		name  string
		base  float64
		pix   float64
		wantN int
	}{
		{"sane pair", 100, 80, 0},
		{"no pix", 100, 0, 0},
		{"non positive base", 0, 0, 1},
		{"pix not below base", 100, 100, 1},
		{"pix implausibly low", 100, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := PriceSanityIssues(tt.base, tt.pix)
			if len(issues) != tt.wantN {
				t.Errorf("PriceSanityIssues(%.2f, %.2f) = %v, want %d issues", tt.base, tt.pix, issues, tt.wantN)
			}
		})
	}
}
