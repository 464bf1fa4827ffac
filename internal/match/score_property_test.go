package match

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/John-Robertt/scenemeta/internal/domain"
)

func TestScore_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	words := gen.SliceOfN(3, gen.AlphaString()).Map(func(ws []string) string { return strings.Join(ws, " ") })

	properties.Property("score is always within [0, 100]", prop.ForAll(
		func(search, hit string) bool {
			s := Score(search, hit)
			return s >= 0 && s <= 100
		},
		words, words,
	))

	properties.Property("case and surrounding space never change an exact match", prop.ForAll(
		func(s string) bool {
			return Score(s, "  "+strings.ToUpper(s)+"\t") == 100
		},
		words,
	))

	properties.Property("a hit with an exclusion keyword scores at most 60 unless exact", prop.ForAll(
		func(search, hit string) bool {
			h := hit + " bts"
			if strings.EqualFold(strings.TrimSpace(search), strings.TrimSpace(h)) {
				return true
			}
			return Score(search, h) <= 60
		},
		words, words,
	))

	properties.TestingRun(t)
}

func TestSelectBest_PicksEarliestMaximum(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("selected hit has the earliest maximal score", prop.ForAll(
		func(search string, titles []string) bool {
			hits := make([]domain.Hit, 0, len(titles))
			for _, tt := range titles {
				hits = append(hits, domain.Hit{domain.HitTitle: tt})
			}
			i := SelectBestIndex(hits, search, domain.HitTitle, nil)
			switch len(hits) {
			case 0:
				return i == -1
			case 1:
				return i == 0
			}
			best := Score(search, titles[i])
			for j, tt := range titles {
				sc := Score(search, tt)
				if sc > best || (j < i && sc == best) {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.SliceOf(gen.OneGenOf(gen.AlphaString(), gen.Const("nympho wars"), gen.Const("nympho wars bts"))),
	))

	properties.TestingRun(t)
}
