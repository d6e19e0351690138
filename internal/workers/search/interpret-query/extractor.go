package interpretquery

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"commerce-search-workers/internal/models"
)

const (
	confidencePrice    = 0.9
	confidenceLocation = 0.8
	confidenceDistance = 0.9
	confidenceDietary  = 1.0
	confidenceCuisine  = 0.9
	confidenceQuality  = 0.7

	currentLocation = "current location"
)

const (
	amountExpr   = `(\d+(?:,\d{3})*(?:\.\d+)?)`
	currencyExpr = `(?:(?:rs\.?|₹|inr)\s*)?`
	unitExpr     = `(?:\s*(?:rupees|rupee|rs|inr)\b)?`
)

type span struct {
	start, end int
}

type extraction struct {
	value models.EntityValue
	span  span
}

// singleRule yields at most one entity. Rules of the same kind are tried in
// table order and the first one that extracts wins.
type singleRule struct {
	kind       models.EntityKind
	pattern    *regexp.Regexp
	extract    func(text string, loc []int) (extraction, bool)
	confidence float64
}

type keyword struct {
	phrase    string
	canonical string
	pattern   *regexp.Regexp
}

// keywordRule yields one entity per vocabulary hit.
type keywordRule struct {
	kind       models.EntityKind
	vocabulary []keyword
	confidence float64
}

// Extractor turns query text into entities, filters, a residual query and
// an acknowledgement. It is immutable and safe for concurrent use.
type Extractor struct {
	single   []singleRule
	keywords []keywordRule
	filler   *regexp.Regexp
	stop     map[string]bool
}

var (
	distanceUnitAfter = regexp.MustCompile(`^\s*(?:kilometres?|kilometers?|kms|km|metres?|meters?|m)\b`)

	fillerPhrases = []string{
		"show me", "find me", "i want", "i need", "get me", "give me",
		"looking for", "search for", "please", "can you", "i would like", "i'd like",
	}

	locationStopWords = []string{
		"under", "below", "above", "over", "within", "between", "less", "more", "than",
		"with", "for", "and", "or", "to", "from", "the", "a", "an",
	}
)

// NewExtractor builds the rule table. Evaluation order is fixed: price,
// location, distance, then the dietary, cuisine and quality vocabularies.
func NewExtractor() *Extractor {
	e := &Extractor{
		single: []singleRule{
			{models.EntityPrice, regexp.MustCompile(`\bbetween\s+` + currencyExpr + amountExpr + `\s*(?:and|to|-)\s*` + currencyExpr + amountExpr + unitExpr), extractPriceRange, confidencePrice},
			{models.EntityPrice, regexp.MustCompile(`\b(?:under|below|less than)\s+` + currencyExpr + amountExpr + unitExpr), extractPriceBound(false), confidencePrice},
			{models.EntityPrice, regexp.MustCompile(`\b(?:above|more than|over)\s+` + currencyExpr + amountExpr + unitExpr), extractPriceBound(true), confidencePrice},
		},
		keywords: []keywordRule{
			{models.EntityDietary, vocabulary(map[string]string{
				"veg": "veg", "vegetarian": "vegetarian",
				"non-veg": "non-veg", "non veg": "non-veg", "nonveg": "non-veg",
				"non-vegetarian": "non-vegetarian", "non vegetarian": "non-vegetarian",
				"vegan": "vegan", "jain": "jain", "eggless": "eggless",
			}), confidenceDietary},
			{models.EntityCuisine, vocabulary(map[string]string{
				"chinese": "chinese", "indian": "indian", "north indian": "north indian",
				"south indian": "south indian", "italian": "italian", "mexican": "mexican",
				"thai": "thai", "japanese": "japanese", "korean": "korean",
				"continental": "continental", "mughlai": "mughlai", "hyderabadi": "hyderabadi",
				"punjabi": "punjabi", "bengali": "bengali", "chettinad": "chettinad",
				"american": "american", "lebanese": "lebanese", "arabian": "arabian",
				"mediterranean": "mediterranean",
			}), confidenceCuisine},
			{models.EntityQuality, vocabulary(map[string]string{
				"best": "best", "best rated": "best",
				"top rated": "highly rated", "highly rated": "highly rated",
				"popular": "popular", "trending": "popular", "famous": "popular",
			}), confidenceQuality},
		},
		filler: alternation(fillerPhrases),
		stop:   make(map[string]bool),
	}

	for _, prefix := range []string{"near", "in", "at", "around"} {
		e.single = append(e.single, singleRule{
			kind:       models.EntityLocation,
			pattern:    regexp.MustCompile(`\b` + prefix + `\s+(?:(?:the|an|a)\s+)?([a-z][a-z0-9'&-]*(?:\s+[a-z][a-z0-9'&-]*)?)`),
			extract:    e.extractLocation,
			confidence: confidenceLocation,
		})
	}

	e.single = append(e.single, singleRule{
		kind:       models.EntityDistance,
		pattern:    regexp.MustCompile(`\bwithin\s+(\d+(?:\.\d+)?)\s*(kilometres?|kilometers?|kms|km|metres?|meters?|m)\b`),
		extract:    extractDistance,
		confidence: confidenceDistance,
	})

	for _, w := range locationStopWords {
		e.stop[w] = true
	}
	for _, rule := range e.keywords {
		for _, kw := range rule.vocabulary {
			for _, tok := range strings.FieldsFunc(kw.phrase, isSeparator) {
				e.stop[tok] = true
			}
		}
	}

	return e
}

// Interpret parses text into a QueryInterpretation. It never fails.
func (e *Extractor) Interpret(text string) models.QueryInterpretation {
	original := strings.TrimSpace(text)
	working := normalize(original)

	consumed := make([]bool, len(working))
	var entities []models.ExtractedEntity

	seen := make(map[models.EntityKind]bool)
	for _, rule := range e.single {
		if seen[rule.kind] {
			continue
		}
		ex, ok := e.firstMatch(rule, working, consumed)
		if !ok {
			continue
		}
		seen[rule.kind] = true
		markSpan(consumed, ex.span)
		entities = append(entities, models.ExtractedEntity{
			Kind:       rule.kind,
			Value:      ex.value,
			RawSpan:    working[ex.span.start:ex.span.end],
			Confidence: rule.confidence,
		})
	}

	for _, rule := range e.keywords {
		entities = append(entities, matchKeywords(rule, working, consumed)...)
	}

	residual := e.residual(working, consumed)
	if residual == "" {
		residual = original
	}

	return models.QueryInterpretation{
		OriginalText:      original,
		ResidualQueryText: residual,
		Entities:          entities,
		Filters:           synthesizeFilters(entities),
		Acknowledgement:   acknowledge(residual, entities),
	}
}

func (e *Extractor) firstMatch(rule singleRule, text string, consumed []bool) (extraction, bool) {
	for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
		ex, ok := rule.extract(text, loc)
		if ok && !overlaps(consumed, ex.span) {
			return ex, true
		}
	}
	return extraction{}, false
}

func matchKeywords(rule keywordRule, text string, consumed []bool) []models.ExtractedEntity {
	type hit struct {
		kw keyword
		sp span
	}
	var hits []hit
	for _, kw := range rule.vocabulary {
		for _, loc := range kw.pattern.FindAllStringIndex(text, -1) {
			sp := span{loc[0], loc[1]}
			if overlaps(consumed, sp) {
				continue
			}
			markSpan(consumed, sp)
			hits = append(hits, hit{kw, sp})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sp.start < hits[j].sp.start })

	out := make([]models.ExtractedEntity, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.ExtractedEntity{
			Kind:       rule.kind,
			Value:      models.EntityValue{Text: h.kw.canonical},
			RawSpan:    text[h.sp.start:h.sp.end],
			Confidence: rule.confidence,
		})
	}
	return out
}

func (e *Extractor) residual(text string, consumed []bool) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if consumed[i] {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(text[i])
	}

	out := e.filler.ReplaceAllString(b.String(), " ")
	out = strings.Join(strings.Fields(out), " ")
	return strings.Trim(out, " ,.!?;:-")
}

// ==========================================
// Value extractors
// ==========================================

func extractPriceRange(text string, loc []int) (extraction, bool) {
	lo, ok1 := parseAmount(text[loc[2]:loc[3]])
	hi, ok2 := parseAmount(text[loc[4]:loc[5]])
	if !ok1 || !ok2 || isDistanceAfter(text, loc[5]) {
		return extraction{}, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return extraction{
		value: models.EntityValue{Min: &lo, Max: &hi},
		span:  span{loc[0], loc[1]},
	}, true
}

func extractPriceBound(isMin bool) func(string, []int) (extraction, bool) {
	return func(text string, loc []int) (extraction, bool) {
		v, ok := parseAmount(text[loc[2]:loc[3]])
		if !ok || isDistanceAfter(text, loc[3]) {
			return extraction{}, false
		}
		ex := extraction{span: span{loc[0], loc[1]}}
		if isMin {
			ex.value.Min = &v
		} else {
			ex.value.Max = &v
		}
		return ex, true
	}
}

func extractDistance(text string, loc []int) (extraction, bool) {
	v, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
	if err != nil {
		return extraction{}, false
	}
	if strings.HasPrefix(text[loc[4]:loc[5]], "m") {
		v /= 1000
	}
	return extraction{
		value: models.EntityValue{Number: &v},
		span:  span{loc[0], loc[1]},
	}, true
}

// extractLocation keeps up to two words after the preposition and an optional
// article, dropping trailing stop words and vocabulary terms so
// "near me under 200" yields "me". The article stays inside the span.
func (e *Extractor) extractLocation(text string, loc []int) (extraction, bool) {
	words := strings.Fields(text[loc[2]:loc[3]])
	if words[0] == "me" {
		words = words[:1]
	}
	for len(words) > 0 && e.stop[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	if len(words) == 0 || e.stop[words[0]] {
		return extraction{}, false
	}

	kept := strings.Join(words, " ")
	place := kept
	if kept == "me" {
		place = currentLocation
	}
	return extraction{
		value: models.EntityValue{Text: place},
		span:  span{loc[0], loc[2] + len(kept)},
	}, true
}

// ==========================================
// Helpers
// ==========================================

func normalize(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v, err == nil
}

func isDistanceAfter(text string, end int) bool {
	return distanceUnitAfter.MatchString(text[end:])
}

func overlaps(consumed []bool, sp span) bool {
	for i := sp.start; i < sp.end; i++ {
		if consumed[i] {
			return true
		}
	}
	return false
}

func markSpan(consumed []bool, sp span) {
	for i := sp.start; i < sp.end; i++ {
		consumed[i] = true
	}
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '-'
}

// vocabulary compiles whole-word patterns, longest phrase first so a longer
// phrase claims its span before any phrase it contains.
func vocabulary(phrases map[string]string) []keyword {
	out := make([]keyword, 0, len(phrases))
	for phrase, canonical := range phrases {
		out = append(out, keyword{
			phrase:    phrase,
			canonical: canonical,
			pattern:   regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].phrase) != len(out[j].phrase) {
			return len(out[i].phrase) > len(out[j].phrase)
		}
		return out[i].phrase < out[j].phrase
	})
	return out
}

func alternation(phrases []string) *regexp.Regexp {
	sorted := append([]string(nil), phrases...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
