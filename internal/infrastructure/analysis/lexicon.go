package analysis

import (
	"context"
	"regexp"
	"strings"

	"mailtriage/internal/domain/email"
)

// Lexicon is an offline analyzer: polarity from a word list, DATE and MONEY
// entities from patterns. It averages the scores of opinion words the way
// pattern-based sentiment taggers do, with negation and intensifiers.
type Lexicon struct {
	words map[string]float64
}

func NewLexicon() *Lexicon {
	return &Lexicon{words: defaultWords}
}

var defaultWords = map[string]float64{
	"terrible": -1.0, "awful": -1.0, "horrible": -1.0, "worst": -1.0,
	"furious": -1.0, "disgusting": -1.0, "unacceptable": -0.9, "hate": -0.8,
	"angry": -0.5, "bad": -0.7, "poor": -0.4, "disappointed": -0.75,
	"disappointing": -0.6, "useless": -0.5, "broken": -0.4, "annoyed": -0.5,
	"frustrated": -0.7, "frustrating": -0.7, "rude": -0.3, "slow": -0.3,
	"wrong": -0.5, "ridiculous": -0.33, "upset": -0.5, "sad": -0.5,
	"good": 0.7, "great": 0.8, "excellent": 1.0, "amazing": 0.6,
	"wonderful": 1.0, "happy": 0.8, "glad": 0.5, "love": 0.5, "nice": 0.6,
	"thanks": 0.2, "thank": 0.2, "appreciate": 0.4, "pleased": 0.5,
	"helpful": 0.4, "perfect": 1.0, "best": 1.0, "fine": 0.4,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "isn't": true, "wasn't": true,
	"don't": true, "doesn't": true, "didn't": true, "can't": true, "won't": true,
}

var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "so": 1.2, "totally": 1.3,
}

var wordPattern = regexp.MustCompile(`[a-z']+`)

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday|tonight)\b`),
		regexp.MustCompile(`(?i)\b(next|this|last) (week|month|year|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\b`),
		regexp.MustCompile(`(?i)\b(january|february|march|april|june|july|august|september|october|november|december)( \d{1,2}(st|nd|rd|th)?)?\b`),
		regexp.MustCompile(`(?i)\bmay \d{1,2}(st|nd|rd|th)?\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}(/\d{2,4})?\b`),
	}
	moneyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[$€£]\s?\d[\d,]*(\.\d+)?`),
		regexp.MustCompile(`(?i)\b\d[\d,]*(\.\d+)?\s?(usd|eur|gbp|dollars?|euros?|pounds?)\b`),
	}
)

func (l *Lexicon) Analyze(_ context.Context, text string) (*email.Analysis, error) {
	return &email.Analysis{
		Polarity: l.polarity(text),
		Entities: extractEntities(text),
	}, nil
}

func (l *Lexicon) polarity(text string) float64 {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)

	var sum float64
	var n int
	for i, tok := range tokens {
		score, ok := l.words[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if m, ok := intensifiers[tokens[i-1]]; ok {
				score *= m
			}
		}
		for j := i - 1; j >= 0 && j >= i-3; j-- {
			if negations[tokens[j]] {
				score *= -0.5
				break
			}
		}
		sum += score
		n++
	}

	if n == 0 {
		return 0
	}
	return clamp(sum/float64(n), -1, 1)
}

func extractEntities(text string) []email.Entity {
	var out []email.Entity
	for _, re := range datePatterns {
		for _, m := range re.FindAllString(text, -1) {
			out = append(out, email.Entity{Text: m, Label: email.EntityDate})
		}
	}
	for _, re := range moneyPatterns {
		for _, m := range re.FindAllString(text, -1) {
			out = append(out, email.Entity{Text: m, Label: email.EntityMoney})
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
