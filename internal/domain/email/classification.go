package email

// Rule names the classification step that produced an intent.
type Rule string

const (
	RuleNegativeSentiment Rule = "negative_sentiment"
	RuleDateEntity        Rule = "date_entity"
	RuleMoneyEntity       Rule = "money_entity"
	RuleKeyword           Rule = "keyword"
	RuleNoMatch           Rule = "no_match"
)

type Classification struct {
	Intent   Intent
	Rule     Rule
	Polarity float64
	// Degraded is set when the text analysis capability failed and only the
	// keyword fallback was consulted.
	Degraded bool
}

func NewClassification(intent Intent, rule Rule, polarity float64) *Classification {
	return &Classification{
		Intent:   intent,
		Rule:     rule,
		Polarity: polarity,
	}
}

// EntityLabel is the semantic category an entity recognizer assigns to a span.
type EntityLabel string

const (
	EntityDate   EntityLabel = "DATE"
	EntityMoney  EntityLabel = "MONEY"
	EntityPerson EntityLabel = "PERSON"
	EntityOrg    EntityLabel = "ORG"
	EntityTime   EntityLabel = "TIME"
)

type Entity struct {
	Text  string
	Label EntityLabel
}

// Analysis is the output of a sentiment and entity recognition pass.
// Polarity lies in [-1, 1].
type Analysis struct {
	Polarity float64
	Entities []Entity
}

func (a *Analysis) HasEntity(label EntityLabel) bool {
	for _, e := range a.Entities {
		if e.Label == label {
			return true
		}
	}
	return false
}
