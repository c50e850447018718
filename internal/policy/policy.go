// Package policy holds the pure moderation decisions: role hierarchy checks,
// automod classification and the per-action capability table.
package policy

import "strings"

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

type Verdict int

const (
	Clean Verdict = iota
	Trigger
)

func (v Verdict) String() string {
	if v == Trigger {
		return "trigger"
	}
	return "clear"
}

var DefaultBannedTerms = []string{"badword1", "badword2", "idiot", "scam"}

type Config struct {
	BannedTerms []string
}

func DefaultConfig() Config {
	return Config{BannedTerms: append([]string(nil), DefaultBannedTerms...)}
}

// Evaluator is immutable after construction and safe for concurrent use.
type Evaluator struct {
	terms []string
}

func NewEvaluator(cfg Config) *Evaluator {
	terms := make([]string, 0, len(cfg.BannedTerms))
	for _, t := range cfg.BannedTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &Evaluator{terms: terms}
}

// AuthorizeHierarchical denies acting on a peer or a higher-ranked member.
func (e *Evaluator) AuthorizeHierarchical(actorRank, targetRank int) Decision {
	if targetRank >= actorRank {
		return Deny
	}
	return Allow
}

// ClassifyAutomod reports the first banned term found as a substring of text.
func (e *Evaluator) ClassifyAutomod(text string) (Verdict, string) {
	lower := strings.ToLower(text)
	for _, t := range e.terms {
		if strings.Contains(lower, t) {
			return Trigger, t
		}
	}
	return Clean, ""
}

func (e *Evaluator) BannedTerms() []string {
	return append([]string(nil), e.terms...)
}
