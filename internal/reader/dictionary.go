package reader

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// RuleSpec is the persistable form of a dictionary rule. It carries no
// runtime state and is what the store serialises.
type RuleSpec struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	IsRegex     bool   `json:"is_regex"`
}

// Rule is a single text replacement applied before synthesis. Rules are
// applied in insertion order. A regex rule whose pattern fails to compile
// stays in the list (so it can be removed) but is skipped during Apply.
type Rule struct {
	// ID is a stable opaque identifier assigned at insertion. It survives
	// removals of other rules, unlike the positional index.
	ID string

	Pattern     string
	Replacement string
	IsRegex     bool

	re *regexp.Regexp // nil for plain rules and for invalid regex patterns
}

// Spec returns the persistable form of the rule.
func (r Rule) Spec() RuleSpec {
	return RuleSpec{Pattern: r.Pattern, Replacement: r.Replacement, IsRegex: r.IsRegex}
}

var ruleSeq atomic.Uint64

func nextRuleID() string {
	return "r" + strconv.FormatUint(ruleSeq.Add(1), 10)
}

// Dictionary holds the ordered replacement rules for one guild. Safe for
// concurrent use.
type Dictionary struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{}
}

// Add appends a rule and returns its assigned ID. Invalid regex patterns
// are accepted; they are inert during Apply but removable.
func (d *Dictionary) Add(pattern, replacement string, isRegex bool) string {
	r := Rule{
		ID:          nextRuleID(),
		Pattern:     pattern,
		Replacement: replacement,
		IsRegex:     isRegex,
	}
	if isRegex {
		if re, err := regexp.Compile(pattern); err == nil {
			r.re = re
		}
	}
	d.mu.Lock()
	d.rules = append(d.rules, r)
	d.mu.Unlock()
	return r.ID
}

// RemoveAt deletes the rule at the given zero-based index. Returns the
// removed rule, or ErrIndexOutOfRange if the index does not name a rule.
func (d *Dictionary) RemoveAt(index int) (Rule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.rules) {
		return Rule{}, ErrIndexOutOfRange
	}
	r := d.rules[index]
	d.rules = append(d.rules[:index], d.rules[index+1:]...)
	return r, nil
}

// RemoveByID deletes the rule with the given ID. Returns the removed rule,
// or ErrIndexOutOfRange if no rule carries the ID.
func (d *Dictionary) RemoveByID(id string) (Rule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.rules {
		if r.ID == id {
			d.rules = append(d.rules[:i], d.rules[i+1:]...)
			return r, nil
		}
	}
	return Rule{}, ErrIndexOutOfRange
}

// Rules returns a copy of the current rule list in insertion order.
func (d *Dictionary) Rules() []Rule {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Rule, len(d.rules))
	copy(out, d.rules)
	return out
}

// Len reports the number of rules.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rules)
}

// Apply runs every rule over text in insertion order. Plain rules replace
// all literal occurrences; regex rules expand capture group references in
// the replacement. Invalid regex rules are skipped.
func (d *Dictionary) Apply(text string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.rules {
		switch {
		case !r.IsRegex:
			text = strings.ReplaceAll(text, r.Pattern, r.Replacement)
		case r.re != nil:
			text = r.re.ReplaceAllString(text, r.Replacement)
		}
	}
	return text
}

// Snapshot returns the persistable form of every rule, for the store.
func (d *Dictionary) Snapshot() []RuleSpec {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RuleSpec, 0, len(d.rules))
	for _, r := range d.rules {
		out = append(out, r.Spec())
	}
	return out
}

// Restore replaces the rule list with rules built from specs, assigning
// fresh IDs. Used when loading persisted dictionaries at startup.
func (d *Dictionary) Restore(specs []RuleSpec) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		r := Rule{
			ID:          nextRuleID(),
			Pattern:     s.Pattern,
			Replacement: s.Replacement,
			IsRegex:     s.IsRegex,
		}
		if s.IsRegex {
			if re, err := regexp.Compile(s.Pattern); err == nil {
				r.re = re
			}
		}
		rules = append(rules, r)
	}
	d.mu.Lock()
	d.rules = rules
	d.mu.Unlock()
}
