// internal/engine/classifier.go
package engine

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Intent is one ranked classification result.
type Intent struct {
	Intent           IntentID `json:"intent"`
	Score            float64  `json:"score"`
	MatchedPhrase    string   `json:"matchedPhrase,omitempty"`
	FlowContinuation bool     `json:"flowContinuation,omitempty"`
}

// Classify ranks intents for input, evaluating rule classes in priority order
// and stopping at the first class that yields a confident match.
func (e *Engine) Classify(input string, cc ClassifyContext) []Intent {
	return e.classify(input, cc, false)
}

// ClassifyAll scores every rule of the screen without early exit. It is used
// to surface secondary suggestions.
func (e *Engine) ClassifyAll(input string, cc ClassifyContext) []Intent {
	return e.classify(input, cc, true)
}

// Top returns the best intent, or unknown when the list is empty.
func Top(intents []Intent) Intent {
	if len(intents) == 0 {
		return Intent{Intent: IntentUnknown}
	}
	return intents[0]
}

// IsAmbiguous reports whether the ranked list should be routed to the smart fallback.
func (e *Engine) IsAmbiguous(intents []Intent) bool {
	top := Top(intents)
	return top.Intent == IntentUnknown || top.Score < e.cfg.ConfidenceFloor
}

func (e *Engine) classify(input string, cc ClassifyContext, all bool) []Intent {
	cat := e.Catalog(cc.Screen)
	padded := " " + normalize(truncateRunes(input, e.cfg.MaxInputRunes)) + " "

	last := IntentID(cc.Conversation.LastIntent)
	successor := cat.Successor(last)
	cueCount, cuePhrase := matchPhrases(padded, cat.ContinuationCues)

	var results []Intent
	for _, class := range classOrder {
		confident := false
		for _, rule := range cat.Rules {
			if rule.Class != class {
				continue
			}
			n, phrase := matchPhrases(padded, rule.Keywords)
			score := e.keywordScore(n)
			flow := false
			if successor != "" && rule.Intent == successor && (n > 0 || cueCount > 0) {
				if n == 0 {
					score = e.keywordScore(cueCount)
					phrase = cuePhrase
				}
				score = clamp01(score + e.cfg.FlowBonus)
				flow = true
			}
			if score == 0 {
				continue
			}
			score = e.repeatPenalty(rule.Intent, cc, score)
			results = append(results, Intent{
				Intent:           rule.Intent,
				Score:            score,
				MatchedPhrase:    phrase,
				FlowContinuation: flow,
			})
			if score >= e.cfg.ConfidenceFloor {
				confident = true
			}
		}
		if confident && !all {
			break
		}
	}

	if len(results) == 0 {
		return []Intent{{Intent: IntentUnknown, Score: e.cfg.UnknownScore}}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		la, lb := utf8.RuneCountInString(a.MatchedPhrase), utf8.RuneCountInString(b.MatchedPhrase)
		if la != lb {
			return la > lb
		}
		if a.FlowContinuation != b.FlowContinuation {
			return a.FlowContinuation
		}
		ca, cb := cat.classOf(a.Intent), cat.classOf(b.Intent)
		if ca != cb {
			return ca < cb
		}
		return cat.orderOf(a.Intent) < cat.orderOf(b.Intent)
	})
	return results
}

func (e *Engine) keywordScore(matches int) float64 {
	if matches <= 0 {
		return 0
	}
	return clamp01(float64(matches) * e.cfg.KeywordIncrement)
}

// repeatPenalty decays an intent that keeps winning so a stuck user is not
// looped on the same answer. A matched intent never drops below the floor.
func (e *Engine) repeatPenalty(id IntentID, cc ClassifyContext, score float64) float64 {
	conv := cc.Conversation
	if IntentID(conv.LastIntent) != id || conv.FollowUpCount < e.cfg.RepeatPenaltyAfter {
		return score
	}
	steps := conv.FollowUpCount - e.cfg.RepeatPenaltyAfter + 1
	penalized := score - e.cfg.RepeatPenalty*float64(steps)
	if penalized < e.cfg.ConfidenceFloor {
		penalized = e.cfg.ConfidenceFloor
	}
	if penalized > score {
		return score
	}
	return penalized
}

// matchPhrases counts phrases found on token boundaries of padded text and
// returns the longest matched phrase.
func matchPhrases(padded string, phrases []string) (int, string) {
	count := 0
	longest := ""
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			count++
			if utf8.RuneCountInString(p) > utf8.RuneCountInString(longest) {
				longest = p
			}
		}
	}
	return count, longest
}

// normalize lowercases, drops apostrophes and turns every other
// non-alphanumeric rune (punctuation, emoji) into a single space.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
