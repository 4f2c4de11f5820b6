// internal/engine/intents.go
package engine

import "fmt"

type IntentID string

const (
	IntentGreeting        IntentID = "greeting"
	IntentNextSteps       IntentID = "nextSteps"
	IntentPitchHelp       IntentID = "pitchHelp"
	IntentCompassAnalysis IntentID = "compassAnalysis"
	IntentProfileCheck    IntentID = "profileCheck"
	IntentDataCompletion  IntentID = "dataCompletion"
	IntentHelpRequest     IntentID = "helpRequest"
	IntentContext         IntentID = "context"
	IntentShowTactic      IntentID = "showTactic"
	IntentShowExercise    IntentID = "showExercise"
	IntentLogActivity     IntentID = "logActivity"
	IntentShowCalendar    IntentID = "showCalendar"
	IntentUnknown         IntentID = "unknown"
)

// Screen identifies the consuming UI. Each screen has its own catalog.
type Screen string

const (
	ScreenAdvisor Screen = "advisor"
	ScreenProgram Screen = "program"
)

// ParseScreen maps a caller-supplied name onto a known screen.
func ParseScreen(s string) (Screen, error) {
	switch Screen(s) {
	case ScreenAdvisor, ScreenProgram:
		return Screen(s), nil
	case "":
		return ScreenAdvisor, nil
	}
	return "", fmt.Errorf("unknown screen %q", s)
}

// Class orders rules for early exit and tie-breaking. Lower value wins.
type Class int

const (
	ClassTransition Class = iota
	ClassFlow
	ClassGreeting
	ClassGeneral
)

var classOrder = []Class{ClassTransition, ClassFlow, ClassGreeting, ClassGeneral}

type Rule struct {
	Intent   IntentID
	Class    Class
	Keywords []string
}

// Catalog is the compiled rule set for one screen.
type Catalog struct {
	Screen           Screen
	Rules            []Rule
	Flow             []IntentID
	ContinuationCues []string

	order map[IntentID]int
	class map[IntentID]Class
}

// NewCatalog normalizes keywords so matching can work on normalized input.
func NewCatalog(screen Screen, rules []Rule, flow []IntentID, cues []string) *Catalog {
	c := &Catalog{
		Screen: screen,
		Flow:   append([]IntentID(nil), flow...),
		order:  make(map[IntentID]int, len(rules)),
		class:  make(map[IntentID]Class, len(rules)),
	}
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if n := normalize(k); n != "" {
				kws = append(kws, n)
			}
		}
		c.Rules = append(c.Rules, Rule{Intent: r.Intent, Class: r.Class, Keywords: kws})
		c.order[r.Intent] = i
		c.class[r.Intent] = r.Class
	}
	for _, cue := range cues {
		if n := normalize(cue); n != "" {
			c.ContinuationCues = append(c.ContinuationCues, n)
		}
	}
	return c
}

// Successor returns the intent that follows prev in the screen flow.
func (c *Catalog) Successor(prev IntentID) IntentID {
	for i, id := range c.Flow {
		if id == prev && i+1 < len(c.Flow) {
			return c.Flow[i+1]
		}
	}
	return ""
}

func (c *Catalog) classOf(id IntentID) Class {
	if cl, ok := c.class[id]; ok {
		return cl
	}
	return ClassGeneral
}

func (c *Catalog) orderOf(id IntentID) int {
	if o, ok := c.order[id]; ok {
		return o
	}
	return len(c.order)
}

var defaultCues = []string{"next", "continue", "go on", "keep going", "ok", "okay", "yes", "ready", "let's go", "sounds good"}

func defaultAdvisorCatalog() *Catalog {
	return NewCatalog(ScreenAdvisor, []Rule{
		{Intent: IntentDataCompletion, Class: ClassTransition, Keywords: []string{"update my profile", "fill in", "complete my profile", "add my brand", "missing info", "my industry is", "my brand is", "my objective is"}},
		{Intent: IntentProfileCheck, Class: ClassFlow, Keywords: []string{"profile", "check my profile", "what do you know about me", "my details", "review my info"}},
		{Intent: IntentCompassAnalysis, Class: ClassFlow, Keywords: []string{"compass", "analysis", "analyze", "analyse", "where do i stand", "strengths", "weaknesses", "positioning"}},
		{Intent: IntentPitchHelp, Class: ClassFlow, Keywords: []string{"pitch", "elevator pitch", "pitch deck", "investor", "sell my idea", "tagline", "value proposition"}},
		{Intent: IntentNextSteps, Class: ClassGeneral, Keywords: []string{"next steps", "next step", "what next", "what should i do", "what now", "where do i start", "plan", "roadmap"}},
		{Intent: IntentHelpRequest, Class: ClassGeneral, Keywords: []string{"help", "how does this work", "what can you do", "capabilities", "confused", "stuck"}},
		{Intent: IntentGreeting, Class: ClassGreeting, Keywords: []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "howdy", "yo"}},
	}, []IntentID{IntentGreeting, IntentProfileCheck, IntentCompassAnalysis, IntentPitchHelp, IntentNextSteps}, defaultCues)
}

func defaultProgramCatalog() *Catalog {
	return NewCatalog(ScreenProgram, []Rule{
		{Intent: IntentLogActivity, Class: ClassTransition, Keywords: []string{"log", "logged", "i did it", "completed day", "finished day", "done with day", "mark day", "mark complete", "i finished", "i completed"}},
		{Intent: IntentContext, Class: ClassFlow, Keywords: []string{"context", "my business", "about me", "background", "my situation", "where am i"}},
		{Intent: IntentShowTactic, Class: ClassFlow, Keywords: []string{"tactic", "tactics", "show me the tactic", "today's tactic", "strategy for today", "lesson"}},
		{Intent: IntentShowExercise, Class: ClassFlow, Keywords: []string{"exercise", "show me the exercise", "practice", "homework", "assignment", "task for today"}},
		{Intent: IntentShowCalendar, Class: ClassFlow, Keywords: []string{"calendar", "schedule", "show me the calendar", "upcoming days", "which day", "timeline"}},
		{Intent: IntentNextSteps, Class: ClassGeneral, Keywords: []string{"next steps", "next step", "what next", "what should i do", "what now", "where do i start"}},
		{Intent: IntentHelpRequest, Class: ClassGeneral, Keywords: []string{"help", "how does this work", "what can you do", "capabilities", "confused", "stuck"}},
		{Intent: IntentGreeting, Class: ClassGreeting, Keywords: []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "howdy", "yo"}},
	}, []IntentID{IntentGreeting, IntentContext, IntentShowTactic, IntentShowExercise, IntentLogActivity}, defaultCues)
}

// DefaultCatalogs returns fresh catalogs for every known screen.
func DefaultCatalogs() map[Screen]*Catalog {
	return map[Screen]*Catalog{
		ScreenAdvisor: defaultAdvisorCatalog(),
		ScreenProgram: defaultProgramCatalog(),
	}
}
