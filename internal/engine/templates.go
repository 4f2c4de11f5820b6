// internal/engine/templates.go
package engine

import (
	"fmt"
	"strings"

	"advisor-engine/internal/models"
)

type EffectKind string

const (
	EffectSwitchTab       EffectKind = "switchTab"
	EffectMarkDayComplete EffectKind = "markDayComplete"
)

// Effect is a UI side effect attached to a reply. It is independent of the
// reply text so a remote answer can replace the text and keep the effects.
type Effect struct {
	Kind  EffectKind `json:"kind"`
	Value string     `json:"value"`
}

// Reply is a rendered answer. QuickChoices are semantic keys the caller
// resolves with TemplateRegistry.Message.
type Reply struct {
	Text         string   `json:"text"`
	QuickChoices []string `json:"quickChoices,omitempty"`
	Effects      []Effect `json:"effects,omitempty"`
}

type TemplateData struct {
	Situational  models.SituationalData
	Entities     Entities
	Conversation models.ConversationContext
	Progress     models.ProgressData
}

type Template func(TemplateData) Reply

// TemplateRegistry holds per-screen reply builders and the display text for
// semantic message keys.
type TemplateRegistry struct {
	byScreen map[Screen]map[IntentID]Template
	messages map[string]string
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		byScreen: make(map[Screen]map[IntentID]Template),
		messages: make(map[string]string),
	}
}

func (r *TemplateRegistry) Register(screen Screen, intent IntentID, t Template) {
	if r.byScreen[screen] == nil {
		r.byScreen[screen] = make(map[IntentID]Template)
	}
	r.byScreen[screen][intent] = t
}

func (r *TemplateRegistry) SetMessage(key, text string) {
	r.messages[key] = text
}

// Message resolves a key to display text. Unknown keys are returned as is.
func (r *TemplateRegistry) Message(key string) string {
	if t, ok := r.messages[key]; ok {
		return t
	}
	return key
}

func (r *TemplateRegistry) Messages(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.Message(k))
	}
	return out
}

func (r *TemplateRegistry) Render(screen Screen, intent IntentID, data TemplateData) (Reply, bool) {
	t, ok := r.byScreen[screen][intent]
	if !ok {
		return Reply{}, false
	}
	return t(data), true
}

// Respond renders the local reply for intent. Intents without a template
// get the smart fallback.
func (e *Engine) Respond(input string, cc ClassifyContext, intent IntentID, data TemplateData) Reply {
	if reply, ok := e.templates.Render(cc.Screen, intent, data); ok {
		return reply
	}
	return e.FallbackReply(e.GenerateSmartFallback(input, cc))
}

func (e *Engine) FallbackReply(f Fallback) Reply {
	return Reply{
		Text:         e.templates.Message(f.MessageKey),
		QuickChoices: f.SuggestionKeys,
	}
}

// StuckReply offers a way out when the user keeps landing on one topic.
func (e *Engine) StuckReply(topic IntentID) Reply {
	text := fmt.Sprintf(e.templates.Message("stuck.intro"), topicLabel(topic))
	return Reply{
		Text: text,
		QuickChoices: []string{SuggestTryDifferent, SuggestShowCapabilities, SuggestTalkToHuman},
	}
}

// WithDisclaimer prepends the low-confidence note naming the missing fields.
func (e *Engine) WithDisclaimer(reply Reply, score ResponseScore) Reply {
	if !score.Disclaimer {
		return reply
	}
	note := e.templates.Message("disclaimer.lowConfidence")
	if len(score.Missing) > 0 {
		note += " " + fmt.Sprintf(e.templates.Message("disclaimer.missing"), strings.Join(score.Missing, ", "))
	}
	reply.Text = strings.TrimSpace(note + "\n\n" + reply.Text)
	return reply
}

func topicLabel(id IntentID) string {
	switch id {
	case IntentPitchHelp:
		return "your pitch"
	case IntentCompassAnalysis:
		return "the compass analysis"
	case IntentProfileCheck, IntentDataCompletion:
		return "your profile"
	case IntentNextSteps:
		return "next steps"
	case IntentShowTactic:
		return "today's tactic"
	case IntentShowExercise:
		return "the exercise"
	case IntentShowCalendar:
		return "the calendar"
	case IntentLogActivity:
		return "logging your activity"
	case IntentContext:
		return "your context"
	}
	return "this topic"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func greetingName(s models.SituationalData) string {
	if s.ProfileName != "" {
		return " " + s.ProfileName
	}
	return ""
}

func dayOf(d TemplateData) int {
	if n := d.Entities.Day(); n > 0 {
		return n
	}
	if d.Progress.CurrentDay > 0 {
		return d.Progress.CurrentDay
	}
	return d.Situational.CurrentDay
}

// DefaultTemplates returns the built-in English replies for both screens.
func DefaultTemplates() *TemplateRegistry {
	r := NewTemplateRegistry()
	for k, v := range defaultMessages {
		r.SetMessage(k, v)
	}

	r.Register(ScreenAdvisor, IntentGreeting, func(d TemplateData) Reply {
		return Reply{
			Text: fmt.Sprintf("Hi%s! I'm your marketing advisor. I can review your profile, run a compass analysis or help you sharpen your pitch.", greetingName(d.Situational)),
			QuickChoices: []string{SuggestCheckProfile, SuggestRunCompass, SuggestBuildPitch},
		}
	})
	r.Register(ScreenAdvisor, IntentProfileCheck, func(d TemplateData) Reply {
		s := d.Situational
		return Reply{
			Text: fmt.Sprintf("Here's what I have: brand %s, industry %s, objective %s, audience %s.",
				orDefault(s.BrandName, "not set"), orDefault(s.Industry, "not set"),
				orDefault(s.Objective, "not set"), orDefault(s.TargetAudience, "not set")),
			QuickChoices: []string{SuggestCompleteProfile, SuggestRunCompass},
		}
	})
	r.Register(ScreenAdvisor, IntentDataCompletion, func(d TemplateData) Reply {
		return Reply{
			Text:    "Let's fill in the gaps. I'll open your profile so you can add the missing details.",
			Effects: []Effect{{Kind: EffectSwitchTab, Value: "profile"}},
		}
	})
	r.Register(ScreenAdvisor, IntentCompassAnalysis, func(d TemplateData) Reply {
		s := d.Situational
		return Reply{
			Text: fmt.Sprintf("Compass check for %s: you're in %s aiming to %s. Start by naming the one thing %s can't get anywhere else.",
				orDefault(s.BrandName, "your brand"), orDefault(s.Industry, "your market"),
				orDefault(s.Objective, "grow"), orDefault(s.TargetAudience, "your audience")),
			QuickChoices: []string{SuggestBuildPitch, SuggestNextSteps},
			Effects:      []Effect{{Kind: EffectSwitchTab, Value: "compass"}},
		}
	})
	r.Register(ScreenAdvisor, IntentPitchHelp, func(d TemplateData) Reply {
		s := d.Situational
		return Reply{
			Text: fmt.Sprintf("A strong pitch fits in one breath: %s helps %s %s. Try saying it out loud, then trim every word that isn't doing work.",
				orDefault(s.BrandName, "[brand]"), orDefault(s.TargetAudience, "[audience]"), orDefault(s.Objective, "[outcome]")),
			QuickChoices: []string{SuggestNextSteps, SuggestRunCompass},
		}
	})
	r.Register(ScreenAdvisor, IntentNextSteps, func(d TemplateData) Reply {
		return Reply{
			Text:         "Here's a simple plan: complete your profile, run the compass analysis, then build your pitch. Pick up wherever you left off.",
			QuickChoices: suggestionKeys(GetProactiveSuggestions(d.Conversation, d.Progress)),
		}
	})
	r.Register(ScreenAdvisor, IntentHelpRequest, func(d TemplateData) Reply {
		return Reply{
			Text:         r.Message("help.advisor"),
			QuickChoices: []string{SuggestCheckProfile, SuggestRunCompass, SuggestBuildPitch, SuggestNextSteps},
		}
	})

	r.Register(ScreenProgram, IntentGreeting, func(d TemplateData) Reply {
		return Reply{
			Text: fmt.Sprintf("Welcome back%s! You're on day %d. Want today's tactic or the exercise?", greetingName(d.Situational), dayOf(d)),
			QuickChoices: []string{SuggestShowTactic, SuggestShowExercise, SuggestShowCalendar},
		}
	})
	r.Register(ScreenProgram, IntentContext, func(d TemplateData) Reply {
		s := d.Situational
		text := fmt.Sprintf("You're building %s in %s with the goal to %s.",
			orDefault(s.BrandName, "your brand"), orDefault(s.Industry, "your industry"), orDefault(s.Objective, "grow"))
		if s.PreviousAdvice != "" {
			text += " Last time we talked about: " + s.PreviousAdvice
		}
		return Reply{Text: text, QuickChoices: []string{SuggestShowTactic}}
	})
	r.Register(ScreenProgram, IntentShowTactic, func(d TemplateData) Reply {
		day := dayOf(d)
		text := fmt.Sprintf("Day %d tactic: post one piece of proof, a result or a testimonial, where %s spends time.", day, orDefault(d.Situational.TargetAudience, "your audience"))
		if p := d.Entities[SlotPlatform]; p != "" {
			text += fmt.Sprintf(" On %s, lead with the outcome in the first line.", p)
		}
		return Reply{
			Text:         text,
			QuickChoices: []string{SuggestShowExercise, SuggestLogToday},
			Effects:      []Effect{{Kind: EffectSwitchTab, Value: "tactic"}},
		}
	})
	r.Register(ScreenProgram, IntentShowExercise, func(d TemplateData) Reply {
		dur := orDefault(d.Entities[SlotDuration], "15min")
		return Reply{
			Text:         fmt.Sprintf("Day %d exercise (%s): write three headlines for the same offer and ask one customer which they'd click.", dayOf(d), dur),
			QuickChoices: []string{SuggestLogToday},
			Effects:      []Effect{{Kind: EffectSwitchTab, Value: "exercise"}},
		}
	})
	r.Register(ScreenProgram, IntentLogActivity, func(d TemplateData) Reply {
		day := dayOf(d)
		if day <= 0 {
			return Reply{Text: "Which day did you finish? Tell me the day number and I'll log it."}
		}
		return Reply{
			Text:         fmt.Sprintf("Nice work! Day %d is logged.", day),
			QuickChoices: []string{SuggestShowCalendar},
			Effects:      []Effect{{Kind: EffectMarkDayComplete, Value: fmt.Sprintf("%d", day)}},
		}
	})
	r.Register(ScreenProgram, IntentShowCalendar, func(d TemplateData) Reply {
		return Reply{
			Text:    fmt.Sprintf("Opening your calendar. %d of your days are logged so far.", len(d.Progress.CompletedDays)),
			Effects: []Effect{{Kind: EffectSwitchTab, Value: "calendar"}},
		}
	})
	r.Register(ScreenProgram, IntentNextSteps, func(d TemplateData) Reply {
		return Reply{
			Text:         fmt.Sprintf("For day %d: read the tactic, do the exercise, then log it.", dayOf(d)),
			QuickChoices: []string{SuggestShowTactic, SuggestShowExercise, SuggestLogToday},
		}
	})
	r.Register(ScreenProgram, IntentHelpRequest, func(d TemplateData) Reply {
		return Reply{
			Text:         r.Message("help.program"),
			QuickChoices: []string{SuggestShowTactic, SuggestShowExercise, SuggestLogToday, SuggestShowCalendar},
		}
	})
	return r
}

func suggestionKeys(s []Suggestion) []string {
	out := make([]string, 0, len(s))
	for _, x := range s {
		out = append(out, x.Key)
	}
	return out
}

var defaultMessages = map[string]string{
	FallbackEmpty:    "Type a question or pick one of the options below.",
	FallbackQuestion: "Good question. I'm not sure I caught it, could you rephrase or pick one of these?",
	FallbackTooLong:  "That's a lot to take in at once. Could you break it into a shorter question?",
	FallbackUnclear:  "I didn't quite get that. Here's what I can help with:",

	SuggestCompleteProfile:  "Complete my profile",
	SuggestRunCompass:       "Run the compass analysis",
	SuggestLogToday:         "Log today's activity",
	SuggestBuildPitch:       "Build my pitch",
	SuggestNextSteps:        "What should I do next?",
	SuggestCheckProfile:     "Check my profile",
	SuggestShowTactic:       "Show today's tactic",
	SuggestShowExercise:     "Show the exercise",
	SuggestShowCalendar:     "Open my calendar",
	SuggestShareContext:     "Remind me of my context",
	SuggestShowCapabilities: "What can you do?",
	SuggestTryDifferent:     "Try a different topic",
	SuggestTalkToHuman:      "Talk to a person",

	"stuck.intro":              "Looks like we keep coming back to %s. Want to try a different angle?",
	"disclaimer.lowConfidence": "Note: this advice is general because your profile is incomplete.",
	"disclaimer.missing":       "Adding %s will make it more specific.",
	"escalation.unavailable":   "I couldn't reach the full advisor right now, so this is a quick answer. For deeper help, book a session:",
	"help.advisor":             "I can check your profile, run a compass analysis of your positioning, help with your pitch and suggest next steps.",
	"help.program":             "I can show today's tactic and exercise, log your progress and open your calendar.",
}
