// internal/engine/prompt.go
package engine

import (
	"fmt"
	"strings"

	"advisor-engine/internal/models"
)

// ExportInput is everything that goes into a copy-paste prompt.
type ExportInput struct {
	Screen       Screen
	Conversation models.ConversationContext
	Situational  models.SituationalData
	Progress     models.ProgressData
	History      []models.Message
}

// BuildExportPrompt serializes context and history into one text blob the
// user can paste into an external AI tool.
func BuildExportPrompt(in ExportInput) string {
	var b strings.Builder

	role := "a marketing strategy advisor"
	if in.Screen == ScreenProgram {
		role = "a coach guiding a solo founder through a daily marketing program"
	}
	fmt.Fprintf(&b, "You are %s. Continue the conversation below.\n\n", role)

	b.WriteString("## Profile\n")
	s := in.Situational
	writeField(&b, "Name", s.ProfileName)
	writeField(&b, "Brand", s.BrandName)
	writeField(&b, "Industry", s.Industry)
	writeField(&b, "Objective", s.Objective)
	writeField(&b, "Target audience", s.TargetAudience)
	if day := s.CurrentDay; day > 0 {
		fmt.Fprintf(&b, "- Current day: %d\n", day)
	} else if in.Progress.CurrentDay > 0 {
		fmt.Fprintf(&b, "- Current day: %d\n", in.Progress.CurrentDay)
	}
	if len(in.Progress.CompletedDays) > 0 {
		days := make([]string, 0, len(in.Progress.CompletedDays))
		for _, d := range in.Progress.CompletedDays {
			days = append(days, fmt.Sprintf("%d", d))
		}
		fmt.Fprintf(&b, "- Completed days: %s\n", strings.Join(days, ", "))
	}
	writeField(&b, "Previous advice", s.PreviousAdvice)

	b.WriteString("\n## Conversation so far\n")
	fmt.Fprintf(&b, "- Messages: %d\n", in.Conversation.MessageCount)
	if len(in.Conversation.Topics) > 0 {
		fmt.Fprintf(&b, "- Topics: %s\n", strings.Join(in.Conversation.Topics, ", "))
	}
	writeField(&b, "Last topic", in.Conversation.LastIntent)

	if len(in.History) > 0 {
		b.WriteString("\n## Transcript\n")
		for _, m := range in.History {
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			speaker := "User"
			if m.Role == models.RoleAssistant {
				speaker = "Advisor"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(m.Content))
		}
	}

	b.WriteString("\nGive specific, practical next steps for this business.\n")
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, v)
	}
}
