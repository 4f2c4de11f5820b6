// internal/models/situational.go
package models

// SituationalData is read fresh from the profile each turn. Every field is
// optional; absent values are treated as empty strings or zero.
type SituationalData struct {
	ProfileName    string `json:"profileName,omitempty"`
	BrandName      string `json:"brandName,omitempty"`
	Industry       string `json:"industry,omitempty"`
	Objective      string `json:"objective,omitempty"`
	TargetAudience string `json:"targetAudience,omitempty"`
	CurrentDay     int    `json:"currentDay,omitempty"`
	PreviousAdvice string `json:"previousAdvice,omitempty"`
}

// Fields flattens the record for the remote AI request and prompt export.
// Empty values are kept so the receiver sees a stable shape.
func (s SituationalData) Fields() map[string]interface{} {
	return map[string]interface{}{
		"profileName":    s.ProfileName,
		"brandName":      s.BrandName,
		"industry":       s.Industry,
		"objective":      s.Objective,
		"targetAudience": s.TargetAudience,
		"currentDay":     s.CurrentDay,
		"previousAdvice": s.PreviousAdvice,
	}
}

// ProgressData describes program completion state supplied by the caller.
type ProgressData struct {
	ProfileComplete bool  `json:"profileComplete"`
	CompassDone     bool  `json:"compassDone"`
	PitchDone       bool  `json:"pitchDone"`
	CurrentDay      int   `json:"currentDay,omitempty"`
	CompletedDays   []int `json:"completedDays,omitempty"`
}

// DayCompleted reports whether the given program day was logged.
func (p ProgressData) DayCompleted(day int) bool {
	for _, d := range p.CompletedDays {
		if d == day {
			return true
		}
	}
	return false
}
