package nodes

import "fmt"

// FallbackReply is sent when the response model cannot produce an answer.
const FallbackReply = "Sorry, I'm having trouble responding right now. A recruiter from our team will follow up with you shortly."

// HandoffReply is sent when the conversation is handed to a human recruiter.
const HandoffReply = "Thanks for reaching out. I'm connecting you with one of our recruiters, who will take it from here."

// wrapUpNotice tells the response model the tool budget for this turn is
// spent and it must answer with what it already has.
func wrapUpNotice(maxPasses int) string {
	return fmt.Sprintf(
		"SYSTEM NOTICE: You have used all %d tool calls allowed for this turn. Do not request any more tools. Answer the candidate now using the information already gathered.",
		maxPasses,
	)
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
