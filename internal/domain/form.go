package domain

import "strings"

// Answer placeholders shown in recaps and detail views.
const (
	AnswerNotProvided = "Not provided"
	AnswerLeftBlank   = "(left blank)"
)

// FormStep is one question of a guided form.
type FormStep struct {
	Key      string
	Question string
	Label    string
}

// NamedText is a titled paragraph, rendered as an embed field.
type NamedText struct {
	Name  string
	Value string
}

// RecapLine is one rendered answer.
type RecapLine struct {
	Key   string
	Label string
	Value string
}

// FormDefinition describes the fixed question flow of one ticket type.
type FormDefinition struct {
	Type  TicketType
	Color int

	IntroTitle       string
	IntroDescription string
	IntroProcess     string

	QuestionTitle  string
	QuestionFooter string

	RecapTitle       string
	RecapDescription string
	DetailsTitle     string

	SubmittedTitle       string
	SubmittedDescription string
	SubmittedNextSteps   []NamedText

	CancelledDescription string

	SubmittedAction string
	CancelledAction string
	Noun            string

	Steps []FormStep
}

var forms = map[TicketType]FormDefinition{
	TicketTypePartnership: {
		Type:             TicketTypePartnership,
		Color:            0xff9900,
		IntroTitle:       "🤝 Partnership Application",
		IntroDescription: "Welcome to your partnership application.\n\nI'll guide you through a series of questions to understand your partnership proposal better.",
		IntroProcess:     "I'll ask you questions one by one. Please answer each question thoroughly.",
		QuestionTitle:    "🤝 Partnership Question",
		QuestionFooter:   "Take your time to provide a detailed answer",
		RecapTitle:       "🤝 Partnership Application Recap",
		RecapDescription: "Please review your partnership application:",
		DetailsTitle:     "🤝 Partnership Application Details",
		SubmittedTitle:   "✅ Partnership Application Submitted!",
		SubmittedDescription: "Thank you for your partnership application! " +
			"Our team will review your proposal and get back to you soon.",
		SubmittedNextSteps: []NamedText{
			{Name: "⏰ What happens next?", Value: "Our partnership team will review your application and contact you within 3-5 business days."},
		},
		CancelledDescription: "Your partnership application has been cancelled. You can restart the process anytime by creating a new ticket.",
		SubmittedAction:      ActionPartnershipSubmitted,
		CancelledAction:      ActionPartnershipCancelled,
		Noun:                 "partnership",
		Steps: []FormStep{
			{Key: "company_name", Question: "What is your company/organization name?", Label: "🏢 Company/Organization"},
			{Key: "partnership_need", Question: "What do you need from this partnership?", Label: "🎯 What you need"},
			{Key: "partnership_offer", Question: "What can you offer in this partnership?", Label: "💼 What you offer"},
			{Key: "project_link", Question: "Link to your project/company (website, portfolio, etc.)", Label: "🔗 Project/Company Link"},
		},
	},
	TicketTypeJoin: {
		Type:             TicketTypeJoin,
		Color:            0x00ff00,
		IntroTitle:       "👥 Join the Team Application",
		IntroDescription: "Welcome to your team application.\n\nI'll guide you through our application process with a series of questions.",
		IntroProcess:     "Please answer each question honestly and thoroughly. This helps us understand how you might fit into our team.",
		QuestionTitle:    "👥 Team Application Question",
		QuestionFooter:   "Provide as much detail as you feel necessary",
		RecapTitle:       "👥 Team Application Recap",
		RecapDescription: "Please review your team application:",
		DetailsTitle:     "👥 Team Application Details",
		SubmittedTitle:   "✅ Team Application Submitted!",
		SubmittedDescription: "Thank you for your interest in joining the team! " +
			"Your application has been submitted successfully.",
		SubmittedNextSteps: []NamedText{
			{Name: "📧 Next Steps", Value: "Our HR team will review your application and contact you via email within 1-2 weeks."},
			{Name: "📞 Interview Process", Value: "If selected, you'll be invited for an interview to discuss your application further."},
		},
		CancelledDescription: "Your team application has been cancelled. You can restart the process anytime by creating a new ticket.",
		SubmittedAction:      ActionJoinSubmitted,
		CancelledAction:      ActionJoinCancelled,
		Noun:                 "team",
		Steps: []FormStep{
			{Key: "email", Question: "What is your email address?", Label: "📧 Email Address"},
			{Key: "motivation", Question: "Why do you want to join our team?", Label: "💭 Motivation"},
			{Key: "role", Question: "What role are you applying for?", Label: "👔 Role Applied For"},
			{Key: "knowledge", Question: "What relevant knowledge do you have?", Label: "🧠 Relevant Knowledge"},
			{Key: "additional", Question: "Anything else you'd like us to know?", Label: "💬 Additional Information"},
		},
	},
}

// FormFor returns the guided form of a ticket type. Support and order tickets have none.
func FormFor(t TicketType) (FormDefinition, bool) {
	form, ok := forms[t]
	return form, ok
}

// FirstStep returns the key of the opening question.
func (f FormDefinition) FirstStep() string {
	return f.Steps[0].Key
}

// StepIndex returns the position of key in the sequence, or -1.
func (f FormDefinition) StepIndex(key string) int {
	for i, step := range f.Steps {
		if step.Key == key {
			return i
		}
	}
	return -1
}

// Step looks up a step by key.
func (f FormDefinition) Step(key string) (FormStep, bool) {
	idx := f.StepIndex(key)
	if idx < 0 {
		return FormStep{}, false
	}
	return f.Steps[idx], true
}

// Next returns the step after key. The second result is false when key is the last step or unknown.
func (f FormDefinition) Next(key string) (string, bool) {
	idx := f.StepIndex(key)
	if idx < 0 || idx == len(f.Steps)-1 {
		return "", false
	}
	return f.Steps[idx+1].Key, true
}

// Complete reports whether every step has an answer key, blank answers included.
func (f FormDefinition) Complete(data map[string]string) bool {
	for _, step := range f.Steps {
		if _, ok := data[step.Key]; !ok {
			return false
		}
	}
	return true
}

// Recap renders the answers in step order. An absent key is "Not provided";
// a key holding only whitespace is "(left blank)".
func (f FormDefinition) Recap(data map[string]string) []RecapLine {
	lines := make([]RecapLine, 0, len(f.Steps))
	for _, step := range f.Steps {
		lines = append(lines, RecapLine{Key: step.Key, Label: step.Label, Value: RenderAnswer(data, step.Key)})
	}
	return lines
}

// RenderAnswer renders a single stored answer.
func RenderAnswer(data map[string]string, key string) string {
	value, ok := data[key]
	switch {
	case !ok:
		return AnswerNotProvided
	case strings.TrimSpace(value) == "":
		return AnswerLeftBlank
	default:
		return value
	}
}
