package platform

import "time"

// Platform limits applied when rendering embeds.
const (
	MaxEmbedTitle       = 256
	MaxEmbedDescription = 4096
	MaxFieldName        = 256
	MaxFieldValue       = 1024
	MaxFields           = 25
	MaxFooter           = 2048
	MaxButtonsPerRow    = 5
)

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Fields      []Field
	Footer      string
	Thumbnail   string
	Timestamp   *time.Time
}

// Field is a titled embed row.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// ButtonStyle selects the button colour.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is a clickable component. CustomID is produced by the interaction package.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

// File is an attachment uploaded with a message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is an outbound message. A nil Buttons slice leaves the components of
// an updated message untouched; ClearButtons removes them.
type Message struct {
	Content      string
	Embeds       []Embed
	Buttons      []Button
	ClearButtons bool
	Files        []File
}

// Text builds a plain content message.
func Text(content string) Message {
	return Message{Content: content}
}

// Cards builds a message holding the given embeds.
func Cards(embeds ...Embed) Message {
	return Message{Embeds: embeds}
}

// TextInput is a single field of a modal.
type TextInput struct {
	CustomID    string
	Label       string
	Placeholder string
	MaxLength   int
	Required    bool
}

// Modal is a popup form shown in response to a button.
type Modal struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}

// Now returns an embed timestamp for the current instant.
func Now() *time.Time {
	now := time.Now().UTC()
	return &now
}

// Truncate cuts s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// FieldValue truncates v to the field limit and substitutes a placeholder for empty values.
func FieldValue(v, placeholder string) string {
	if v == "" {
		if placeholder == "" {
			placeholder = "N/A"
		}
		v = placeholder
	}
	return Truncate(v, MaxFieldValue)
}
