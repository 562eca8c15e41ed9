package domain

// MaxQuestionnaireFields bounds the submission form size.
const MaxQuestionnaireFields = 5

// FieldStyle selects the input widget for a questionnaire field.
type FieldStyle string

const (
	FieldStyleShort     FieldStyle = "SHORT"
	FieldStyleParagraph FieldStyle = "PARAGRAPH"
)

// QuestionnaireField is one custom input definition on a submission form.
type QuestionnaireField struct {
	Position    int
	Label       string
	Placeholder string
	Style       FieldStyle
	Required    bool
}

// Questionnaire holds the ordered custom fields for one identifier's
// submission form. Independent lifecycle from Ticket.
type Questionnaire struct {
	CommunityID string
	Identifier  string
	Fields      []QuestionnaireField
}
