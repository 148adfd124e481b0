package teams

// MessageCard constants for the legacy Office 365 connector card schema
// accepted by Teams incoming webhooks.
const (
	cardType    = "MessageCard"
	cardContext = "http://schema.org/extensions"
	openURIType = "OpenUri"

	// ThemeColor is the accent bar colour of every card.
	ThemeColor = "0076D7"
)

// MessageCard is the top-level payload POSTed to the webhook.
type MessageCard struct {
	Type            string    `json:"@type"`    // "MessageCard"
	Context         string    `json:"@context"` // "http://schema.org/extensions"
	ThemeColor      string    `json:"themeColor"`
	Summary         string    `json:"summary,omitempty"`
	Title           string    `json:"title"`
	Text            string    `json:"text"`
	Sections        []Section `json:"sections,omitempty"`
	PotentialAction []Action  `json:"potentialAction"`
}

// Section groups facts under an activity header.
type Section struct {
	ActivityTitle    string `json:"activityTitle,omitempty"`
	ActivitySubtitle string `json:"activitySubtitle,omitempty"`
	ActivityImage    string `json:"activityImage,omitempty"`
	Facts            []Fact `json:"facts"`
	Markdown         bool   `json:"markdown"`
}

// Fact is a name/value row inside a Section.
type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Action is a card button.
type Action struct {
	Type    string   `json:"@type"` // "OpenUri"
	Name    string   `json:"name"`
	Targets []Target `json:"targets"`
}

// Target is the destination of an OpenUri action.
type Target struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

func newCard(title, text string) MessageCard {
	return MessageCard{
		Type:       cardType,
		Context:    cardContext,
		ThemeColor: ThemeColor,
		Title:      title,
		Text:       text,
	}
}

func openURI(name, uri string) []Action {
	return []Action{{
		Type:    openURIType,
		Name:    name,
		Targets: []Target{{OS: "default", URI: uri}},
	}}
}
