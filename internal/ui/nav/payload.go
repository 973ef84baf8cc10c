package nav

// Embed colors shared by every screen.
const (
	ColorDefault = 0xb01e66
	ColorError   = 0xd64541
	ColorMuted   = 0x4f545c
)

// Style is the visual style of a button.
type Style int

const (
	StylePrimary Style = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// ControlKind tells the adapter how to draw a control.
type ControlKind int

const (
	KindButton ControlKind = iota
	KindSelect
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
}

// SelectOption is one entry of a select control.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Default     bool
}

// Control is an interactive element tagged with a custom id.
type Control struct {
	Kind        ControlKind
	Label       string
	Emoji       string
	Style       Style
	CustomID    string
	Disabled    bool
	Placeholder string
	Options     []SelectOption
}

// Row is one action row of controls.
type Row []Control

// Payload is what a screen renders: one embed plus its action rows.
type Payload struct {
	Embed Embed
	Rows  []Row
}

// Notice builds a control-less payload carrying a short message.
func Notice(title, text string) Payload {
	return Payload{Embed: Embed{Title: title, Description: text, Color: ColorMuted}}
}

// ErrorPayload builds a control-less error payload.
func ErrorPayload(text string) Payload {
	return Payload{Embed: Embed{Title: "Error", Description: text, Color: ColorError}}
}

// Controls returns every control of the payload in row order.
func (p Payload) Controls() []Control {
	var out []Control
	for _, r := range p.Rows {
		out = append(out, r...)
	}
	return out
}
