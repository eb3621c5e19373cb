
package models

type ElementKind string

const (
	KindButton ElementKind = "button"
	KindInput  ElementKind = "input"
	KindLink   ElementKind = "a"
)

// Interactive is implemented only by *Button, *Input and *Link.
type Interactive interface {
	Kind() ElementKind
	Base() InteractiveBase
	isInteractive()
}

type InteractiveBase struct {
	ID          string
	HasLabel    bool
	AriaLabel   string
	TextContent string
}

type Button struct {
	InteractiveBase
	Type  string
	Title string
}

type Input struct {
	InteractiveBase
	InputType   string
	Placeholder string
	Name        string
}

type Link struct {
	InteractiveBase
	Href  string
	Title string
}

func (b *Button) Kind() ElementKind     { return KindButton }
func (b *Button) Base() InteractiveBase { return b.InteractiveBase }
func (*Button) isInteractive()          {}

func (i *Input) Kind() ElementKind     { return KindInput }
func (i *Input) Base() InteractiveBase { return i.InteractiveBase }
func (*Input) isInteractive()          {}

func (l *Link) Kind() ElementKind     { return KindLink }
func (l *Link) Base() InteractiveBase { return l.InteractiveBase }
func (*Link) isInteractive()          {}
