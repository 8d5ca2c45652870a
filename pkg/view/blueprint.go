package view

// Entity marks up a span of the message text (bold, link, mention, ...).
// Offsets follow the chat platform's convention for the bound transport.
type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	URL    string `json:"url,omitempty"`
}

// Button is one inline keyboard button. Action buttons name a handler
// registered for the view kind plus optional opaque args; the engine encodes
// the owning record into Data before the blueprint reaches the transport.
// URL buttons pass through untouched.
type Button struct {
	Text   string
	Action string
	Args   string
	URL    string

	// Data is the final callback payload. Set by the engine; views leave
	// it empty.
	Data string
}

// Keyboard is an inline keyboard layout, rows of buttons.
type Keyboard struct {
	Rows [][]Button
}

// Row appends a row of buttons and returns the keyboard for chaining.
func (k *Keyboard) Row(buttons ...Button) *Keyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// Blueprint is the ephemeral render output of a view: everything needed to
// send or edit the bound message. Produced fresh on every send and refresh,
// never persisted and never diffed directly — only the media descriptor of
// the previous send is compared.
type Blueprint struct {
	Text      string
	Entities  []Entity
	ParseMode string
	Media     Media // nil means no media
	Keyboard  *Keyboard
}

// MediaKind returns the media kind the blueprint requests.
func (b *Blueprint) MediaKind() MediaKind { return KindOf(b.Media) }
