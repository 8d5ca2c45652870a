package view

// MediaDescriptor is the (kind, identity, locality) triple recorded after a
// successful send or media edit. It is the only thing media edits are diffed
// against: re-uploading identical remote media is wasteful and can reset view
// counts, so a lightweight caption edit is chosen whenever the declared
// identity is unchanged.
type MediaDescriptor struct {
	Kind     MediaKind `json:"kind"`
	Identity string    `json:"identity,omitempty"`
	Local    bool      `json:"local,omitempty"`
}

// Describe derives the descriptor for the given media, MediaNone for nil.
func Describe(m Media) MediaDescriptor {
	if m == nil {
		return MediaDescriptor{Kind: MediaNone}
	}
	src := m.Source()
	return MediaDescriptor{
		Kind:     m.MediaKind(),
		Identity: src.Identity(),
		Local:    src.IsLocal(),
	}
}

// Matches reports whether media m would be a no-op replacement for the
// described content: same kind, same locality, same declared identity.
func (d MediaDescriptor) Matches(m Media) bool {
	if m == nil {
		return d.Kind == MediaNone
	}
	if d.Kind != m.MediaKind() {
		return false
	}
	src := m.Source()
	if d.Local != src.IsLocal() {
		return false
	}
	return d.Identity == src.Identity()
}

// Binding identifies the single outbound message a view owns. A view record
// has at most one live binding at a time; MessageID zero means detached.
type Binding struct {
	BotID     int64           `json:"bot_id"`
	ChatID    int64           `json:"chat_id"`
	MessageID int             `json:"message_id"`
	Media     MediaDescriptor `json:"media"`
}

// Bound reports whether the binding points at a live message.
func (b Binding) Bound() bool { return b.MessageID != 0 }
