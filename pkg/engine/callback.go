package engine

import (
	"strings"

	"github.com/google/uuid"

	"github.com/odvcencio/chatview/pkg/errors"
)

// Codec encodes and decodes button callback payloads. The wire form is
// prefix, record id, action id and opaque args joined by the separator; args
// may contain further separators, everything after the third one is args.
// Chat platforms cap callback payloads (Telegram: 64 bytes), so prefix and
// separator default to a single byte each.
type Codec struct {
	Prefix    string
	Separator string
}

const (
	DefaultPrefix    = "v"
	DefaultSeparator = ":"
)

// Payload is a decoded button callback.
type Payload struct {
	RecordID uuid.UUID
	Action   string
	Args     string
}

func (c Codec) withDefaults() Codec {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
	return c
}

// Encode builds the callback payload for a button on the given record.
func (c Codec) Encode(recordID uuid.UUID, action, args string) string {
	parts := []string{c.Prefix, recordID.String(), action}
	if args != "" {
		parts = append(parts, args)
	}
	return strings.Join(parts, c.Separator)
}

// Decode parses a raw callback payload. Payloads not carrying our prefix
// return ok=false with no error so the caller can pass them to other
// handling. A payload that carries the prefix but does not parse is a
// validation error: it can only come from a stale or forged button.
func (c Codec) Decode(data string) (Payload, bool, error) {
	parts := strings.SplitN(data, c.Separator, 4)
	if parts[0] != c.Prefix {
		return Payload{}, false, nil
	}
	if len(parts) < 3 {
		return Payload{}, false, errors.New(errors.CodeBadCallback, "callback payload is missing fields").
			WithContext("data", data)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Payload{}, false, errors.Wrap(err, errors.CodeBadCallback, "callback payload carries a malformed record id").
			WithContext("data", data)
	}
	if parts[2] == "" {
		return Payload{}, false, errors.New(errors.CodeBadCallback, "callback payload carries an empty action").
			WithContext("data", data)
	}
	p := Payload{RecordID: id, Action: parts[2]}
	if len(parts) == 4 {
		p.Args = parts[3]
	}
	return p, true, nil
}
