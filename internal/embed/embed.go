// Package embed defines the messages exchanged between a container page and
// an embedded document: the readiness notification and the theme messages.
//
// Documents produced by the pipeline only carry these messages; applying a
// theme is up to whoever receives them.
package embed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/study-groups/mdpublish/internal/pipeline"
)

// Type names a message.
type Type string

// Message types.
const (
	TypePreviewReady Type = "preview-ready"
	TypeApplyTheme   Type = "APPLY_THEME"
	TypeUpdateToken  Type = "UPDATE_TOKEN"
	TypeRequestTheme Type = "REQUEST_THEME"
	TypeThemeUpdated Type = "THEME_UPDATED"
)

// Sentinel errors.
var (
	ErrMalformed   = errors.New("malformed embed message")
	ErrUnknownType = errors.New("unknown embed message type")
	ErrMissingID   = errors.New("embed message without embedId")
	ErrBadPayload  = errors.New("invalid embed message payload")
)

// Message is the envelope posted across the frame boundary.
type Message struct {
	Type    Type            `json:"type"`
	EmbedID string          `json:"embedId"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ApplyTheme asks the embedded document to switch to a theme.
type ApplyTheme struct {
	Theme pipeline.Theme `json:"theme"`
}

// UpdateToken changes a single design token.
type UpdateToken struct {
	Group string `json:"group"` // colors, typography, spacing, effects
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ThemeUpdated reports the theme now in effect.
type ThemeUpdated struct {
	ThemeID string             `json:"themeId"`
	Mode    pipeline.ThemeMode `json:"mode"`
}

// Token groups accepted by UpdateToken.
var tokenGroups = map[string]bool{
	"colors":     true,
	"typography": true,
	"spacing":    true,
	"effects":    true,
}

// NewEmbedID returns a fresh, time-ordered embed identifier.
func NewEmbedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Encode builds and serializes a message. payload may be nil for
// preview-ready and REQUEST_THEME.
func Encode(t Type, embedID string, payload any) ([]byte, error) {
	msg := Message{Type: t, EmbedID: embedID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		msg.Payload = raw
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Decode parses and validates a message.
func Decode(data []byte) (*Message, error) {
	var msg Message
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate checks the envelope and, for typed payloads, their content.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.EmbedID) == "" {
		return ErrMissingID
	}

	switch m.Type {
	case TypePreviewReady, TypeRequestTheme:
		return nil
	case TypeApplyTheme:
		var p ApplyTheme
		if err := m.decodePayload(&p); err != nil {
			return err
		}
		if _, err := pipeline.ParseThemeMode(string(p.Theme.Mode)); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return nil
	case TypeUpdateToken:
		var p UpdateToken
		if err := m.decodePayload(&p); err != nil {
			return err
		}
		if !tokenGroups[p.Group] {
			return fmt.Errorf("%w: token group %q", ErrBadPayload, p.Group)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: token name is required", ErrBadPayload)
		}
		return nil
	case TypeThemeUpdated:
		var p ThemeUpdated
		if err := m.decodePayload(&p); err != nil {
			return err
		}
		if p.ThemeID == "" {
			return fmt.Errorf("%w: themeId is required", ErrBadPayload)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
}

// ApplyTheme returns the payload of an APPLY_THEME message.
func (m *Message) ApplyTheme() (*ApplyTheme, error) {
	var p ApplyTheme
	if err := m.expect(TypeApplyTheme, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateToken returns the payload of an UPDATE_TOKEN message.
func (m *Message) UpdateToken() (*UpdateToken, error) {
	var p UpdateToken
	if err := m.expect(TypeUpdateToken, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ThemeUpdated returns the payload of a THEME_UPDATED message.
func (m *Message) ThemeUpdated() (*ThemeUpdated, error) {
	var p ThemeUpdated
	if err := m.expect(TypeThemeUpdated, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Message) expect(t Type, v any) error {
	if m.Type != t {
		return fmt.Errorf("%w: got %s, want %s", ErrUnknownType, m.Type, t)
	}
	return m.decodePayload(v)
}

func (m *Message) decodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", ErrBadPayload, m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// Apply returns a copy of theme with the token change applied.
func (u UpdateToken) Apply(theme pipeline.Theme) pipeline.Theme {
	out := theme
	out.Colors = cloneTokens(theme.Colors)
	out.Typography = cloneTokens(theme.Typography)
	out.Spacing = cloneTokens(theme.Spacing)
	out.Effects = cloneTokens(theme.Effects)
	switch u.Group {
	case "colors":
		out.Colors[u.Name] = u.Value
	case "typography":
		out.Typography[u.Name] = u.Value
	case "spacing":
		out.Spacing[u.Name] = u.Value
	case "effects":
		out.Effects[u.Name] = u.Value
	}
	return out
}

func cloneTokens(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
