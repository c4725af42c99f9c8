// Package payload turns loosely written embed JSON from chat into an embed.
// Users paste code blocks, drop braces and leave fences behind; Repair
// undoes the common cases before the JSON is decoded.
package payload

import (
	"encoding/json"
	"strings"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
	"github.com/vesaa/arcbot/internal/gateway"
)

const fence = "```"

// Repair strips a leading ```json and/or ``` fence and a trailing ```
// fence, then makes sure the text starts with { and ends with }.
func Repair(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, fence+"json")
	s = strings.TrimPrefix(s, fence)
	s = strings.TrimSuffix(s, fence)
	s = strings.TrimSpace(s)

	if !strings.HasSuffix(s, "}") {
		s += "}"
	}
	if !strings.HasPrefix(s, "{") {
		s = "{" + s
	}
	return s
}

// ParseEmbed repairs raw and decodes it as an embed object.
func ParseEmbed(raw string) (*gateway.Embed, error) {
	repaired := Repair(raw)

	var e gateway.Embed
	if err := json.Unmarshal([]byte(repaired), &e); err != nil {
		return nil, arcerrors.WrapWithContext(arcerrors.ErrCodeMalformedPayload,
			"decoding embed payload", err, map[string]any{"payload": repaired})
	}
	return &e, nil
}
