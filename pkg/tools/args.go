package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseArguments turns the raw argument text from a tool call into a value.
// Valid JSON is decoded as-is. Anything else is returned as the trimmed string
// with surrounding double quotes removed, then surrounding single quotes.
func ParseArguments(raw string) any {
	trimmed := strings.TrimSpace(raw)

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}

	return unquote(unquote(trimmed, '"'), '\'')
}

func unquote(s string, q byte) string {
	if len(s) >= 2 && s[0] == q && s[len(s)-1] == q {
		return s[1 : len(s)-1]
	}
	return s
}

// DecodeArguments converts parsed arguments into a typed struct.
func DecodeArguments(args, out any) error {
	if args == nil {
		return fmt.Errorf("missing arguments")
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
