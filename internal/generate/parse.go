package generate

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidModelOutput is returned when the model's text contains no JSON
// object that can be parsed.
var ErrInvalidModelOutput = errors.New("invalid model output")

// InvalidOutputError carries the raw model text for diagnosis.
type InvalidOutputError struct {
	Raw string
	Err error
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInvalidModelOutput, e.Err)
}

func (e *InvalidOutputError) Unwrap() error {
	return ErrInvalidModelOutput
}

// parseObject decodes raw as a JSON object. When raw is not valid JSON on its
// own (for example wrapped in markdown fences or prose), the first balanced
// {...} block is decoded instead.
func parseObject(raw string) (fields, error) {
	var obj fields
	strictErr := json.Unmarshal([]byte(raw), &obj)
	if strictErr == nil && obj != nil {
		return obj, nil
	}

	if strictErr == nil {
		strictErr = errors.New("top-level value is not an object")
	}

	block, ok := firstObject(raw)
	if !ok {
		return nil, &InvalidOutputError{Raw: raw, Err: fmt.Errorf("no JSON object found: %w", strictErr)}
	}
	obj = nil
	if err := json.Unmarshal([]byte(block), &obj); err != nil {
		return nil, &InvalidOutputError{Raw: raw, Err: fmt.Errorf("parsing extracted object: %w", err)}
	}
	return obj, nil
}

// firstObject returns the first brace-delimited block of s whose braces
// balance, ignoring braces inside JSON strings.
func firstObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
