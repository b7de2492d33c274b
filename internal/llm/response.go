// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
)

// Kind names a JSON value shape for schema validation. Model output is
// inconsistent about scalar vs. null vs. string-encoded numbers, so a key
// may allow several kinds.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
	KindObject
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	case KindNull:
		return "null"
	}
	return "unknown"
}

// Schema describes the expected shape of one stage's response object.
type Schema struct {
	// Required keys must be present and non-empty ("" and null count as
	// empty).
	Required []string

	// Types maps keys to their allowed kinds. Keys absent from the
	// response are not type-checked here; pair with Required to force
	// presence.
	Types map[string][]Kind
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
var braceSpanPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON locates the JSON object embedded in free-form model output:
// a fenced code block first, then the widest {...} span. The match is
// HTML-entity-unescaped before parsing because models sometimes return
// entity-encoded quotes and ampersands.
func ExtractJSON(raw string) (map[string]any, error) {
	span := ""
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		span = m[1]
	} else if m := braceSpanPattern.FindString(raw); m != "" {
		span = m
	}
	if span == "" {
		return nil, &ValidationError{Reason: "no JSON object found in response"}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(html.UnescapeString(span)), &obj); err != nil {
		return nil, &ValidationError{Reason: "unparseable JSON: " + SanitizeMessage(err.Error())}
	}
	return obj, nil
}

// Validate checks obj against the schema. Violations are reported together
// so one round-trip surfaces every problem.
func (s Schema) Validate(obj map[string]any) error {
	var missing, empty, mismatched []string

	for _, key := range s.Required {
		v, ok := obj[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		if v == nil || v == "" {
			empty = append(empty, key)
		}
	}

	for key, allowed := range s.Types {
		v, ok := obj[key]
		if !ok {
			continue
		}
		got := kindOf(v)
		if !kindAllowed(got, allowed) {
			mismatched = append(mismatched,
				fmt.Sprintf("%s: %s instead of %s", key, got, kindNames(allowed)))
		}
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing keys: "+strings.Join(missing, ", "))
	}
	if len(empty) > 0 {
		problems = append(problems, "empty values: "+strings.Join(empty, ", "))
	}
	if len(mismatched) > 0 {
		sort.Strings(mismatched)
		problems = append(problems, "type mismatches: "+strings.Join(mismatched, "; "))
	}
	if len(problems) > 0 {
		return &ValidationError{Reason: strings.Join(problems, "; ")}
	}
	return nil
}

// ExtractAndValidate combines JSON extraction with schema validation.
func ExtractAndValidate(raw string, schema Schema) (map[string]any, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func kindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case float64, json.Number:
		return KindNumber
	case bool:
		return KindBool
	case []any:
		return KindList
	case map[string]any:
		return KindObject
	}
	return KindObject
}

func kindAllowed(k Kind, allowed []Kind) bool {
	for _, a := range allowed {
		if a == k {
			return true
		}
	}
	return false
}

func kindNames(kinds []Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, " or ")
}
