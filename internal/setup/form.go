// Package setup builds the interactive first-run form and turns its answers
// into a config file.
package setup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/hay-kot/pulse/internal/styles"
)

// Field types.
const (
	FieldTypeString      = "string"
	FieldTypeSelect      = "select"
	FieldTypeMultiSelect = "multi-select"
)

// Option is a choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one question of the setup form.
type Field struct {
	Name        string
	Label       string
	Description string
	Type        string
	Placeholder string
	Default     string
	Defaults    []string // multi-select only
	Options     []Option
	Required    bool
}

// FormResult holds the collected values from the setup form.
type FormResult struct {
	Values map[string]any
}

// AllFieldsPrefilled returns true if all fields have values in prefilled.
func AllFieldsPrefilled(fields []Field, prefilled map[string]any) bool {
	for _, field := range fields {
		if _, ok := prefilled[field.Name]; !ok {
			return false
		}
	}
	return true
}

// WithDefaults returns prefilled with every missing field set to its default.
func WithDefaults(fields []Field, prefilled map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if v, ok := prefilled[field.Name]; ok {
			out[field.Name] = v
			continue
		}
		if field.Type == FieldTypeMultiSelect {
			out[field.Name] = slices.Clone(field.Defaults)
		} else {
			out[field.Name] = field.Default
		}
	}
	return out
}

// RunForm generates and runs a huh form for fields, returning collected
// values. Prefilled values are used as the initial field values.
func RunForm(fields []Field, prefilled map[string]any) (*FormResult, error) {
	if prefilled == nil {
		prefilled = make(map[string]any)
	}

	if len(fields) == 0 {
		return &FormResult{Values: prefilled}, nil
	}

	result := &FormResult{Values: make(map[string]any)}
	huhFields := make([]huh.Field, 0, len(fields))
	bindings := make(map[string]any)

	for _, field := range fields {
		prefilledVal, hasPrefilled := prefilled[field.Name]
		f, binding := createFieldWithValue(field, prefilledVal, hasPrefilled)
		if f != nil {
			huhFields = append(huhFields, f)
			bindings[field.Name] = binding
		}
	}

	if len(huhFields) == 0 {
		return result, nil
	}

	form := huh.NewForm(huh.NewGroup(huhFields...)).WithTheme(styles.FormTheme())

	if err := form.Run(); err != nil {
		return nil, err
	}

	for name, binding := range bindings {
		result.Values[name] = extractValue(binding)
	}

	return result, nil
}

// createFieldWithValue creates a huh field from a field definition with an
// optional prefilled value. Returns the field and a binding pointer for value
// extraction.
func createFieldWithValue(field Field, prefilledVal any, hasPrefilled bool) (huh.Field, any) {
	switch field.Type {
	case FieldTypeString:
		return createStringField(field, prefilledVal, hasPrefilled)
	case FieldTypeSelect:
		return createSelectField(field, prefilledVal, hasPrefilled)
	case FieldTypeMultiSelect:
		return createMultiSelectField(field, prefilledVal, hasPrefilled)
	default:
		return nil, nil
	}
}

func initialString(field Field, prefilledVal any, hasPrefilled bool) string {
	if hasPrefilled {
		if s, ok := prefilledVal.(string); ok {
			return s
		}
		if arr, ok := prefilledVal.([]string); ok {
			return strings.Join(arr, ", ")
		}
	}
	return field.Default
}

func createStringField(field Field, prefilledVal any, hasPrefilled bool) (huh.Field, any) {
	value := initialString(field, prefilledVal, hasPrefilled)

	input := huh.NewInput().
		Title(fieldTitle(field)).
		Value(&value)

	if field.Description != "" {
		input.Description(field.Description)
	}

	if field.Placeholder != "" {
		input.Placeholder(field.Placeholder)
	}

	if field.Required {
		input.Validate(requiredValidator(fieldLabel(field)))
	}

	return input, &value
}

func createSelectField(field Field, prefilledVal any, hasPrefilled bool) (huh.Field, any) {
	value := initialString(field, prefilledVal, hasPrefilled)

	sel := huh.NewSelect[string]().
		Title(fieldTitle(field)).
		Options(huhOptions(field.Options)...).
		Value(&value)

	if field.Description != "" {
		sel.Description(field.Description)
	}

	return sel, &value
}

func createMultiSelectField(field Field, prefilledVal any, hasPrefilled bool) (huh.Field, any) {
	values := slices.Clone(field.Defaults)
	if hasPrefilled {
		switch v := prefilledVal.(type) {
		case []string:
			values = v
		case string:
			values = splitList(v)
		}
	}

	multi := huh.NewMultiSelect[string]().
		Title(fieldTitle(field)).
		Options(huhOptions(field.Options)...).
		Value(&values)

	if field.Description != "" {
		multi.Description(field.Description)
	}

	return multi, &values
}

func huhOptions(opts []Option) []huh.Option[string] {
	options := make([]huh.Option[string], len(opts))
	for i, opt := range opts {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		options[i] = huh.NewOption(label, opt.Value)
	}
	return options
}

func fieldLabel(field Field) string {
	if field.Label == "" {
		return field.Name
	}
	return field.Label
}

// fieldTitle generates the display title for a field.
func fieldTitle(field Field) string {
	title := fieldLabel(field)
	if field.Required {
		title += " *"
	}
	return title
}

// requiredValidator returns a validator that checks for non-empty values.
func requiredValidator(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

// extractValue extracts the actual value from a binding pointer.
func extractValue(binding any) any {
	switch v := binding.(type) {
	case *string:
		return *v
	case *[]string:
		return *v
	default:
		return nil
	}
}

// ParseSetValues parses --set flag values into a map.
// Format: "name=value" or "name=val1,val2" for lists.
func ParseSetValues(sets []string) (map[string]any, error) {
	result := make(map[string]any)

	for _, s := range sets {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --set format %q: expected name=value", s)
		}

		name := strings.TrimSpace(parts[0])
		value := parts[1]

		if name == "" {
			return nil, fmt.Errorf("invalid --set format %q: empty name", s)
		}

		if strings.Contains(value, ",") {
			result[name] = splitList(value)
		} else {
			result[name] = value
		}
	}

	return result, nil
}

// ValidateRequiredFields checks that all required fields have values.
func ValidateRequiredFields(fields []Field, values map[string]any) error {
	for _, field := range fields {
		if !field.Required {
			continue
		}

		v, ok := values[field.Name]
		if !ok {
			return fmt.Errorf("required field %q is missing", field.Name)
		}

		switch val := v.(type) {
		case string:
			if strings.TrimSpace(val) == "" {
				return fmt.Errorf("required field %q is empty", field.Name)
			}
		case []string:
			if len(val) == 0 {
				return fmt.Errorf("required field %q has no selections", field.Name)
			}
		}
	}

	return nil
}

// splitList splits a comma separated list, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
