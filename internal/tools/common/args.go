package common

import "fmt"

// StringArg returns a required, non-empty string argument.
func StringArg(args map[string]any, name string) (string, error) {
	value, ok := args[name]
	if !ok || value == nil {
		return "", fmt.Errorf("%s is required", name)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	if s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

// OptionalStringArg returns a pointer to a string argument, or nil when it
// is absent or null.
func OptionalStringArg(args map[string]any, name string) (*string, error) {
	value, ok := args[name]
	if !ok || value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", name)
	}
	return &s, nil
}
