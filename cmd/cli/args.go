package main

import (
	"fmt"
	"strconv"
	"strings"
)

// splitArgs separates leading positional arguments from the flags that
// follow them, so commands read as `search cat --limit 3`.
func splitArgs(args []string) (positional, flags []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

// parseFeatures parses a comma or whitespace separated list of numbers.
func parseFeatures(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '[' || r == ']'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no features given")
	}

	features := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %q is not a number", i, f)
		}
		features[i] = v
	}
	return features, nil
}
