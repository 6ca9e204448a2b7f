package main

import (
	"strconv"
	"strings"
)

// parseCommandLine splits the tail of a decide/submit invocation into
// positional arguments and --flags. A bare --flag is true; --flag=v keeps v
// as a string unless it parses as a bool. A lone "--" ends flag parsing.
func parseCommandLine(args []string) ([]string, map[string]any) {
	var positional []string
	flags := make(map[string]any)
	for i, arg := range args {
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "--") || len(arg) == 2 {
			positional = append(positional, arg)
			continue
		}
		name, value, hasValue := strings.Cut(arg[2:], "=")
		if !hasValue {
			flags[name] = true
			continue
		}
		if b, err := strconv.ParseBool(value); err == nil {
			flags[name] = b
			continue
		}
		flags[name] = value
	}
	if len(flags) == 0 {
		flags = nil
	}
	return positional, flags
}
