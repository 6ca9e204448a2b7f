package usecase

import (
	"strings"
)

// Flag names that override the allow-list.
const (
	FlagForeground = "foreground"
	FlagBackground = "background"
)

// DefaultBackgroundCommands are the commands known to run long enough
// (uploads, chain syncs, deployments) to be detached by default.
func DefaultBackgroundCommands() []string {
	return []string{"store", "store-file", "store-list", "sync", "deploy", "upload", "image"}
}

// BackgroundPolicy decides whether a command is detached. It holds no mutable
// state after construction, so one instance may be shared freely.
type BackgroundPolicy struct {
	longRunning map[string]struct{}
}

func NewBackgroundPolicy(commands []string) *BackgroundPolicy {
	p := &BackgroundPolicy{longRunning: make(map[string]struct{}, len(commands))}
	for _, c := range commands {
		c = strings.TrimSpace(c)
		if c != "" {
			p.longRunning[c] = struct{}{}
		}
	}
	return p
}

// ShouldRunInBackground applies, in order: an explicit foreground flag, an
// explicit background flag, the long-running allow-list, and finally false.
func (p *BackgroundPolicy) ShouldRunInBackground(command string, args []string, flags map[string]any) bool {
	if flagSet(flags, FlagForeground) {
		return false
	}
	if flagSet(flags, FlagBackground) {
		return true
	}
	_, ok := p.longRunning[strings.TrimSpace(command)]
	return ok
}

func flagSet(flags map[string]any, name string) bool {
	v, ok := flags[name]
	if !ok {
		return false
	}
	return truthy(v)
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "", "true", "1", "yes", "on":
			return true
		}
		return false
	case int:
		return val != 0
	case int64:
		return val != 0
	case int32:
		return val != 0
	case uint:
		return val != 0
	case uint64:
		return val != 0
	case float64:
		return val != 0
	case float32:
		return val != 0
	default:
		return false
	}
}
