package usecase

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// DefaultWorkerMarker tells the re-invoked binary it is running as a detached
// worker and must not prompt.
const DefaultWorkerMarker = "--background-worker"

// CommandTarget is an explicit executable for one command. Args are prepended
// to the invocation's own args.
type CommandTarget struct {
	Executable string
	Args       []string
}

// CommandResolver turns (command, args, flags) into an argv for the child.
type CommandResolver struct {
	WorkerExecutable string
	Marker           string
	Table            map[string]CommandTarget
}

// NewCommandResolver falls back to the running binary when workerExecutable
// is empty.
func NewCommandResolver(workerExecutable, marker string, table map[string]CommandTarget) *CommandResolver {
	if strings.TrimSpace(workerExecutable) == "" {
		if exe, err := os.Executable(); err == nil {
			workerExecutable = exe
		}
	}
	if marker == "" {
		marker = DefaultWorkerMarker
	}
	return &CommandResolver{
		WorkerExecutable: workerExecutable,
		Marker:           marker,
		Table:            table,
	}
}

// Resolve returns the executable and its arguments. Table entries win;
// otherwise the worker executable is re-invoked with the marker.
func (r *CommandResolver) Resolve(command string, args []string, flags map[string]any) (string, []string) {
	rendered := renderFlags(flags)

	if target, ok := r.Table[command]; ok {
		argv := make([]string, 0, len(target.Args)+len(args)+len(rendered))
		argv = append(argv, target.Args...)
		argv = append(argv, args...)
		argv = append(argv, rendered...)
		return target.Executable, argv
	}

	argv := make([]string, 0, 2+len(args)+len(rendered))
	argv = append(argv, r.Marker, command)
	argv = append(argv, args...)
	argv = append(argv, rendered...)
	return r.WorkerExecutable, argv
}

// renderFlags emits flags in sorted key order. The orchestration flags are
// consumed here and never forwarded.
func renderFlags(flags map[string]any) []string {
	keys := make([]string, 0, len(flags))
	for k := range flags {
		if k == FlagBackground || k == FlagForeground {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := flags[k].(type) {
		case nil:
			continue
		case bool:
			if v {
				out = append(out, "--"+k)
			} else {
				out = append(out, "--"+k+"=false")
			}
		case []string:
			for _, item := range v {
				out = append(out, fmt.Sprintf("--%s=%s", k, item))
			}
		case []any:
			for _, item := range v {
				out = append(out, fmt.Sprintf("--%s=%v", k, item))
			}
		default:
			out = append(out, fmt.Sprintf("--%s=%v", k, v))
		}
	}
	return out
}
