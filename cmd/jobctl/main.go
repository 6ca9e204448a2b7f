package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dev.rubentxu.background-orchestrator/internal/adapters/grpc/client"
	"dev.rubentxu.background-orchestrator/internal/adapters/grpc/jobcontrol"
	"dev.rubentxu.background-orchestrator/internal/adapters/logger"
	"dev.rubentxu.background-orchestrator/internal/config"
	"github.com/pkg/errors"
)

const usage = `usage: jobctl [-addr host:port] <command> [arguments]

commands:
  decide <command> [args...] [--flag[=value]...]
  submit <command> [args...] [--flag[=value]...]
  status
  get <job-id>
  cancel <job-id>
  wait [-timeout 30s] <job-id>
  report
  resources [-host]
  prune [-older-than 1h]
  watch [job-id]
`

func main() {
	addr := flag.String("addr", defaultAddr(), "orchestrator gRPC address")
	callTimeout := flag.Duration("call-timeout", 10*time.Second, "deadline for unary calls")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(*addr, logger.NewNopLogger())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	ctl := &cli{client: c, out: os.Stdout, callTimeout: *callTimeout}
	if err := ctl.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "jobctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func defaultAddr() string {
	if v := os.Getenv(config.EnvGRPCAddr); v != "" {
		return v
	}
	return "localhost:50051"
}

type cli struct {
	client      *client.JobControlClient
	out         io.Writer
	callTimeout time.Duration
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "decide", "submit":
		if len(args) == 0 {
			return errors.Errorf("%s needs a command", command)
		}
		positional, flags := parseCommandLine(args[1:])
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		if command == "decide" {
			background, err := c.client.Decide(callCtx, args[0], positional, flags)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "background=%t\n", background)
			return nil
		}
		id, err := c.client.Submit(callCtx, args[0], positional, flags)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, id)
		return nil

	case "status":
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		jobs, err := c.client.List(callCtx)
		if err != nil {
			return err
		}
		return c.printJSON(jobs)

	case "get":
		id, err := single(command, args)
		if err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		j, err := c.client.Get(callCtx, id)
		if err != nil {
			return err
		}
		return c.printJSON(j)

	case "cancel":
		id, err := single(command, args)
		if err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		ok, err := c.client.Cancel(callCtx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "cancelled=%t\n", ok)
		return nil

	case "wait":
		fs := flag.NewFlagSet("wait", flag.ContinueOnError)
		timeout := fs.Duration("timeout", 30*time.Second, "how long to wait")
		if err := fs.Parse(args); err != nil {
			return err
		}
		id, err := single(command, fs.Args())
		if err != nil {
			return err
		}
		j, err := c.client.Wait(ctx, id, *timeout)
		if err != nil {
			return err
		}
		return c.printJSON(j)

	case "report":
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		report, err := c.client.Report(callCtx)
		if err != nil {
			return err
		}
		fmt.Fprint(c.out, report)
		return nil

	case "resources":
		fs := flag.NewFlagSet("resources", flag.ContinueOnError)
		host := fs.Bool("host", false, "include host statistics")
		if err := fs.Parse(args); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		res, err := c.client.Resources(callCtx, *host)
		if err != nil {
			return err
		}
		return c.printJSON(res)

	case "prune":
		fs := flag.NewFlagSet("prune", flag.ContinueOnError)
		olderThan := fs.Duration("older-than", 0, "only drop jobs that ended this long ago")
		if err := fs.Parse(args); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		removed, err := c.client.Prune(callCtx, *olderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "removed=%d\n", removed)
		return nil

	case "watch":
		var id string
		if len(args) > 0 {
			id = args[0]
		}
		events := make(chan *jobcontrol.EventMessage)
		if err := c.client.Watch(ctx, id, events); err != nil {
			return err
		}
		for ev := range events {
			fmt.Fprintf(c.out, "%s %s %s status=%s\n", ev.Timestamp.Format(time.RFC3339), ev.Kind, ev.JobID, ev.Job.Status)
		}
		return nil

	default:
		return errors.Errorf("unknown command %q", command)
	}
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func single(command string, args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.Errorf("%s needs exactly one job id", command)
	}
	return args[0], nil
}
