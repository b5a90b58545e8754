package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/eval"
	"github.com/wippyai/mir-machine/foreign"
	"github.com/wippyai/mir-machine/memory"
)

func main() {
	var (
		program     = flag.String("program", "", "Built-in program to run")
		fuel        = flag.Uint64("fuel", 1_000_000, "Step budget (0 = unlimited)")
		stack       = flag.Int("stack", 1024, "Frame depth limit")
		memLimit    = flag.Uint64("mem", 0, "Memory limit in bytes (0 = unlimited)")
		wrap        = flag.Bool("wrap", false, "Wrap integer overflow instead of reporting it")
		list        = flag.Bool("list", false, "List built-in programs and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *list {
		listDemos()
		return
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(machineOptions(*fuel, *stack, *memLimit, *wrap)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *program == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -program <name> [-fuel n] [-stack n] [-mem bytes] [-wrap]")
		fmt.Fprintln(os.Stderr, "       run -list")
		fmt.Fprintln(os.Stderr, "       run -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*program, machineOptions(*fuel, *stack, *memLimit, *wrap)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func machineOptions(fuel uint64, stack int, memLimit uint64, wrap bool) []eval.Option {
	opts := []eval.Option{
		eval.WithFuel(fuel),
		eval.WithStackLimit(stack),
		eval.WithForeign(foreign.NewRegistry().WithAllocator()),
	}
	if memLimit > 0 {
		opts = append(opts, eval.WithMemoryLimit(memLimit))
	}
	if wrap {
		opts = append(opts, eval.WithOverflowPolicy(eval.OverflowWrap))
	}
	return opts
}

func listDemos() {
	fmt.Println("Built-in programs:")
	for _, name := range demoNames() {
		d, _ := demoByName(name)
		fmt.Printf("  %-16s %s\n", d.name, d.desc)
	}
}

func run(name string, opts []eval.Option) error {
	d, ok := demoByName(name)
	if !ok {
		return fmt.Errorf("unknown program %q (try -list)", name)
	}

	fmt.Printf("Program: %s\n", d.name)
	fmt.Printf("%s\n\n", d.desc)

	m := eval.New(d.build(), opts...)
	out, err := m.Run(context.Background(), "main")

	if err != nil {
		printFailure(err)
	} else if out.HasReturn {
		fmt.Printf("Result: %s\n", out.Return)
	} else {
		fmt.Println("Result: ()")
	}

	fmt.Printf("Steps:  %d\n", m.Steps())
	printStats(m.Memory().Stats())
	return nil
}

func printFailure(err error) {
	switch {
	case errors.IsUB(err):
		fmt.Println("Undefined behavior detected:")
	case errors.IsAbort(err):
		fmt.Println("Program aborted:")
	case errors.IsExhaustion(err):
		fmt.Println("Resource limit hit:")
	default:
		fmt.Println("Execution failed:")
	}
	fmt.Printf("  %v\n", err)

	var machineErr *errors.Error
	if stderrors.As(err, &machineErr) && len(machineErr.Frames) > 0 {
		fmt.Println("  stack:")
		for _, f := range machineErr.Frames {
			fmt.Printf("    %s\n", f)
		}
	}
	fmt.Println()
}

func printStats(s memory.Stats) {
	var b strings.Builder
	fmt.Fprintf(&b, "Memory: %d bytes live, %d live allocations", s.BytesLive, s.LiveAllocs)
	if s.BytesLimit > 0 {
		fmt.Fprintf(&b, " (limit %d)", s.BytesLimit)
	}
	fmt.Println(b.String())
}
