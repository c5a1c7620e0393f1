// Command cook is the CLI entry point, replacing the teacher's
// cmd/mk main.go. It wires pflag-parsed flags (spec.md §6) through
// internal/config's layered defaults into the cookbook parser, recipe
// store, fingerprint manager, dependency graph, and scheduler.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sanity-io/litter"
	"github.com/spf13/pflag"

	"github.com/mdhender/gocook/internal/config"
	"github.com/mdhender/gocook/internal/cookbook"
	"github.com/mdhender/gocook/internal/fingerprint"
	"github.com/mdhender/gocook/internal/graph"
	"github.com/mdhender/gocook/internal/hostexec"
	"github.com/mdhender/gocook/internal/scheduler"
	"github.com/mdhender/gocook/internal/ui"
	"github.com/mdhender/gocook/internal/vm"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "cook: loading configuration: %v\n", err)
		return 1
	}

	var (
		directory    string
		cookbookPath string
		dryRun       bool
		forceAll     bool
		forceTargets []string
		parallel     int
		quiet        bool
		colorFlag    bool
		colorSet     bool
		meterFlag    bool
		meterSet     bool
		shell        string
		disassemble  bool
		showPairs    bool
		showVersion  bool
	)

	pflag.StringVarP(&directory, "directory", "C", "", "change to this directory before reading the cookbook")
	pflag.StringVarP(&cookbookPath, "file", "f", "cookbook", "use the given file as the cookbook")
	pflag.BoolVarP(&dryRun, "dry-run", "n", false, "print what would run without executing it")
	pflag.BoolVar(&forceAll, "force-all", false, "rebuild every target regardless of fingerprint/mtime")
	pflag.StringArrayVar(&forceTargets, "force", nil, "force rebuilding a specific target (repeatable)")
	pflag.IntVarP(&parallel, "jobs", "j", config.Parallelism(), "maximum number of recipes to run concurrently")
	pflag.BoolVarP(&quiet, "quiet", "q", false, "don't print recipe bodies before running them")
	pflag.BoolVar(&colorFlag, "color", false, "force color output on/off")
	pflag.BoolVar(&meterFlag, "meter", false, "force the progress meter on/off")
	pflag.StringVar(&shell, "shell", "", "default shell used to run a recipe's command lines")
	pflag.BoolVar(&disassemble, "disassemble", false, "dump compiled opcode lists instead of running them")
	pflag.BoolVar(&showPairs, "pairs", false, "dump target/ingredient pairs instead of building")
	pflag.BoolVar(&showVersion, "version", false, "print the version and exit")
	pflag.Parse()

	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "color":
			colorSet = true
		case "meter":
			meterSet = true
		}
	})

	if showVersion {
		fmt.Println("cook (gocook)")
		return 0
	}

	if directory != "" {
		if err := os.Chdir(directory); err != nil {
			fmt.Fprintf(os.Stderr, "cook: %v\n", err)
			return 1
		}
	}

	var colorOverride, meterOverride *bool
	if colorSet {
		colorOverride = &colorFlag
	}
	if meterSet {
		meterOverride = &meterFlag
	}
	screen := ui.New(colorOverride, meterOverride)

	prog, err := cookbook.ParseFile(cookbookPath)
	if err != nil {
		screen.Error(err.Error())
		return 1
	}

	fp := fingerprint.NewManager()
	shellArgv := config.Shell()
	if shell != "" {
		shellArgv = strings.Fields(shell)
	}
	sched := scheduler.New(parallel, shellArgv)
	if ssmHosts := ssmHostsFromEnv(); len(ssmHosts) > 0 {
		if ssm, err := hostexec.NewSSM(ssmHosts); err == nil {
			for key := range ssmHosts {
				sched.Dispatch[key] = ssm
			}
		} else {
			screen.Error(fmt.Sprintf("host-binding disabled: %v", err))
		}
	}

	g := graph.New(prog.Store, fp, sched)
	g.ForceAll = forceAll
	for _, t := range forceTargets {
		g.Force[t] = true
	}
	g.Cascades = vm.NewCascadeTable()
	sched.Query = g.Host()

	loadCtx := vm.NewContext(g.Host(), nil)
	vm.RegisterBuiltins(loadCtx.Global)
	loadCtx.Cascades = g.Cascades
	if err := cookbook.Load(loadCtx, prog); err != nil {
		screen.Error(err.Error())
		return 1
	}

	if err := resolveCookedIncludes(g, prog, dryRun); err != nil {
		screen.Error(err.Error())
		return 1
	}

	if disassemble {
		litter.Dump(prog.Init)
		for name, ops := range prog.Functions {
			fmt.Printf("function %s:\n", name)
			litter.Dump(ops)
		}
		return 0
	}
	if showPairs {
		for _, r := range prog.Store.Recipes {
			litter.Dump(r.Targets, r.Ingredients)
		}
		return 0
	}

	targets := pflag.Args()
	if len(targets) == 0 && len(prog.Store.Recipes) > 0 {
		if len(prog.Store.Recipes[0].Targets) > 0 {
			targets = []string{prog.Store.Recipes[0].Targets[0].Raw()}
		}
	}
	if len(targets) == 0 {
		screen.Error("no target specified and the cookbook declares none")
		return 1
	}

	desist := make(chan os.Signal, 1)
	signal.Notify(desist, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-desist
		fmt.Fprintln(os.Stderr, "cook: interrupted")
		os.Exit(130)
	}()

	exit := 0
	for _, target := range targets {
		status, err := g.Build(nil, target, dryRun)
		if err != nil {
			screen.Error(err.Error())
			exit = 1
			continue
		}
		if status == graph.StatusFailed {
			exit = 1
		}
	}

	if errs := fp.Flush(); len(errs) > 0 {
		for _, e := range errs {
			screen.Error(fmt.Sprintf("fingerprint cache: %v", e))
		}
	}

	stats := g.Stats.Snapshot()
	if !quiet {
		fmt.Printf("built=%d uptodate=%d failed=%d leaf=%d\n", stats.Built, stats.UpToDate, stats.Failed, stats.LeafFiles)
	}
	return exit
}

// resolveCookedIncludes builds every #include-cooked[-nowarn] target
// through the same graph before folding its parsed contents back into
// prog, since a cooked include's text isn't known until the file it
// names has been brought up to date (spec.md §6's `#include-cooked`
// semantics).
func resolveCookedIncludes(g *graph.Graph, prog *cookbook.Program, dryRun bool) error {
	for _, inc := range prog.CookedInclude {
		status, err := g.Build(nil, inc.Target, dryRun)
		if err != nil {
			if inc.Warn {
				return fmt.Errorf("#include-cooked %q: %w", inc.Target, err)
			}
			continue
		}
		if status == graph.StatusFailed {
			continue
		}
		included, err := cookbook.ParseFile(inc.Target)
		if err != nil {
			return fmt.Errorf("#include-cooked %q: %w", inc.Target, err)
		}
		prog.Merge(included)
	}
	return nil
}

// ssmHostsFromEnv reads a COOK_HOST_TABLE environment variable of
// "key=instance-id,key=instance-id" pairs, the minimal static
// host-key → instance-ID table SPEC_FULL.md §3.1 describes; the
// cookbook grammar has no directive for it, so cmd/cook reads it from
// the environment since host-binding wiring is this module's
// external-collaborator boundary.
func ssmHostsFromEnv() map[string]string {
	raw := os.Getenv("COOK_HOST_TABLE")
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	pair := ""
	for _, c := range raw + "," {
		if c == ',' {
			if eq := indexByte(pair, '='); eq >= 0 {
				out[pair[:eq]] = pair[eq+1:]
			}
			pair = ""
			continue
		}
		pair += string(c)
	}
	return out
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
