// Package cli holds the flag handling and exit-status plumbing shared by the
// indexer, searcher and searchd commands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/logger"
)

// Command wraps a FlagSet with the -config and -v flags every command takes.
type Command struct {
	Flags      *flag.FlagSet
	configPath string
	verbose    bool
	required   []string
}

// New returns a Command named name. synopsis is printed as the first usage
// line.
func New(name, synopsis string, stderr io.Writer) *Command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &Command{Flags: fs}
	fs.StringVar(&c.configPath, "config", "", "path to a YAML config file")
	fs.BoolVar(&c.verbose, "v", false, "verbose (debug) logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s\n", synopsis)
		fs.PrintDefaults()
	}
	return c
}

// Require marks flags that must be given on the command line.
func (c *Command) Require(names ...string) {
	c.required = append(c.required, names...)
}

// Parse parses args, loads the config file, and checks required flags.
// Every failure is an ErrInvalidConfig; usage has already been printed.
func (c *Command) Parse(args []string) (*config.Config, error) {
	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, apperrors.New(apperrors.ErrInvalidConfig, err.Error())
	}
	if c.Flags.NArg() > 0 {
		c.Flags.Usage()
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "unexpected arguments: %s", strings.Join(c.Flags.Args(), " "))
	}
	set := make(map[string]bool)
	c.Flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	var missing []string
	for _, name := range c.required {
		if !set[name] || c.Flags.Lookup(name).Value.String() == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		c.Flags.Usage()
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "missing required flags: %s", strings.Join(missing, " "))
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		c.Flags.Usage()
		return nil, err
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// IsSet reports whether the named flag was given.
func (c *Command) IsSet(name string) bool {
	found := false
	c.Flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// SetupLogging installs the slog default on stderr from cfg.
func SetupLogging(cfg *config.Config) {
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
}

// ExitCode reports err on stderr and returns the process status for it.
// -help is a successful exit.
func ExitCode(stderr io.Writer, name string, err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return apperrors.ExitOK
	}
	fmt.Fprintf(stderr, "%s: %v\n", name, err)
	return apperrors.ExitCode(err)
}

// Exit logs err and terminates the process with its exit status.
func Exit(name string, err error) {
	code := ExitCode(os.Stderr, name, err)
	if code != apperrors.ExitOK {
		slog.Debug("exiting", "command", name, "status", code)
	}
	os.Exit(code)
}
