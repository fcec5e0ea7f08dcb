// Command gesturectl replays, serves and inspects gesture recognition.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phanxgames/gesture"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("error: "+err.Error()))
		os.Exit(1)
	}
}

// cli holds flag values shared by every subcommand.
type cli struct {
	v *viper.Viper
}

func newCLI() *cli {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("GESTURE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	return c
}

func newRootCommand() *cobra.Command {
	c := newCLI()

	root := &cobra.Command{
		Use:           "gesturectl",
		Short:         "Multi-touch gesture recognition tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.v.GetBool("no-color") {
				color.NoColor = true
			}
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "engine settings file (.yaml, .yml or .toml)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: text or json")
	pf.Bool("tentative", false, "deliver tentative events")
	pf.Bool("atomic", false, "make overlapping groups mutually exclusive")
	pf.Bool("debug", false, "log per-dispatch statistics")
	pf.Bool("no-color", false, "disable colored output")
	pf.StringSlice("class", nil, "only report these gesture classes")
	_ = c.v.BindPFlags(pf)

	root.AddCommand(newReplayCommand(c))
	root.AddCommand(newServeCommand(c))
	root.AddCommand(newVocabCommand())
	if cmd := newEvdevCommand(c); cmd != nil {
		root.AddCommand(cmd)
	}
	return root
}

// settings resolves the engine settings from the config file and flags.
func (c *cli) settings() (gesture.Settings, error) {
	var s gesture.Settings
	if path := c.v.GetString("config"); path != "" {
		loaded, err := gesture.LoadSettings(path)
		if err != nil {
			return s, err
		}
		s = loaded
	}
	if lvl := c.v.GetString("log-level"); lvl != "" {
		s.Log.Level = lvl
	}
	if f := c.v.GetString("log-format"); f != "" {
		s.Log.Format = f
	}
	if c.v.GetBool("tentative") {
		s.Tentative = true
	}
	if c.v.GetBool("atomic") {
		s.AtomicGestures = true
	}
	return s, nil
}

// newEngine builds an engine from the resolved settings with one active
// subscription, filtered to the --class list when given.
func (c *cli) newEngine(opts ...gesture.Option) (*gesture.Engine, error) {
	s, err := c.settings()
	if err != nil {
		return nil, err
	}
	opts = append([]gesture.Option{
		gesture.WithSettings(s),
		gesture.WithLogger(gesture.NewLogger(s.Log)),
	}, opts...)
	eng, err := gesture.New(opts...)
	if err != nil {
		return nil, err
	}
	eng.SetDebugMode(c.v.GetBool("debug"))
	if err := subscribe(eng, c.v.GetStringSlice("class")); err != nil {
		_ = eng.Close()
		return nil, err
	}
	return eng, nil
}

func subscribe(eng *gesture.Engine, classes []string) error {
	sub, err := eng.NewSubscription("gesturectl", gesture.SubscriptionNone)
	if err != nil {
		return err
	}
	if len(classes) > 0 {
		f, err := eng.NewFilter("classes")
		if err != nil {
			return err
		}
		for _, name := range classes {
			if eng.ClassByName(name) == nil {
				return fmt.Errorf("unknown gesture class %q", name)
			}
			if err := f.AddTerm(gesture.FilterClass, gesture.Term{Attr: gesture.ClassAttrName, Op: gesture.OpEQ, Value: name}); err != nil {
				return err
			}
		}
		if err := sub.AddFilter(f); err != nil {
			return err
		}
	}
	return sub.Activate()
}

// drain dispatches until the engine inbox is empty.
func drain(eng *gesture.Engine) {
	for eng.DispatchEvents() == gesture.StatusContinue {
	}
}
