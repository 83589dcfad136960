// Command wpcore is a thin, non-interactive demonstration host for the
// engine: it loads configuration sections, runs a dispatcher over a
// handful of built-in hooks, and prints the resulting metadata. The
// real media-graph host is out of scope; this exists to exercise the
// library end to end from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wpcore-go/wpcore/internal/conf"
	"github.com/wpcore-go/wpcore/internal/event"
	"github.com/wpcore-go/wpcore/internal/hook"
	"github.com/wpcore-go/wpcore/internal/interest"
	"github.com/wpcore-go/wpcore/internal/metadata"
	"github.com/wpcore-go/wpcore/internal/props"
	"github.com/wpcore-go/wpcore/internal/wpjson"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if ctx.Err() != nil {
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	var appName string
	root := &cobra.Command{
		Use:   "wpcore",
		Short: "Demonstration host for the core engine library",
	}
	root.PersistentFlags().StringVar(&appName, "app-name", "wpcore", "application name used to resolve configuration directories")

	root.AddCommand(newRunCmd(&appName))
	root.AddCommand(newConfigCmd(&appName))
	return root
}

func newConfigCmd(appName *string) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print a resolved, merged configuration section",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := conf.NewStore(conf.BaseDirs{AppName: *appName}, *appName+".conf")
			v, ok := store.Section(section, wpjson.Null)
			if !ok {
				return fmt.Errorf("section %q not found in any configuration file", section)
			}
			fmt.Println(v.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&section, "section", "wpcore.settings", "configuration section name to resolve")
	return cmd
}

func newRunCmd(appName *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Push a handful of demo events through the dispatcher and print the resulting metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), *appName)
		},
	}
	return cmd
}

func runDemo(ctx context.Context, appName string) error {
	store := conf.NewStore(conf.BaseDirs{AppName: appName}, appName+".conf")
	fallbackRules, _ := wpjson.Parse(`[
		{ matches = [ { node.name = "~sink-*" } ]
		  actions = { update-props = { priority = "10" } } }
	]`)

	// The demo graph's trivial type taxonomy: sinks and sources are
	// nodes, so an interest in "node" matches both.
	interest.DefaultHierarchy.Register("sink-node", "node")
	interest.DefaultHierarchy.Register("source-node", "node")

	md := metadata.NewLocal()
	reg := hook.NewRegistry()

	// Interests here are matched against the event bag (event.type,
	// inherited subject properties), not the raw subject bag — this
	// is the only hook type that actually reads event.type, so the
	// interest below restricts to "object-added" events whose subject
	// is a node (or a registered descendant of node).
	onlyObjectAdded := interest.New("node")
	_ = onlyObjectAdded.AddConstraint(interest.Constraint{
		Domain: interest.DomainGraphProperty,
		Key:    "event.type",
		Verb:   interest.Equals,
		Value:  "object-added",
	})

	h := hook.New("apply-rules-on-create", hook.Simple{
		Run: func(ctx context.Context, ev *event.Event) error {
			applied := props.New()
			matched, err := store.ApplyRules("node.rules", ev.Properties(), applied, fallbackRules, nil)
			if err != nil {
				return err
			}
			if matched {
				if v, ok := applied.Get("priority"); ok {
					return md.Set(ctx, "1", "priority", "string", v)
				}
			}
			return nil
		},
	})
	h.Interests = []*interest.Interest{onlyObjectAdded}
	if err := reg.Register(h); err != nil {
		return err
	}

	d := event.NewDispatcher(reg)
	subjectProps := props.NewFromList("node.name", "sink-usb-1", "media.class", "Audio/Sink")
	if _, err := d.PushEvent("object-added", 0, nil, event.Subject{}, event.Subject{Type: "sink-node", GraphProps: subjectProps}); err != nil {
		return err
	}
	for d.DispatchOne(ctx) {
	}

	v, _, ok, err := md.Find(ctx, "1", "priority")
	if err != nil {
		return err
	}
	if ok {
		fmt.Printf("node priority = %s\n", v)
	} else {
		fmt.Println("no rule matched the demo event")
	}
	return nil
}
