// Command aaactl is a cobra-based CLI for exercising the state engine
// without standing up the admin HTTP server, adapted from the
// cmd/cli singleton-middleware pattern (cmd/cli/initrep.go) and the
// root-command wiring in cmd/synnergy/main.go.
package main

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"synnergy-aaa/core"
	"synnergy-aaa/pkg/config"
)

var (
	registry     *core.Registry
	registryOnce sync.Once
)

func ensureRegistry(_ *cobra.Command, _ []string) error {
	registryOnce.Do(func() {
		_ = godotenv.Load()
		cfg := config.LoadFromEnv()
		registry = core.New(core.Config{
			ThreadSafe:     cfg.StateEngine.ThreadSafe,
			MaxSessions:    cfg.StateEngine.MaxSessions,
			Timeout:        cfg.StateEngine.Timeout,
			ServerID:       cfg.StateEngine.ServerID,
			ContextID:      cfg.StateEngine.ContextID,
			StateAttribute: cfg.StateEngine.StateAttribute,
		})
	})
	return nil
}

func main() {
	root := &cobra.Command{Use: "aaactl", Short: "inspect and exercise the AAA state engine"}
	root.AddCommand(stateCmd())
	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "state",
		Short:             "state registry operations",
		PersistentPreRunE: ensureRegistry,
	}
	cmd.AddCommand(stateStatsCmd(), stateDemoCmd(), stateLookupCmd())
	return cmd
}

func stateLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <id>",
		Short: "print a diagnostic snapshot of a live entry by numeric id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			snap, ok := registry.LookupByID(id)
			if !ok {
				return fmt.Errorf("no live entry with id %d", id)
			}
			fmt.Printf("id=%d tries=%d seq_start=%d deadline=%s\n",
				snap.ID, snap.Tries, snap.SeqStart, snap.Deadline.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
}

func stateStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "print live/created/timed-out counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Printf("live=%d created=%d timed_out=%d\n",
				registry.CountLive(), registry.CountCreated(), registry.CountTimedOut())
			return nil
		},
	}
}

func stateDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "run a freeze/thaw/discard round-trip against a throwaway request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := core.NewRequest(1)
			req.SessionStateCtx.Append(core.Pair{Name: "Reply-Message", Value: "hello from round 1"})

			result := registry.Freeze(req)
			fmt.Printf("freeze: %s\n", result)
			if result != core.FreezeOK {
				return nil
			}

			round2 := core.NewRequest(2)
			var token []byte
			for _, p := range req.ReplyPairs.Pairs() {
				if p.Name == "State" {
					if b, ok := p.Value.([]byte); ok {
						token = b
					}
				}
			}
			if token == nil {
				return fmt.Errorf("no State attribute after freeze")
			}
			round2.RequestPairs.Append(core.Pair{Name: "State", Value: token})

			thaw := registry.Thaw(round2)
			fmt.Printf("thaw: %s\n", thaw)
			for _, p := range round2.SessionStateCtx.Pairs() {
				fmt.Printf("  restored pair: %s=%v\n", p.Name, p.Value)
			}

			registry.Discard(round2)
			fmt.Println("discard: ok")
			return nil
		},
	}
}
