package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-sync/internal/session"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage saved sessions",
		Long:  "List, inspect and delete sessions saved with 'vibe-sync sync --save'.",
	}
	cmd.AddCommand(newSessionListCmd(a))
	cmd.AddCommand(newSessionShowCmd(a))
	cmd.AddCommand(newSessionDeleteCmd(a))
	return cmd
}

// withStore runs fn against the configured session store.
func (a *app) withStore(ctx context.Context, fn func(session.Store) error) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	store, closeStore, err := s.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(store)
}

func newSessionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store session.Store) error {
				names, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func newSessionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Describe a saved session",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store session.Store) error {
				snap, err := store.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "ID:\t%s\n", snap.ID)
				fmt.Fprintf(tw, "Created:\t%s\n", snap.CreatedAt.Format(time.RFC3339))
				fmt.Fprintf(tw, "Tracks:\t%d\n", len(snap.Tracks))
				fmt.Fprintf(tw, "Records:\t%d\n", len(snap.Records))
				for _, c := range snap.Chromosomes {
					fmt.Fprintf(tw, "Chromosome:\t%s\t%d\n", c.Name, c.Length)
				}
				for _, g := range snap.Genomes {
					fmt.Fprintf(tw, "Genome:\t%s\t%s\t%s\n", g.Group, g.RawName, g.DisplayName)
				}
				stale := make(map[string]bool)
				for _, path := range snap.Stale() {
					stale[path] = true
				}
				for _, f := range snap.Files {
					state := "ok"
					if stale[f.Path] {
						state = "changed"
					}
					fmt.Fprintf(tw, "File:\t%s\t%s\n", f.Path, state)
				}
				return tw.Flush()
			})
		},
	}
}

func newSessionDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved session",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return a.withStore(cmd.Context(), func(store session.Store) error {
				switch st := store.(type) {
				case *session.SQLiteStore:
					deleted, err := st.Delete(cmd.Context(), name)
					if err != nil {
						return err
					}
					if !deleted {
						return fmt.Errorf("%w: %s", session.ErrNotFound, name)
					}
				case *session.FileStore:
					if _, err := st.Load(cmd.Context(), name); err != nil {
						return err
					}
					st.Clear(name)
				default:
					return fmt.Errorf("session store %T does not support deletion", store)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Deleted session %s\n", name)
				return nil
			})
		},
	}
}
