package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dlock-service/pkg/client"
)

func newAcquireCmd(c *cli) *cobra.Command {
	var (
		holder string
		wait   time.Duration
		lease  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "acquire NAME",
		Short: "Acquire a lock",
		Long:  "Acquire NAME for a holder. Without --holder a fresh holder id is generated and printed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if holder == "" {
				holder = uuid.NewString()
			}

			lock, err := c.api.Acquire(cmd.Context(), args[0], holder, wait, lease)
			if err != nil {
				return err
			}
			printLock(cmd.OutOrStdout(), lock)

			return nil
		},
	}

	cmd.Flags().StringVar(&holder, "holder", "", "holder id")
	cmd.Flags().DurationVar(&wait, "wait", 0, "how long to wait for a contended lock")
	cmd.Flags().DurationVar(&lease, "lease", 30*time.Second, "lease length")

	return cmd
}

func newReleaseCmd(c *cli) *cobra.Command {
	var holder string

	cmd := &cobra.Command{
		Use:   "release NAME",
		Short: "Release one hold of a lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api.Release(cmd.Context(), args[0], holder); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s released by %s\n", args[0], holder)

			return nil
		},
	}

	cmd.Flags().StringVar(&holder, "holder", "", "holder id")
	_ = cmd.MarkFlagRequired("holder")

	return cmd
}

func newRenewCmd(c *cli) *cobra.Command {
	var (
		holder string
		lease  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "renew NAME",
		Short: "Reset the lease of a held lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lock, err := c.api.Renew(cmd.Context(), args[0], holder, lease)
			if err != nil {
				return err
			}
			printLock(cmd.OutOrStdout(), lock)

			return nil
		},
	}

	cmd.Flags().StringVar(&holder, "holder", "", "holder id")
	cmd.Flags().DurationVar(&lease, "lease", 30*time.Second, "new lease length")
	_ = cmd.MarkFlagRequired("holder")

	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status NAME",
		Short: "Show who holds a lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lock, err := c.api.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printLock(cmd.OutOrStdout(), lock)

			return nil
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List held locks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			locks, err := c.api.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tHOLDER\tCOUNT\tTTL")
			for i := range locks {
				l := &locks[i]
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", l.Name, l.Holder, l.Count, l.TTL())
			}

			return w.Flush()
		},
	}
}

func newEventsCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events NAME",
		Short: "Show the audit history of a lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := c.api.Events(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tHOLDER\tCOUNT")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", e.CreatedAt.Format(time.RFC3339), e.Type, e.Holder, e.Count)
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events (server default when 0)")

	return cmd
}

func printLock(w io.Writer, lock *client.Lock) {
	fmt.Fprintf(w, "name:    %s\n", lock.Name)
	fmt.Fprintf(w, "holder:  %s\n", lock.Holder)
	fmt.Fprintf(w, "count:   %d\n", lock.Count)
	fmt.Fprintf(w, "expires: %s (in %s)\n", lock.ExpireAt.Format(time.RFC3339), lock.TTL())
}
