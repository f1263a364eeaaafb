package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/tui"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Launch the messenger TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// The TUI owns the terminal; notifications render inside it,
			// not on stderr.
			sess, err := buildSession(cfg, nil)
			if err != nil {
				return err
			}
			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}
			defer sess.Close()
			return tui.Run(sess)
		},
	}
}

func newThreadsCmd() *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List conversation threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sess, err := buildSession(cfg, os.Stderr)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
			defer cancel()
			if err := sess.RefreshThreads(ctx); err != nil {
				return err
			}

			status := chat.ThreadStatusActive
			if archived {
				status = chat.ThreadStatusArchived
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COUNTERPART\tUNREAD\tLAST ACTIVITY\tPREVIEW")
			for _, t := range sess.Threads().FilterByStatus(status) {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
					t.CounterpartName, t.UnreadCount,
					t.LastActivity.Local().Format(time.RFC822), t.Preview)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "list archived threads instead of active ones")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream inbound events to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sess, err := buildSession(cfg, os.Stderr)
			if err != nil {
				return err
			}
			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("watching (%s), ctrl-c to stop\n", sess.ConnectionState())
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-sess.Changed():
					for _, t := range sess.Threads().Threads() {
						if t.UnreadCount > 0 {
							fmt.Printf("%s  %s (%d unread): %s\n",
								time.Now().Format("15:04:05"), t.CounterpartName, t.UnreadCount, t.Preview)
						}
					}
				}
			}
		},
	}
}

func newSendCmd() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message to a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sess, err := buildSession(cfg, os.Stderr)
			if err != nil {
				return err
			}
			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
			defer cancel()
			if err := sess.OpenThread(ctx, threadID); err != nil {
				return err
			}
			msg, err := sess.Send(ctx, args[0], chat.KindText, nil)
			if err != nil {
				return err
			}
			fmt.Printf("sent %s\n", msg.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "target thread identifier")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}
