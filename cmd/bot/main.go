package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/domain"
	"github.com/majstudio/community-bot/internal/persistence"
	"github.com/majstudio/community-bot/internal/repository"
	"github.com/majstudio/community-bot/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string
	root := &cobra.Command{
		Use:   "bot",
		Short: "Maj Studio community bot",
		Long: `Runs the community bot: tickets with guided application forms, temporary
voice rooms, order lookups and an audited action log.

Without a subcommand the bot starts and stays connected until interrupted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(contextOf(cmd), dataDir)
		},
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides DATA_DIR)")
	root.AddCommand(runCmd(&dataDir), logsCmd(&dataDir), ticketsCmd(&dataDir))
	return root
}

func runCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the chat platform and serve events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(contextOf(cmd), *dataDir)
		},
	}
}

func logsCmd(dataDir *string) *cobra.Command {
	var count int
	var action string
	var archived bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the newest action log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if archived {
				return showArchive(contextOf(cmd), cmd.OutOrStdout(), action, count)
			}
			dir, err := resolveDataDir(*dataDir)
			if err != nil {
				return err
			}
			entries := repository.NewActionLogRepository(dir, nil).Recent(contextOf(cmd), domain.MaxLogEntries)
			renderLogs(cmd.OutOrStdout(), filterLogs(entries, action, count))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of entries")
	cmd.Flags().StringVar(&action, "action", "", "only show this action, e.g. TICKET_CREATED")
	cmd.Flags().BoolVar(&archived, "archive", false, "read the Postgres archive instead of the capped JSON log")
	return cmd
}

func showArchive(ctx context.Context, w io.Writer, action string, count int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, zap.NewNop())
	if err != nil {
		return err
	}
	defer pg.Close()
	if !pg.Enabled() {
		return errors.New("POSTGRES_DSN is not set; the archive is disabled")
	}

	archive := service.NewArchiveService(nil, repository.NewActionArchiveRepository(pg.PoolHandle()), nil)
	entries, err := archive.Recent(ctx, strings.ToUpper(action), count)
	if err != nil {
		return err
	}
	total, err := archive.Count(ctx)
	if err != nil {
		return err
	}
	renderLogs(w, entries)
	fmt.Fprintf(w, "%d of %d archived entries\n", len(entries), total)
	return nil
}

func ticketsCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tickets",
		Short: "List open tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDataDir(*dataDir)
			if err != nil {
				return err
			}
			open := service.OpenTickets(repository.NewTicketRepository(dir, nil).Load(contextOf(cmd)))
			renderTickets(cmd.OutOrStdout(), open)
			return nil
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func resolveDataDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Storage.DataDir, nil
}

func filterLogs(entries []domain.LogEntry, action string, count int) []domain.LogEntry {
	out := make([]domain.LogEntry, 0, len(entries))
	for _, e := range entries {
		if action != "" && !strings.EqualFold(e.Action, action) {
			continue
		}
		out = append(out, e)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out
}

func renderLogs(w io.Writer, entries []domain.LogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No logs found.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Time", "Action", "User", "Channel"})
	for _, e := range entries {
		user := e.Details.String("userTag")
		if user == "" {
			user = e.Details.String("userId")
		}
		channel := e.Details.String("channelName")
		if channel == "" {
			channel = e.Details.String("channelId")
		}
		tw.AppendRow(table.Row{e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.Action, user, channel})
	}
	tw.Render()
}

func renderTickets(w io.Writer, tickets []domain.Ticket) {
	if len(tickets) == 0 {
		fmt.Fprintln(w, "No open tickets found.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Channel", "Type", "User", "Step", "Created"})
	for _, t := range tickets {
		channel := t.ChannelName
		if channel == "" {
			channel = t.ChannelID
		}
		tw.AppendRow(table.Row{channel, t.Type.Title(), t.UserTag, t.CurrentStep, t.CreatedAt.UTC().Format("2006-01-02 15:04")})
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", len(tickets)})
	tw.Render()
}
