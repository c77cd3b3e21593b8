package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/scheduler"
)

var validFormats = []string{"text", "json", "yaml"}

type rankOptions struct {
	monthFlags
	Top    int
	Format string
}

// rankEntry is one service of the report, in service order
type rankEntry struct {
	ServiceID  uint                  `json:"service_id" yaml:"service_id"`
	StartsAt   string                `json:"starts_at" yaml:"starts_at"`
	Candidates []scheduler.Candidate `json:"candidates" yaml:"candidates"`
}

func newRankCommand(root *rootOptions) *cobra.Command {
	opts := &rankOptions{}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the candidate ranking of every service without saving anything",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, root, opts)
		},
	}

	opts.register(cmd, false)
	cmd.Flags().IntVar(&opts.Top, "top", scheduler.DefaultTopN, "candidates per service")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "output format (text|json|yaml)")

	return cmd
}

func runRank(cmd *cobra.Command, root *rootOptions, opts *rankOptions) error {
	year, month, err := opts.resolve(root)
	if err != nil {
		return err
	}
	d, err := root.open()
	if err != nil {
		return err
	}

	services, err := d.repo.MonthServices(cmd.Context(), year, month)
	if err != nil {
		return err
	}
	ranking, err := d.engine.Rank(cmd.Context(), year, month, opts.Top)
	if err != nil {
		return err
	}

	return writeRanking(cmd.OutOrStdout(), opts.Format, report(services, ranking))
}

func report(services []models.Service, ranking map[uint][]scheduler.Candidate) []rankEntry {
	entries := make([]rankEntry, 0, len(services))
	for _, svc := range services {
		entries = append(entries, rankEntry{
			ServiceID:  svc.ID,
			StartsAt:   svc.StartsAt.Format("2006-01-02 15:04"),
			Candidates: ranking[svc.ID],
		})
	}
	return entries
}

func writeRanking(w io.Writer, format string, entries []rankEntry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, e := range entries {
		fmt.Fprintf(w, "#%d  %s\n", e.ServiceID, e.StartsAt)
		if len(e.Candidates) == 0 {
			fmt.Fprintln(w, "    -")
			continue
		}
		for i, c := range e.Candidates {
			line := fmt.Sprintf("    %d. %-20s score=%d days=%d", i+1, c.Name, c.Score, c.DaysSinceLast)
			if c.Blocked {
				line += "  [" + c.Reason + "]"
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}
