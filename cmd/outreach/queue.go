package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/outreach/internal/quota"
	"github.com/zulandar/outreach/internal/store"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage tenant contact queues",
	}

	cmd.AddCommand(newQueueAddCmd())
	cmd.AddCommand(newQueueListCmd())
	return cmd
}

func newQueueAddCmd() *cobra.Command {
	var (
		configPath string
		name       string
		phone      string
		niche      string
		csvPath    string
	)

	cmd := &cobra.Command{
		Use:   "add <slug>",
		Short: "Add contacts to a tenant's queue",
		Long: `Adds one contact (--name, --phone, --niche) or a CSV file of contacts
(--csv, columns: name,phone[,niche]; a header row is skipped) to the queue.
Phones already queued for the tenant are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var contacts []store.Contact
			if csvPath != "" {
				f, err := os.Open(csvPath)
				if err != nil {
					return fmt.Errorf("open csv: %w", err)
				}
				defer f.Close()
				contacts, err = readContactsCSV(f)
				if err != nil {
					return err
				}
			}
			if phone != "" {
				contacts = append(contacts, store.Contact{Name: name, Phone: phone, Niche: niche})
			}
			if len(contacts) == 0 {
				return errors.New("nothing to add: pass --phone or --csv")
			}
			return runQueueAdd(cmd, configPath, args[0], contacts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Outreach config file")
	cmd.Flags().StringVar(&name, "name", "", "contact name")
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone number")
	cmd.Flags().StringVar(&niche, "niche", "", "contact niche (optional)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file of contacts")
	return cmd
}

func runQueueAdd(cmd *cobra.Command, configPath, slug string, contacts []store.Contact) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	st := store.New(gormDB)
	if _, err := st.Settings(cmd.Context(), slug); err != nil {
		return err
	}
	added, err := st.Enqueue(cmd.Context(), slug, contacts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Queued %d of %d contacts for %s\n", added, len(contacts), slug)
	return nil
}

// readContactsCSV parses name,phone[,niche] rows. A first row whose phone
// column reads "phone" is treated as a header.
func readContactsCSV(r io.Reader) ([]store.Contact, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []store.Contact
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("csv line %d: want name,phone[,niche], got %d fields", line, len(rec))
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[1]), "phone") {
			continue
		}
		c := store.Contact{Name: rec[0], Phone: rec[1]}
		if len(rec) > 2 {
			c.Niche = rec[2]
		}
		out = append(out, c)
	}
}

func newQueueListCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list <slug>",
		Short: "List a tenant's queued contacts in send order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueList(cmd, configPath, args[0], limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Outreach config file")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum contacts to show")
	return cmd
}

func runQueueList(cmd *cobra.Command, configPath, slug string, limit int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	st := store.New(gormDB)
	q, err := quota.NewTracker(st, cfg.Scheduler.DefaultDailyLimit).Check(cmd.Context(), slug, time.Now())
	if err != nil {
		return err
	}
	total, err := st.QueueSize(cmd.Context(), slug)
	if err != nil {
		return err
	}
	items, err := st.ListQueue(cmd.Context(), slug, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d contacts queued for %s\n", total, slug)
	fmt.Fprintf(out, "Today: %d of %d sent, %d remaining\n", q.SentToday, q.Cap, q.Remaining)
	if len(items) == 0 {
		return nil
	}
	fmt.Fprintf(out, "%-24s %-16s %s\n", "NAME", "PHONE", "NICHE")
	for _, it := range items {
		niche := ""
		if it.Niche != nil {
			niche = *it.Niche
		}
		fmt.Fprintf(out, "%-24s %-16s %s\n", truncate(it.Name, 24), it.Phone, niche)
	}
	return nil
}
