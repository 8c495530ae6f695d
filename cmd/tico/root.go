package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tico/internal/config"
	"tico/internal/store"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "tico",
		Short:         "CRHoy news pipeline CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(&configFlag))
	rootCmd.AddCommand(newGapsCommand(&configFlag))
	rootCmd.AddCommand(newCategoriesCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))

	return rootCmd
}

// withStore loads config, opens the store, and runs fn against it.
func withStore(configPath string, fn func(cfg *config.Config, st *store.Store) error) error {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(cfg, st)
}

func newStatusCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configFlag, func(cfg *config.Config, st *store.Store) error {
				status, err := st.CollectStatus(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Articles", strconv.FormatInt(status.Articles, 10)},
					{"Downloaded", strconv.FormatInt(status.Downloaded, 10)},
					{"Skipped", strconv.FormatInt(status.Skipped, 10)},
					{"Failed", strconv.FormatInt(status.Failed, 10)},
					{"Analyzed", strconv.FormatInt(status.Analyzed, 10)},
					{"Publishable", strconv.FormatInt(status.Publishable, 10)},
					{"Sent", strconv.FormatInt(status.Sent, 10)},
					{"Index days", strconv.FormatInt(status.IndexDays, 10)},
					{"Gap ranges", strconv.FormatInt(status.GapRanges, 10)},
					{"Smart categories", strconv.FormatInt(status.SmartCats, 10)},
					{"Source categories", strconv.FormatInt(status.SourceCats, 10)},
					{"Summary files", strconv.FormatInt(status.SummaryFiles, 10)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Metric", "Value"}, rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newGapsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "gaps",
		Short: "List index gap ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configFlag, func(cfg *config.Config, st *store.Store) error {
				gaps, err := st.Gaps(cmd.Context())
				if err != nil {
					return err
				}
				if len(gaps) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No gaps: index coverage is complete.")
					return nil
				}
				rows := make([][]string, 0, len(gaps))
				for _, gap := range gaps {
					days := len(gap.Days())
					rows = append(rows, []string{
						gap.From.Format("2006-01-02"),
						gap.To.Format("2006-01-02"),
						strconv.Itoa(days),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"From", "To (excl.)", "Days"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newCategoriesCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List smart categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configFlag, func(cfg *config.Config, st *store.Store) error {
				categories, err := st.SmartCategories(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(categories))
				for _, cat := range categories {
					ignore := ""
					if cat.Ignore {
						ignore = "yes"
					}
					rows = append(rows, []string{cat.Category, ignore, cat.Description})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Category", "Ignored", "Description"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
