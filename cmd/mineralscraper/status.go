package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"mineralscraper/pkg/checkpoint"
	"mineralscraper/pkg/storage"
	"mineralscraper/pkg/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [mineral...]",
	Short: "Show what has been collected so far",
	Long: `Print the totals of every mineral under the data directory, read from the
summary and progress files the last run left behind.`,
	Example: `  mineralscraper status
  mineralscraper status quartz --data-dir ./out`,
	RunE: runStatus,
}

var statusDataDir string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusDataDir, "data-dir", "o", "", "data directory to inspect (default from config)")
}

// mineralStatus is one row of the status table
type mineralStatus struct {
	Mineral   string
	Posts     int
	Comments  int
	Processed int
	LastRun   string
	HasRun    bool
}

func runStatus(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("data-dir") {
		flags["data-dir"] = statusDataDir
	}
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := initLogging(cmd, cfg, false)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if _, err := os.Stat(cfg.Output.DataDir); os.IsNotExist(err) {
		ui.PrintWarning("No data yet", cfg.Output.DataDir)
		return nil
	}

	store, err := storage.NewManager(cfg.Output.DataDir)
	if err != nil {
		return err
	}
	progress, err := checkpoint.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	defer progress.Close()

	minerals := args
	if len(minerals) == 0 {
		if minerals, err = store.Minerals(); err != nil {
			return err
		}
	}
	if len(minerals) == 0 {
		ui.PrintWarning("No minerals collected yet", cfg.Output.DataDir)
		return nil
	}

	rows, err := collectStatus(cmd.Context(), store, progress, minerals)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(rows))
	return nil
}

// collectStatus reads the summary and progress of each mineral. A mineral
// that never finished a run reports its processed count only.
func collectStatus(ctx context.Context, store *storage.Manager, progress checkpoint.Store, minerals []string) ([]mineralStatus, error) {
	rows := make([]mineralStatus, 0, len(minerals))
	for _, mineral := range minerals {
		row := mineralStatus{Mineral: mineral}

		summary, err := store.ReadSummary(mineral)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mineral, err)
		}
		if summary != nil {
			row.HasRun = true
			row.Posts = summary.TotalPosts
			row.Comments = summary.TotalComments
			row.LastRun = summary.ExtractionDate.Local().Format("2006-01-02 15:04")
		}

		p, err := progress.Load(ctx, mineral)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mineral, err)
		}
		row.Processed = p.Count()

		rows = append(rows, row)
	}
	return rows, nil
}

func renderStatus(rows []mineralStatus) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("MINERAL", "POSTS", "COMMENTS", "PROCESSED", "LAST RUN").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		posts, comments, lastRun := "-", "-", "never"
		if r.HasRun {
			posts = strconv.Itoa(r.Posts)
			comments = strconv.Itoa(r.Comments)
			lastRun = r.LastRun
		}
		t.Row(r.Mineral, posts, comments, strconv.Itoa(r.Processed), lastRun)
	}
	return t.Render()
}
