package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tallyhq/tally/internal/app"
	"github.com/tallyhq/tally/internal/database"
	"github.com/tallyhq/tally/internal/telemetry"
	"github.com/tallyhq/tally/pkg/insights"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/report"
	"github.com/tallyhq/tally/pkg/user"
)

const (
	chartHeight   = 12
	minChartWidth = 20
	otherLabel    = "Other"
)

var (
	reportUser  string
	reportDate  string
	reportDays  int
	reportWidth int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print reports in the terminal",
}

var weeklyReportCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Chart tracked hours per day",
	Long: `Chart tracked hours per day, stacked by project, for the days ending on --date.

Examples:
  tally report weekly --user 4f0c...            # last 7 days up to today
  tally report weekly --user 4f0c... --date 2025-03-12 --days 14`,
	Args: cobra.NoArgs,
	RunE: runWeeklyReport,
}

func init() {
	weeklyReportCmd.Flags().StringVar(&reportUser, "user", "", "uid of the user to report on")
	weeklyReportCmd.Flags().StringVar(&reportDate, "date", "", "last day of the report (YYYY-MM-DD or RFC3339), defaults to today")
	weeklyReportCmd.Flags().IntVar(&reportDays, "days", report.DefaultDays, "number of days to chart")
	weeklyReportCmd.Flags().IntVar(&reportWidth, "width", 72, "chart width in columns")
	_ = weeklyReportCmd.MarkFlagRequired("user")

	reportCmd.AddCommand(weeklyReportCmd)
}

func runWeeklyReport(cmd *cobra.Command, args []string) error {
	if reportDays < 1 || reportDays > 366 {
		return fmt.Errorf("--days must be between 1 and 366, got %d", reportDays)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := app.BuildDependencies(app.NewRepositories(db), cfg, insights.DisabledGenerator{}, telemetry.NewNoOpRecorder())
	defer deps.Close(ctx)

	u, err := deps.UserService.GetUserByUid(ctx, reportUser)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", reportUser, err)
	}
	ctx = user.WithUser(ctx, u)

	date, err := parseReportDate(reportDate, u.Settings.Location())
	if err != nil {
		return err
	}

	dashboard, err := deps.ReportService.GetDashboard(ctx, date, reportDays)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderWeekly(dashboard, reportWidth))
	return nil
}

// parseReportDate accepts a calendar date in loc or a full RFC3339 timestamp. Empty means now.
func parseReportDate(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if day, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD or RFC3339", value)
	}
	return ts, nil
}

func renderWeekly(dashboard report.Dashboard, width int) string {
	if width < minChartWidth {
		width = minChartWidth
	}
	projects := project.NewLookup(dashboard.Projects)

	bars := make([]barchart.BarData, 0, len(dashboard.Week))
	for _, day := range dashboard.Week {
		var values []barchart.BarValue
		attributed := 0.0
		for _, ph := range day.Projects {
			p := projects[ph.ProjectId]
			values = append(values, barchart.BarValue{
				Name:  p.Name,
				Value: ph.Hours,
				Style: projectStyle(p.Color),
			})
			attributed += ph.Hours
		}
		// hours of entries whose project is gone
		if rest := day.Hours - attributed; rest > 1e-9 {
			values = append(values, barchart.BarValue{Name: otherLabel, Value: rest, Style: mutedStyle})
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}
		bars = append(bars, barchart.BarData{Label: day.Label, Values: values})
	}

	chart := barchart.New(width, chartHeight)
	chart.PushAll(bars)
	chart.Draw()

	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(dashboard.Week),
		"",
		chart.View(),
		"",
		renderLegend(dashboard),
		"",
		renderDays(dashboard.Week),
		"",
		renderTotals(dashboard.Summary),
	)
}

func renderHeader(week []report.DayBucket) string {
	title := titleStyle.Render("Tracked hours")
	if len(week) == 0 {
		return title
	}
	from, to := week[0].Date, week[len(week)-1].Date
	return title + "  " + mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Format("Jan 02, 2006")))
}

func renderLegend(dashboard report.Dashboard) string {
	seen := make(map[int]bool)
	var items []string
	for _, day := range dashboard.Week {
		for _, ph := range day.Projects {
			seen[ph.ProjectId] = true
		}
	}
	for _, p := range dashboard.Projects {
		if !seen[p.Id] {
			continue
		}
		items = append(items, fmt.Sprintf("%s %s", projectStyle(p.Color).Render("●"), p.Name))
	}
	if len(items) == 0 {
		return mutedStyle.Render("  No time tracked in this period")
	}
	return "  " + strings.Join(items, "  ")
}

func renderDays(week []report.DayBucket) string {
	rows := []string{mutedStyle.Render(fmt.Sprintf("  %-12s %-4s %8s", "Date", "Day", "Hours"))}
	for _, day := range week {
		rows = append(rows, fmt.Sprintf("  %-12s %-4s %8.2f", day.Date.Format(time.DateOnly), day.Label, day.Hours))
	}
	return strings.Join(rows, "\n")
}

func renderTotals(summary report.Summary) string {
	lines := []string{
		fmt.Sprintf("  Total hours     %s", valueStyle.Render(fmt.Sprintf("%.2f", summary.TotalHours))),
		fmt.Sprintf("  Billable hours  %s", valueStyle.Render(fmt.Sprintf("%.2f", summary.BillableHours))),
		fmt.Sprintf("  Earnings        %s", valueStyle.Render(fmt.Sprintf("%.2f", summary.TotalEarnings))),
	}
	if summary.ActiveTimer != nil {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("  Timer running since %s", summary.ActiveTimer.StartTime.Format("15:04"))))
	}
	return strings.Join(lines, "\n")
}
