package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/runningman84/truenas-status/pkg/config"
	"github.com/runningman84/truenas-status/pkg/models"
	"github.com/runningman84/truenas-status/pkg/units"
)

const (
	displayTimeLayout = "2006-01-02 15:04:05"
	barWidth          = 40
)

// Presenter writes a snapshot to an output stream
type Presenter interface {
	Present(w io.Writer, snap *models.Snapshot) error
}

// New returns the presenter for an output format, rich text unless format is json
func New(format string) Presenter {
	if format == config.OutputJSON {
		return &JSONPresenter{}
	}
	return &TextPresenter{}
}

// TextPresenter renders the snapshot as a terminal dashboard
type TextPresenter struct{}

// Present writes the dashboard panels in display order
func (p *TextPresenter) Present(w io.Writer, snap *models.Snapshot) error {
	sections := []string{
		renderBanner(snap),
		renderSystemInfo(snap.SystemInfo),
	}

	if len(snap.Pools) == 0 {
		sections = append(sections, createPanel(panelStyle.BorderForeground(warningColor), "Pools", "💾",
			warningValueStyle.Render("No pool information found or the pools could not be read.")))
	}
	for i := range snap.Pools {
		sections = append(sections, renderPool(&snap.Pools[i]))
	}

	sections = append(sections,
		renderApplications(snap.Applications),
		renderAlerts(snap.Alerts),
	)

	if len(snap.Warnings) > 0 {
		sections = append(sections, renderWarnings(snap.Warnings))
	}

	for _, section := range sections {
		if _, err := fmt.Fprintln(w, section); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func renderBanner(snap *models.Snapshot) string {
	title := bannerStyle.Render("TRUENAS SYSTEM STATUS")
	when := subtitleStyle.Render(snap.Timestamp.Local().Format(displayTimeLayout))
	return lipgloss.JoinVertical(lipgloss.Center, title, when)
}

func renderSystemInfo(info models.SystemInfo) string {
	var lines []string
	if info.Error != "" {
		lines = append(lines, dangerValueStyle.Render(info.Error))
	}

	lines = append(lines,
		labeled("URL", info.TrueNASURL, valueStyle),
		labeled("Auth method", info.AuthMethod, valueStyle),
		labeled("Verify SSL", yesNo(info.VerifySSL), valueStyle),
		labeled("Hostname", orNA(info.Hostname), valueStyle),
		labeled("Version", orNA(info.Version), valueStyle),
		labeled("Uptime", units.FormatUptime(info.UptimeSeconds), valueStyle),
		labeled("Physical memory", formatGB(info.PhysMemGB), valueStyle),
	)
	if info.License != "" {
		lines = append(lines, labeled("License", info.License, valueStyle))
	}
	if info.BuildTime != nil {
		lines = append(lines, labeled("Build time", info.BuildTime.Local().Format(displayTimeLayout), valueStyle))
	}
	if info.SystemTime != nil {
		lines = append(lines, labeled("System time", info.SystemTime.Local().Format(displayTimeLayout), valueStyle))
	}

	return createPanel(panelStyle.BorderForeground(infoColor), "System Information", "🖥", strings.Join(lines, "\n"))
}

func renderPool(pool *models.PoolRecord) string {
	var lines []string

	if pool.HasSpace() {
		lines = append(lines,
			labeled("Total size", units.FormatBytes(pool.SizeBytes), valueStyle),
			labeled("Free space", units.FormatBytes(pool.AvailableBytes), accentValueStyle),
			labeled("Usage", createProgressBar(*pool.UsedPercent, barWidth), utilizationStyle(*pool.UsedPercent)),
		)
	} else {
		lines = append(lines, warningValueStyle.Render("Space statistics not available."))
	}

	errStyle := accentValueStyle
	if pool.HasErrors() {
		errStyle = dangerValueStyle
	}
	lines = append(lines,
		labeled("Read errors", fmt.Sprintf("%d", pool.ReadErrors), errStyle),
		labeled("Write errors", fmt.Sprintf("%d", pool.WriteErrors), errStyle),
		labeled("Checksum errors", fmt.Sprintf("%d", pool.ChecksumErrors), errStyle),
	)

	details := []string{
		labeled("Resilvering", resilverText(pool.Resilvering), resilverStyle(pool.Resilvering)),
		labeled("Fragmentation", units.FormatPercent(pool.FragmentationPercent), valueStyle),
	}
	if pool.Scan.Function != "" {
		details = append(details, labeled("Last scan", fmt.Sprintf("%s %s (%d errors)", pool.Scan.Function, pool.Scan.State, pool.Scan.Errors), valueStyle))
	}
	lines = append(lines, createPanel(subPanelStyle, "Technical details", "", strings.Join(details, "\n")))

	if len(pool.Datasets) > 0 {
		summary := []string{
			labeled("Datasets", fmt.Sprintf("%d", len(pool.Datasets)), valueStyle),
			labeled("Used by datasets", units.FormatBytesValue(float64(datasetUsedBytes(pool.Datasets))), valueStyle),
		}
		lines = append(lines, createPanel(subPanelStyle, "Dataset summary", "", strings.Join(summary, "\n")))
	}

	if len(pool.Disks) > 0 {
		lines = append(lines, createPanel(subPanelStyle, "Physical disks", "", renderDiskTable(pool.Disks)))
	}

	title := fmt.Sprintf("Pool: %s  Status: %s", pool.Name, statusStyle(pool.Status).Render(orNA(pool.Status)))
	return createPanel(panelStyle.BorderForeground(statusStyle(pool.Status).GetForeground()), title, "💾", strings.Join(lines, "\n"))
}

func renderDiskTable(disks []models.DiskRecord) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	t.Headers("DISK", "SMART", "TEMP", "SIZE", "MODEL")
	for _, d := range disks {
		smart := accentValueStyle.Render("OK")
		if !d.SmartPassed {
			smart = dangerValueStyle.Render("FAIL")
		}
		t.Row(d.Name, smart, formatTemperature(d.TemperatureCelsius), units.FormatBytes(d.SizeBytes), orNA(d.Model))
	}
	return t.Render()
}

func renderApplications(apps models.AppSpace) string {
	var value string
	if apps.AvailableSpaceGB != nil {
		value = accentValueStyle.Render(fmt.Sprintf("%.2f GB", *apps.AvailableSpaceGB))
	} else if apps.Error != nil && *apps.Error != "" {
		value = dangerValueStyle.Render(*apps.Error)
	} else {
		value = dangerValueStyle.Render("Not available")
	}
	return createPanel(panelStyle.BorderForeground(infoColor), "Applications", "📦",
		fmt.Sprintf("%s %s", labelStyle.Render("Space for apps:"), value))
}

func renderAlerts(alerts []models.AlertRecord) string {
	var lines []string
	for _, a := range alerts {
		if a.Dismissed {
			continue
		}
		ts := units.NotAvailable
		if a.Timestamp != nil {
			ts = a.Timestamp.Local().Format(displayTimeLayout)
		}
		desc := strings.SplitN(a.Description, "\n", 2)[0]
		lines = append(lines, levelStyle(a.Level).Render(fmt.Sprintf("%s: %s (ID: %s, Time: %s)", orNA(a.Level), desc, a.ID, ts)))
	}

	if len(lines) == 0 {
		return createPanel(panelStyle, "System Alerts", "🔔", accentValueStyle.Render("No active alerts."))
	}
	return createPanel(panelStyle.BorderForeground(warningColor), "Active System Alerts", "🔔", strings.Join(lines, "\n"))
}

func renderWarnings(warnings []string) string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, warningValueStyle.Render("• "+w))
	}
	return createPanel(panelStyle.BorderForeground(warningColor), "Warnings", "⚠", strings.Join(lines, "\n"))
}

// datasetUsedBytes sums the used bytes of all datasets that reported them
func datasetUsedBytes(datasets []models.DatasetRecord) int64 {
	var total int64
	for _, ds := range datasets {
		if ds.UsedBytes != nil {
			total += *ds.UsedBytes
		}
	}
	return total
}

func resilverText(r models.ResilverState) string {
	if r.Active {
		return fmt.Sprintf("Yes (progress: %.2f%%)", r.ProgressPercent)
	}
	return "No"
}

func resilverStyle(r models.ResilverState) lipgloss.Style {
	if r.Active {
		return dangerValueStyle
	}
	return accentValueStyle
}

func formatTemperature(t *float64) string {
	if t == nil {
		return units.NotAvailable
	}
	return fmt.Sprintf("%.0f°C", *t)
}

func formatGB(gb *float64) string {
	if gb == nil {
		return units.NotAvailable
	}
	return fmt.Sprintf("%.2f GB", *gb)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return units.NotAvailable
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
