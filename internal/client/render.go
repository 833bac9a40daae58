package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MKhiriev/go-offline-sync/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Bold(true)
)

const timeLayout = "2006-01-02 15:04:05"

// renderEvent returns the status line for ev. ok is false for events that
// are not shown.
func renderEvent(ev models.Event) (line string, ok bool) {
	switch e := ev.(type) {
	case models.SyncStatusChanged:
		return renderStatus(e.Status), true
	case models.SyncCycleCompleted:
		return titleStyle.Render("sync complete") +
			fmt.Sprintf(": pushed %d, pulled %d, conflicts %d", e.Pushed, e.Pulled, e.Conflicts), true
	case models.RecordRejected:
		return errorStyle.Render("rejected") + fmt.Sprintf(" %s: %s", e.ID, e.Reason), true
	case models.RecordConflicted:
		return errorStyle.Render("conflict") +
			fmt.Sprintf(" %s: deleted remotely, edited here (resolve %s keep|accept)", e.ID, e.ID), true
	case models.RecordChanged:
		return faintStyle.Render("changed " + e.ID), true
	}
	return "", false
}

// renderStatus is the one-line banner for a sync status snapshot.
func renderStatus(s models.SyncStatus) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("sync: " + string(s.Phase)))

	if s.AuthBlocked {
		b.WriteString(errorStyle.Render(" (sign-in required)"))
	}
	if s.LastError != nil {
		b.WriteString(" ")
		b.WriteString(errorStyle.Render(s.LastError.Error()))
	}
	if !s.RetryAt.IsZero() {
		b.WriteString(faintStyle.Render(" retry at " + s.RetryAt.Format(timeLayout)))
	}
	if s.LastCycle != nil && s.Phase == models.PhaseIdle {
		b.WriteString(faintStyle.Render(" last sync " + s.LastCycle.StartedAt.Format(timeLayout)))
	}

	return b.String()
}

func renderReport(r models.CycleReport) string {
	return fmt.Sprintf("%s: pushed %d, rejected %d, pulled %d, conflicts %d in %s",
		titleStyle.Render(string(r.Reason)), r.Pushed, r.Rejected, r.Pulled, r.Conflicts,
		r.Duration.Round(time.Millisecond))
}

// renderRecords lays records out as an id / state / payload table.
func renderRecords(records []models.Record) string {
	if len(records) == 0 {
		return faintStyle.Render("no records")
	}

	idWidth := lipgloss.Width("ID")
	stateWidth := lipgloss.Width("STATE")
	for _, r := range records {
		idWidth = max(idWidth, lipgloss.Width(r.ID))
		stateWidth = max(stateWidth, lipgloss.Width(string(r.SyncState)))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%-*s │ %-*s │ %s", idWidth, "ID", stateWidth, "STATE", "PAYLOAD")))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", idWidth))
	b.WriteString("─┼─")
	b.WriteString(strings.Repeat("─", stateWidth))
	b.WriteString("─┼─")
	b.WriteString(strings.Repeat("─", len("PAYLOAD")))
	for _, r := range records {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%-*s │ %-*s │ %s", idWidth, r.ID, stateWidth, r.SyncState, r.Payload))
	}

	return b.String()
}

func renderRecord(r models.Record) string {
	return fmt.Sprintf("%s %s %s\n%s",
		titleStyle.Render(r.ID),
		r.SyncState,
		faintStyle.Render(time.UnixMilli(r.LastModified).Format(timeLayout)),
		r.Payload)
}
