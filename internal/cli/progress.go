package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"),
	Success: lipgloss.Color("#00D787"),
	Error:   lipgloss.Color("#FF005F"),
	Hint:    lipgloss.Color("#6C6C6C"),
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the polled job state
type jobUpdateMsg struct {
	job *domain.ProgressState
	err error
}

// progressModel is the bubbletea model for an indexing job.
type progressModel struct {
	indexing driving.IndexingService
	jobID    string
	job      *domain.ProgressState
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newProgressModel(indexing driving.IndexingService, jobID string) progressModel {
	return progressModel{
		indexing: indexing,
		jobID:    jobID,
		progress: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme: defaultTheme,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchJob(),
		m.progress.Init(),
	)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchJob()

	case jobUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch job status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.job = msg.job
		if m.job.Status.IsTerminal() {
			m.done = true
			m.err = jobError(m.job)
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}
	if m.job == nil {
		return "Loading job status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))
	bar := m.progress.ViewAs(m.job.Percent() / 100)
	counts := fmt.Sprintf("%d/%d units", m.job.IndexedCount, m.job.TotalCount)
	if m.job.EstimatedCompletion != "" {
		counts += "  eta " + m.job.EstimatedCompletion
	}
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel the job")

	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render(fmt.Sprintf("\nCancelling job %s.\n", m.jobID))
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render("✓ Completed") + "\n\n" + summary(m.job)
}

// fetchJob runs in a command so Update never blocks.
func (m progressModel) fetchJob() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.indexing.JobStatus(ctx, m.jobID)
		return jobUpdateMsg{job: job, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runJobProgress shows the interactive progress UI until the job ends.
// Quitting the UI cancels the job, since its workers live in this process.
func runJobProgress(ctx context.Context, indexing driving.IndexingService, jobID string) error {
	p := tea.NewProgram(newProgressModel(indexing, jobID), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := final.(progressModel)
	if !ok {
		return nil
	}
	if m.quitting {
		if err := indexing.CancelJob(context.Background(), jobID); err != nil {
			return fmt.Errorf("cancel job: %w", err)
		}
		return fmt.Errorf("job %s cancelled", jobID)
	}
	return m.err
}

// waitForJob polls the job and writes one line per change; used when
// stdout is not a terminal.
func waitForJob(ctx context.Context, w io.Writer, indexing driving.IndexingService, jobID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		job, err := indexing.JobStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to fetch job status: %w", err)
		}

		line := fmt.Sprintf("[%s] %.0f%% %d/%d units", job.Status, job.Percent(), job.IndexedCount, job.TotalCount)
		if line != last {
			fmt.Fprintln(w, line)
			last = line
		}
		if job.Status.IsTerminal() {
			if err := jobError(job); err != nil {
				return err
			}
			fmt.Fprint(w, summary(job))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func jobError(job *domain.ProgressState) error {
	switch job.Status {
	case domain.JobStatusFailed:
		if job.Error != "" {
			return fmt.Errorf("%s", job.Error)
		}
		return fmt.Errorf("job failed with unknown error")
	case domain.JobStatusCancelled:
		return fmt.Errorf("job %s cancelled", job.JobID)
	}
	return nil
}

func summary(job *domain.ProgressState) string {
	if job == nil {
		return ""
	}
	out := fmt.Sprintf("  Units indexed:  %d\n", job.IndexedCount)
	out += fmt.Sprintf("  Units skipped:  %d\n", job.SkippedCount)
	out += fmt.Sprintf("  Elapsed:        %s\n", job.Elapsed)
	return out
}
