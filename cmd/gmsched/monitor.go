package main

import (
	"fmt"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gmsched/gmsched/internal/sched"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live TUI monitor of scheduler state",
	Long: `Runs a synthetic workload against the scheduler and renders a live view of
task_count/worker_count/parallelism while it executes.`,
	RunE: runMonitor,
}

var (
	monitorProcs int
	monitorTasks int
)

func init() {
	monitorCmd.Flags().IntVar(&monitorProcs, "procs", 4, "parallelism ceiling")
	monitorCmd.Flags().IntVar(&monitorTasks, "tasks", 200, "number of synthetic tasks")
}

type tickMsg time.Time

type monitorModel struct {
	s       *sched.Scheduler
	spawned int
	target  int
	quit    bool
}

func (m monitorModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		}
	case tickMsg:
		for m.spawned < m.target && m.spawned < int(m.s.TaskCount())+8 {
			m.spawned++
			_, _ = m.s.Spawn(func(t *sched.Task) {
				time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			}, 0)
		}
		if m.s.TaskCount() == 0 && m.spawned >= m.target {
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (m monitorModel) View() string {
	body := fmt.Sprintf(
		"%s %d\n%s %d\n%s %d\n%s %d / %d\n\npress q to quit",
		labelStyle.Render("task_count:"), m.s.TaskCount(),
		labelStyle.Render("worker_count:"), m.s.WorkerCount(),
		labelStyle.Render("parallelism:"), m.s.Parallelism(),
		labelStyle.Render("spawned:"), m.spawned, m.target,
	)
	return boxStyle.Render(body)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	s := sched.New(sched.Config{Gomaxprocs: int32(monitorProcs)})
	defer s.Close()

	m := monitorModel{s: s, target: monitorTasks}
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}
