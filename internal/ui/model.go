package ui

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller 是界面对 run 的全部控制能力（*run.Run 满足该接口）。
type Controller interface {
	Pause() bool
	Resume() bool
	TogglePause() domain.RunState
	Cancel() bool
}

const defaultMaxLines = 5000

// 标题、副标题、状态栏、提示各占一行。
const chromeLines = 4

// Options 描述界面要展示的 run。
type Options struct {
	Mode   domain.Mode
	Source string
	Target string
	Filter string

	// MaxLines 限制日志面板保留的行数（最早的行被丢弃）；0 表示默认值。
	MaxLines int
}

// Model 是进度界面的根模型。
type Model struct {
	opts Options
	ctrl Controller

	spinner  spinner.Model
	viewport viewport.Model

	lines    []string
	counters domain.Counters
	models   []string

	state      domain.RunState
	cancelling bool
	confirm    *ConfirmRequestMsg
	report     *domain.RunReport

	width  int
	height int
	ready  bool
}

func New(opts Options) Model {
	if opts.MaxLines <= 0 {
		opts.MaxLines = defaultMaxLines
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorSuccess)

	return Model{
		opts:     opts,
		spinner:  s,
		viewport: viewport.New(80, 20),
		state:    domain.StateRunning,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Report 返回 run 的最终报告（run 尚未结束时返回 false）。
func (m Model) Report() (domain.RunReport, bool) {
	if m.report == nil {
		return domain.RunReport{}, false
	}
	return *m.report, true
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case AttachMsg:
		m.ctrl = msg.Ctrl
		return m, nil

	case StartedMsg:
		m.state = msg.Session.State
		return m, nil

	case EventMsg:
		m.applyEvent(msg.Event)
		return m, nil

	case ConfirmRequestMsg:
		req := msg
		m.confirm = &req
		m.resize()
		return m, nil

	case FinishedMsg:
		rep := msg.Report
		m.report = &rep
		m.counters = rep.Summary
		m.cancelling = false
		m.state = finalState(rep.Outcome)
		if m.confirm != nil {
			m.answer(false)
		}
		return m, nil

	case spinner.TickMsg:
		if m.report != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleKeyMsg processes keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.report != nil {
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.confirm != nil {
		switch {
		case key.Matches(msg, keys.Confirm):
			m.answer(true)
		case key.Matches(msg, keys.Decline):
			m.answer(false)
		case key.Matches(msg, keys.Cancel):
			m.answer(false)
			m.cancel()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Cancel):
		m.cancel()
		return m, nil

	case key.Matches(msg, keys.Pause):
		if m.ctrl != nil && m.ctrl.Pause() {
			m.state = domain.StatePaused
		}
		return m, nil

	case key.Matches(msg, keys.Resume):
		if m.ctrl != nil && m.ctrl.Resume() {
			m.state = domain.StateRunning
			return m, m.spinner.Tick
		}
		return m, nil

	case key.Matches(msg, keys.Toggle):
		if m.ctrl == nil {
			return m, nil
		}
		m.state = m.ctrl.TogglePause()
		if m.state == domain.StateRunning {
			return m, m.spinner.Tick
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) cancel() {
	if m.ctrl != nil && m.ctrl.Cancel() {
		m.cancelling = true
	}
}

func (m *Model) answer(ok bool) {
	m.confirm.Reply <- ok
	m.confirm = nil
	m.resize()
}

func (m *Model) applyEvent(ev domain.Event) {
	m.counters = ev.Counters

	switch ev.Kind {
	case domain.EventModelDiscovered:
		m.models = append(m.models, ev.Model)
	case domain.EventPaused:
		m.state = domain.StatePaused
	case domain.EventResumed:
		m.state = domain.StateRunning
	case domain.EventAborted:
		m.state = domain.StateCancelled
	}

	m.lines = append(m.lines, renderEvent(ev))
	if over := len(m.lines) - m.opts.MaxLines; over > 0 {
		m.lines = append(m.lines[:0:0], m.lines[over:]...)
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// renderEvent 按 tag 着色；带型号的分类事件把型号单独加粗。
func renderEvent(ev domain.Event) string {
	style := TagStyle(ev.Tag)
	if ev.Kind == domain.EventFileClassified && ev.Model != "" {
		return style.Render(ev.RelPath+" - ") + TagStyle(domain.TagModel).Render(ev.Model)
	}
	return style.Render(ev.Message)
}

func (m *Model) resize() {
	if !m.ready {
		return
	}
	h := m.height - chromeLines
	if m.confirm != nil {
		h -= lipgloss.Height(m.promptView())
	}
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(m.subtitle()))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.confirm != nil {
		b.WriteString(m.promptView())
		b.WriteString("\n")
	}
	b.WriteString(statusBarStyle.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(m.hints()))
	return b.String()
}

func (m Model) title() string {
	action := "分析"
	if m.opts.Mode == domain.ModeRelocate {
		action = "移动"
	}
	return fmt.Sprintf("camsort · %s · 相机：%s", action, m.opts.Filter)
}

func (m Model) subtitle() string {
	return fmt.Sprintf("源：%s  目标：%s", m.opts.Source, m.opts.Target)
}

func (m Model) promptView() string {
	if m.confirm == nil {
		return ""
	}
	return promptStyle.Render(fmt.Sprintf("确认移动相机 %q 的照片？\n从：%s\n到：%s\n(y 确认 / n 取消)",
		m.confirm.Plan.CameraName, m.confirm.Source, m.confirm.Plan.ResolvedTargetRoot))
}

func (m Model) statusLine() string {
	c := m.counters
	counts := fmt.Sprintf("扫描 %d  匹配 %d  移动 %d  错误 %d  型号 %d", c.Scanned, c.Matched, c.Moved, c.Errors, len(m.models))

	var state string
	switch {
	case m.report != nil:
		state = "结束（" + m.report.Outcome + "）"
	case m.cancelling:
		state = m.spinner.View() + " 取消中"
	case m.state == domain.StatePaused:
		state = "⏸ 已暂停"
	default:
		state = m.spinner.View() + " 运行中"
	}
	return state + "  " + counts
}

func (m Model) hints() string {
	switch {
	case m.report != nil:
		return "q:退出  ↑/↓:滚动"
	case m.confirm != nil:
		return "y:确认  n:取消"
	default:
		return "p:暂停  r:继续  space:切换  c:取消  ↑/↓:滚动"
	}
}

func finalState(outcome string) domain.RunState {
	switch outcome {
	case domain.OutcomeCancelled, domain.OutcomeDeclined:
		return domain.StateCancelled
	default:
		return domain.StateCompleted
	}
}
