// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The Nightlamp Authors

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nightlamp/improvd/pkg/improv"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var tuiTimeout int

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive provisioning UI",
	Long: `Provision a device through an interactive terminal UI.

Without --port or --url the UI starts with a serial port picker. Enter the
network name and password, then watch the device associate. Tab switches
between inputs, Enter submits, q or Ctrl+C quits.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().IntVar(&tuiTimeout, "timeout", 30, "Seconds to wait for the device to associate")
}

//////////////////////////////////////////////////////////////
// Stages and messages
//////////////////////////////////////////////////////////////

const (
	stagePickPort = iota
	stageCredentials
	stageProvisioning
	stageDone
)

// Focus states for the credentials form
const (
	focusSSID = iota
	focusPassword
)

type portItem string

func (p portItem) Title() string       { return string(p) }
func (p portItem) Description() string { return "serial port" }
func (p portItem) FilterValue() string { return string(p) }

type connOpenedMsg struct {
	conn     Connection
	connInfo string
	identity []string
}

type connFailedMsg struct{ err error }

type provisionStateMsg improv.State

type provisionDoneMsg struct {
	urls []string
	err  error
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

type provisionModel struct {
	stage int

	// Connection
	conn     Connection
	connInfo string
	identity []string
	client   *improvClient

	// Port picker
	portList list.Model

	// Credentials form
	ssidInput     textinput.Model
	passwordInput textinput.Model
	focusedField  int

	// Provisioning progress
	spin     spinner.Model
	events   chan improv.State
	log      []string
	urls     []string
	finalErr error

	timeout  time.Duration
	width    int
	height   int
	quitting bool
}

var (
	tuiTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	tuiSubtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tuiErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	tuiSuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

func initialProvisionModel(conn Connection, connInfo string, identity []string) provisionModel {
	ssid := textinput.New()
	ssid.Placeholder = "network name"
	ssid.CharLimit = 32
	ssid.Focus()

	password := textinput.New()
	password.Placeholder = "password (empty for open network)"
	password.CharLimit = 64
	password.EchoMode = textinput.EchoPassword

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := provisionModel{
		stage:         stageCredentials,
		conn:          conn,
		connInfo:      connInfo,
		identity:      identity,
		ssidInput:     ssid,
		passwordInput: password,
		spin:          sp,
		events:        make(chan improv.State, 16),
		timeout:       time.Duration(tuiTimeout) * time.Second,
	}
	if conn != nil {
		m.client = newImprovClient(conn)
	}

	if conn == nil {
		m.stage = stagePickPort
		items := []list.Item{}
		if ports, err := serial.GetPortsList(); err == nil {
			for _, p := range ports {
				items = append(items, portItem(p))
			}
		}
		m.portList = list.New(items, list.NewDefaultDelegate(), 40, 14)
		m.portList.Title = "Select a serial port"
	}

	return m
}

func (m provisionModel) Init() tea.Cmd {
	return m.spin.Tick
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// openPortCmd opens the chosen serial port and fetches the device identity.
func openPortCmd(port string, baud int) tea.Cmd {
	return func() tea.Msg {
		conn, err := OpenSerialConnection(port, baud)
		if err != nil {
			return connFailedMsg{err: err}
		}
		client := newImprovClient(conn)
		identity, _ := client.requestDeviceInfo(2 * time.Second)
		return connOpenedMsg{conn: conn, connInfo: fmt.Sprintf("Serial: %s @ %d baud", port, baud), identity: identity}
	}
}

// provisionCmd runs the whole exchange in the background; state changes are
// streamed through the events channel.
func (m *provisionModel) provisionCmd(ssid, password string) tea.Cmd {
	client := m.client
	events := m.events
	timeout := m.timeout
	return func() tea.Msg {
		urls, err := client.provision(ssid, password, timeout, func(ev provisionEvent) {
			if !ev.haveURLs {
				select {
				case events <- ev.state:
				default:
				}
			}
		})
		return provisionDoneMsg{urls: urls, err: err}
	}
}

// waitForStateCmd delivers the next streamed state change.
func (m *provisionModel) waitForStateCmd() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return provisionStateMsg(<-events)
	}
}

//////////////////////////////////////////////////////////////
// Update
//////////////////////////////////////////////////////////////

func (m provisionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.stage == stagePickPort {
			m.portList.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case connOpenedMsg:
		m.conn = msg.conn
		m.connInfo = msg.connInfo
		m.identity = msg.identity
		m.client = newImprovClient(msg.conn)
		m.stage = stageCredentials
		return m, textinput.Blink

	case connFailedMsg:
		m.finalErr = msg.err
		m.stage = stageDone
		return m, nil

	case provisionStateMsg:
		m.log = append(m.log, fmt.Sprintf("Device state: %s", improv.FormatState(improv.State(msg))))
		return m, m.waitForStateCmd()

	case provisionDoneMsg:
		m.urls = msg.urls
		m.finalErr = msg.err
		m.stage = stageDone
		return m, nil
	}

	return m, nil
}

func (m provisionModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "q":
		// q quits everywhere except inside the text inputs.
		if m.stage != stageCredentials {
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.stage {
	case stagePickPort:
		if msg.String() == "enter" {
			if item, ok := m.portList.SelectedItem().(portItem); ok {
				return m, openPortCmd(string(item), baudRate)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.portList, cmd = m.portList.Update(msg)
		return m, cmd

	case stageCredentials:
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			if m.focusedField == focusSSID {
				m.focusedField = focusPassword
				m.ssidInput.Blur()
				return m, m.passwordInput.Focus()
			}
			m.focusedField = focusSSID
			m.passwordInput.Blur()
			return m, m.ssidInput.Focus()

		case "enter":
			if m.focusedField == focusSSID {
				m.focusedField = focusPassword
				m.ssidInput.Blur()
				return m, m.passwordInput.Focus()
			}
			if strings.TrimSpace(m.ssidInput.Value()) == "" {
				m.log = append(m.log, "Network name must not be empty")
				return m, nil
			}
			m.stage = stageProvisioning
			m.log = nil
			return m, tea.Batch(
				m.provisionCmd(m.ssidInput.Value(), m.passwordInput.Value()),
				m.waitForStateCmd(),
				m.spin.Tick,
			)
		}

		var cmd tea.Cmd
		if m.focusedField == focusSSID {
			m.ssidInput, cmd = m.ssidInput.Update(msg)
		} else {
			m.passwordInput, cmd = m.passwordInput.Update(msg)
		}
		return m, cmd

	case stageDone:
		if msg.String() == "r" && m.client != nil {
			// Retry with the same connection.
			m.stage = stageCredentials
			m.finalErr = nil
			m.urls = nil
			m.log = nil
			return m, textinput.Blink
		}
	}

	return m, nil
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m provisionModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render("Improvd - Device Provisioning"))
	b.WriteString("\n")
	if m.connInfo != "" {
		b.WriteString(tuiSubtleStyle.Render(m.connInfo))
		b.WriteString("\n")
	}
	if len(m.identity) >= 4 {
		b.WriteString(tuiSubtleStyle.Render(fmt.Sprintf("Device: %s (%s %s, %s)", m.identity[3], m.identity[0], m.identity[1], m.identity[2])))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.stage {
	case stagePickPort:
		b.WriteString(m.portList.View())
		b.WriteString("\n")
		b.WriteString(tuiSubtleStyle.Render("enter: connect  q: quit"))

	case stageCredentials:
		b.WriteString("Network:  " + m.ssidInput.View() + "\n")
		b.WriteString("Password: " + m.passwordInput.View() + "\n\n")
		for _, line := range m.log {
			b.WriteString(tuiErrorStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString(tuiSubtleStyle.Render("tab: switch field  enter: provision  ctrl+c: quit"))

	case stageProvisioning:
		b.WriteString(fmt.Sprintf("%s Provisioning %q...\n\n", m.spin.View(), m.ssidInput.Value()))
		for _, line := range m.log {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
		b.WriteString(tuiSubtleStyle.Render("q: quit"))

	case stageDone:
		if m.finalErr != nil {
			b.WriteString(tuiErrorStyle.Render(fmt.Sprintf("Provisioning failed: %v", m.finalErr)))
			b.WriteString("\n")
		} else {
			b.WriteString(tuiSuccessStyle.Render("Device provisioned"))
			b.WriteString("\n")
			for _, url := range m.urls {
				if url != "" && url != "http://" {
					b.WriteString("Reachable at: " + url + "\n")
				}
			}
		}
		b.WriteString("\n")
		b.WriteString(tuiSubtleStyle.Render("r: provision again  q: quit"))
	}

	b.WriteString("\n")
	return b.String()
}

//////////////////////////////////////////////////////////////
// Entry point
//////////////////////////////////////////////////////////////

func runTUI(cmd *cobra.Command, args []string) error {
	var conn Connection
	var connInfo string
	var identity []string

	// With an explicit connection target, connect before the UI starts; the
	// port picker only appears when no target was given.
	if portName != "" || wsURL != "" {
		var err error
		conn, connInfo, err = OpenConnection()
		if err != nil {
			return err
		}
		defer conn.Close()
		identity, _ = newImprovClient(conn).requestDeviceInfo(2 * time.Second)
	}

	m := initialProvisionModel(conn, connInfo, identity)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
