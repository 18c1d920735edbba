// Package setup is the first-run gateway configuration flow: a form for
// the gateway URL and bearer token, a connection test, and persistence
// of the result (token to the system keyring, URL to the config file).
package setup

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Somdatta-dev/ace-mail/internal/credential"
	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/theme"
)

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeForm           Mode = iota // Gateway form
	ModeValidating                 // Testing connection
	ModeValidateResult             // Show validation result
)

// DoneMsg signals that setup finished and the saved configuration
// should be used.
type DoneMsg struct {
	Config *model.AppConfig
}

// CancelMsg signals that the user abandoned setup.
type CancelMsg struct{}

// validateResultMsg carries the result of a connection test.
type validateResultMsg struct {
	folders []string
	err     error
}

// Model is the Bubble Tea model for the setup flow.
type Model struct {
	mode   Mode
	config *model.AppConfig

	form *huh.Form

	// Form field values (huh binds to these)
	formBaseURL string
	formToken   string

	validError error
	folders    []string
	spinner    spinner.Model

	width, height int
}

// New creates a setup model pre-filled from the current configuration.
func New(cfg *model.AppConfig, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		mode:        ModeForm,
		config:      cfg,
		formBaseURL: cfg.Gateway.BaseURL,
		spinner:     sp,
		width:       width,
		height:      height,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway URL").
				Description("Root URL of the mail gateway").
				Placeholder("http://localhost:5000").
				Value(&m.formBaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Bearer Token").
				Description("Gateway API token, stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&m.formToken).
				Validate(validateRequired("Token")),
		),
	).WithWidth(m.formWidth())
}

// Update handles messages for the setup view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case validateResultMsg:
		m.validError = msg.err
		m.folders = msg.folders
		m.mode = ModeValidateResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			if msg.String() == "esc" {
				m.mode = ModeForm
				m.form = m.buildForm()
				return m, m.form.Init()
			}
			return m, nil
		case ModeValidateResult:
			return m.handleResultKeys(msg)
		}
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

// updateForm advances the huh form and reacts to completion.
func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.mode = ModeValidating
		return m, tea.Batch(
			m.spinner.Tick,
			m.testConnection(m.formBaseURL, m.formToken),
		)
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// handleResultKeys processes keys on the validation result screen.
func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.validError != nil {
		switch msg.String() {
		case "r":
			m.mode = ModeValidating
			return m, tea.Batch(
				m.spinner.Tick,
				m.testConnection(m.formBaseURL, m.formToken),
			)
		case "enter", "esc":
			m.mode = ModeForm
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		return m, m.save()
	case "esc":
		m.mode = ModeForm
		m.form = m.buildForm()
		return m, m.form.Init()
	}
	return m, nil
}

// testConnection probes the gateway folder listing with the entered
// credentials.
func (m Model) testConnection(baseURL, token string) tea.Cmd {
	return func() tea.Msg {
		client := gateway.NewClient(
			baseURL,
			func() (string, error) { return token, nil },
			10*time.Second,
		)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		folders, err := client.ListFolders(ctx)
		return validateResultMsg{folders: folders, err: err}
	}
}

// save persists the token to the keyring and the URL to the config file.
func (m Model) save() tea.Cmd {
	cfg := *m.config
	cfg.Gateway.BaseURL = strings.TrimRight(m.formBaseURL, "/")
	token := m.formToken

	return func() tea.Msg {
		if err := credential.Set(credential.TokenKey, token); err != nil {
			return validateResultMsg{err: fmt.Errorf("storing token: %w", err)}
		}
		if err := model.SaveConfig(model.DefaultConfigPath(), &cfg); err != nil {
			return validateResultMsg{err: fmt.Errorf("saving config: %w", err)}
		}
		return DoneMsg{Config: &cfg}
	}
}

// View renders the setup view based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		return lipgloss.NewStyle().
			Padding(1, 2).
			Width(m.width).
			Height(m.height).
			Render(m.form.View())
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewResult()
	default:
		return ""
	}
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Testing gateway connection...\n\nPress esc to cancel.",
		m.spinner.View(),
	)
	return style.Render(content)
}

func (m Model) viewResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	var content string
	if m.validError != nil {
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		content = errStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("r retry | enter/esc edit settings")
	} else {
		okStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorGreen)
		content = okStyle.Render("Connection successful") + "\n\n" +
			fmt.Sprintf("Folders: %s", strings.Join(m.folders, ", ")) + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("enter save | esc edit settings")
	}
	return style.Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., http://localhost:5000)")
	}
	return nil
}
