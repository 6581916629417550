package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apresai/storybook/internal/checkout"
	"github.com/apresai/storybook/internal/intake"
)

// errCancelled is returned when the form is closed without generating.
var errCancelled = errors.New("cancelled")

// menuItem represents a single field in the form.
type menuItem struct {
	label    string
	value    string
	options  []menuOption
	required bool
	editing  bool
	cursor   int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the TUI is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

// tuiModel is the Bubble Tea model for the intake form.
type tuiModel struct {
	items     []menuItem
	cursor    int
	state     menuState
	width     int
	err       error
	confirmed bool
	cancelled bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E07A5F")).
			MarginBottom(1)

	menuLabelStyle = lipgloss.NewStyle().
			Width(18).
			Align(lipgloss.Right).
			MarginRight(2)

	menuValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#81B29A"))

	menuValueDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E07A5F")).
			Bold(true)

	requiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#81B29A")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#E07A5F")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#E07A5F")).
			MarginBottom(1).
			PaddingBottom(0)
)

const (
	idxChildName = iota
	idxChildAge
	idxInterest
	idxObjective
	idxAuthor
	idxEmail
	idxLanguage
	idxPages
	idxTitle
	idxOutDir
	idxGenerate
)

var languageOptions = []menuOption{
	{label: "English", value: "en"},
	{label: "中文 (Chinese)", value: "zh"},
}

func pageOptions() []menuOption {
	opts := []menuOption{{label: fmt.Sprintf("Free sample (%d scenes)", intake.Tiers[0]), value: "0"}}
	for _, n := range []int{4, 8, 12} {
		opts = append(opts, menuOption{
			label: fmt.Sprintf("%d pages, %s (%d scenes)", n, checkout.Price(n), intake.Tiers[n]),
			value: strconv.Itoa(n),
		})
	}
	return opts
}

// buildMenuItems seeds the form from whatever flags were already set.
func buildMenuItems(o *generateOptions) []menuItem {
	in, err := o.intake.resolve()
	if err != nil {
		in = o.intake.in
	}
	lang := in.Lang()
	items := make([]menuItem, idxGenerate+1)
	items[idxChildName] = menuItem{label: "Child's name", value: in.ChildName, required: true}
	items[idxChildAge] = menuItem{label: "Child's age", value: in.ChildAge}
	items[idxInterest] = menuItem{label: "Loves", value: in.ChildInterest}
	items[idxObjective] = menuItem{label: "Lesson", value: in.StoryObjective}
	items[idxAuthor] = menuItem{label: "Your name", value: in.AuthorName}
	items[idxEmail] = menuItem{label: "Send to", value: in.RecipientEmail, required: true}
	items[idxLanguage] = menuItem{label: "Language", value: lang, options: languageOptions}
	items[idxPages] = menuItem{label: "Length", value: strconv.Itoa(in.PageLength), options: pageOptions()}
	items[idxTitle] = menuItem{label: "Title", value: o.title}
	items[idxOutDir] = menuItem{label: "Save in", value: o.outDir}
	items[idxGenerate] = menuItem{label: "Generate"}

	for i := range items {
		for j, opt := range items[i].options {
			if opt.value == items[i].value {
				items[i].cursor = j
			}
		}
	}
	return items
}

func initialTUIModel(o *generateOptions) tuiModel {
	return tuiModel{
		items:  buildMenuItems(o),
		cursor: idxChildName,
		state:  stateMenu,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) isTextInput(idx int) bool {
	return idx != idxGenerate && len(m.items[idx].options) == 0
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateMenu:
			return m.updateMenu(msg)
		case stateEditing:
			return m.updateEditing(msg)
		}
	}
	return m, nil
}

func (m tuiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "enter", " ":
		if m.cursor == idxGenerate {
			if err := m.toIntake().Validate(); err != nil {
				m.err = err
				return m, nil
			}
			m.confirmed = true
			return m, tea.Quit
		}
		m.state = stateEditing
		m.items[m.cursor].editing = true
		m.err = nil
	}
	return m, nil
}

func (m tuiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := m.cursor
	item := &m.items[idx]

	if m.isTextInput(idx) {
		switch msg.String() {
		case "enter":
			item.value = strings.TrimSpace(item.value)
			item.editing = false
			m.state = stateMenu
			// Auto-advance to next item
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "esc":
			item.editing = false
			m.state = stateMenu
		case "backspace":
			if r := []rune(item.value); len(r) > 0 {
				item.value = string(r[:len(r)-1])
			}
		case "ctrl+u":
			item.value = ""
		default:
			// Accept typed characters and pasted text
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
				item.value += string(msg.Runes)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		if item.cursor >= 0 && item.cursor < len(item.options) {
			item.value = item.options[item.cursor].value
		}
		item.editing = false
		m.state = stateMenu
	case "esc":
		item.editing = false
		m.state = stateMenu
	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}
	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

// toIntake reads the form back into an Intake.
func (m tuiModel) toIntake() intake.Intake {
	pages, _ := strconv.Atoi(m.items[idxPages].value)
	return intake.Intake{
		ChildName:      m.items[idxChildName].value,
		ChildAge:       m.items[idxChildAge].value,
		ChildInterest:  m.items[idxInterest].value,
		StoryObjective: m.items[idxObjective].value,
		AuthorName:     m.items[idxAuthor].value,
		RecipientEmail: m.items[idxEmail].value,
		Language:       m.items[idxLanguage].value,
		PageLength:     pages,
	}
}

func (m tuiModel) View() string {
	var b strings.Builder

	header := headerBorder.Render(titleStyle.Render("Storybook"))
	b.WriteString(header)
	b.WriteString("\n")

	for i, item := range m.items {
		isActive := m.cursor == i

		if i == idxGenerate {
			b.WriteString("\n")
			if isActive {
				b.WriteString("  " + buttonStyle.Render(" Generate "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Generate "))
			}
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		label := item.label
		if item.required {
			label = label + requiredStyle.Render("*")
		}
		renderedLabel := menuLabelStyle.Render(label)

		var renderedValue string
		switch {
		case item.editing && m.isTextInput(i):
			renderedValue = menuValueStyle.Render(item.value + "_")
		case item.value == "":
			placeholder := "(not set)"
			switch i {
			case idxTitle:
				placeholder = "(generated from the story)"
			case idxInterest, idxObjective:
				placeholder = "(optional)"
			}
			renderedValue = menuValueDimStyle.Render(placeholder)
		default:
			displayVal := item.value
			for _, opt := range item.options {
				if opt.value == item.value {
					displayVal = opt.label
					break
				}
			}
			renderedValue = menuValueStyle.Render(displayVal)
		}

		b.WriteString(cursor + renderedLabel + " " + renderedValue + "\n")

		if item.editing && !m.isTextInput(i) {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()) + "\n")
	}

	switch m.state {
	case stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	case stateEditing:
		if m.isTextInput(m.cursor) {
			b.WriteString(helpStyle.Render("  type value | enter to confirm | esc to cancel | ctrl+u to clear"))
		} else {
			b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
		}
	}
	b.WriteString("\n")

	return b.String()
}

// apply copies a confirmed form back into the generate options.
func (m tuiModel) apply(o *generateOptions) {
	o.intake.token = ""
	o.intake.in = m.toIntake()
	o.title = m.items[idxTitle].value
	if dir := m.items[idxOutDir].value; dir != "" {
		o.outDir = dir
	}
}

func runInteractiveSetup(o *generateOptions) error {
	p := tea.NewProgram(initialTUIModel(o), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tuiModel)
	if final.cancelled || !final.confirmed {
		return errCancelled
	}
	final.apply(o)
	return nil
}
