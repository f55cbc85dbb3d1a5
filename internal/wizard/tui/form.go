package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/robowifi/internal/robotapi"
)

// Field names that are not EAP options
const (
	fieldSSID     = "ssid"
	fieldSecurity = "securityType"
	fieldPSK      = "psk"
	fieldEapType  = "eapType"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldSecret
	fieldChoice
)

type choice struct {
	label string
	value string
}

// formField is one row of the credentials form. Text and secret fields use
// input; choice fields cycle through choices with left/right.
type formField struct {
	name     string
	label    string
	kind     fieldKind
	required bool
	input    textinput.Model
	choices  []choice
	selected int
}

func (f *formField) value() string {
	if f.kind == fieldChoice {
		if len(f.choices) == 0 {
			return ""
		}
		return f.choices[f.selected].value
	}
	return strings.TrimSpace(f.input.Value())
}

func newInputField(name, label string, secret, required bool) formField {
	in := textinput.New()
	in.CharLimit = 128
	in.Width = 40
	kind := fieldText
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
		kind = fieldSecret
	}
	return formField{name: name, label: label, kind: kind, required: required, input: in}
}

func newChoiceField(name, label string, choices []choice) formField {
	return formField{name: name, label: label, kind: fieldChoice, required: true, choices: choices}
}

// credentialForm collects what is needed to join one network.
// For join-other it also asks for the SSID and security type.
type credentialForm struct {
	ssid         string
	securityType robotapi.SecurityType
	joinOther    bool

	eapOptions []robotapi.EapOption
	keys       []robotapi.WifiKey

	fields []formField
	focus  int
	err    string
}

var securityChoices = []choice{
	{label: robotapi.SecurityWPAPSK.String(), value: string(robotapi.SecurityWPAPSK)},
	{label: robotapi.SecurityWPAEAP.String(), value: string(robotapi.SecurityWPAEAP)},
	{label: robotapi.SecurityNone.String(), value: string(robotapi.SecurityNone)},
}

// newConnectForm builds the form for a listed network
func newConnectForm(ssid string, securityType robotapi.SecurityType, eapOptions []robotapi.EapOption, keys []robotapi.WifiKey) *credentialForm {
	f := &credentialForm{
		ssid:         ssid,
		securityType: securityType,
		eapOptions:   eapOptions,
		keys:         keys,
	}
	f.rebuild()
	return f
}

// newJoinOtherForm builds the form for a network that is not in the list
func newJoinOtherForm(eapOptions []robotapi.EapOption, keys []robotapi.WifiKey) *credentialForm {
	f := &credentialForm{
		securityType: robotapi.SecurityWPAPSK,
		joinOther:    true,
		eapOptions:   eapOptions,
		keys:         keys,
	}
	f.rebuild()
	return f
}

// SetMetadata refreshes EAP options and keys without losing typed values
func (f *credentialForm) SetMetadata(eapOptions []robotapi.EapOption, keys []robotapi.WifiKey) {
	f.eapOptions = eapOptions
	f.keys = keys
	f.rebuild()
}

// rebuild recomputes the field list from the current security type and
// EAP method, carrying over values of fields that survive.
func (f *credentialForm) rebuild() {
	old := make(map[string]formField, len(f.fields))
	for _, field := range f.fields {
		old[field.name] = field
	}

	var fields []formField
	if f.joinOther {
		fields = append(fields, newInputField(fieldSSID, "Network name", false, true))
		fields = append(fields, newChoiceField(fieldSecurity, "Security", securityChoices))
	}

	switch f.securityType {
	case robotapi.SecurityWPAPSK:
		fields = append(fields, newInputField(fieldPSK, "Password", true, true))

	case robotapi.SecurityWPAEAP:
		methods := make([]choice, 0, len(f.eapOptions))
		for _, opt := range f.eapOptions {
			methods = append(methods, choice{label: opt.DisplayName, value: opt.Name})
		}
		method := newChoiceField(fieldEapType, "Authentication", methods)
		if prev, ok := old[fieldEapType]; ok {
			method.selected = clampIndex(indexOfChoice(methods, prev.value()), len(methods))
		}
		fields = append(fields, method)

		if opt := robotapi.FindEapOption(f.eapOptions, method.value()); opt != nil {
			for _, ef := range opt.Options {
				fields = append(fields, f.eapField(ef))
			}
		}
	}

	for i := range fields {
		prev, ok := old[fields[i].name]
		if !ok || prev.kind != fields[i].kind {
			continue
		}
		if prev.kind == fieldChoice {
			if idx := indexOfChoice(fields[i].choices, prev.value()); idx >= 0 {
				fields[i].selected = idx
			}
			continue
		}
		fields[i].input.SetValue(prev.input.Value())
	}

	f.fields = fields
	f.focus = clampIndex(f.focus, len(fields))
	f.applyFocus()
}

// eapField turns an EAP option into a form row. File options pick from
// keys already uploaded to the robot.
func (f *credentialForm) eapField(ef robotapi.EapField) formField {
	if ef.IsFile() {
		choices := make([]choice, 0, len(f.keys)+1)
		if !ef.Required {
			choices = append(choices, choice{label: "(none)", value: ""})
		}
		for _, k := range f.keys {
			choices = append(choices, choice{label: k.Name, value: k.ID})
		}
		field := newChoiceField(ef.Name, ef.DisplayName, choices)
		field.required = ef.Required
		return field
	}
	return newInputField(ef.Name, ef.DisplayName, ef.IsSecret(), ef.Required)
}

func (f *credentialForm) applyFocus() {
	for i := range f.fields {
		if f.fields[i].kind == fieldChoice {
			continue
		}
		if i == f.focus {
			f.fields[i].input.Focus()
		} else {
			f.fields[i].input.Blur()
		}
	}
}

// Update handles key input. Submit is reported separately by the caller.
func (f *credentialForm) Update(msg tea.KeyMsg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}

	switch msg.String() {
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
		f.applyFocus()
		return textinput.Blink
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
		f.applyFocus()
		return textinput.Blink
	}

	field := &f.fields[f.focus]
	if field.kind == fieldChoice {
		if len(field.choices) == 0 {
			return nil
		}
		switch msg.String() {
		case "left", "h":
			field.selected = (field.selected - 1 + len(field.choices)) % len(field.choices)
		case "right", "l", " ":
			field.selected = (field.selected + 1) % len(field.choices)
		default:
			return nil
		}
		f.choiceChanged(field.name)
		return nil
	}

	var cmd tea.Cmd
	field.input, cmd = field.input.Update(msg)
	f.err = ""
	return cmd
}

func (f *credentialForm) choiceChanged(name string) {
	switch name {
	case fieldSecurity:
		for _, field := range f.fields {
			if field.name == fieldSecurity {
				f.securityType = robotapi.SecurityType(field.value())
			}
		}
		f.rebuild()
	case fieldEapType:
		f.rebuild()
	}
}

// Request assembles the configure request. Missing required fields are
// reported here; everything else is left to ConfigureRequest.Validate.
func (f *credentialForm) Request() (robotapi.ConfigureRequest, error) {
	req := robotapi.ConfigureRequest{
		SSID:         f.ssid,
		Hidden:       f.joinOther,
		SecurityType: f.securityType,
	}

	var eap robotapi.EapConfig
	for i := range f.fields {
		field := &f.fields[i]
		value := field.value()
		if field.required && value == "" {
			return req, robotapi.NewValidationError(field.label + " is required")
		}

		switch field.name {
		case fieldSSID:
			req.SSID = value
		case fieldSecurity:
		case fieldPSK:
			req.PSK = field.input.Value()
		default:
			if value == "" {
				continue
			}
			if eap == nil {
				eap = robotapi.EapConfig{}
			}
			eap[field.name] = value
		}
	}
	if req.SecurityType == robotapi.SecurityWPAEAP {
		req.EapConfig = eap
	}
	return req, nil
}

// Title is the modal heading
func (f *credentialForm) Title() string {
	if f.joinOther {
		return "JOIN OTHER NETWORK"
	}
	return fmt.Sprintf("CONNECT TO %s", f.ssid)
}

// View renders the form rows
func (f *credentialForm) View() string {
	labelStyle := lipgloss.NewStyle().Foreground(SubtleColor).Width(18)

	var lines []string
	if !f.joinOther {
		lines = append(lines, labelStyle.Render("Security")+" "+f.securityType.String(), "")
	}

	if f.securityType == robotapi.SecurityUnsupported {
		lines = append(lines, lipgloss.NewStyle().Foreground(ErrorColor).Render("The robot cannot join networks with this security type."))
	}
	if f.securityType == robotapi.SecurityWPAEAP && len(f.eapOptions) == 0 {
		lines = append(lines, SubtitleStyle.Render("Loading authentication methods..."))
	}

	for i, field := range f.fields {
		label := field.label
		if field.required {
			label += " *"
		}

		var value string
		switch {
		case field.kind != fieldChoice:
			value = field.input.View()
		case len(field.choices) == 0:
			value = SubtitleStyle.Render("no keys on robot (add with: robowifi keys add)")
		default:
			value = "‹ " + field.choices[field.selected].label + " ›"
		}

		line := labelStyle.Render(label) + " " + value
		if i == f.focus {
			line = FocusedInputStyle.Render("→ ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}

	if f.err != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(ErrorColor).Render("✗ "+f.err))
	}

	return strings.Join(lines, "\n")
}

func indexOfChoice(choices []choice, value string) int {
	for i, c := range choices {
		if c.value == value {
			return i
		}
	}
	return -1
}

func clampIndex(i, n int) int {
	if i < 0 || n == 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
