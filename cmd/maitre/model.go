package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	client "github.com/relishlabs/maitre-client/core"
	"github.com/relishlabs/maitre-client/core/conversation"
	"github.com/relishlabs/maitre-client/core/events"
	"github.com/relishlabs/maitre-client/core/transport"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Italic(true)
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	activityStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type model struct {
	client *client.Client

	viewport  viewport.Model
	input     textinput.Model
	ready     bool
	width     int
	voiceOn   bool
	turnState client.TurnState
	micLevel  float64
	statuses  map[transport.Source]transport.Status
	state     conversation.State
	lastErr   error
}

func newModel(c *client.Client) model {
	input := textinput.New()
	input.Placeholder = "Order something…"
	input.Focus()

	return model{
		client:   c,
		input:    input,
		statuses: map[transport.Source]transport.Status{},
		state:    c.Conversation(),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		inputHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.viewport.SetContent(m.renderConversation())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			_ = m.client.Close()
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				if err := m.client.SendText(text); err != nil {
					m.lastErr = err
				}
				m.input.Reset()
			}
			return m, nil
		case "ctrl+v":
			m.voiceOn = !m.voiceOn
			return m, m.voiceCmd(m.voiceOn)
		case "ctrl+b":
			if err := m.client.BargeIn(); err != nil {
				m.lastErr = err
			}
			return m, nil
		}

	case conversationMsg:
		m.state = conversation.State(msg)
		m.viewport.SetContent(m.renderConversation())
		m.viewport.GotoBottom()

	case channelStatusMsg:
		m.statuses[msg.source] = msg.status

	case turnStateMsg:
		m.turnState = client.TurnState(msg)

	case micLevelMsg:
		m.micLevel = float64(msg)

	case clientErrMsg:
		m.lastErr = msg.err
	}

	var commands []tea.Cmd
	var command tea.Cmd
	m.input, command = m.input.Update(msg)
	commands = append(commands, command)
	m.viewport, command = m.viewport.Update(msg)
	commands = append(commands, command)
	return m, tea.Batch(commands...)
}

func (m model) View() string {
	if !m.ready {
		return "loading…"
	}
	return m.viewport.View() + "\n" + m.statusLine() + "\n" + m.input.View()
}

func (m model) voiceCmd(enable bool) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		var err error
		if enable {
			err = c.EnableVoice(context.Background())
		} else {
			err = c.DisableVoice()
		}
		if err != nil {
			return clientErrMsg{err: err}
		}
		return nil
	}
}

func (m model) statusLine() string {
	parts := []string{
		fmt.Sprintf("events:%s", m.statuses[transport.SourceEvents]),
		fmt.Sprintf("voice:%s", m.statuses[transport.SourceVoice]),
		fmt.Sprintf("turn:%s", m.turnState),
	}
	if m.voiceOn {
		parts = append(parts, fmt.Sprintf("mic:%s", levelBar(m.micLevel)))
	}
	if m.lastErr != nil {
		parts = append(parts, systemStyle.Render(m.lastErr.Error()))
	}
	return statusStyle.Render(strings.Join(parts, "  "))
}

func (m model) renderConversation() string {
	width := max(m.width-2, 20)

	var b strings.Builder
	for _, message := range m.state.Messages {
		b.WriteString(renderMessage(message, width))
		b.WriteString("\n")
	}
	if m.state.Activity != "" {
		b.WriteString(activityStyle.Render(m.state.Activity + "…"))
		b.WriteString("\n")
	}
	return b.String()
}

func renderMessage(message conversation.Message, width int) string {
	switch message.Kind {
	case conversation.KindText:
		text := message.Text
		if message.Streaming {
			text += "▌"
		}
		style := assistantStyle
		prefix := "agent"
		switch message.Role {
		case conversation.RoleUser:
			style, prefix = userStyle, "you"
		case conversation.RoleSystem:
			style, prefix = systemStyle, "system"
		}
		return style.Render(prefix+": ") + wordwrap.String(text, width)
	case conversation.KindCart:
		return cardStyle.Render(renderCart(message))
	case conversation.KindMenu:
		return cardStyle.Render(renderMenu(message, width))
	case conversation.KindSearchResults:
		return cardStyle.Render(renderSearchResults(message))
	case conversation.KindOrder:
		return cardStyle.Render(renderOrder(message))
	case conversation.KindQuickReplies:
		return renderQuickReplies(message)
	case conversation.KindForm:
		return cardStyle.Render(renderForm(message))
	case conversation.KindPaymentLink:
		if payment, ok := message.Data.(events.PaymentLink); ok {
			return cardStyle.Render(fmt.Sprintf("Pay %.2f: %s", payment.Amount, payment.URL))
		}
	case conversation.KindPaymentSuccess:
		if payment, ok := message.Data.(events.PaymentSuccess); ok {
			return cardStyle.Render(fmt.Sprintf("Payment of %.2f received for order %s", payment.Amount, payment.OrderID))
		}
	case conversation.KindReceipt:
		if receipt, ok := message.Data.(events.ReceiptLink); ok {
			return cardStyle.Render("Receipt: " + receipt.URL)
		}
	}
	return ""
}

func renderCart(message conversation.Message) string {
	cart, ok := message.Data.(events.CartData)
	if !ok {
		return "cart"
	}

	var b strings.Builder
	b.WriteString("Cart\n")
	for _, item := range cart.Items {
		fmt.Fprintf(&b, "%d× %s  %.2f\n", item.Quantity, item.Name, item.Price)
	}
	fmt.Fprintf(&b, "Total: %.2f %s", cart.Total, cart.Currency)
	return b.String()
}

func renderMenu(message conversation.Message, width int) string {
	menu, ok := message.Data.(events.MenuData)
	if !ok {
		return "menu"
	}

	var b strings.Builder
	b.WriteString("Menu\n")
	for _, item := range menu.Items {
		line := fmt.Sprintf("%s  %.2f", item.Name, item.Price)
		if item.Description != "" {
			line += " — " + item.Description
		}
		b.WriteString(wordwrap.String(line, width-4))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSearchResults(message conversation.Message) string {
	results, ok := message.Data.(events.SearchResults)
	if !ok {
		return "search results"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Results for %q\n", results.Query)
	for _, item := range results.Items {
		fmt.Fprintf(&b, "%s  %.2f\n", item.Name, item.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOrder(message conversation.Message) string {
	order, ok := message.Data.(events.OrderData)
	if !ok {
		return "order"
	}
	return fmt.Sprintf("Order %s — %s\nTotal: %.2f", order.Order.ID, order.Order.Status, order.Order.Total)
}

func renderQuickReplies(message conversation.Message) string {
	replies, ok := message.Data.(events.QuickReplies)
	if !ok {
		return ""
	}

	var options []string
	for _, option := range replies.Options {
		options = append(options, "["+option.Label+"]")
	}
	return strings.Join(options, " ")
}

func renderForm(message conversation.Message) string {
	form, ok := message.Data.(events.FormRequest)
	if !ok {
		return "form"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s\n", form.FormType)
	for _, field := range form.Fields {
		label := field.Label
		if label == "" {
			label = field.Name
		}
		fmt.Fprintf(&b, "- %s\n", label)
	}
	return strings.TrimRight(b.String(), "\n")
}

func levelBar(level float64) string {
	bars := min(int(level*8), 8)
	return strings.Repeat("▮", bars) + strings.Repeat("▯", 8-bars)
}
