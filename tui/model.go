package tui

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// 界面固定 12 行，宽度跟随终端但不超过 120 列。
	frameRows = 12
	maxWidth  = 120
	minCols   = 50
)

// ValuesMsg 通知单个测量字段有了新值。
type ValuesMsg struct {
	Field string
	Value float64
}

// ClientMsg 通知客户端连接变化，Peer 为空串表示断开。
type ClientMsg struct {
	Peer string
}

// ResponseMsg 携带一条需要展示的手输命令应答。
type ResponseMsg struct {
	Text string
}

// SendFunc 执行一条手输命令并返回展示文本，空串表示无需展示。
type SendFunc func(cmd string) string

// valueCells 按展示顺序给出六个测量格子。
var valueCells = []struct {
	field string
	label string
	unit  string
}{
	{"ch1_v", "CH1 Voltage", "V"},
	{"ch1_i", "CH1 Current", "A"},
	{"ch2_v", "CH2 Voltage", "V"},
	{"ch2_i", "CH2 Current", "A"},
	{"ch3_v", "CH3 Voltage", "V"},
	{"ch3_i", "CH3 Current", "A"},
}

var titleStyle = lipgloss.NewStyle().Bold(true)

// Model 是桥接器状态面板的 bubbletea 模型。
// 规则：
// - 第 9 行在"Updated 时间戳"与"手输应答"之间按最后写入者切换
// - 时间戳只在六个测量值齐全后才开始刷新
// - 输入行只接受可打印 ASCII，Enter 派发、Ctrl-U 清空
type Model struct {
	listen    string
	transport string
	sink      string

	keys KeyMap
	send SendFunc

	width  int
	height int
	ready  bool

	values     map[string]float64
	client     string
	lastUpdate time.Time
	response   string
	showResp   bool
	input      string
}

// NewModel 构造面板模型。
// 参数：
// - listen: WebSocket 监听地址（host:port，用于标题栏）
// - transportDesc: 仪器链路描述
// - sinkDesc: 写入端描述
// - send: 手输命令的执行函数
func NewModel(listen, transportDesc, sinkDesc string, send SendFunc) Model {
	return Model{
		listen:    listen,
		transport: transportDesc,
		sink:      sinkDesc,
		keys:      DefaultKeyMap,
		send:      send,
		values:    map[string]float64{},
	}
}

// Init 实现 tea.Model。
func (m Model) Init() tea.Cmd { return nil }

// Update 实现 tea.Model。
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Submit):
			cmd := strings.TrimSpace(m.input)
			m.input = ""
			if cmd == "" {
				return m, nil
			}
			return m, dispatch(m.send, cmd)

		case key.Matches(msg, m.keys.Clear):
			m.input = ""

		case key.Matches(msg, m.keys.Backspace):
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}

		default:
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
				for _, r := range msg.Runes {
					if r >= 0x20 && r < 0x7f {
						m.input += string(r)
					}
				}
			}
		}

	case tea.WindowSizeMsg:
		// 终端被拖到比最小宽度还窄时按最小宽度排版，行尾任其折行
		m.width = max(min(msg.Width, maxWidth), minCols)
		m.height = msg.Height
		m.ready = true

	case ValuesMsg:
		m.values[msg.Field] = msg.Value
		if len(m.values) == len(valueCells) {
			m.lastUpdate = time.Now()
			m.showResp = false
		}

	case ClientMsg:
		m.client = clientHost(msg.Peer)

	case ResponseMsg:
		m.response = msg.Text
		m.showResp = true
	}
	return m, nil
}

// dispatch 在后台执行手输命令，结果非空时送回 ResponseMsg。
func dispatch(send SendFunc, cmd string) tea.Cmd {
	return func() tea.Msg {
		text := send(cmd)
		if text == "" {
			return nil
		}
		return ResponseMsg{Text: text}
	}
}

// View 实现 tea.Model，输出 12 行带边框的状态面板。
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	rows := []string{
		m.topBorder(),
		m.boxLine(""),
		m.boxLine(m.labelsLine()),
		m.boxLine(""),
		m.boxLine(m.valuesLine()),
		m.boxLine(""),
		m.boxLine(m.statusLine()),
		m.boxLine(""),
		m.boxLine(m.activityLine()),
		m.divider(),
		m.boxLine(" > " + m.input),
		m.bottomBorder(),
	}
	return strings.Join(rows, "\n")
}

// boxLine 输出一行 │ 边框内容，超宽截断、不足补空格。
func (m Model) boxLine(content string) string {
	inner := m.width - 2
	if len(content) > inner {
		content = content[:inner]
	}
	return "│" + content + strings.Repeat(" ", inner-len(content)) + "│"
}

func (m Model) topBorder() string {
	title := fmt.Sprintf(" SPS5000X Bridge  ws://%s  [%s] ", m.listen, m.transport)
	inner := m.width - 2
	if len(title) > inner-1 {
		title = title[:max(0, inner-1)]
	}
	fill := inner - 1 - len(title)
	return "┌─" + titleStyle.Render(title) + strings.Repeat("─", fill) + "┐"
}

func (m Model) divider() string {
	label := " SCPI Command "
	inner := m.width - 2
	fill := max(0, inner-1-len(label))
	return "├─" + label + strings.Repeat("─", fill) + "┤"
}

func (m Model) bottomBorder() string {
	return "└" + strings.Repeat("─", m.width-2) + "┘"
}

func (m Model) cellWidth() int {
	return max(12, (m.width-2)/6)
}

func (m Model) labelsLine() string {
	cell := m.cellWidth()
	var b strings.Builder
	for _, vc := range valueCells {
		b.WriteString(center(vc.label, cell))
	}
	return b.String()
}

func (m Model) valuesLine() string {
	cell := m.cellWidth()
	var b strings.Builder
	for _, vc := range valueCells {
		text := "---"
		if v, ok := m.values[vc.field]; ok {
			text = fmt.Sprintf("%.3f %s", v, vc.unit)
		}
		b.WriteString(center(text, cell))
	}
	return b.String()
}

func (m Model) statusLine() string {
	inner := m.width - 2
	sinkStr := "InfluxDB: " + m.sink
	clientStr := "Client: disconnected"
	if m.client != "" {
		clientStr = "Client: connected (" + m.client + ")"
	}
	gap := max(2, inner-4-len(sinkStr)-len(clientStr))
	return "  " + sinkStr + strings.Repeat(" ", gap) + clientStr
}

func (m Model) activityLine() string {
	if m.showResp {
		return "  Response: " + m.response
	}
	ts := "--:--:--"
	if !m.lastUpdate.IsZero() {
		ts = m.lastUpdate.Format("15:04:05")
	}
	return "  Updated: " + ts
}

// center 居中填充，总宽为奇数时多出的空格放右侧。
func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}

// clientHost 从 peer 地址取主机部分用于展示。
func clientHost(peer string) string {
	if peer == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(peer); err == nil {
		return host
	}
	return peer
}
