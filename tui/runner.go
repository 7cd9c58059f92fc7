package tui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"sps-bridge/relay"
)

// Qualify 报告当前终端能否承载状态面板。
// 规则：
// - 标准输出必须是 TTY
// - 终端不小于 50 列 x 12 行
func Qualify() bool {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return false
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return false
	}
	return cols >= minCols && rows >= frameRows
}

// Runner 驱动面板消息循环，并把桥接事件转发进循环。
type Runner struct {
	program *tea.Program
	done    chan struct{}
	runErr  error
}

var _ relay.Observer = (*Runner)(nil)

// Start 启动面板并在后台运行消息循环。
func Start(m Model) *Runner {
	r := &Runner{
		program: tea.NewProgram(m, tea.WithAltScreen()),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		if _, err := r.program.Run(); err != nil {
			r.runErr = err
		}
	}()
	return r
}

// Done 返回退出通知通道，操作员 Ctrl-C 退出面板时关闭。
func (r *Runner) Done() <-chan struct{} { return r.done }

// Stop 请求面板退出并等待终端恢复。
func (r *Runner) Stop() {
	r.program.Quit()
	<-r.done
}

// Err 返回消息循环的退出错误，须在 Done 关闭后读取。
func (r *Runner) Err() error { return r.runErr }

// OnValuesUpdated 实现 relay.Observer。
func (r *Runner) OnValuesUpdated(field string, value float64) {
	r.program.Send(ValuesMsg{Field: field, Value: value})
}

// OnClientChange 实现 relay.Observer。
func (r *Runner) OnClientChange(peer string) {
	r.program.Send(ClientMsg{Peer: peer})
}
