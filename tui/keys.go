package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap 定义命令输入行的按键绑定。
type KeyMap struct {
	Submit    key.Binding
	Backspace key.Binding
	Clear     key.Binding
	Quit      key.Binding
}

// DefaultKeyMap 是内置按键集。
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "发送命令"),
	),
	Backspace: key.NewBinding(
		key.WithKeys("backspace"),
		key.WithHelp("BS", "删除"),
	),
	Clear: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("C-u", "清空输入"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "退出"),
	),
}
