package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause   key.Binding
	Resume  key.Binding
	Toggle  key.Binding
	Cancel  key.Binding
	Confirm key.Binding
	Decline key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "暂停")),
	Resume:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "继续")),
	Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "暂停/继续")),
	Cancel:  key.NewBinding(key.WithKeys("c", "ctrl+c"), key.WithHelp("c", "取消")),
	Confirm: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "确认")),
	Decline: key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "拒绝")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "enter"), key.WithHelp("q", "退出")),
}
