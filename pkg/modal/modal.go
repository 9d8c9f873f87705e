// Package modal holds the modal controller handed to every dialog. Dialogs
// receive it explicitly and call Hide to dismiss themselves.
package modal

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Modal is a dialog drawn over the host view. Implementations are pointer
// types so Update can mutate them in place while they sit on the stack.
type Modal interface {
	Update(msg tea.Msg) tea.Cmd
	View(width, height int) string
	Title() string
}

// Controller shows and hides modals.
type Controller interface {
	Show(m Modal)
	Hide()
	Active() Modal
	Len() int
}

// Stack is a LIFO Controller. It is not safe for concurrent use; call it from
// the bubbletea update loop only.
type Stack struct {
	items []Modal
}

func NewStack() *Stack {
	return &Stack{}
}

// Show pushes m on top. A nil modal is ignored.
func (s *Stack) Show(m Modal) {
	if m == nil {
		return
	}
	s.items = append(s.items, m)
	log.Debug().Str("modal", m.Title()).Int("depth", len(s.items)).Msg("show")
}

// Hide pops the active modal. Hiding an empty stack does nothing.
func (s *Stack) Hide() {
	if len(s.items) == 0 {
		return
	}
	last := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	log.Debug().Str("modal", last.Title()).Int("depth", len(s.items)).Msg("hide")
}

func (s *Stack) Active() Modal {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

func (s *Stack) Len() int {
	return len(s.items)
}
