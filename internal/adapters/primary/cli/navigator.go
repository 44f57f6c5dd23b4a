package cli

import (
	"fmt"
	"io"
	"sync"
)

// TerminalNavigator est la "navigation dure" en terminal : on ne peut pas recharger
// une page, on annonce la redirection et on la mémorise.
type TerminalNavigator struct {
	mu         sync.Mutex
	out        io.Writer
	target     string
	onNavigate func(target string)
}

func NewTerminalNavigator(out io.Writer) *TerminalNavigator {
	return &TerminalNavigator{out: out}
}

func (n *TerminalNavigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = target
	fmt.Fprintf(n.out, "Session expired, please sign in again (%s): cenackle login <email|username>\n", target)
	if n.onNavigate != nil {
		n.onNavigate(target)
	}
}

// OnNavigate enregistre un callback (le mode watch s'arrête à la redirection).
func (n *TerminalNavigator) OnNavigate(fn func(target string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onNavigate = fn
}

// Target renvoie la dernière destination, "" s'il n'y en a pas eu.
func (n *TerminalNavigator) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}
