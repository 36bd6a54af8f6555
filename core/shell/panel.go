// Package shell holds the navigation chrome's view-only state.
package shell

import "sync"

// PanelState is the side panel's position.
type PanelState int

const (
	Collapsed PanelState = iota
	Expanded
)

func (s PanelState) String() string {
	if s == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// Panel tracks the side panel across renders. Seeded from the viewport
// width at first mount; a manual toggle lasts for the session only and is
// never persisted.
type Panel struct {
	mu        sync.Mutex
	state     PanelState
	threshold int
}

// NewPanel seeds the panel: expanded on viewports at or above threshold,
// collapsed below it.
func NewPanel(viewportWidth, threshold int) *Panel {
	p := &Panel{threshold: threshold}
	if viewportWidth >= threshold {
		p.state = Expanded
	}
	return p
}

func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Toggle flips the panel.
func (p *Panel) Toggle() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Expanded {
		p.state = Collapsed
	} else {
		p.state = Expanded
	}
	return p.state
}

// Resize reacts to a viewport width change: dropping below the threshold
// forces the panel closed, but growing back never forces it open; the
// user's last intent wins on wide viewports.
func (p *Panel) Resize(viewportWidth int) PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if viewportWidth < p.threshold {
		p.state = Collapsed
	}
	return p.state
}
