package engine

import (
	"sync"

	"github.com/velora-edu/examspace-backend/internal/model"
)

// Progression owns the ordered section list and the current index. Advancing
// past the last section triggers finalization exactly once. The index is
// monotonically non-decreasing; there is no way to go back or skip.
type Progression struct {
	mu        sync.Mutex
	sections  []model.Section
	index     int
	finalized bool

	// loadSection is invoked when the new index is in bounds; finalize when
	// it is not. Both run synchronously on the caller's goroutine.
	loadSection func(index int)
	finalize    func()
}

// NewProgression creates a progression over sections starting at index 0.
func NewProgression(sections []model.Section, loadSection func(int), finalize func()) *Progression {
	return &Progression{sections: sections, loadSection: loadSection, finalize: finalize}
}

// Seek positions the progression at index without invoking callbacks. Used
// when resuming a session whose earlier sections are already sealed.
func (p *Progression) Seek(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index > p.index && index < len(p.sections) {
		p.index = index
	}
}

// Advance moves to the next section, or finalizes when none remain. Called
// only after a successful submission — never speculatively.
func (p *Progression) Advance() {
	p.mu.Lock()
	if p.finalized {
		p.mu.Unlock()
		return
	}
	p.index++
	next := p.index
	inBounds := next < len(p.sections)
	if !inBounds {
		p.finalized = true
	}
	p.mu.Unlock()

	if inBounds {
		p.loadSection(next)
		return
	}
	p.finalize()
}

// Current returns the current section. ok is false once the progression has
// moved past the end.
func (p *Progression) Current() (model.Section, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index >= len(p.sections) {
		return model.Section{}, false
	}
	return p.sections[p.index], true
}

// Index returns the current section index.
func (p *Progression) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Sections returns the immutable section list.
func (p *Progression) Sections() []model.Section {
	return p.sections
}

// Finalized reports whether the progression has passed the last section.
func (p *Progression) Finalized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finalized
}
