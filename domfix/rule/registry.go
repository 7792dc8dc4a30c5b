package rule

import (
	"fmt"
	"sync"

	"github.com/hazyhaar/domfix/domfix/dom"
)

// Registry is an append-only rule list, frozen once setup completes.
// Registration order is significant: later rules may rely on structure an
// earlier rule inserted.
type Registry struct {
	mu      sync.RWMutex
	rules   []Rule
	index   map[string]int
	screens map[string]ScreenDescriptor
	frozen  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index:   make(map[string]int),
		screens: make(map[string]ScreenDescriptor),
	}
}

// Register appends a rule. It fails with a *DuplicateRuleError if the ID is
// taken, ErrRegistryFrozen after Freeze, and ErrInvalidRule (or
// dom.ErrInvalidSelector) for malformed rules.
func (r *Registry) Register(rl Rule) error {
	if rl.ID == "" || rl.Apply == nil {
		return fmt.Errorf("%w: id=%q apply=%v", ErrInvalidRule, rl.ID, rl.Apply != nil)
	}
	sel, err := dom.Compile(rl.Selector)
	if err != nil {
		return fmt.Errorf("rule %s: %w", rl.ID, err)
	}
	rl.sel = sel
	rl.Screens = append([]string(nil), rl.Screens...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("rule %s: %w", rl.ID, ErrRegistryFrozen)
	}
	if _, dup := r.index[rl.ID]; dup {
		return &DuplicateRuleError{ID: rl.ID}
	}
	r.index[rl.ID] = len(r.rules)
	r.rules = append(r.rules, rl)
	return nil
}

// MustRegister registers rules and panics on the first error. For static
// rule sets built at startup.
func (r *Registry) MustRegister(rules ...Rule) {
	for _, rl := range rules {
		if err := r.Register(rl); err != nil {
			panic(err)
		}
	}
}

// Describe records a screen descriptor. Descriptors are static configuration
// and follow the same freeze discipline as rules.
func (r *Registry) Describe(sd ScreenDescriptor) error {
	if sd.ScreenID == "" {
		return fmt.Errorf("%w: screen descriptor without id", ErrInvalidRule)
	}
	if sd.Root != "" {
		if _, err := dom.Compile(sd.Root); err != nil {
			return fmt.Errorf("screen %s: %w", sd.ScreenID, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("screen %s: %w", sd.ScreenID, ErrRegistryFrozen)
	}
	sd.RuleIDs = append([]string(nil), sd.RuleIDs...)
	r.screens[sd.ScreenID] = sd
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Screen returns the descriptor for screenID, if any.
func (r *Registry) Screen(screenID string) (ScreenDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sd, ok := r.screens[screenID]
	return sd, ok
}

// Screens returns all descriptors.
func (r *Registry) Screens() []ScreenDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ScreenDescriptor, 0, len(r.screens))
	for _, sd := range r.screens {
		out = append(out, sd)
	}
	return out
}

// RulesForScreen returns the rules relevant to screenID in registration
// order: rules declaring the screen (or AnyScreen) plus rules listed by the
// screen's descriptor.
func (r *Registry) RulesForScreen(screenID string) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listed := make(map[string]bool)
	if sd, ok := r.screens[screenID]; ok {
		for _, id := range sd.RuleIDs {
			listed[id] = true
		}
	}

	var out []Rule
	for _, rl := range r.rules {
		if listed[rl.ID] || rl.scopedTo(screenID) {
			out = append(out, rl)
		}
	}
	return out
}

// Rules returns every registered rule in registration order.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.rules...)
}

// Lookup returns the rule with the given ID.
func (r *Registry) Lookup(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
