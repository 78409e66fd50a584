package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	ErrDuplicateChain    = errors.New("duplicate chain name")
)

// KindChecker reports whether a mission kind can be built.
type KindChecker interface {
	Has(kind string) bool
}

// Validate checks a system descriptor before any chain is built and returns
// every problem found, joined. kinds may be nil to skip the kind check.
func Validate(sys *SystemDescriptor, kinds KindChecker) error {
	if sys == nil {
		return fmt.Errorf("%w: nil system descriptor", ErrInvalidDescriptor)
	}

	var errs []error
	seen := make(map[string]struct{}, len(sys.Chains))
	for ci, c := range sys.Chains {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("%w: chain #%d has no name", ErrInvalidDescriptor, ci+1))
		} else if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateChain, name))
		} else {
			seen[name] = struct{}{}
		}
		if c.InterLoopDelay < 0 {
			errs = append(errs, fmt.Errorf("%w: chain %q has negative inter_loop_delay", ErrInvalidDescriptor, c.Name))
		}
		for mi, m := range c.Missions {
			if strings.TrimSpace(m.Name) == "" {
				errs = append(errs, fmt.Errorf("%w: chain %q mission #%d has no name", ErrInvalidDescriptor, c.Name, mi+1))
			}
			if m.StartDelay < 0 {
				errs = append(errs, fmt.Errorf("%w: chain %q mission %q has negative start_delay", ErrInvalidDescriptor, c.Name, m.Name))
			}
			if kinds != nil && !kinds.Has(m.Kind) {
				errs = append(errs, fmt.Errorf("%w: chain %q mission %q has unknown kind %q", ErrInvalidDescriptor, c.Name, m.Name, m.Kind))
			}
		}
	}
	return errors.Join(errs...)
}
