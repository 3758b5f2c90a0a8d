package tuner

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// AcceptorRule extends registry coverage to types without an exact mapping.
type AcceptorRule struct {
	Name    string
	Accepts func(t reflect.Type) bool
	Kind    *Kind
}

// AcceptorChain evaluates its rules in registration order, first match wins.
// Once sealed the order and content of the chain never change.
type AcceptorChain struct {
	mu     sync.RWMutex
	rules  []AcceptorRule
	sealed bool
}

// NewAcceptorChain creates an unsealed chain holding rules in the given order.
func NewAcceptorChain(rules ...AcceptorRule) *AcceptorChain {
	c := &AcceptorChain{}
	c.rules = append(c.rules, rules...)

	return c
}

// Register appends rules at the end of the chain.
func (c *AcceptorChain) Register(rules ...AcceptorRule) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return ErrChainSealed
	}
	for _, rule := range rules {
		if rule.Accepts == nil || rule.Kind == nil {
			return errors.Errorf("acceptor %q needs a predicate and a kind", rule.Name)
		}
	}
	c.rules = append(c.rules, rules...)

	return nil
}

// Seal freezes the chain.
func (c *AcceptorChain) Seal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
}

func (c *AcceptorChain) validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, rule := range c.rules {
		if rule.Accepts == nil || rule.Kind == nil || rule.Kind.New == nil {
			return errors.Errorf("acceptor %d (%q) needs a predicate and a kind", i, rule.Name)
		}
	}

	return nil
}

// Accept returns the kind of the first rule accepting t.
func (c *AcceptorChain) Accept(t reflect.Type) (*Kind, bool) {
	rule, ok := c.match(t)
	if !ok {
		return nil, false
	}

	return rule.Kind, true
}

func (c *AcceptorChain) match(t reflect.Type) (AcceptorRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rule := range c.rules {
		if rule.Accepts(t) {
			return rule, true
		}
	}

	return AcceptorRule{}, false
}

// Names lists the rules in evaluation order.
func (c *AcceptorChain) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.rules))
	for i, rule := range c.rules {
		names[i] = rule.Name
	}

	return names
}

// DefaultAcceptors returns the built-in fallback rules in evaluation order.
func DefaultAcceptors() []AcceptorRule {
	return []AcceptorRule{
		{
			Name:    "enum",
			Accepts: func(t reflect.Type) bool { return reflect.PointerTo(t).Implements(choiceType) },
			Kind:    EnumKind,
		},
		{
			Name: "vector",
			Accepts: func(t reflect.Type) bool {
				return t.Kind() == reflect.Array && t.Len() > 0 && t.Len() <= maxVectorLen && isNumeric(t.Elem().Kind())
			},
			Kind: VectorKind,
		},
		{
			Name: "text",
			Accepts: func(t reflect.Type) bool {
				ptr := reflect.PointerTo(t)

				return ptr.Implements(textMarshalerType) && ptr.Implements(textUnmarshalerType)
			},
			Kind: TextKind,
		},
		{
			Name:    "named-numeric",
			Accepts: func(t reflect.Type) bool { return isNumeric(t.Kind()) },
			Kind:    NumericKind,
		},
		{
			Name:    "named-string",
			Accepts: func(t reflect.Type) bool { return t.Kind() == reflect.String },
			Kind:    StringKind,
		},
		{
			Name:    "named-bool",
			Accepts: func(t reflect.Type) bool { return t.Kind() == reflect.Bool },
			Kind:    BoolKind,
		},
	}
}
