/*
Package pureshell separates pure decision logic from the stateful objects
that hold data and perform side effects.

# Overview

A stateful entity is a struct that embeds Shell. It owns data and I/O but
no decisions: its behavior is exposed through func-typed fields, called
binding slots, whose implementation lives in a ruleset. A ruleset is a
struct of plain functions that never sees the entity itself; it receives
the current values of named fields and returns a new value.

Every call through a slot:

  - resolves the pure function (instance override first, then the type default)
  - reads the named fields ("live attributes") at call time
  - calls the pure function with those values followed by the call arguments
  - returns the result, or writes it into the first named field when mutating

# Quick Example

	type CartRules struct {
	    AddItem        func(items []Item, it Item) []Item
	    CalculateTotal func(items []Item) float64
	}

	type Cart struct {
	    pureshell.Shell
	    Items []Item

	    AddItem func(Item) error            `shell:"Items" mutates:"true"`
	    Total   func() (float64, error)     `shell:"Items" rule:"CalculateTotal"`
	}

	var cartType = pureshell.MustDeclare[Cart](pureshell.WithRules(CartRules{
	    AddItem:        func(items []Item, it Item) []Item { return append(slices.Clone(items), it) },
	    CalculateTotal: sumPrices,
	}))

	cart, _ := cartType.New()
	cart.AddItem(Item{Name: "Apple", Price: 0.5})
	total, _ := cart.Total()

# Rules Providers

Rules are resolved by name on every call, so swapping a provider changes
behavior immediately:

	cart.SetRules(discountRules)   // this instance only
	cart.SetRules(nil)             // back to the type default

An instance override that lacks a rule is an error; resolution does not
fall through to the type default. A Rules map serves as a provider without
declaring a struct type.

# Structural Checks

Declare and DeclareRuleset enforce the separation once, at declaration:

  - a ruleset may not declare methods (NonStaticMemberError)
  - an entity may only declare methods listed in SideEffects or plain
    property accessors (UnauthorizedLogicError)

# Suspending Rules

A pure function may return a *Pending. A slot declared with a *Pending
result hands it back to the caller; any other slot awaits it. Mutating
write-back happens only when the Pending settles successfully, in the
goroutine that awaits it, and never after the awaiting context is done.

# Errors

Every error wraps ErrPureShell and one of the kind sentinels, so both
errors.Is and errors.As work:

	if errors.Is(err, pureshell.ErrMissingPureFunction) { ... }

	var le *pureshell.LiveAttributeError
	if errors.As(err, &le) { log.Println(le.Attr) }

# Package Import

	import ps "github.com/Pure-Company/pureshell"
*/
package pureshell
