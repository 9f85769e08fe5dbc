package pureshell

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error Taxonomy
// ============================================================================

// ErrPureShell is the root of every error reported by this package.
// Use errors.Is(err, ErrPureShell) to catch all of them at once.
var ErrPureShell = errors.New("pureshell")

var (
	// ErrMissingProvider reports that neither the instance nor its type
	// carries a rules provider when a named binding is resolved.
	ErrMissingProvider = fmt.Errorf("%w: rules provider not found", ErrPureShell)

	// ErrMissingPureFunction reports that a provider lacks the requested rule.
	ErrMissingPureFunction = fmt.Errorf("%w: pure function not found", ErrPureShell)

	// ErrMissingLiveAttribute reports that a bound field is absent at call time.
	ErrMissingLiveAttribute = fmt.Errorf("%w: live attribute not found", ErrPureShell)

	// ErrNonStaticMember reports a receiver-bound method on a ruleset type.
	ErrNonStaticMember = fmt.Errorf("%w: non-static ruleset member", ErrPureShell)

	// ErrUnauthorizedLogic reports an unexempted method on a stateful entity type.
	ErrUnauthorizedLogic = fmt.Errorf("%w: unauthorized logic in stateful entity", ErrPureShell)

	// ErrInvalidDeclaration reports a malformed ruleset, entity or binding declaration.
	ErrInvalidDeclaration = fmt.Errorf("%w: invalid declaration", ErrPureShell)

	// ErrBadCall reports a call whose arguments or results do not fit the
	// resolved pure function or the binding slot.
	ErrBadCall = fmt.Errorf("%w: bad call", ErrPureShell)
)

// ProviderError is returned when no rules provider is available for an entity.
type ProviderError struct {
	Entity string
	Method string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("pureshell: rules provider not found for %q when resolving shell method %q; use WithRules or Shell.SetRules",
		e.Entity, e.Method)
}

// Unwrap returns ErrMissingProvider.
func (e *ProviderError) Unwrap() error { return ErrMissingProvider }

// PureFunctionError is returned when the active provider lacks a rule.
type PureFunctionError struct {
	Function string
	Provider string
	Tier     Tier
	Entity   string
}

func (e *PureFunctionError) Error() string {
	return fmt.Sprintf("pureshell: pure function %q not found on rules provider %q (%s) for shell method in %q",
		e.Function, e.Provider, e.Tier, e.Entity)
}

// Unwrap returns ErrMissingPureFunction.
func (e *PureFunctionError) Unwrap() error { return ErrMissingPureFunction }

// LiveAttributeError is returned when a bound field is absent on the entity.
type LiveAttributeError struct {
	Attr   string
	Entity string
	Method string
}

func (e *LiveAttributeError) Error() string {
	return fmt.Sprintf("pureshell: live attribute %q not found on instance of %q when calling shell method %q",
		e.Attr, e.Entity, e.Method)
}

// Unwrap returns ErrMissingLiveAttribute.
func (e *LiveAttributeError) Unwrap() error { return ErrMissingLiveAttribute }

// NonStaticMemberError is returned when a ruleset type declares a method.
type NonStaticMemberError struct {
	Ruleset string
	Member  string
}

func (e *NonStaticMemberError) Error() string {
	return fmt.Sprintf("pureshell: ruleset %q has a non-static method %q; rules must be func-typed fields",
		e.Ruleset, e.Member)
}

// Unwrap returns ErrNonStaticMember.
func (e *NonStaticMemberError) Unwrap() error { return ErrNonStaticMember }

// UnauthorizedLogicError is returned when a stateful entity type declares a
// method that is neither a side effect nor a property accessor.
type UnauthorizedLogicError struct {
	Entity string
	Member string
}

func (e *UnauthorizedLogicError) Error() string {
	return fmt.Sprintf("pureshell: entity %q has an implemented method %q; methods must be bindings, side effects or property accessors",
		e.Entity, e.Member)
}

// Unwrap returns ErrUnauthorizedLogic.
func (e *UnauthorizedLogicError) Unwrap() error { return ErrUnauthorizedLogic }

// DeclarationError is returned when a declaration is malformed.
type DeclarationError struct {
	Type   string
	Member string
	Reason string
}

func (e *DeclarationError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("pureshell: invalid declaration of %q: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("pureshell: invalid declaration of %q member %q: %s", e.Type, e.Member, e.Reason)
}

// Unwrap returns ErrInvalidDeclaration.
func (e *DeclarationError) Unwrap() error { return ErrInvalidDeclaration }

// CallError is returned when a bound call cannot be carried out as shaped.
type CallError struct {
	Entity string
	Method string
	Reason string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("pureshell: cannot call %s.%s: %s", e.Entity, e.Method, e.Reason)
}

// Unwrap returns ErrBadCall.
func (e *CallError) Unwrap() error { return ErrBadCall }
