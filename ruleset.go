package pureshell

import (
	"context"
	"reflect"
	"sync"
)

// ============================================================================
// Ruleset Providers
// ============================================================================

// Rules is a provider built from a plain name-to-function map. Every value
// must be a function; nil functions count as absent.
//
// Example:
//
//	rules := Rules{
//	    "GetValue": func(x int) int { return x * 3 },
//	}
type Rules map[string]any

// reservedNames are protocol methods a ruleset or entity may carry without
// breaking its contract.
var reservedNames = map[string]bool{
	"String":   true,
	"GoString": true,
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
	pendingType = reflect.TypeFor[*Pending]()
)

type provider struct {
	name  string
	funcs map[string]reflect.Value
}

func (p *provider) lookup(name string) (reflect.Value, bool) {
	fn, ok := p.funcs[name]
	return fn, ok
}

type rulesetCheck struct{ err error }

// rulesetChecks caches the structural check per ruleset type.
var rulesetChecks sync.Map // reflect.Type -> rulesetCheck

// DeclareRuleset checks that R can serve as a rules provider: a struct whose
// exported func-typed fields are its rules and which declares no methods of
// its own. The check runs once per type; later calls return the cached result.
//
// Example:
//
//	type CartRules struct {
//	    AddItem        func(items []Item, it Item) []Item
//	    CalculateTotal func(items []Item) float64
//	}
//
//	if err := DeclareRuleset[CartRules](); err != nil {
//	    log.Fatal(err)
//	}
func DeclareRuleset[R any]() error {
	return checkRuleset(reflect.TypeFor[R]())
}

// MustDeclareRuleset is like DeclareRuleset but panics on failure.
func MustDeclareRuleset[R any]() {
	if err := DeclareRuleset[R](); err != nil {
		panic(err)
	}
}

func checkRuleset(t reflect.Type) error {
	if cached, ok := rulesetChecks.Load(t); ok {
		return cached.(rulesetCheck).err
	}
	err := inspectRuleset(t)
	rulesetChecks.Store(t, rulesetCheck{err: err})
	return err
}

func inspectRuleset(t reflect.Type) error {
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return &DeclarationError{Type: typeName(t), Reason: "ruleset must be a struct of func-typed fields"}
	}
	// The pointer method set includes value-receiver methods.
	ptr := reflect.PointerTo(base)
	for i := 0; i < ptr.NumMethod(); i++ {
		m := ptr.Method(i)
		if reservedNames[m.Name] {
			continue
		}
		return &NonStaticMemberError{Ruleset: typeName(base), Member: m.Name}
	}
	return nil
}

// newProvider indexes the rules carried by v. A nil v yields a nil provider.
func newProvider(v any) (*provider, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(Rules); ok {
		p := &provider{name: "Rules", funcs: make(map[string]reflect.Value, len(m))}
		for name, fn := range m {
			fv := reflect.ValueOf(fn)
			if !fv.IsValid() {
				continue
			}
			if fv.Kind() != reflect.Func {
				return nil, &DeclarationError{Type: "Rules", Member: name, Reason: "rule is not a function"}
			}
			if fv.IsNil() {
				continue
			}
			p.funcs[name] = fv
		}
		return p, nil
	}

	rv := reflect.ValueOf(v)
	if err := checkRuleset(rv.Type()); err != nil {
		return nil, err
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	t := rv.Type()
	p := &provider{name: typeName(t), funcs: make(map[string]reflect.Value)}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous || f.Type.Kind() != reflect.Func {
			continue
		}
		fv, err := rv.FieldByIndexErr(f.Index)
		if err != nil || fv.IsNil() {
			continue
		}
		p.funcs[f.Name] = fv
	}
	return p, nil
}

// ============================================================================
// Resolution Tier
// ============================================================================

// Tier identifies which provider satisfied a resolution.
type Tier int

const (
	// TierNone means no provider was consulted.
	TierNone Tier = iota
	// TierInstance is the instance-level override set on the entity's Shell.
	TierInstance
	// TierType is the type-level default registered with WithRules.
	TierType
)

func (t Tier) String() string {
	switch t {
	case TierInstance:
		return "instance"
	case TierType:
		return "type"
	default:
		return "none"
	}
}

// Resolution is the outcome of resolving a rule against an entity.
type Resolution struct {
	Tier     Tier
	Provider string
	Func     any
}

// Resolve looks rule up on entity's instance-level override, falling back to
// the type-level default only when no override is set. An override that lacks
// the rule is an error, not a fall-through.
//
// entity must be a pointer to a struct that embeds Shell.
func Resolve(entity any, rule string) (Resolution, error) {
	sh, name, err := shellOf(entity, rule)
	if err != nil {
		return Resolution{}, err
	}
	fn, tier, prov, err := sh.resolve(name, rule, rule)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Tier: tier, Provider: prov, Func: fn.Interface()}, nil
}

func (s *Shell) resolve(entity, method, rule string) (reflect.Value, Tier, string, error) {
	var (
		p    *provider
		tier Tier
	)
	switch {
	case s.rules != nil:
		p, tier = s.rules, TierInstance
	case s.typ != nil && s.typ.rules != nil:
		p, tier = s.typ.rules, TierType
	default:
		return reflect.Value{}, TierNone, "", &ProviderError{Entity: entity, Method: method}
	}
	fn, ok := p.lookup(rule)
	if !ok {
		return reflect.Value{}, tier, p.name, &PureFunctionError{Function: rule, Provider: p.name, Tier: tier, Entity: entity}
	}
	return fn, tier, p.name, nil
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
