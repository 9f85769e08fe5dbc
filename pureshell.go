package pureshell

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
	"unsafe"
)

// ============================================================================
// Shell
// ============================================================================

// Shell carries the per-instance plumbing of a stateful entity: the link to
// its declared type, the instance-level rules override and any dynamic
// attributes. Embed it by value in every struct passed to Declare.
//
// A Shell is not safe for concurrent use. Calls on one entity are not
// serialized; callers that share an entity across goroutines must
// synchronize access themselves.
type Shell struct {
	typ   *entityType
	rules *provider
	attrs map[string]any
}

func (s *Shell) shell() *Shell { return s }

// SetRules installs rules as the instance-level provider. It takes
// precedence over the type-level default for this instance only. Passing nil
// clears the override.
func (s *Shell) SetRules(rules any) error {
	p, err := newProvider(rules)
	if err != nil {
		return err
	}
	s.rules = p
	return nil
}

// HasRules reports whether an instance-level override is set.
func (s *Shell) HasRules() bool {
	return s.rules != nil
}

// Attr returns the dynamic attribute name.
func (s *Shell) Attr(name string) (any, bool) {
	v, ok := s.attrs[name]
	return v, ok
}

// SetAttr stores a dynamic attribute. Struct fields of the same name take
// precedence when bindings read live attributes.
func (s *Shell) SetAttr(name string, value any) {
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[name] = value
}

// DeleteAttr removes a dynamic attribute.
func (s *Shell) DeleteAttr(name string) {
	delete(s.attrs, name)
}

type shellCarrier interface {
	shell() *Shell
}

var shellType = reflect.TypeFor[Shell]()

func shellOf(entity any, method string) (*Shell, string, error) {
	c, ok := entity.(shellCarrier)
	rv := reflect.ValueOf(entity)
	if !ok || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, "", &CallError{
			Entity: fmt.Sprintf("%T", entity),
			Method: method,
			Reason: "entity must be a non-nil pointer to a struct embedding pureshell.Shell",
		}
	}
	return c.shell(), typeName(rv.Type().Elem()), nil
}

// ============================================================================
// Bindings
// ============================================================================

// Target names the pure function behind a binding: either a rule resolved
// against the active provider on every call, or a fixed function.
type Target struct {
	name   string
	fn     reflect.Value
	direct bool
}

// Named returns a target resolved by rule name at each call.
func Named(rule string) Target {
	return Target{name: rule}
}

// Direct returns a target bound to fn, bypassing providers entirely.
func Direct(fn any) Target {
	return Target{fn: reflect.ValueOf(fn), direct: true}
}

// Rule returns the rule name of a Named target.
func (t Target) Rule() string {
	return t.name
}

// IsDirect reports whether t is a fixed function.
func (t Target) IsDirect() bool {
	return t.direct
}

// Binding declares how a slot is served. Most bindings are declared with
// struct tags on the slot field:
//
//	AddItem func(Item) error `shell:"items" mutates:"true"`
//	Total   func() (float64, error) `shell:"items" rule:"CalculateTotal"`
//
// WithBinding declares the same thing programmatically and is the only way
// to attach a Direct target.
type Binding struct {
	// Slot is the func-typed field exposing the binding.
	Slot string
	// Target is the pure function; the zero Target means Named(Slot).
	Target Target
	// Fields lists the live attributes passed ahead of the call arguments.
	Fields []string
	// Mutates writes the result into Fields[0] instead of returning it.
	Mutates bool
}

type resultShape int

const (
	shapeNone resultShape = iota
	shapeErr
	shapeValue
	shapeValueErr
	shapePending
)

type binding struct {
	slot    string
	index   []int
	typ     reflect.Type
	target  Target
	fields  []string
	mutates bool
	withCtx bool
	shape   resultShape
}

func bindingFromTag(entity string, f reflect.StructField) (Binding, error) {
	b := Binding{Slot: f.Name}
	for _, name := range strings.Split(f.Tag.Get("shell"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			b.Fields = append(b.Fields, name)
		}
	}
	if rule, ok := f.Tag.Lookup("rule"); ok {
		b.Target = Named(strings.TrimSpace(rule))
	}
	if mut, ok := f.Tag.Lookup("mutates"); ok {
		v, err := strconv.ParseBool(mut)
		if err != nil {
			return b, &DeclarationError{Type: entity, Member: f.Name, Reason: fmt.Sprintf("mutates tag %q is not a boolean", mut)}
		}
		b.Mutates = v
	}
	return b, nil
}

func newBinding(entity string, f reflect.StructField, b Binding) (*binding, error) {
	invalid := func(reason string) error {
		return &DeclarationError{Type: entity, Member: f.Name, Reason: reason}
	}
	ft := f.Type
	if ft.Kind() != reflect.Func {
		return nil, invalid("binding slot must be a func-typed field")
	}
	if len(b.Fields) == 0 {
		return nil, invalid("binding needs at least one live attribute")
	}
	if slices.Contains(b.Fields, "") {
		return nil, invalid("empty live attribute name")
	}
	target := b.Target
	switch {
	case target.direct:
		if !target.fn.IsValid() || target.fn.Kind() != reflect.Func || target.fn.IsNil() {
			return nil, invalid("direct target is not a function")
		}
	case target.name == "":
		target = Named(f.Name)
	}
	shape, reason := slotShape(ft, b.Mutates)
	if reason != "" {
		return nil, invalid(reason)
	}
	return &binding{
		slot:    f.Name,
		index:   f.Index,
		typ:     ft,
		target:  target,
		fields:  slices.Clone(b.Fields),
		mutates: b.Mutates,
		withCtx: ft.NumIn() > 0 && ft.In(0) == contextType,
		shape:   shape,
	}, nil
}

func slotShape(ft reflect.Type, mutates bool) (resultShape, string) {
	var shape resultShape
	switch {
	case ft.NumOut() == 0:
		shape = shapeNone
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
		shape = shapeErr
	case ft.NumOut() == 1 && ft.Out(0) == pendingType:
		shape = shapePending
	case ft.NumOut() == 1:
		shape = shapeValue
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
		shape = shapeValueErr
	default:
		return 0, "slot results must be (), error, *Pending, T or (T, error)"
	}
	if mutates && (shape == shapeValue || shape == shapeValueErr) {
		return 0, "mutating slot returns no value; use (), error or *Pending"
	}
	return shape, ""
}

func (b *binding) public() Binding {
	return Binding{Slot: b.slot, Target: b.target, Fields: slices.Clone(b.fields), Mutates: b.mutates}
}

// ============================================================================
// Entity Declaration
// ============================================================================

type declaration struct {
	rules       any
	hasRules    bool
	sideEffects []string
	bindings    []Binding
}

// Option configures Declare.
type Option func(*declaration)

// WithRules registers rules as the type-level default provider.
func WithRules(rules any) Option {
	return func(d *declaration) {
		d.rules = rules
		d.hasRules = true
	}
}

// SideEffects marks methods that intentionally perform I/O or hold other
// real logic, exempting them from the no-logic rule. It changes nothing else.
func SideEffects(methods ...string) Option {
	return func(d *declaration) {
		d.sideEffects = append(d.sideEffects, methods...)
	}
}

// WithBinding declares the binding on b.Slot, replacing any struct tags on
// that field.
func WithBinding(b Binding) Option {
	return func(d *declaration) {
		d.bindings = append(d.bindings, b)
	}
}

// EntityType is the declared contract of the stateful entity type T.
type EntityType[T any] struct {
	et *entityType
}

type entityType struct {
	name     string
	typ      reflect.Type
	rules    *provider
	fields   map[string][]int
	bindings map[string]*binding
	order    []string
}

// Declare validates T as a stateful entity and returns its contract.
//
// T must be a struct embedding Shell by value. Every exported method of *T,
// apart from methods promoted from embedded fields and the String/GoString
// protocol methods, must be named in SideEffects or be a property accessor
// (X, GetX or IsX returning field x, SetX assigning it); anything else fails
// with an *UnauthorizedLogicError. Every binding is validated here as well,
// so a malformed declaration never reaches an instance.
//
// Declare is meant to run once per type, typically from a package-level var:
//
//	var cartType = pureshell.MustDeclare[Cart](
//	    pureshell.WithRules(CartRules{...}),
//	    pureshell.SideEffects("Display"),
//	)
func Declare[T any](opts ...Option) (*EntityType[T], error) {
	var d declaration
	for _, opt := range opts {
		opt(&d)
	}
	et, err := declareEntity(reflect.TypeFor[T](), &d)
	if err != nil {
		return nil, err
	}
	return &EntityType[T]{et: et}, nil
}

// MustDeclare is like Declare but panics on failure.
func MustDeclare[T any](opts ...Option) *EntityType[T] {
	t, err := Declare[T](opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func declareEntity(t reflect.Type, d *declaration) (*entityType, error) {
	name := typeName(t)
	if t.Kind() != reflect.Struct || !embedsShell(t) {
		return nil, &DeclarationError{Type: name, Reason: "stateful entity must be a struct embedding pureshell.Shell"}
	}
	et := &entityType{
		name:     name,
		typ:      t,
		fields:   make(map[string][]int),
		bindings: make(map[string]*binding),
	}

	var slots []reflect.StructField
	for _, f := range reflect.VisibleFields(t) {
		if f.Type == shellType || inShell(t, f.Index) || viaPointer(t, f.Index) {
			continue
		}
		et.fields[f.Name] = f.Index
		if f.Type.Kind() == reflect.Func {
			slots = append(slots, f)
		}
	}

	if err := checkEntityMethods(t, et.fields, d.sideEffects); err != nil {
		return nil, err
	}

	if d.hasRules {
		p, err := newProvider(d.rules)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &DeclarationError{Type: name, Reason: "type-level rules provider is nil"}
		}
		et.rules = p
	}

	explicit := make(map[string]Binding, len(d.bindings))
	for _, b := range d.bindings {
		explicit[b.Slot] = b
	}
	for _, f := range slots {
		_, hasShell := f.Tag.Lookup("shell")
		_, hasRule := f.Tag.Lookup("rule")
		_, hasMutates := f.Tag.Lookup("mutates")
		b, ok := explicit[f.Name]
		if !ok && !hasShell {
			if hasRule || hasMutates {
				return nil, &DeclarationError{Type: name, Member: f.Name, Reason: "rule or mutates tag without a shell tag"}
			}
			continue
		}
		if !ok {
			var err error
			if b, err = bindingFromTag(name, f); err != nil {
				return nil, err
			}
		}
		bd, err := newBinding(name, f, b)
		if err != nil {
			return nil, err
		}
		et.bindings[f.Name] = bd
		et.order = append(et.order, f.Name)
		delete(explicit, f.Name)
	}
	if len(explicit) > 0 {
		missing := make([]string, 0, len(explicit))
		for slot := range explicit {
			missing = append(missing, slot)
		}
		sort.Strings(missing)
		return nil, &DeclarationError{Type: name, Member: missing[0], Reason: "no func-typed field with this name"}
	}
	return et, nil
}

func embedsShell(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.Anonymous && f.Type == shellType {
			return true
		}
	}
	return false
}

func inShell(t reflect.Type, index []int) bool {
	return len(index) > 1 && t.Field(index[0]).Type == shellType
}

// viaPointer reports whether reaching index dereferences an embedded pointer.
func viaPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		t = t.Field(i).Type
		if t.Kind() == reflect.Pointer {
			return true
		}
	}
	return false
}

func checkEntityMethods(t reflect.Type, fields map[string][]int, sideEffects []string) error {
	ptr := reflect.PointerTo(t)
	exempt := make(map[string]bool, len(sideEffects))
	for _, m := range sideEffects {
		if _, ok := ptr.MethodByName(m); !ok {
			return &DeclarationError{Type: typeName(t), Member: m, Reason: "side-effect method is not declared on the type"}
		}
		exempt[m] = true
	}
	promoted := promotedMethods(t)
	for i := 0; i < ptr.NumMethod(); i++ {
		m := ptr.Method(i)
		if promoted[m.Name] && !declaredOn(t, m) {
			continue
		}
		if reservedNames[m.Name] || exempt[m.Name] || isAccessor(t, fields, m) {
			continue
		}
		return &UnauthorizedLogicError{Entity: typeName(t), Member: m.Name}
	}
	return nil
}

func promotedMethods(t reflect.Type) map[string]bool {
	out := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() != reflect.Pointer && ft.Kind() != reflect.Interface {
			ft = reflect.PointerTo(ft)
		}
		for name := range methodNames(ft) {
			out[name] = true
		}
	}
	return out
}

// declaredOn reports whether m, from the method set of *t, is written on t
// itself rather than being a wrapper the compiler generated for a promoted
// method. A method that shadows a promoted one is declared on t.
func declaredOn(t reflect.Type, m reflect.Method) bool {
	if !generated(m.Func) {
		return true
	}
	// (*T).M wraps a value-receiver T.M written by hand.
	if vm, ok := t.MethodByName(m.Name); ok && !generated(vm.Func) {
		return true
	}
	return false
}

func generated(fn reflect.Value) bool {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return false
	}
	file, _ := f.FileLine(f.Entry())
	return file == "<autogenerated>"
}

func methodNames(t reflect.Type) map[string]bool {
	out := make(map[string]bool, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		out[t.Method(i).Name] = true
	}
	return out
}

// isAccessor reports whether m is a plain getter or setter of a field.
// m.Type carries the receiver as its first input.
func isAccessor(t reflect.Type, fields map[string][]int, m reflect.Method) bool {
	mt := m.Type
	fieldType := func(name string) (reflect.Type, bool) {
		index, ok := fields[name]
		if !ok {
			return nil, false
		}
		return t.FieldByIndex(index).Type, true
	}
	switch {
	case mt.NumIn() == 1 && mt.NumOut() == 1:
		for _, name := range getterFields(m.Name) {
			if ft, ok := fieldType(name); ok && ft.AssignableTo(mt.Out(0)) {
				return true
			}
		}
	case mt.NumIn() == 2 && mt.NumOut() == 0 && strings.HasPrefix(m.Name, "Set"):
		for _, name := range fieldNames(strings.TrimPrefix(m.Name, "Set")) {
			if ft, ok := fieldType(name); ok && mt.In(1).AssignableTo(ft) {
				return true
			}
		}
	}
	return false
}

func getterFields(method string) []string {
	names := fieldNames(method)
	for _, prefix := range []string{"Get", "Is"} {
		if rest, ok := strings.CutPrefix(method, prefix); ok {
			names = append(names, fieldNames(rest)...)
		}
	}
	return names
}

func fieldNames(s string) []string {
	if s == "" {
		return nil
	}
	r, size := utf8.DecodeRuneInString(s)
	return []string{s, string(unicode.ToLower(r)) + s[size:]}
}

// Name returns the entity type's name.
func (t *EntityType[T]) Name() string {
	return t.et.name
}

// Bindings returns the declared bindings in field order.
func (t *EntityType[T]) Bindings() []Binding {
	out := make([]Binding, 0, len(t.et.order))
	for _, slot := range t.et.order {
		out = append(out, t.et.bindings[slot].public())
	}
	return out
}

// ============================================================================
// Instances
// ============================================================================

type instance struct {
	state    map[string]any
	rules    any
	hasRules bool
}

// InstanceOption configures Bind and New.
type InstanceOption func(*instance)

// WithState seeds live attributes. Names matching struct fields are assigned
// to them; other names become dynamic attributes on the Shell.
func WithState(state map[string]any) InstanceOption {
	return func(in *instance) {
		if in.state == nil {
			in.state = make(map[string]any, len(state))
		}
		for k, v := range state {
			in.state[k] = v
		}
	}
}

// WithInstanceRules sets the instance-level rules override.
func WithInstanceRules(rules any) InstanceOption {
	return func(in *instance) {
		in.rules = rules
		in.hasRules = true
	}
}

// Bind attaches entity to its declared type: it records the type on the
// embedded Shell, applies the options and installs a dispatcher into every
// binding slot. An entity must not be copied after Bind; the installed
// dispatchers keep pointing at the original.
func (t *EntityType[T]) Bind(entity *T, opts ...InstanceOption) error {
	if entity == nil {
		return &CallError{Entity: t.et.name, Method: "Bind", Reason: "nil entity"}
	}
	return t.et.bind(reflect.ValueOf(entity), opts)
}

// New allocates a T and binds it.
func (t *EntityType[T]) New(opts ...InstanceOption) (*T, error) {
	entity := new(T)
	if err := t.Bind(entity, opts...); err != nil {
		return nil, err
	}
	return entity, nil
}

func (et *entityType) bind(ev reflect.Value, opts []InstanceOption) error {
	var in instance
	for _, opt := range opts {
		opt(&in)
	}
	sh := ev.Interface().(shellCarrier).shell()

	var rules *provider
	if in.hasRules {
		p, err := newProvider(in.rules)
		if err != nil {
			return err
		}
		rules = p
	}

	names := make([]string, 0, len(in.state))
	for name := range in.state {
		if _, ok := et.bindings[name]; ok {
			return &CallError{Entity: et.name, Method: "Bind", Reason: fmt.Sprintf("state key %q names a binding slot", name)}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	writes := make([]func(), 0, len(names))
	for _, name := range names {
		write, err := et.prepareAttr(ev, sh, name, in.state[name], "Bind")
		if err != nil {
			return err
		}
		writes = append(writes, write)
	}
	for _, write := range writes {
		write()
	}

	if in.hasRules {
		sh.rules = rules
	}
	sh.typ = et
	for _, slot := range et.order {
		b := et.bindings[slot]
		field := settable(ev.Elem().FieldByIndex(b.index))
		field.Set(reflect.MakeFunc(b.typ, func(args []reflect.Value) []reflect.Value {
			return et.dispatch(ev, b, args)
		}))
	}
	return nil
}

// settable returns a writable view of an addressable field, including
// unexported ones.
func settable(v reflect.Value) reflect.Value {
	if v.CanSet() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

func (et *entityType) readAttr(ev reflect.Value, sh *Shell, name string) (reflect.Value, bool) {
	if index, ok := et.fields[name]; ok {
		return settable(ev.Elem().FieldByIndex(index)), true
	}
	v, ok := sh.attrs[name]
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(v), true
}

func (et *entityType) writeAttr(ev reflect.Value, sh *Shell, name string, value any, method string) error {
	write, err := et.prepareAttr(ev, sh, name, value, method)
	if err != nil {
		return err
	}
	write()
	return nil
}

// prepareAttr checks that value can be stored as name and returns the write
// without performing it.
func (et *entityType) prepareAttr(ev reflect.Value, sh *Shell, name string, value any, method string) (func(), error) {
	index, ok := et.fields[name]
	if !ok {
		return func() { sh.SetAttr(name, value) }, nil
	}
	field := settable(ev.Elem().FieldByIndex(index))
	v, ok := assignable(reflect.ValueOf(value), field.Type())
	if !ok {
		return nil, &CallError{
			Entity: et.name,
			Method: method,
			Reason: fmt.Sprintf("cannot assign %s to field %q of type %s", v.Type(), name, field.Type()),
		}
	}
	return func() { field.Set(v) }, nil
}

// ============================================================================
// Dispatcher
// ============================================================================

// Invoke calls the binding exposed by the slot named method on entity, with
// args as the call arguments. It takes the same path as calling the slot
// directly and awaits a pending result with ctx.
func Invoke(ctx context.Context, entity any, method string, args ...any) (any, error) {
	sh, name, err := shellOf(entity, method)
	if err != nil {
		return nil, err
	}
	et := sh.typ
	if et == nil || reflect.TypeOf(entity).Elem() != et.typ {
		return nil, &CallError{Entity: name, Method: method, Reason: "entity is not bound; call EntityType.Bind first"}
	}
	b, ok := et.bindings[method]
	if !ok {
		return nil, &CallError{Entity: name, Method: method, Reason: "no binding declared for this method"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	return et.invoke(ctx, reflect.ValueOf(entity), b, in).Await(ctx)
}

func (et *entityType) dispatch(ev reflect.Value, b *binding, in []reflect.Value) []reflect.Value {
	ctx := context.Background()
	if b.withCtx {
		if c, ok := in[0].Interface().(context.Context); ok && c != nil {
			ctx = c
		}
		in = in[1:]
	}
	if b.typ.IsVariadic() && len(in) > 0 {
		last := in[len(in)-1]
		in = in[: len(in)-1 : len(in)-1]
		for i := 0; i < last.Len(); i++ {
			in = append(in, last.Index(i))
		}
	}
	p := et.invoke(ctx, ev, b, in)
	if b.shape == shapePending {
		return []reflect.Value{reflect.ValueOf(p)}
	}
	v, err := p.Await(ctx)
	return b.results(et.name, v, err)
}

// invoke runs one bound call: resolve, gather, call, then write back or
// return. When the pure function suspends, the write-back runs in whichever
// goroutine awaits the returned Pending, and only after a successful result.
func (et *entityType) invoke(ctx context.Context, ev reflect.Value, b *binding, args []reflect.Value) *Pending {
	sh := ev.Interface().(shellCarrier).shell()
	fn := b.target.fn
	if !b.target.direct {
		var err error
		if fn, _, _, err = sh.resolve(et.name, b.slot, b.target.name); err != nil {
			return Resolved(nil, err)
		}
	}

	in := make([]reflect.Value, 0, len(b.fields)+len(args))
	for _, name := range b.fields {
		v, ok := et.readAttr(ev, sh, name)
		if !ok {
			return Resolved(nil, &LiveAttributeError{Attr: name, Entity: et.name, Method: b.slot})
		}
		in = append(in, v)
	}
	in = append(in, args...)

	v, pending, err := callPure(ctx, fn, in, et.name, b.slot)
	if err != nil {
		return Resolved(nil, err)
	}
	if pending != nil {
		return pending.then(func(v any, err error) (any, error) {
			if err != nil {
				return nil, err
			}
			return et.settle(ev, sh, b, v)
		})
	}
	v, err = et.settle(ev, sh, b, v)
	return Resolved(v, err)
}

func (et *entityType) settle(ev reflect.Value, sh *Shell, b *binding, v any) (any, error) {
	if !b.mutates {
		return v, nil
	}
	if err := et.writeAttr(ev, sh, b.fields[0], v, b.slot); err != nil {
		return nil, err
	}
	return nil, nil
}

func callPure(ctx context.Context, fn reflect.Value, args []reflect.Value, entity, method string) (any, *Pending, error) {
	ft := fn.Type()
	in := make([]reflect.Value, 0, len(args)+1)
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		in = append(in, reflect.ValueOf(ctx))
	}
	in = append(in, args...)

	n := ft.NumIn()
	if (ft.IsVariadic() && len(in) < n-1) || (!ft.IsVariadic() && len(in) != n) {
		return nil, nil, &CallError{Entity: entity, Method: method, Reason: fmt.Sprintf("pure function %s takes %d arguments, got %d", ft, n, len(in))}
	}
	for i, v := range in {
		pt := paramType(ft, i)
		av, ok := assignable(v, pt)
		if !ok {
			return nil, nil, &CallError{Entity: entity, Method: method, Reason: fmt.Sprintf("argument %d is %s, pure function wants %s", i, av.Type(), pt)}
		}
		in[i] = av
	}

	out := fn.Call(in)
	switch {
	case len(out) == 0:
		return nil, nil, nil
	case len(out) == 1 && ft.Out(0) == errorType:
		return nil, nil, asError(out[0])
	case len(out) == 1 && ft.Out(0) == pendingType:
		p := out[0].Interface().(*Pending)
		if p == nil {
			return nil, nil, nil
		}
		return nil, p, nil
	case len(out) == 1:
		return out[0].Interface(), nil, nil
	case len(out) == 2 && ft.Out(1) == errorType:
		if err := asError(out[1]); err != nil {
			return nil, nil, err
		}
		return out[0].Interface(), nil, nil
	}
	return nil, nil, &CallError{Entity: entity, Method: method, Reason: fmt.Sprintf("pure function %s must return T, (T, error), error or *Pending", ft)}
}

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

// assignable adapts v to t: the zero Value and nil interfaces become t's
// zero value, non-nil interfaces are unwrapped to their dynamic value.
func assignable(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Zero(t), true
	}
	if v.Kind() == reflect.Interface && !v.Type().AssignableTo(t) {
		if v.IsNil() {
			return reflect.Zero(t), true
		}
		v = v.Elem()
	}
	return v, v.Type().AssignableTo(t)
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func errorValue(err error) reflect.Value {
	if err == nil {
		return reflect.Zero(errorType)
	}
	return reflect.ValueOf(&err).Elem()
}

// results shapes a call outcome for the slot. Slots without an error result
// panic with the error instead.
func (b *binding) results(entity string, v any, err error) []reflect.Value {
	switch b.shape {
	case shapeNone:
		if err != nil {
			panic(err)
		}
		return nil
	case shapeErr:
		return []reflect.Value{errorValue(err)}
	}

	out := b.typ.Out(0)
	if err == nil {
		rv, ok := assignable(reflect.ValueOf(v), out)
		if ok {
			if b.shape == shapeValue {
				return []reflect.Value{rv}
			}
			return []reflect.Value{rv, errorValue(nil)}
		}
		err = &CallError{Entity: entity, Method: b.slot, Reason: fmt.Sprintf("pure function returned %s, slot wants %s", rv.Type(), out)}
	}
	if b.shape == shapeValue {
		panic(err)
	}
	return []reflect.Value{reflect.Zero(out), errorValue(err)}
}
