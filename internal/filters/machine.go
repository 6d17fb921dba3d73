package filters

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/GregMSThompson/dashboard-backend/internal/document"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

// State is the lifecycle of a single filter value key.
type State int

const (
	StateUnset State = iota
	StateDefault
	StateUserSet
	StateFixed
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "default"
	case StateUserSet:
		return "user"
	case StateFixed:
		return "fixed"
	default:
		return "unset"
	}
}

// Snapshot is what observers receive after every transition.
type Snapshot struct {
	Pending   map[string]any
	Applied   map[string]any
	Unapplied bool
}

// Machine holds pending and applied filter values for one dashboard view.
// In auto mode every pending change is mirrored into applied immediately;
// in manual mode applied only moves on Apply. A Machine is not safe for
// concurrent use.
type Machine struct {
	configs []document.FilterConfig
	owner   map[string]int // value key -> index into configs
	fixed   map[string]bool
	manual  bool
	now     func() time.Time

	initial       map[string]any
	initialStates map[string]State
	pending       map[string]any
	applied       map[string]any
	states        map[string]State

	observers map[int]func(Snapshot)
	nextObs   int
}

type Option func(*Machine)

// WithClock fixes the time used to expand date presets.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// New builds a machine and computes initial values. mode is
// document.FilterModeAuto or document.FilterModeManual.
func New(configs []document.FilterConfig, mode string, opts ...Option) *Machine {
	m := &Machine{
		configs:   configs,
		owner:     map[string]int{},
		fixed:     map[string]bool{},
		manual:    mode == document.FilterModeManual,
		now:       time.Now,
		observers: map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(m)
	}
	for i, c := range configs {
		m.owner[c.FilterKey] = i
		for _, k := range c.Keys() {
			m.owner[k] = i
		}
	}
	m.initial, m.initialStates = m.initialValues()
	m.pending = cloneValues(m.initial)
	m.applied = cloneValues(m.initial)
	m.states = cloneStates(m.initialStates)
	return m
}

// ForDocument builds a machine from a document's filter widgets and its
// effective apply mode.
func ForDocument(doc *models.Document, opts ...Option) *Machine {
	ix := document.Compile(doc)
	return New(ix.FilterConfigs(), document.EffectiveApplyMode(doc, ix), opts...)
}

func (m *Machine) initialValues() (map[string]any, map[string]State) {
	values := map[string]any{}
	states := map[string]State{}
	now := m.now()
	for _, c := range m.configs {
		switch {
		case c.IsFixed():
			if c.Kind.IsRange() {
				if r, ok := expandRange(c, c.FixedValue, now); ok {
					for k, v := range r {
						values[k] = v
					}
				}
				m.fixed[c.FilterKey] = true
			} else {
				values[c.FilterKey] = c.FixedValue
			}
			for _, k := range c.Keys() {
				m.fixed[k] = true
				states[k] = StateFixed
			}
		case c.Kind.IsRange():
			if r, ok := expandRange(c, c.DefaultValue, now); ok {
				for k, v := range r {
					values[k] = v
					states[k] = StateDefault
				}
			}
		case c.DefaultValue != nil:
			values[c.FilterKey] = c.DefaultValue
			states[c.FilterKey] = StateDefault
		}
	}
	return values, states
}

// expandRange accepts a preset name, a [start, end] pair or an object keyed
// by the output keys (or "start"/"end").
func expandRange(c document.FilterConfig, v any, now time.Time) (map[string]any, bool) {
	startKey, endKey := c.OutputKeys[0], c.OutputKeys[1]
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil, false
		}
		start, end := ExpandPreset(t, now)
		return map[string]any{startKey: FormatInstant(start), endKey: FormatInstant(end)}, true
	case []any:
		if len(t) != 2 {
			return nil, false
		}
		return map[string]any{startKey: t[0], endKey: t[1]}, true
	case map[string]any:
		start, okS := t[startKey]
		end, okE := t[endKey]
		if !okS || !okE {
			start, okS = t["start"]
			end, okE = t["end"]
		}
		if !okS || !okE {
			return nil, false
		}
		return map[string]any{startKey: start, endKey: end}, true
	}
	return nil, false
}

// SetValue records a user change. Writes to fixed filters are ignored.
// A nil value clears the key. Setting a range filter's own key accepts
// anything expandRange understands and writes both output keys.
func (m *Machine) SetValue(key string, v any) {
	m.SetValues(map[string]any{key: v})
}

// SetValues applies several changes as one transition. Only keys whose
// value actually changes cascade to their dependents, and a dependent set
// in the same batch keeps its value when the parent's new options still
// offer it.
func (m *Machine) SetValues(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var changed []string
	explicit := map[string]bool{}
	for _, key := range keys {
		if values[key] != nil && !m.fixed[key] {
			explicit[key] = true
		}
		changed = append(changed, m.set(key, values[key])...)
	}
	if len(changed) == 0 {
		return
	}
	m.cascade(changed, explicit)
	m.settle()
}

// Clear removes a value; fixed filters are left alone.
func (m *Machine) Clear(key string) {
	m.SetValue(key, nil)
}

func (m *Machine) set(key string, v any) []string {
	if m.fixed[key] {
		return nil
	}
	if i, ok := m.owner[key]; ok {
		c := m.configs[i]
		if c.Kind.IsRange() && key == c.FilterKey {
			before := m.snapshotKeys(c.OutputKeys)
			if v == nil {
				for _, k := range c.OutputKeys {
					delete(m.pending, k)
					m.states[k] = StateUnset
				}
			} else {
				r, ok := expandRange(c, v, m.now())
				if !ok {
					return nil
				}
				for k, val := range r {
					m.pending[k] = val
					m.states[k] = StateUserSet
				}
			}
			if reflect.DeepEqual(before, m.snapshotKeys(c.OutputKeys)) {
				return nil
			}
			return append([]string{key}, c.OutputKeys...)
		}
	}
	prev, had := m.pending[key]
	if v == nil {
		delete(m.pending, key)
		m.states[key] = StateUnset
		if !had {
			return nil
		}
	} else {
		m.pending[key] = v
		m.states[key] = StateUserSet
		if had && reflect.DeepEqual(prev, v) {
			return nil
		}
	}
	return []string{key}
}

func (m *Machine) snapshotKeys(keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m.pending[k]; ok {
			out[k] = v
		}
	}
	return out
}

// cascade resets every filter that depends, directly or through a chain,
// on one of the changed keys. Each dependent is reset at most once per
// transition so a cyclic optionsMap cannot loop. Dependents in keep retain
// their pending value while the new options still contain it.
func (m *Machine) cascade(changed []string, keep map[string]bool) {
	queue := append([]string{}, changed...)
	visited := map[string]bool{}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, c := range m.configs {
			if c.DependsOn == nil || c.DependsOn.FilterKey != parent || visited[c.FilterKey] {
				continue
			}
			visited[c.FilterKey] = true
			if m.fixed[c.FilterKey] {
				continue
			}
			opts := c.DependsOn.OptionsMap[stringify(m.pending[parent])]
			if keep[c.FilterKey] && offers(opts, m.pending[c.FilterKey]) {
				continue
			}
			if len(opts) > 0 {
				m.pending[c.FilterKey] = opts[0].Value
				m.states[c.FilterKey] = StateDefault
			} else {
				delete(m.pending, c.FilterKey)
				m.states[c.FilterKey] = StateUnset
			}
			queue = append(queue, c.FilterKey)
		}
	}
}

func (m *Machine) settle() {
	if !m.manual {
		m.applied = cloneValues(m.pending)
	}
	m.notify()
}

// Apply publishes pending values to data-bound widgets.
func (m *Machine) Apply() {
	m.applied = cloneValues(m.pending)
	m.notify()
}

// Discard drops unapplied changes.
func (m *Machine) Discard() {
	m.pending = cloneValues(m.applied)
	m.notify()
}

// Reset returns both value sets to their initial state.
func (m *Machine) Reset() {
	m.pending = cloneValues(m.initial)
	m.applied = cloneValues(m.initial)
	m.states = cloneStates(m.initialStates)
	m.notify()
}

func (m *Machine) Pending() map[string]any { return cloneValues(m.pending) }
func (m *Machine) Applied() map[string]any { return cloneValues(m.applied) }
func (m *Machine) Initial() map[string]any { return cloneValues(m.initial) }

func (m *Machine) HasUnappliedChanges() bool {
	return !reflect.DeepEqual(m.pending, m.applied)
}

func (m *Machine) Manual() bool { return m.manual }

func (m *Machine) Configs() []document.FilterConfig { return m.configs }

func (m *Machine) State(key string) State {
	if m.fixed[key] {
		return StateFixed
	}
	return m.states[key]
}

// Options returns the choices currently offered by a filter: the static
// list, or for dependent filters the list selected by the parent's
// pending value.
func (m *Machine) Options(filterKey string) []models.FilterOption {
	i, ok := m.owner[filterKey]
	if !ok {
		return nil
	}
	c := m.configs[i]
	if c.DependsOn == nil {
		return c.Options
	}
	return c.DependsOn.OptionsMap[stringify(m.pending[c.DependsOn.FilterKey])]
}

// Subscribe registers fn for every transition and returns its cancel func.
func (m *Machine) Subscribe(fn func(Snapshot)) func() {
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() { delete(m.observers, id) }
}

func (m *Machine) notify() {
	if len(m.observers) == 0 {
		return
	}
	snap := Snapshot{Pending: m.Pending(), Applied: m.Applied(), Unapplied: m.HasUnappliedChanges()}
	for _, fn := range m.observers {
		fn(snap)
	}
}

func offers(opts []models.FilterOption, v any) bool {
	want := stringify(v)
	for _, o := range opts {
		if stringify(o.Value) == want {
			return true
		}
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func cloneValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.([]any); ok {
			v = append([]any{}, s...)
		}
		out[k] = v
	}
	return out
}

func cloneStates(in map[string]State) map[string]State {
	out := make(map[string]State, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
