package builder

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/GregMSThompson/dashboard-backend/internal/document"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

const DefaultHistoryLimit = 100

// Store owns the edit history of one open document. Every mutation clones
// the current snapshot, changes the clone, drops any redo tail and appends
// the clone. Past snapshots are never modified.
type Store struct {
	mu      sync.Mutex
	history []*models.Document
	cursor  int
	limit   int
	dirty   bool
	newID   func() string

	observers map[int]func(*models.Document)
	nextObs   int
}

type Option func(*Store)

// WithHistoryLimit caps the number of kept snapshots; the oldest are dropped.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func New(doc *models.Document, opts ...Option) *Store {
	if doc == nil {
		doc = document.NewDefault()
	}
	s := &Store{
		history:   []*models.Document{document.Clone(doc)},
		limit:     DefaultHistoryLimit,
		newID:     uuid.NewString,
		observers: map[int]func(*models.Document){},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Document returns a copy of the current snapshot.
func (s *Store) Document() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return document.Clone(s.current())
}

func (s *Store) current() *models.Document { return s.history[s.cursor] }

func (s *Store) mutate(fn func(doc *models.Document) error) error {
	s.mu.Lock()
	next := document.Clone(s.current())
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.history = append(s.history[:s.cursor+1], next)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append([]*models.Document{}, s.history[over:]...)
	}
	s.cursor = len(s.history) - 1
	s.dirty = true
	snap, obs := s.snapshotLocked()
	s.mu.Unlock()
	notify(obs, snap)
	return nil
}

// --- widgets ---

// AddWidget appends a top-level widget under a fresh id. A widget without a
// usable layout is placed below everything else with a size that suits its
// kind. Children of a card get fresh ids as well.
func (s *Store) AddWidget(w models.Widget) (models.Widget, error) {
	if w.Type == "" {
		return models.Widget{}, errs.NewFieldValidationError("type", "is required")
	}
	if len(w.Children) > 0 && w.Type != document.TypeCard {
		return models.Widget{}, errs.NewFieldValidationError("children", "only card widgets can contain children")
	}
	var added models.Widget
	err := s.mutate(func(doc *models.Document) error {
		used := usedIDs(doc)
		w = document.CloneWidget(w)
		w.ID = s.freshID(used)
		if !hasSize(w.Layout) {
			w.Layout = placeBelow(w.Type, doc.Widgets)
		}
		if err := document.CheckLayout("layout", w.Layout); err != nil {
			return err
		}
		for i := range w.Children {
			c := &w.Children[i]
			if c.Type == document.TypeCard || len(c.Children) > 0 {
				return errs.NewFieldValidationError("children", "cards cannot be nested")
			}
			c.ID = s.freshID(used)
			if !hasSize(c.Layout) {
				c.Layout = placeBelow(c.Type, w.Children[:i])
			}
			if err := document.CheckLayout(fmt.Sprintf("children[%d].layout", i), c.Layout); err != nil {
				return err
			}
		}
		growCard(&w)
		doc.Widgets = append(doc.Widgets, w)
		added = document.CloneWidget(w)
		return nil
	})
	return added, err
}

// AddChildWidget appends a widget inside a card.
func (s *Store) AddChildWidget(cardID string, child models.Widget) (models.Widget, error) {
	if child.Type == "" {
		return models.Widget{}, errs.NewFieldValidationError("type", "is required")
	}
	if child.Type == document.TypeCard || len(child.Children) > 0 {
		return models.Widget{}, errs.NewFieldValidationError("type", "cards cannot be nested")
	}
	var added models.Widget
	err := s.mutate(func(doc *models.Document) error {
		card, err := findCard(doc, cardID)
		if err != nil {
			return err
		}
		child = document.CloneWidget(child)
		child.ID = s.freshID(usedIDs(doc))
		if !hasSize(child.Layout) {
			child.Layout = placeBelow(child.Type, card.Children)
		}
		if err := document.CheckLayout("layout", child.Layout); err != nil {
			return err
		}
		card.Children = append(card.Children, child)
		growCard(card)
		added = document.CloneWidget(child)
		return nil
	})
	return added, err
}

func (s *Store) UpdateWidget(id string, patch WidgetPatch) error {
	return s.mutate(func(doc *models.Document) error {
		i := indexOf(doc.Widgets, id)
		if i < 0 {
			return errs.NewNotFoundError("widget not found: " + id)
		}
		w := &doc.Widgets[i]
		patch.apply(w)
		if patch.touchesLayout() {
			if err := document.CheckLayout("layout", w.Layout); err != nil {
				return err
			}
		}
		if w.Type == document.TypeCard {
			growCard(w)
		}
		return nil
	})
}

func (s *Store) UpdateChildWidget(cardID, childID string, patch WidgetPatch) error {
	return s.mutate(func(doc *models.Document) error {
		card, err := findCard(doc, cardID)
		if err != nil {
			return err
		}
		i := indexOf(card.Children, childID)
		if i < 0 {
			return errs.NewNotFoundError("child widget not found: " + childID)
		}
		patch.apply(&card.Children[i])
		if patch.touchesLayout() {
			if err := document.CheckLayout("layout", card.Children[i].Layout); err != nil {
				return err
			}
			growCard(card)
		}
		return nil
	})
}

// RemoveWidget deletes a top-level widget, its children, and any linkage
// references to them.
func (s *Store) RemoveWidget(id string) error {
	return s.mutate(func(doc *models.Document) error {
		i := indexOf(doc.Widgets, id)
		if i < 0 {
			return errs.NewNotFoundError("widget not found: " + id)
		}
		removed := map[string]bool{id: true}
		for _, c := range doc.Widgets[i].Children {
			removed[c.ID] = true
		}
		doc.Widgets = append(doc.Widgets[:i], doc.Widgets[i+1:]...)
		doc.Linkages = pruneLinkages(doc.Linkages, removed)
		return nil
	})
}

func (s *Store) RemoveChildWidget(cardID, childID string) error {
	return s.mutate(func(doc *models.Document) error {
		card, err := findCard(doc, cardID)
		if err != nil {
			return err
		}
		i := indexOf(card.Children, childID)
		if i < 0 {
			return errs.NewNotFoundError("child widget not found: " + childID)
		}
		card.Children = append(card.Children[:i], card.Children[i+1:]...)
		if len(card.Children) == 0 {
			card.Children = nil
		}
		doc.Linkages = pruneLinkages(doc.Linkages, map[string]bool{childID: true})
		return nil
	})
}

// --- layouts ---

// UpdateLayout replaces one widget's layout. Children are found too, and
// their card grows to fit.
func (s *Store) UpdateLayout(id string, layout models.Layout) error {
	if err := document.CheckLayout("layout", layout); err != nil {
		return err
	}
	return s.mutate(func(doc *models.Document) error {
		if i := indexOf(doc.Widgets, id); i >= 0 {
			doc.Widgets[i].Layout = layout
			if doc.Widgets[i].Type == document.TypeCard {
				growCard(&doc.Widgets[i])
			}
			return nil
		}
		for i := range doc.Widgets {
			card := &doc.Widgets[i]
			if j := indexOf(card.Children, id); j >= 0 {
				card.Children[j].Layout = layout
				growCard(card)
				return nil
			}
		}
		return errs.NewNotFoundError("widget not found: " + id)
	})
}

// UpdateAllLayouts replaces top-level layouts in bulk. Ids that no longer
// exist are skipped; one invalid layout rejects the whole batch.
func (s *Store) UpdateAllLayouts(items []LayoutItem) error {
	if err := checkItems(items); err != nil {
		return err
	}
	return s.mutate(func(doc *models.Document) error {
		for _, it := range items {
			if i := indexOf(doc.Widgets, it.ID); i >= 0 {
				doc.Widgets[i].Layout = it.Layout
				if doc.Widgets[i].Type == document.TypeCard {
					growCard(&doc.Widgets[i])
				}
			}
		}
		return nil
	})
}

// UpdateChildLayouts replaces the layouts of a card's children in bulk and
// grows the card when its content no longer fits.
func (s *Store) UpdateChildLayouts(cardID string, items []LayoutItem) error {
	if err := checkItems(items); err != nil {
		return err
	}
	return s.mutate(func(doc *models.Document) error {
		card, err := findCard(doc, cardID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if i := indexOf(card.Children, it.ID); i >= 0 {
				card.Children[i].Layout = it.Layout
			}
		}
		growCard(card)
		return nil
	})
}

// --- queries ---

// FindWidget looks at top-level widgets first, then one level into cards.
// parentID is empty for top-level widgets.
func (s *Store) FindWidget(id string) (w models.Widget, parentID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.current()
	if i := indexOf(doc.Widgets, id); i >= 0 {
		return document.CloneWidget(doc.Widgets[i]), "", true
	}
	for _, card := range doc.Widgets {
		if j := indexOf(card.Children, id); j >= 0 {
			return document.CloneWidget(card.Children[j]), card.ID, true
		}
	}
	return models.Widget{}, "", false
}

// --- history ---

// Undo steps back one snapshot. It reports false at the start of history.
func (s *Store) Undo() bool {
	return s.move(-1)
}

// Redo steps forward one snapshot. It reports false at the end of history.
func (s *Store) Redo() bool {
	return s.move(1)
}

func (s *Store) move(delta int) bool {
	s.mu.Lock()
	next := s.cursor + delta
	if next < 0 || next >= len(s.history) {
		s.mu.Unlock()
		return false
	}
	s.cursor = next
	s.dirty = true
	snap, obs := s.snapshotLocked()
	s.mu.Unlock()
	notify(obs, snap)
	return true
}

func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor > 0
}

func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor < len(s.history)-1
}

func (s *Store) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// MarkSaved clears the dirty flag once persistence has acknowledged a save.
func (s *Store) MarkSaved() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// Subscribe registers fn to receive a copy of the current document after
// every mutation, undo and redo. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(*models.Document)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() (*models.Document, []func(*models.Document)) {
	if len(s.observers) == 0 {
		return nil, nil
	}
	obs := make([]func(*models.Document), 0, len(s.observers))
	for _, fn := range s.observers {
		obs = append(obs, fn)
	}
	return document.Clone(s.current()), obs
}

func notify(obs []func(*models.Document), doc *models.Document) {
	for _, fn := range obs {
		fn(document.Clone(doc))
	}
}

// --- helpers ---

func (s *Store) freshID(used map[string]bool) string {
	for {
		id := s.newID()
		if !used[id] {
			used[id] = true
			return id
		}
	}
}

func usedIDs(doc *models.Document) map[string]bool {
	used := map[string]bool{}
	for _, e := range document.Compile(doc).Entries() {
		used[e.Widget.ID] = true
	}
	return used
}

func indexOf(widgets []models.Widget, id string) int {
	for i := range widgets {
		if widgets[i].ID == id {
			return i
		}
	}
	return -1
}

func findCard(doc *models.Document, cardID string) (*models.Widget, error) {
	i := indexOf(doc.Widgets, cardID)
	if i < 0 {
		return nil, errs.NewNotFoundError("card not found: " + cardID)
	}
	if doc.Widgets[i].Type != document.TypeCard {
		return nil, errs.NewFieldValidationError("cardId", "widget "+cardID+" is not a card")
	}
	return &doc.Widgets[i], nil
}

func checkItems(items []LayoutItem) error {
	for i, it := range items {
		if err := document.CheckLayout(fmt.Sprintf("layouts[%d].layout", i), it.Layout); err != nil {
			return err
		}
	}
	return nil
}

func hasSize(l models.Layout) bool { return l.W > 0 && l.H > 0 }

func placeBelow(widgetType string, siblings []models.Widget) models.Layout {
	l := document.DefaultLayout(widgetType)
	for _, w := range siblings {
		if b := w.Layout.Bottom(); b > l.Y {
			l.Y = b
		}
	}
	return l
}

// growCard raises a card's height so the lowest child plus the header row
// fits. Cards never shrink here.
func growCard(card *models.Widget) {
	if len(card.Children) == 0 {
		return
	}
	bottom := 0
	for _, c := range card.Children {
		if b := c.Layout.Bottom(); b > bottom {
			bottom = b
		}
	}
	need := bottom + document.CardOptionsOf(*card).HeaderRows()
	if card.Layout.H < need {
		card.Layout.H = need
	}
}

func pruneLinkages(links []models.Linkage, removed map[string]bool) []models.Linkage {
	out := links[:0]
	for _, l := range links {
		if removed[l.SourceWidgetID] {
			continue
		}
		targets := l.TargetWidgetIDs[:0]
		for _, t := range l.TargetWidgetIDs {
			if !removed[t] {
				targets = append(targets, t)
			}
		}
		if len(l.TargetWidgetIDs) > 0 && len(targets) == 0 {
			continue
		}
		l.TargetWidgetIDs = targets
		out = append(out, l)
	}
	return out
}
