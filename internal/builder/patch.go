package builder

import (
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/helpers"
)

// WidgetPatch is a partial widget update. Nil fields are left untouched.
// Style and Options are merged key by key; a nil value removes the key.
type WidgetPatch struct {
	Title       *string             `json:"title,omitempty"`
	Layout      *LayoutPatch        `json:"layout,omitempty"`
	Style       map[string]any      `json:"style,omitempty"`
	Options     map[string]any      `json:"options,omitempty"`
	DataBinding *models.DataBinding `json:"dataBinding,omitempty"`
}

type LayoutPatch struct {
	X    *int `json:"x,omitempty"`
	Y    *int `json:"y,omitempty"`
	W    *int `json:"w,omitempty"`
	H    *int `json:"h,omitempty"`
	MinW *int `json:"minW,omitempty"`
	MinH *int `json:"minH,omitempty"`
}

// LayoutItem is one entry of a bulk layout replacement, as produced by a
// drag or resize on the grid.
type LayoutItem struct {
	ID     string        `json:"id"`
	Layout models.Layout `json:"layout"`
}

func (p WidgetPatch) apply(w *models.Widget) {
	if p.Title != nil {
		w.Title = *p.Title
	}
	if p.Layout != nil {
		p.Layout.apply(&w.Layout)
	}
	w.Style = mergeMap(w.Style, p.Style)
	w.Options = mergeMap(w.Options, p.Options)
	if p.DataBinding != nil {
		b := *p.DataBinding
		w.DataBinding = &b
	}
}

func (p LayoutPatch) apply(l *models.Layout) {
	l.X = helpers.ValueOr(p.X, l.X)
	l.Y = helpers.ValueOr(p.Y, l.Y)
	l.W = helpers.ValueOr(p.W, l.W)
	l.H = helpers.ValueOr(p.H, l.H)
	l.MinW = helpers.ValueOr(p.MinW, l.MinW)
	l.MinH = helpers.ValueOr(p.MinH, l.MinH)
}

// touchesLayout reports whether the patch changes geometry.
func (p WidgetPatch) touchesLayout() bool { return p.Layout != nil }

func mergeMap(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	if len(dst) == 0 {
		return nil
	}
	return dst
}
