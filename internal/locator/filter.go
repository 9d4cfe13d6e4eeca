// internal/locator/filter.go
package locator

import (
	"context"
	"strings"
)

// ElementInfo is a plain snapshot of an element taken once, so filters can be
// pure functions over data instead of loops of driver calls.
type ElementInfo struct {
	Text    string
	Visible bool
}

// Predicate decides whether a snapshot qualifies.
type Predicate func(ElementInfo) bool

// TextContains matches when the normalized text contains sub.
func TextContains(sub string) Predicate {
	needle := normalizeSpace(sub)
	return func(info ElementInfo) bool { return strings.Contains(normalizeSpace(info.Text), needle) }
}

// TextContainsFold is TextContains ignoring case.
func TextContainsFold(sub string) Predicate {
	needle := strings.ToLower(normalizeSpace(sub))
	return func(info ElementInfo) bool {
		return strings.Contains(strings.ToLower(normalizeSpace(info.Text)), needle)
	}
}

// TextEquals matches when the normalized text equals s.
func TextEquals(s string) Predicate {
	want := normalizeSpace(s)
	return func(info ElementInfo) bool { return normalizeSpace(info.Text) == want }
}

// VisibleOnly matches visible elements.
func VisibleOnly() Predicate {
	return func(info ElementInfo) bool { return info.Visible }
}

func Not(p Predicate) Predicate {
	return func(info ElementInfo) bool { return !p(info) }
}

// All matches when every predicate matches. All() matches everything.
func All(ps ...Predicate) Predicate {
	return func(info ElementInfo) bool {
		for _, p := range ps {
			if !p(info) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one predicate matches.
func Any(ps ...Predicate) Predicate {
	return func(info ElementInfo) bool {
		for _, p := range ps {
			if p(info) {
				return true
			}
		}
		return false
	}
}

// Filter returns the indexes of infos accepted by pred, in order.
func Filter(infos []ElementInfo, pred Predicate) []int {
	var out []int
	for i, info := range infos {
		if pred(info) {
			out = append(out, i)
		}
	}
	return out
}

// Snapshot pairs an element with the data captured from it.
type Snapshot struct {
	Element Element
	Info    ElementInfo
}

// TakeSnapshot reads text and visibility for el.
func TakeSnapshot(ctx context.Context, d Driver, el Element) (ElementInfo, error) {
	text, err := d.Text(ctx, el)
	if err != nil {
		return ElementInfo{}, err
	}
	visible, err := d.IsVisible(ctx, el)
	if err != nil {
		return ElementInfo{}, err
	}
	return ElementInfo{Text: text, Visible: visible}, nil
}

// FindAllMatching queries sel once and keeps the elements accepted by pred.
// Elements that go stale while being read are skipped; fatal driver errors
// are returned.
func FindAllMatching(ctx context.Context, d Driver, sel Selector, pred Predicate) ([]Snapshot, error) {
	if err := sel.Validate(); err != nil {
		return nil, NewDriverError("find all", err)
	}
	els, err := d.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(els))
	infos := make([]ElementInfo, 0, len(els))
	for _, el := range els {
		info, err := TakeSnapshot(ctx, d, el)
		if err != nil {
			if IsTransient(err) {
				continue
			}
			return nil, err
		}
		snaps = append(snaps, Snapshot{Element: el, Info: info})
		infos = append(infos, info)
	}
	keep := Filter(infos, pred)
	out := make([]Snapshot, 0, len(keep))
	for _, i := range keep {
		out = append(out, snaps[i])
	}
	return out, nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
