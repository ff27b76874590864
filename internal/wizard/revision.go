package wizard

import (
	"fmt"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
)

// Baseline captures the revisions the backend already knows about.
func Baseline(items []EditItem) []Revision {
	out := make([]Revision, 0, len(items))
	for _, item := range items {
		if item.StatusCode != openboxes.ItemStatusChanged {
			continue
		}
		out = append(out, Revision{
			RequisitionItemID: item.RequisitionItemID,
			QuantityRevised:   copyInt(item.QuantityRevised),
			ReasonCode:        item.ReasonCode,
		})
	}
	return out
}

// RevisionsToSend returns the revisions that differ from the baseline.
// A row qualifies only when it carries both a revised quantity and a reason code.
func RevisionsToSend(baseline []Revision, items []EditItem) []openboxes.RevisedLineItem {
	known := make(map[string]Revision, len(baseline))
	for _, rev := range baseline {
		known[rev.RequisitionItemID] = rev
	}
	var out []openboxes.RevisedLineItem
	for _, item := range items {
		if item.QuantityRevised == nil || item.ReasonCode == "" {
			continue
		}
		if old, ok := known[item.RequisitionItemID]; ok {
			if equalInt(old.QuantityRevised, item.QuantityRevised) && old.ReasonCode == item.ReasonCode {
				continue
			}
		}
		out = append(out, openboxes.RevisedLineItem{
			ID:              item.RequisitionItemID,
			QuantityRevised: *item.QuantityRevised,
			ReasonCode:      item.ReasonCode,
		})
	}
	return out
}

// mergeBaseline records sent revisions so an unchanged save is not re-sent.
func mergeBaseline(baseline []Revision, sent []openboxes.RevisedLineItem) []Revision {
	index := make(map[string]int, len(baseline))
	out := append([]Revision(nil), baseline...)
	for i, rev := range out {
		index[rev.RequisitionItemID] = i
	}
	for _, s := range sent {
		qty := s.QuantityRevised
		rev := Revision{RequisitionItemID: s.ID, QuantityRevised: &qty, ReasonCode: s.ReasonCode}
		if i, ok := index[s.ID]; ok {
			out[i] = rev
			continue
		}
		index[s.ID] = len(out)
		out = append(out, rev)
	}
	return out
}

// prepareEditItems assigns row keys, clamps availability and links substitutions to their parent.
func prepareEditItems(items []openboxes.EditPageItem) []EditItem {
	out := make([]EditItem, 0, len(items))
	for i, item := range items {
		if item.QuantityAvailable < 0 {
			item.QuantityAvailable = 0
		}
		if len(item.SubstitutionItems) > 0 {
			subs := make([]openboxes.SubstitutionItem, len(item.SubstitutionItems))
			for j, sub := range item.SubstitutionItems {
				sub.RequisitionItemID = item.RequisitionItemID
				subs[j] = sub
			}
			item.SubstitutionItems = subs
		}
		out = append(out, EditItem{
			RowKey:       fmt.Sprintf("lineItem_%d", i+1),
			EditPageItem: item,
		})
	}
	return out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
