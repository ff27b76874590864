package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
)

func TestPrepareEditItems(t *testing.T) {
	parent := editItem("req-1", 5, -3)
	parent.SubstitutionItems = []openboxes.SubstitutionItem{{ProductCode: "ALT"}, {ProductCode: "ALT2", RequisitionItemID: "other"}}

	items := prepareEditItems([]openboxes.EditPageItem{parent, editItem("req-2", 1, 1)})
	require.Len(t, items, 2)
	require.Equal(t, "lineItem_1", items[0].RowKey)
	require.Equal(t, "lineItem_2", items[1].RowKey)
	require.Zero(t, items[0].QuantityAvailable)
	for _, sub := range items[0].SubstitutionItems {
		require.Equal(t, "req-1", sub.RequisitionItemID)
	}
	require.Equal(t, "other", parent.SubstitutionItems[1].RequisitionItemID)
}

func TestBaselineKeepsChangedRows(t *testing.T) {
	items := prepareEditItems([]openboxes.EditPageItem{
		withStatus(withRevision(editItem("a", 5, 10), intPtr(3), "DAMAGED"), openboxes.ItemStatusChanged),
		withRevision(editItem("b", 5, 10), intPtr(2), "DAMAGED"),
	})
	base := Baseline(items)
	require.Equal(t, []Revision{{RequisitionItemID: "a", QuantityRevised: intPtr(3), ReasonCode: "DAMAGED"}}, base)

	*items[0].QuantityRevised = 99
	require.Equal(t, 3, *base[0].QuantityRevised)
}

func TestRevisionsToSend(t *testing.T) {
	baseline := []Revision{{RequisitionItemID: "a", QuantityRevised: intPtr(3), ReasonCode: "DAMAGED"}}
	items := []EditItem{
		{EditPageItem: withRevision(editItem("a", 5, 10), intPtr(3), "DAMAGED")},
		{EditPageItem: withRevision(editItem("b", 5, 10), intPtr(0), "EXPIRED")},
		{EditPageItem: withRevision(editItem("c", 5, 10), intPtr(2), "")},
		{EditPageItem: withRevision(editItem("d", 5, 10), nil, "EXPIRED")},
	}

	got := RevisionsToSend(baseline, items)
	require.Equal(t, []openboxes.RevisedLineItem{{ID: "b", QuantityRevised: 0, ReasonCode: "EXPIRED"}}, got)

	items[0].ReasonCode = "EXPIRED"
	got = RevisionsToSend(baseline, items)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)

	items[0].ReasonCode = "DAMAGED"
	items[0].QuantityRevised = intPtr(6)
	got = RevisionsToSend(baseline, items)
	require.Len(t, got, 2)
	require.Equal(t, openboxes.RevisedLineItem{ID: "a", QuantityRevised: 6, ReasonCode: "DAMAGED"}, got[0])
}

func TestMergeBaseline(t *testing.T) {
	baseline := []Revision{{RequisitionItemID: "a", QuantityRevised: intPtr(3), ReasonCode: "DAMAGED"}}
	merged := mergeBaseline(baseline, []openboxes.RevisedLineItem{
		{ID: "a", QuantityRevised: 2, ReasonCode: "DAMAGED"},
		{ID: "b", QuantityRevised: 1, ReasonCode: "EXPIRED"},
	})
	require.Len(t, merged, 2)
	require.Equal(t, 2, *merged[0].QuantityRevised)
	require.Equal(t, "b", merged[1].RequisitionItemID)
	require.Equal(t, 3, *baseline[0].QuantityRevised)
}
