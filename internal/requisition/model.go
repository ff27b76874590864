// Package requisition implements the legacy requisition form contract: the
// server payload, the merge of the save response and the local draft cache.
package requisition

import "errors"

// ErrSaveRejected is returned when the backend answers a save with success=false.
var ErrSaveRejected = errors.New("requisition: save rejected")

// Item is one requisition line.
type Item struct {
	ID            string `json:"id,omitempty"`
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	Comment       string `json:"comment,omitempty"`
	Substitutable bool   `json:"substitutable"`
	Recipient     string `json:"recipient,omitempty"`
	OrderIndex    int    `json:"orderIndex"`
	Version       *int   `json:"version,omitempty"`
}

// Requisition is the legacy requisition model.
type Requisition struct {
	ID                    string `json:"id,omitempty"`
	Name                  string `json:"name,omitempty"`
	Version               *int   `json:"version,omitempty"`
	LastUpdated           string `json:"lastUpdated,omitempty"`
	Status                string `json:"status,omitempty"`
	OriginID              string `json:"originId,omitempty"`
	DateRequested         string `json:"dateRequested,omitempty"`
	RequestedDeliveryDate string `json:"requestedDeliveryDate,omitempty"`
	RequestedByID         string `json:"requestedById,omitempty"`
	RecipientProgram      string `json:"recipientProgram,omitempty"`
	Items                 []Item `json:"requisitionItems,omitempty"`
}

// Payload builds the body posted to the backend. Server-managed fields
// (version, status, lastUpdated and item versions) are left out.
func (r Requisition) Payload() map[string]any {
	items := make([]map[string]any, len(r.Items))
	for i, item := range r.Items {
		m := map[string]any{
			"product.id":    item.ProductID,
			"quantity":      item.Quantity,
			"comment":       item.Comment,
			"substitutable": item.Substitutable,
			"recipient":     item.Recipient,
			"orderIndex":    item.OrderIndex,
		}
		if item.ID != "" {
			m["id"] = item.ID
		}
		items[i] = m
	}
	out := map[string]any{
		"name":                  r.Name,
		"origin.id":             r.OriginID,
		"requestedBy.id":        r.RequestedByID,
		"dateRequested":         r.DateRequested,
		"requestedDeliveryDate": r.RequestedDeliveryDate,
		"recipientProgram":      r.RecipientProgram,
		"requisitionItems":      items,
	}
	if r.ID != "" {
		out["id"] = r.ID
	}
	return out
}

// SavedItem is the server echo of one line.
type SavedItem struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"orderIndex"`
	Version    int    `json:"version"`
}

// SaveResponse is the server echo of a saved requisition.
type SaveResponse struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	LastUpdated string      `json:"lastUpdated"`
	Version     int         `json:"version"`
	Items       []SavedItem `json:"requisitionItems"`
}

// Merge applies the server-managed fields of resp. Lines are matched by orderIndex.
func (r *Requisition) Merge(resp SaveResponse) {
	r.ID = resp.ID
	r.Status = resp.Status
	r.LastUpdated = resp.LastUpdated
	version := resp.Version
	r.Version = &version

	byIndex := make(map[int]SavedItem, len(resp.Items))
	for _, saved := range resp.Items {
		byIndex[saved.OrderIndex] = saved
	}
	for i := range r.Items {
		saved, ok := byIndex[r.Items[i].OrderIndex]
		if !ok {
			continue
		}
		v := saved.Version
		r.Items[i].ID = saved.ID
		r.Items[i].Version = &v
	}
}
