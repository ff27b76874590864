package openboxes

import "fmt"

// Status codes reported by the backend for stock movements.
const (
	StatusCreated   = "CREATED"
	StatusVerifying = "VERIFYING"
	StatusPicking   = "PICKING"
	StatusPacking   = "PACKING"
	StatusChecking  = "CHECKING"
)

// Line item status codes on the edit page.
const (
	ItemStatusChanged     = "CHANGED"
	ItemStatusCanceled    = "CANCELED"
	ItemStatusSubstituted = "SUBSTITUTED"
)

// LocationTypeSupplier marks supplier locations.
const LocationTypeSupplier = "SUPPLIER"

// LocationType describes the kind of a location.
type LocationType struct {
	LocationTypeCode string `json:"locationTypeCode,omitempty"`
	Description      string `json:"description,omitempty"`
}

// Location is a depot, ward or supplier.
type Location struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Type         string        `json:"type,omitempty"`
	LocationType *LocationType `json:"locationType,omitempty"`
}

// Label renders the location the way selection lists show it.
func (l *Location) Label() string {
	if l == nil {
		return ""
	}
	if l.LocationType == nil {
		return l.Name
	}
	return fmt.Sprintf("%s [%s]", l.Name, l.LocationType.Description)
}

// TypeCode returns the explicit type or falls back to the location type code.
func (l *Location) TypeCode() string {
	if l == nil {
		return ""
	}
	if l.Type != "" {
		return l.Type
	}
	if l.LocationType != nil {
		return l.LocationType.LocationTypeCode
	}
	return ""
}

// Person is a user or requester.
type Person struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

// Stocklist is a product template for an origin/destination pair.
type Stocklist struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ReasonCode justifies a quantity revision.
type ReasonCode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is the minimal product reference used by line items.
type Product struct {
	ID          string `json:"id,omitempty"`
	ProductCode string `json:"productCode,omitempty"`
	Name        string `json:"name,omitempty"`
}

// LineItem is a requisition line returned when a movement is created.
type LineItem struct {
	ID                string   `json:"id,omitempty"`
	ProductCode       string   `json:"productCode,omitempty"`
	Product           *Product `json:"product,omitempty"`
	QuantityRequested int      `json:"quantityRequested,omitempty"`
	StatusCode        string   `json:"statusCode,omitempty"`
}

// StockMovement is the header of a tracked transfer.
type StockMovement struct {
	ID            string     `json:"id"`
	Identifier    string     `json:"identifier,omitempty"`
	Name          string     `json:"name,omitempty"`
	Description   string     `json:"description,omitempty"`
	Origin        *Location  `json:"origin,omitempty"`
	Destination   *Location  `json:"destination,omitempty"`
	RequestedBy   *Person    `json:"requestedBy,omitempty"`
	DateRequested string     `json:"dateRequested,omitempty"`
	Stocklist     *Stocklist `json:"stocklist,omitempty"`
	StatusCode    string     `json:"statusCode,omitempty"`
	LineItems     []LineItem `json:"lineItems,omitempty"`
}

// SubstitutionItem is an alternate product offered for a requisition item.
type SubstitutionItem struct {
	RequisitionItemID string `json:"requisitionItemId,omitempty"`
	ProductID         string `json:"productId,omitempty"`
	ProductCode       string `json:"productCode,omitempty"`
	ProductName       string `json:"productName,omitempty"`
	QuantityAvailable int    `json:"quantityAvailable,omitempty"`
	QuantitySelected  int    `json:"quantitySelected,omitempty"`
}

// EditPageItem is one row of the step 3 payload.
type EditPageItem struct {
	RequisitionItemID    string             `json:"requisitionItemId"`
	ProductCode          string             `json:"productCode,omitempty"`
	ProductName          string             `json:"productName,omitempty"`
	Product              *Product           `json:"product,omitempty"`
	QuantityRequested    int                `json:"quantityRequested"`
	QuantityAvailable    int                `json:"quantityAvailable"`
	QuantityRevised      *int               `json:"quantityRevised"`
	ReasonCode           string             `json:"reasonCode,omitempty"`
	StatusCode           string             `json:"statusCode,omitempty"`
	SubstitutionStatus   string             `json:"substitutionStatus,omitempty"`
	SubstitutionItems    []SubstitutionItem `json:"substitutionItems,omitempty"`
	TotalMonthlyQuantity int                `json:"totalMonthlyQuantity,omitempty"`
	QuantityConsumed     int                `json:"quantityConsumed,omitempty"`
}

// EditPage wraps the step 3 items.
type EditPage struct {
	EditPageItems []EditPageItem `json:"editPageItems"`
}

// SplitLineItem allocates part of a packed line.
type SplitLineItem struct {
	ProductName     string  `json:"productName,omitempty"`
	LotNumber       string  `json:"lotNumber,omitempty"`
	ExpirationDate  string  `json:"expirationDate,omitempty"`
	BinLocationName string  `json:"binLocationName,omitempty"`
	QuantityShipped int     `json:"quantityShipped"`
	Recipient       *Person `json:"recipient,omitempty"`
	PalletName      string  `json:"palletName,omitempty"`
	BoxName         string  `json:"boxName,omitempty"`
}

// PackPageItem is one row of the step 5 payload.
type PackPageItem struct {
	ShipmentItemID  string          `json:"shipmentItemId,omitempty"`
	ProductCode     string          `json:"productCode,omitempty"`
	ProductName     string          `json:"productName,omitempty"`
	BinLocationName string          `json:"binLocationName,omitempty"`
	LotNumber       string          `json:"lotNumber,omitempty"`
	ExpirationDate  string          `json:"expirationDate,omitempty"`
	QuantityShipped int             `json:"quantityShipped"`
	UOM             string          `json:"uom,omitempty"`
	Recipient       *Person         `json:"recipient,omitempty"`
	PalletName      string          `json:"palletName,omitempty"`
	BoxName         string          `json:"boxName,omitempty"`
	SplitLineItems  []SplitLineItem `json:"splitLineItems,omitempty"`
}

// PackPage wraps the step 5 items.
type PackPage struct {
	PackPageItems []PackPageItem `json:"packPageItems"`
}

// StepData is the payload of GET /api/stockMovements/:id?stepNumber=N.
type StepData struct {
	ID         string    `json:"id,omitempty"`
	StatusCode string    `json:"statusCode,omitempty"`
	EditPage   *EditPage `json:"editPage,omitempty"`
	PackPage   *PackPage `json:"packPage,omitempty"`
}

// RevisedLineItem is the outgoing revision for one requisition item.
type RevisedLineItem struct {
	ID              string `json:"id"`
	QuantityRevised int    `json:"quantityRevised"`
	ReasonCode      string `json:"reasonCode"`
}

// StatusUpdate moves a stock movement to another status.
type StatusUpdate struct {
	Status         string `json:"status"`
	CreatePicklist string `json:"createPicklist,omitempty"`
}

// SessionInfo describes the authenticated upstream session.
type SessionInfo struct {
	User              Person    `json:"user"`
	Location          *Location `json:"location,omitempty"`
	IsSuperuser       bool      `json:"isSuperuser"`
	SupportedLocales  []string  `json:"supportedLocales,omitempty"`
	ActiveLanguage    string    `json:"activeLanguage,omitempty"`
	HostLabel         string    `json:"hostLabel,omitempty"`
	MenuConfiguration any       `json:"menuConfig,omitempty"`
}
