package cart

// OrderForm is the backend-owned checkout aggregate. It is the single source
// of truth for server-confirmed cart state: the local item list may diverge
// from it only through items marked StatusModified while a sync is pending.
type OrderForm struct {
	OrderFormID string      `json:"orderFormId"`
	Value       int64       `json:"value"` // cents, cart total
	Totalizers  []Totalizer `json:"totalizers,omitempty"`
	Items       []Item      `json:"items"`

	ShippingData           *ShippingData         `json:"shippingData,omitempty"`
	ClientProfileData      *ClientProfileData    `json:"clientProfileData,omitempty"`
	StorePreferencesData   *StorePreferencesData `json:"storePreferencesData,omitempty"`
	CheckedInPickupPointID string                `json:"checkedInPickupPointId,omitempty"`
	IsCheckedIn            bool                  `json:"isCheckedIn,omitempty"`
}

// Totalizer is one categorized component of the cart total (items, shipping,
// discounts, tax), in minor currency units.
type Totalizer struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Value int64  `json:"value"`
}

// ShippingData holds the selected and available delivery addresses.
type ShippingData struct {
	Address            *Address  `json:"address,omitempty"`
	AvailableAddresses []Address `json:"availableAddresses,omitempty"`
}

// Address is a delivery address as the order-form backend models it.
type Address struct {
	ID             string    `json:"id,omitempty"`
	AddressName    string    `json:"addressName,omitempty"`
	AddressType    string    `json:"addressType,omitempty"`
	Street         string    `json:"street,omitempty"`
	Number         string    `json:"number,omitempty"`
	Complement     string    `json:"complement,omitempty"`
	Neighborhood   string    `json:"neighborhood,omitempty"`
	City           string    `json:"city,omitempty"`
	State          string    `json:"state,omitempty"`
	Country        string    `json:"country,omitempty"`
	PostalCode     string    `json:"postalCode,omitempty"`
	Reference      string    `json:"reference,omitempty"`
	ReceiverName   string    `json:"receiverName,omitempty"`
	GeoCoordinates []float64 `json:"geoCoordinates,omitempty"`
}

// ClientProfileData identifies the buyer attached to the order form.
type ClientProfileData struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
}

// StorePreferencesData carries store-level locale settings.
type StorePreferencesData struct {
	CountryCode  string `json:"countryCode,omitempty"`
	CurrencyCode string `json:"currencyCode,omitempty"`
	TimeZone     string `json:"timeZone,omitempty"`
}

// Clone returns a deep-enough copy for rollback snapshots: the item slice and
// nested option slices are copied so later store mutations cannot reach back
// into a snapshot taken before a sync cycle.
func (f *OrderForm) Clone() *OrderForm {
	if f == nil {
		return nil
	}
	out := *f
	out.Items = cloneItems(f.Items)
	if f.Totalizers != nil {
		out.Totalizers = append([]Totalizer(nil), f.Totalizers...)
	}
	return &out
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for n, it := range items {
		out[n] = cloneItem(it)
	}
	return out
}

func cloneItem(it Item) Item {
	if it.CartIndex != nil {
		idx := *it.CartIndex
		it.CartIndex = &idx
	}
	if it.ParentItemIndex != nil {
		idx := *it.ParentItemIndex
		it.ParentItemIndex = &idx
	}
	if it.Options != nil {
		it.Options = append([]OptionInput(nil), it.Options...)
	}
	if it.AssemblyOptions != nil {
		opts := *it.AssemblyOptions
		opts.Added = append([]AddedOption(nil), it.AssemblyOptions.Added...)
		opts.Removed = append([]RemovedOption(nil), it.AssemblyOptions.Removed...)
		it.AssemblyOptions = &opts
	}
	return it
}

// CloneItems exposes the deep item copy for callers that snapshot the item
// list itself (event diffing, rollback).
func CloneItems(items []Item) []Item {
	return cloneItems(items)
}
