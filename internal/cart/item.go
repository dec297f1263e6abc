// Package cart defines the data structures for the local minicart state
// and the remote order-form aggregate it reconciles against.
package cart

// ItemStatus marks whether a cart item carries local changes that the
// remote order-form backend has not confirmed yet.
type ItemStatus string

const (
	// StatusUnmodified means the item matches the last server-confirmed state.
	StatusUnmodified ItemStatus = "unmodified"

	// StatusModified means the item has pending local changes. Modified items
	// are picked up by the sync coordinator on its next cycle.
	StatusModified ItemStatus = "modified"
)

// Item represents one line entry in the minicart.
//
// CartIndex is a pointer because its absence is meaningful: a nil CartIndex
// means the backend has never seen this item (it must be synced with an
// add-items call), while a non-nil CartIndex means the item exists in the
// server-side order form at that position (quantity/option changes go through
// update-items).
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Brand     string `json:"brand,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	DetailURL string `json:"detailUrl,omitempty"`
	SKUName   string `json:"skuName,omitempty"`
	Quantity  int    `json:"quantity"`
	Seller    string `json:"seller"`

	// Prices in minor currency units (cents).
	SellingPrice int64 `json:"sellingPrice"`
	ListPrice    int64 `json:"listPrice"`

	// Server-side position; nil until the backend confirms the item.
	CartIndex *int `json:"cartIndex,omitempty"`

	// Composite item linkage. Items attached to a parent assembly are not
	// shown as standalone entries.
	ParentItemIndex       *int   `json:"parentItemIndex,omitempty"`
	ParentAssemblyBinding string `json:"parentAssemblyBinding,omitempty"`

	AssemblyOptions *AssemblyOptions `json:"assemblyOptions,omitempty"`

	// Options carries the assembly option inputs forwarded to the backend
	// on sync. Display-only assembly data lives in AssemblyOptions.
	Options []OptionInput `json:"options,omitempty"`

	LocalStatus ItemStatus `json:"localStatus"`
}

// AssemblyOptions describes customizations applied to a composite item.
type AssemblyOptions struct {
	Added       []AddedOption   `json:"added,omitempty"`
	Removed     []RemovedOption `json:"removed,omitempty"`
	ParentPrice int64           `json:"parentPrice,omitempty"`
}

// AddedOption is a sub-item attached to a parent through an assembly choice.
type AddedOption struct {
	Item               OptionItem `json:"item"`
	NormalizedQuantity int        `json:"normalizedQuantity"`
	ChoiceType         string     `json:"choiceType,omitempty"`
	ExtraQuantity      int        `json:"extraQuantity,omitempty"`
}

// OptionItem holds the displayable fields of an added assembly option.
type OptionItem struct {
	Name         string `json:"name"`
	SellingPrice int64  `json:"sellingPrice"`
	Quantity     int    `json:"quantity"`
}

// RemovedOption records a default sub-item the buyer opted out of.
type RemovedOption struct {
	Name            string `json:"name"`
	RemovedQuantity int    `json:"removedQuantity"`
	InitialQuantity int    `json:"initialQuantity"`
}

// OptionInput is the wire shape of an assembly option sent to the backend.
type OptionInput struct {
	AssemblyID string `json:"assemblyId"`
	ID         string `json:"id,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
	Seller     string `json:"seller,omitempty"`
}

// SyncInput projects an item down to the minimal fields the remote add/update
// operations accept. Display-only fields are dropped on purpose: the backend
// owns names, images and prices.
type SyncInput struct {
	ID       string        `json:"id"`
	Index    *int          `json:"index,omitempty"`
	Quantity int           `json:"quantity"`
	Seller   string        `json:"seller"`
	Options  []OptionInput `json:"options,omitempty"`
}

// ToSyncInput builds the request projection for one item.
// Index mirrors CartIndex and is omitted for items the backend has not seen.
func (i Item) ToSyncInput() SyncInput {
	return SyncInput{
		ID:       i.ID,
		Index:    i.CartIndex,
		Quantity: i.Quantity,
		Seller:   i.Seller,
		Options:  i.Options,
	}
}

// Confirmed reports whether the backend has acknowledged this item at least once.
func (i Item) Confirmed() bool {
	return i.CartIndex != nil
}

// Standalone reports whether the item should appear as its own entry in the
// presentation view. Sub-items bound to a parent assembly are folded into
// their parent.
func (i Item) Standalone() bool {
	return i.ParentItemIndex == nil && i.ParentAssemblyBinding == ""
}

// SyncInputs projects a slice of items for a remote operation.
func SyncInputs(items []Item) []SyncInput {
	out := make([]SyncInput, len(items))
	for n, it := range items {
		out[n] = it.ToSyncInput()
	}
	return out
}

// ModifiedItems filters items carrying unsynced local changes.
// Order is preserved.
func ModifiedItems(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.LocalStatus == StatusModified {
			out = append(out, it)
		}
	}
	return out
}

// VisibleItems filters items for presentation: standalone entries with a
// positive quantity. Items at quantity zero are pending server-side removal
// and stay in the list only until a sync confirms them gone.
func VisibleItems(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.Standalone() && it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}

// TotalQuantity sums quantities across the given items.
func TotalQuantity(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// DistinctCount counts the given items regardless of quantity. Badge
// renderers pick between this and TotalQuantity.
func DistinctCount(items []Item) int {
	return len(items)
}
