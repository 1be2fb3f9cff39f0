// Package market implements label-keyed queues of posted goods with
// per-seller back-references for O(1) revocation on organism death.
package market

import "container/list"

// SaleItem is one posted good. Handle is the opaque back-reference stored
// in the seller's own sold-items list, used to erase the item from its
// market queue without a linear scan.
type SaleItem struct {
	Data         int
	Label        int
	Price        int
	SellerOrgID  int
	SellerCellID int

	node *list.Element // position in market[Label]
}

// Handle is what a seller keeps in its own sold-items bookkeeping so it
// can revoke a posting in O(1) regardless of queue depth.
type Handle struct {
	item *SaleItem
}

// Market is a fixed set of label-indexed FIFO queues.
type Market struct {
	size       int
	wrapLabels bool
	queues     []*list.List
}

// Config controls the label-indexing open question from spec §9: the
// live historical path indexes market[label] directly; WrapLabels opts
// into the commented-out label%size behavior instead.
type Config struct {
	Size       int
	WrapLabels bool
}

func New(cfg Config) *Market {
	size := cfg.Size
	if size <= 0 {
		size = 1
	}
	m := &Market{size: size, wrapLabels: cfg.WrapLabels, queues: make([]*list.List, size)}
	for i := range m.queues {
		m.queues[i] = list.New()
	}
	return m
}

func (m *Market) slot(label int) int {
	if m.wrapLabels {
		return ((label % m.size) + m.size) % m.size
	}
	return label
}

// Post appends a new sale item to market[label] and returns the handle the
// seller must keep to revoke it later. label must be within [0, size) when
// WrapLabels is false; out-of-range labels are the caller's bug per the
// "live path is a bug if labels can exceed MARKET_SIZE" note in spec §9.
func (m *Market) Post(data, label, price, sellerOrgID, sellerCellID int) (Handle, bool) {
	idx := m.slot(label)
	if idx < 0 || idx >= m.size {
		return Handle{}, false
	}
	item := &SaleItem{
		Data:         data,
		Label:        label,
		Price:        price,
		SellerOrgID:  sellerOrgID,
		SellerCellID: sellerCellID,
	}
	item.node = m.queues[idx].PushBack(item)
	return Handle{item: item}, true
}

// Buy inspects the head of market[label]. It returns (0, false) if the
// queue is empty or its head's price exceeds maxPrice; the caller is
// responsible for checking buyer merit against maxPrice before calling,
// per spec §4.3 (Market itself has no notion of buyer merit).
func (m *Market) Buy(label, maxPrice int) (data int, sellerOrgID int, ok bool) {
	idx := m.slot(label)
	if idx < 0 || idx >= m.size {
		return 0, 0, false
	}
	q := m.queues[idx]
	front := q.Front()
	if front == nil {
		return 0, 0, false
	}
	head := front.Value.(*SaleItem)
	if head.Price > maxPrice {
		return 0, 0, false
	}
	q.Remove(front)
	return head.Data, head.SellerOrgID, true
}

// Revoke removes a previously posted item from its queue in O(1).
func (m *Market) Revoke(h Handle) {
	if h.item == nil || h.item.node == nil {
		return
	}
	idx := m.slot(h.item.Label)
	if idx < 0 || idx >= m.size {
		return
	}
	m.queues[idx].Remove(h.item.node)
	h.item.node = nil
}

// Len reports the number of items currently posted under label, for tests
// and stats; not part of the organism-facing contract.
func (m *Market) Len(label int) int {
	idx := m.slot(label)
	if idx < 0 || idx >= m.size {
		return 0
	}
	return m.queues[idx].Len()
}
