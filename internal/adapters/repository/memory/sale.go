package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"retail-service/internal/domain/sale"
	"retail-service/internal/domain/stock"
	"retail-service/internal/infrastructure/store"
)

type SaleRepository struct {
	mu    sync.Mutex
	rows  map[string]sale.Sale
	items map[string][]sale.Item

	// stocks performs the atomic decrement inside Create, mirroring the
	// single-transaction behavior of the postgres implementation.
	stocks *StockRepository
}

func NewSaleRepository(stocks *StockRepository) *SaleRepository {
	return &SaleRepository{
		rows:   make(map[string]sale.Sale),
		items:  make(map[string][]sale.Item),
		stocks: stocks,
	}
}

func (r *SaleRepository) Create(ctx context.Context, data sale.Sale, items []sale.Item, movements []stock.Movement) (sale.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data.ID = uuid.New().String()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}

	for i := range movements {
		movements[i].ReferenceID = &data.ID
	}
	// All-or-nothing: a failed decrement leaves no sale, no items, and no
	// movements behind.
	r.stocks.mu.Lock()
	err := r.stocks.bulkApplyLocked(movements)
	r.stocks.mu.Unlock()
	if err != nil {
		return sale.Sale{}, err
	}

	stored := make([]sale.Item, len(items))
	for i, item := range items {
		item.ID = uuid.New().String()
		item.SaleID = data.ID
		stored[i] = item
	}

	r.rows[data.ID] = data
	r.items[data.ID] = stored
	return data, nil
}

func (r *SaleRepository) Get(ctx context.Context, id string) (sale.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rows[id]
	if !ok {
		return sale.Sale{}, store.ErrorNotFound
	}
	return s, nil
}

func (r *SaleRepository) GetItems(ctx context.Context, saleID string) ([]sale.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := append([]sale.Item{}, r.items[saleID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (r *SaleRepository) List(ctx context.Context, filter sale.Filter) ([]sale.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []sale.Sale{}
	for _, s := range r.rows {
		if r.matches(s, filter) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []sale.Sale{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *SaleRepository) Count(ctx context.Context, filter sale.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, s := range r.rows {
		if r.matches(s, filter) {
			count++
		}
	}
	return count, nil
}

func (r *SaleRepository) matches(s sale.Sale, filter sale.Filter) bool {
	inScope := false
	for _, id := range filter.TenantIDs {
		if s.TenantID == id {
			inScope = true
			break
		}
	}
	if !inScope {
		return false
	}
	if filter.UserID != nil && s.UserID != *filter.UserID {
		return false
	}
	if filter.PaymentMethod != nil && s.PaymentMethod != *filter.PaymentMethod {
		return false
	}
	if filter.From != nil && s.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !s.CreatedAt.Before(*filter.To) {
		return false
	}
	return true
}

func (r *SaleRepository) MarkEmailSent(ctx context.Context, id string) error {
	return r.markFlag(id, func(s *sale.Sale) { s.EmailSent = true })
}

func (r *SaleRepository) MarkWhatsappSent(ctx context.Context, id string) error {
	return r.markFlag(id, func(s *sale.Sale) { s.WhatsappSent = true })
}

func (r *SaleRepository) markFlag(id string, set func(*sale.Sale)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}
	set(&s)
	r.rows[id] = s
	return nil
}
