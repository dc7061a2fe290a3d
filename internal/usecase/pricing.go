package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
)

// MaxLineQuantity bounds the merged quantity of a single catalog entry in one
// order. It keeps quantities inside the INTEGER columns of the store.
const MaxLineQuantity = 10_000

// PricingCalculator computes authoritative order totals from catalog prices.
// It never trusts prices supplied by the client.
type PricingCalculator struct {
	catalog   repository.CatalogReader
	tolerance int64
}

// NewPricingCalculator constructs PricingCalculator. Client totals within
// tolerance minor units of the computed total are accepted.
func NewPricingCalculator(catalog repository.CatalogReader, tolerance int64) *PricingCalculator {
	if tolerance < 0 {
		tolerance = 0
	}
	return &PricingCalculator{catalog: catalog, tolerance: tolerance}
}

// Quote prices req at now. Duplicate lines for the same entry are merged.
// When the client total differs beyond tolerance the quote is still returned
// together with a *errors.PriceMismatchError.
func (p *PricingCalculator) Quote(ctx context.Context, req model.CheckoutRequest, now time.Time) (*model.Quote, error) {
	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.EntryID
	}
	entries, err := p.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	quote := &model.Quote{Lines: make([]model.LineItem, 0, len(items))}
	for _, item := range items {
		entry, ok := entries[item.EntryID]
		switch {
		case !ok:
			return nil, &domainErrors.UnavailableError{EntryID: item.EntryID, Reason: "does not exist"}
		case entry.Type != item.Type:
			return nil, &domainErrors.UnavailableError{EntryID: item.EntryID, Reason: "is not a " + string(item.Type)}
		case !entry.OnSale(now):
			return nil, &domainErrors.UnavailableError{EntryID: item.EntryID, Reason: "is not on sale"}
		}
		line := model.LineItem{
			Type:      entry.Type,
			EntryID:   entry.ID,
			Name:      entry.Name,
			Quantity:  item.Quantity,
			UnitPrice: entry.UnitPrice,
		}
		if entry.UnitPrice > 0 && int64(line.Quantity) > (math.MaxInt64-quote.Subtotal)/entry.UnitPrice {
			return nil, fmt.Errorf("%w: order total is too large", domainErrors.ErrInvalidRequest)
		}
		quote.Lines = append(quote.Lines, line)
		quote.Subtotal += line.Total()
	}

	if code := strings.TrimSpace(req.PromoCode); code != "" {
		amount, err := p.catalog.PromoDiscount(ctx, code, now)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown promo code %q", domainErrors.ErrInvalidRequest, code)
			}
			return nil, fmt.Errorf("promo lookup: %w", err)
		}
		quote.PromoCode = code
		quote.Discount = min(amount, quote.Subtotal)
	}
	quote.Total = quote.Subtotal - quote.Discount

	if req.ClientTotal != nil {
		diff := *req.ClientTotal - quote.Total
		if diff < 0 {
			diff = -diff
		}
		if diff > p.tolerance {
			return quote, &domainErrors.PriceMismatchError{Client: *req.ClientTotal, Computed: quote.Total}
		}
	}
	return quote, nil
}

func mergeItems(items []model.CheckoutItem) ([]model.CheckoutItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", domainErrors.ErrInvalidRequest)
	}
	type key struct {
		kind model.ItemType
		id   int64
	}
	index := make(map[key]int, len(items))
	merged := make([]model.CheckoutItem, 0, len(items))
	for _, item := range items {
		switch {
		case !item.Type.Valid():
			return nil, fmt.Errorf("%w: unknown item type %q", domainErrors.ErrInvalidRequest, item.Type)
		case item.EntryID <= 0:
			return nil, fmt.Errorf("%w: invalid entry id %d", domainErrors.ErrInvalidRequest, item.EntryID)
		case item.Quantity <= 0:
			return nil, fmt.Errorf("%w: quantity must be positive", domainErrors.ErrInvalidRequest)
		case item.Quantity > MaxLineQuantity:
			return nil, fmt.Errorf("%w: quantity exceeds %d", domainErrors.ErrInvalidRequest, MaxLineQuantity)
		}
		k := key{kind: item.Type, id: item.EntryID}
		if i, ok := index[k]; ok {
			if merged[i].Quantity > MaxLineQuantity-item.Quantity {
				return nil, fmt.Errorf("%w: quantity of entry %d exceeds %d", domainErrors.ErrInvalidRequest, item.EntryID, MaxLineQuantity)
			}
			merged[i].Quantity += item.Quantity
			continue
		}
		index[k] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}
