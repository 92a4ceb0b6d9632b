package pipeline

import (
	"strings"

	"dealsift/internal/types"
)

// TrimMiddleware trims whitespace on string fields and clears fields that
// trim down to nothing, preserving the absent-or-non-empty invariant.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	for _, field := range []**string{&l.Title, &l.URL, &l.Category} {
		if *field == nil {
			continue
		}
		trimmed := strings.TrimSpace(**field)
		if trimmed == "" {
			*field = nil
		} else {
			*field = &trimmed
		}
	}

	badges := l.Badges[:0]
	for _, b := range l.Badges {
		if b = strings.TrimSpace(b); b != "" {
			badges = append(badges, b)
		}
	}
	l.Badges = badges
	return l, nil
}

// ConfidenceFloorMiddleware drops listings whose aggregate extraction
// confidence is below the threshold. This is the gate that rejects the
// false-positive containers the locator's fallback inevitably produces.
type ConfidenceFloorMiddleware struct {
	Min int
}

func (m *ConfidenceFloorMiddleware) Name() string { return "confidence_floor" }

func (m *ConfidenceFloorMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if l.Confidence < m.Min {
		return nil, nil // Drop listing
	}
	return l, nil
}

// PriceSanityMiddleware clears numeric fields that slipped past the
// extraction bounds (derived values included).
type PriceSanityMiddleware struct {
	MaxPrice            float64
	MaxMonthlyRecurring float64
	MaxMultiple         float64
}

func (m *PriceSanityMiddleware) Name() string { return "price_sanity" }

func (m *PriceSanityMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if l.Price != nil && (*l.Price <= 0 || *l.Price >= m.MaxPrice) {
		l.Price = nil
		delete(l.Provenance, "price")
	}
	if l.MonthlyRecurring != nil && (*l.MonthlyRecurring <= 0 || *l.MonthlyRecurring >= m.MaxMonthlyRecurring) {
		l.MonthlyRecurring = nil
		delete(l.Provenance, "monthly_recurring")
	}
	if l.Multiple != nil && (*l.Multiple <= 0 || *l.Multiple >= m.MaxMultiple) {
		l.Multiple = nil
		delete(l.Provenance, "multiple")
	}
	return l, nil
}

// RequiredFieldsMiddleware drops listings missing any of the named fields.
type RequiredFieldsMiddleware struct {
	Title bool
	Price bool
	URL   bool
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if m.Title && l.Title == nil {
		return nil, nil
	}
	if m.Price && l.Price == nil {
		return nil, nil
	}
	if m.URL && l.URL == nil {
		return nil, nil
	}
	return l, nil
}
