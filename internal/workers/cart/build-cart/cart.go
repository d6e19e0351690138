// internal/workers/cart/build-cart/cart.go
package buildcart

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/logger"
	"commerce-search-workers/internal/common/metrics"
	"commerce-search-workers/internal/common/observability"
	"commerce-search-workers/internal/models"
)

// Retrieval is the subset of the catalog the cart builder needs.
type Retrieval interface {
	Search(ctx context.Context, text string, filters models.SearchFilters) ([]models.Candidate, error)
	FindStoreByName(ctx context.Context, name, moduleID string) (*models.StoreRef, error)
}

// CartBuilder matches NER items to catalog products. Per-item retrievals run
// on a bounded pool shared by all calls.
type CartBuilder struct {
	retrieval Retrieval
	match     MatchConfig
	pool      *ants.Pool
	logger    logger.Logger
}

func NewCartBuilder(retrieval Retrieval, match MatchConfig, log logger.Logger) (*CartBuilder, error) {
	size := match.Concurrency
	if size <= 0 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create retrieval pool: %w", err)
	}

	return &CartBuilder{
		retrieval: retrieval,
		match:     match,
		pool:      pool,
		logger:    log,
	}, nil
}

// Release stops the retrieval pool.
func (b *CartBuilder) Release() {
	b.pool.Release()
}

// BuildCart resolves the store once, matches every item against up to
// CandidatesPerItem retrieval results and prices the cart. Items keep their
// input order. Only invalid items produce an error; retrieval failures mark
// the item not found.
func (b *CartBuilder) BuildCart(ctx context.Context, items []models.NERCartItem, opts models.CartOptions) (*models.BuiltCart, error) {
	for i, item := range items {
		if strings.TrimSpace(item.ItemName) == "" {
			return nil, apperrors.NewInvalidCartInputError(fmt.Sprintf("items[%d]: item name is blank", i))
		}
		if item.Quantity <= 0 {
			return nil, apperrors.NewInvalidCartInputError(fmt.Sprintf("items[%d]: quantity must be positive, got %d", i, item.Quantity))
		}
	}

	ctx, span := observability.StartSpan(ctx, "build-cart", attribute.Int("items", len(items)))
	defer observability.EndSpan(span, nil)

	storeID, storeName := b.resolveStore(ctx, opts)

	filters := models.SearchFilters{
		StoreID:  storeID,
		ZoneID:   opts.ZoneID,
		ModuleID: opts.ModuleID,
		Size:     b.match.CandidatesPerItem,
	}

	matched := make([]models.MatchedCartItem, len(items))
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			matched[i] = b.matchItem(ctx, items[i], filters)
		}
		if err := b.pool.Submit(task); err != nil {
			b.logger.Warn("retrieval pool unavailable, matching inline", map[string]interface{}{"error": err})
			task()
		}
	}
	wg.Wait()

	cart := &models.BuiltCart{
		CartID:              uuid.NewString(),
		Items:               matched,
		StoreID:             storeID,
		StoreName:           storeName,
		UnmatchedItems:      []string{},
		ClarificationNeeded: []string{},
	}

	for _, it := range matched {
		cart.ItemCount += it.Quantity
		metrics.CartItemStatuses.WithLabelValues(string(it.Status)).Inc()

		switch it.Status {
		case models.StatusMatched:
			cart.MatchedCount++
			cart.Subtotal += it.Subtotal
		case models.StatusNotFound:
			cart.UnmatchedItems = append(cart.UnmatchedItems, it.NERItem.ItemName)
		case models.StatusMultipleMatches:
			cart.ClarificationNeeded = append(cart.ClarificationNeeded, it.NERItem.ItemName)
		}
	}
	cart.NeedsClarification = len(cart.UnmatchedItems) > 0 || len(cart.ClarificationNeeded) > 0

	b.logger.Info("cart built", map[string]interface{}{
		"cartId":    cart.CartID,
		"storeId":   storeID,
		"items":     len(items),
		"matched":   cart.MatchedCount,
		"unmatched": len(cart.UnmatchedItems),
		"clarify":   len(cart.ClarificationNeeded),
		"subtotal":  cart.Subtotal,
	})

	return cart, nil
}

// resolveStore looks the store up by name when no id was given. A failed or
// empty lookup leaves the cart storeless.
func (b *CartBuilder) resolveStore(ctx context.Context, opts models.CartOptions) (string, string) {
	if opts.StoreID != "" || strings.TrimSpace(opts.StoreName) == "" {
		return opts.StoreID, opts.StoreName
	}

	ref, err := b.retrieval.FindStoreByName(ctx, opts.StoreName, opts.ModuleID)
	if err != nil {
		b.logger.Warn("store lookup failed, building storeless cart", map[string]interface{}{
			"storeName": opts.StoreName,
			"error":     err,
		})
		return "", opts.StoreName
	}
	if ref == nil {
		b.logger.Info("store not found, building storeless cart", map[string]interface{}{
			"storeName": opts.StoreName,
		})
		return "", opts.StoreName
	}
	return ref.StoreID, ref.StoreName
}

func (b *CartBuilder) matchItem(ctx context.Context, item models.NERCartItem, filters models.SearchFilters) models.MatchedCartItem {
	out := models.MatchedCartItem{
		NERItem:  item,
		Quantity: item.Quantity,
		Status:   models.StatusNotFound,
	}

	itemCtx, cancel := context.WithTimeout(ctx, b.match.ItemTimeout)
	defer cancel()

	candidates, err := b.retrieval.Search(itemCtx, item.ItemName, filters)
	if err != nil {
		b.logger.Warn("item retrieval failed", map[string]interface{}{
			"itemName": item.ItemName,
			"error":    err,
		})
		return out
	}
	if len(candidates) > b.match.CandidatesPerItem {
		candidates = candidates[:b.match.CandidatesPerItem]
	}
	if len(candidates) == 0 {
		return out
	}

	ranked := rankCandidates(item.ItemName, candidates)
	best := ranked[0]
	out.MatchScore = best.score

	if best.score < b.match.Threshold {
		out.Status = models.StatusMultipleMatches
		n := min(len(ranked), b.match.MaxAlternatives)
		out.Alternatives = make([]models.Candidate, 0, n)
		for _, rc := range ranked[:n] {
			out.Alternatives = append(out.Alternatives, rc.candidate)
		}
		return out
	}

	product := best.candidate
	out.Status = models.StatusMatched
	out.MatchedProduct = &product
	out.Subtotal = product.Price * float64(item.Quantity)
	return out
}

// FormatCartResponse renders the user-facing summary of a built cart.
func FormatCartResponse(cart *models.BuiltCart) models.CartResponse {
	resp := models.CartResponse{
		Success: cart.MatchedCount > 0,
		Cart:    *cart,
		Issues:  []string{},
	}

	for _, name := range cart.UnmatchedItems {
		resp.Issues = append(resp.Issues, fmt.Sprintf("Couldn't find '%s'", name))
	}
	for _, name := range cart.ClarificationNeeded {
		resp.Issues = append(resp.Issues, fmt.Sprintf("Several products match '%s', please pick one", name))
	}

	if cart.MatchedCount == 0 {
		resp.Message = "Sorry, I couldn't find any of those items. Please try again with different item names."
		return resp
	}

	var lines []string
	for _, it := range cart.Items {
		if it.Status != models.StatusMatched {
			continue
		}
		lines = append(lines, fmt.Sprintf("%dx %s (₹%s)", it.Quantity, it.MatchedProduct.Name, formatAmount(it.Subtotal)))
	}

	var b strings.Builder
	if cart.StoreName != "" {
		fmt.Fprintf(&b, "From %s: ", cart.StoreName)
	} else {
		b.WriteString("Added to cart: ")
	}
	b.WriteString(strings.Join(lines, ", "))
	fmt.Fprintf(&b, ". Total ₹%s", formatAmount(cart.Subtotal))
	if len(cart.UnmatchedItems) > 0 {
		fmt.Fprintf(&b, ". Couldn't find: %s", strings.Join(cart.UnmatchedItems, ", "))
	}

	resp.Message = b.String()
	return resp
}

// formatAmount drops the decimals of whole amounts.
func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
