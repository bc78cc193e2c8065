package sales

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-service/internal/adapters/repository/memory"
	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/product"
	"retail-service/internal/domain/sale"
	"retail-service/internal/domain/stock"
	"retail-service/internal/domain/tenant"
	"retail-service/pkg/errors"
	"retail-service/pkg/pagination"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fixture struct {
	service  *Service
	tenants  *memory.TenantRepository
	products *memory.ProductRepository
	stocks   *memory.StockRepository
	sales    *memory.SaleRepository

	org    tenant.Tenant
	branch tenant.Tenant

	widget  product.Product // 500, 5 in stock
	gadget  product.Product // 200, 3 in stock
	consult product.Product // 150, service
}

func cashier(branchID string) membership.Principal {
	return membership.Principal{
		UserID:         "cashier-1",
		TenantID:       branchID,
		RoleType:       membership.RoleTypeStaff,
		PinnedBranchID: &branchID,
	}
}

func ownerOf(orgID string) membership.Principal {
	return membership.Principal{UserID: "owner-1", TenantID: orgID, RoleType: membership.RoleTypeOwner}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	tenants := memory.NewTenantRepository()
	stocks := memory.NewStockRepository()
	products := memory.NewProductRepository(stocks)
	sales := memory.NewSaleRepository(stocks)

	f := &fixture{
		tenants:  tenants,
		products: products,
		stocks:   stocks,
		sales:    sales,
	}
	f.service = New(sales, products, stocks, tenants, nil)

	future := time.Now().UTC().AddDate(0, 1, 0)
	org := tenant.Tenant{
		Subdomain: "mart", Name: "Mart", OwnerEmail: "o@mart.test",
		Currency: "KES", TaxRate: d("0.16"), Timezone: "Africa/Nairobi",
		SubscriptionStatus: tenant.StatusActive, NextBillingDate: &future, IsActive: true,
	}
	orgID, err := tenants.Add(ctx, org)
	require.NoError(t, err)
	org.ID = orgID

	branch := org
	branch.ID = ""
	branch.Subdomain = "mart-b1"
	branch.ParentID = &orgID
	branchID, err := tenants.Add(ctx, branch)
	require.NoError(t, err)
	branch.ID = branchID

	f.org, f.branch = org, branch

	addProduct := func(sku, name, price string, isService bool, qty int) product.Product {
		p := product.Product{
			TenantID:     orgID,
			SKU:          sku,
			Name:         name,
			SellingPrice: d(price),
			BaseCost:     decimal.Zero,
			IsService:    isService,
			IsAvailable:  true,
		}
		id, err := products.Add(ctx, p)
		require.NoError(t, err)
		p.ID = id
		require.NoError(t, stocks.EnsureRow(ctx, branchID, id, 0))
		require.NoError(t, stocks.EnsureRow(ctx, orgID, id, 0))
		if qty > 0 {
			_, err = stocks.ApplyMovement(ctx, stock.Movement{
				TenantID: branchID, ProductID: id, Delta: qty,
				Reason: stock.ReasonReceive, ActorUserID: "seed",
			})
			require.NoError(t, err)
		}
		return p
	}

	f.widget = addProduct("WID-1", "Widget", "500", false, 5)
	f.gadget = addProduct("GAD-1", "Gadget", "200", false, 3)
	f.consult = addProduct("SRV-1", "Consultation", "150", true, 0)

	return f
}

// Scenario: (500 × 2) + (200 × 1) at 16% → total 1200, subtotal 1034.48,
// tax 165.52; stock decremented; movements reference the sale.
func TestCreateSale_VATInclusiveTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.CreateSale(ctx, cashier(f.branch.ID), sale.Request{
		Items: []sale.ItemRequest{
			{ProductID: f.widget.ID, Quantity: 2},
			{ProductID: f.gadget.ID, Quantity: 1},
		},
		PaymentMethod: sale.PaymentMethodCash,
	})
	require.NoError(t, err)

	assert.Equal(t, "1200.00", res.Total)
	assert.Equal(t, "1034.48", res.Subtotal)
	assert.Equal(t, "165.52", res.Tax)
	require.Len(t, res.Items, 2)
	assert.Equal(t, f.widget.ID, res.Items[0].ProductID, "caller item order preserved")

	qty, err := f.stocks.GetQuantity(ctx, f.branch.ID, f.widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)

	saleReason := stock.ReasonSale
	movements, err := f.stocks.ListMovements(ctx, f.branch.ID, stock.MovementFilter{Reason: &saleReason})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, mv := range movements {
		require.NotNil(t, mv.ReferenceID)
		assert.Equal(t, res.ID, *mv.ReferenceID)
	}
}

func TestCreateSale_PriceOverrideVariance(t *testing.T) {
	f := newFixture(t)

	override := "450"
	res, err := f.service.CreateSale(context.Background(), cashier(f.branch.ID), sale.Request{
		Items: []sale.ItemRequest{
			{ProductID: f.widget.ID, Quantity: 1, PriceOverride: &override},
			{ProductID: f.gadget.ID, Quantity: 1},
		},
		PaymentMethod: sale.PaymentMethodCard,
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.True(t, res.Items[0].IsPriceOverride)
	assert.Equal(t, "-50.00", res.Items[0].Variance)
	assert.False(t, res.Items[1].IsPriceOverride)
	assert.Equal(t, "0.00", res.Items[1].Variance)
	assert.Equal(t, "650.00", res.Total)
}

// Insufficient stock aborts the whole sale: quantities untouched, no
// movements, no sale row.
func TestCreateSale_InsufficientRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateSale(ctx, cashier(f.branch.ID), sale.Request{
		Items: []sale.ItemRequest{
			{ProductID: f.widget.ID, Quantity: 2},
			{ProductID: f.gadget.ID, Quantity: 4}, // only 3 available
		},
		PaymentMethod: sale.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, f.gadget.ID, domainErr.Details["product_id"], "error names the offending product")

	widgetQty, _ := f.stocks.GetQuantity(ctx, f.branch.ID, f.widget.ID)
	gadgetQty, _ := f.stocks.GetQuantity(ctx, f.branch.ID, f.gadget.ID)
	assert.Equal(t, 5, widgetQty)
	assert.Equal(t, 3, gadgetQty)

	assert.Equal(t, 1, f.stocks.MovementCount(f.branch.ID, f.widget.ID), "only the seed receive exists")
}

// Two sequential sales racing over quantity 5 with 3 each: exactly one
// succeeds, final quantity 2, and only one sale movement exists.
func TestCreateSale_StockRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request := sale.Request{
		Items:         []sale.ItemRequest{{ProductID: f.widget.ID, Quantity: 3}},
		PaymentMethod: sale.PaymentMethodCash,
	}

	_, first := f.service.CreateSale(ctx, cashier(f.branch.ID), request)
	_, second := f.service.CreateSale(ctx, cashier(f.branch.ID), request)

	require.NoError(t, first)
	require.Error(t, second)
	assert.True(t, errors.Is(second, errors.ErrInsufficientStock))

	qty, err := f.stocks.GetQuantity(ctx, f.branch.ID, f.widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	assert.Equal(t, 2, f.stocks.MovementCount(f.branch.ID, f.widget.ID), "seed receive plus exactly one sale")
}

func TestCreateSale_ServicesSkipStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.CreateSale(ctx, cashier(f.branch.ID), sale.Request{
		Items:         []sale.ItemRequest{{ProductID: f.consult.ID, Quantity: 2}},
		PaymentMethod: sale.PaymentMethodMobileMoney,
	})
	require.NoError(t, err)
	assert.Equal(t, "300.00", res.Total)

	assert.Equal(t, 0, f.stocks.MovementCount(f.branch.ID, f.consult.ID))
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateSale(context.Background(), cashier(f.branch.ID), sale.Request{
		Items:         []sale.ItemRequest{{ProductID: "missing", Quantity: 1}},
		PaymentMethod: sale.PaymentMethodCash,
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestGetSale_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.CreateSale(ctx, cashier(f.branch.ID), sale.Request{
		Items:         []sale.ItemRequest{{ProductID: f.widget.ID, Quantity: 1}},
		PaymentMethod: sale.PaymentMethodCash,
	})
	require.NoError(t, err)

	// A principal of an unrelated tenant sees not_found, not forbidden.
	strangerID, err := f.tenants.Add(ctx, tenant.Tenant{
		Subdomain: "rival", Name: "Rival", OwnerEmail: "o@rival.test",
		Currency: "KES", TaxRate: d("0.16"), Timezone: "UTC",
		SubscriptionStatus: tenant.StatusActive, IsActive: true,
	})
	require.NoError(t, err)

	_, err = f.service.GetSale(ctx, ownerOf(strangerID), res.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// The owner of the organization sees branch sales.
	got, err := f.service.GetSale(ctx, ownerOf(f.org.ID), res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
}

func TestListSales_StaffSeeOnlyOwn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateSale(ctx, cashier(f.branch.ID), sale.Request{
		Items:         []sale.ItemRequest{{ProductID: f.widget.ID, Quantity: 1}},
		PaymentMethod: sale.PaymentMethodCash,
	})
	require.NoError(t, err)

	other := membership.Principal{
		UserID:         "cashier-2",
		TenantID:       f.branch.ID,
		RoleType:       membership.RoleTypeStaff,
		PinnedBranchID: &f.branch.ID,
	}
	_, err = f.service.CreateSale(ctx, other, sale.Request{
		Items:         []sale.ItemRequest{{ProductID: f.gadget.ID, Quantity: 1}},
		PaymentMethod: sale.PaymentMethodCash,
	})
	require.NoError(t, err)

	page, err := f.service.ListSales(ctx, cashier(f.branch.ID), sale.Filter{}, pagination.NewPaginator(1, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	ownerPage, err := f.service.ListSales(ctx, ownerOf(f.org.ID), sale.Filter{}, pagination.NewPaginator(1, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, ownerPage.Total)
}

func TestMarkReceiptFlags_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.CreateSale(ctx, cashier(f.branch.ID), sale.Request{
		Items:         []sale.ItemRequest{{ProductID: f.widget.ID, Quantity: 1}},
		PaymentMethod: sale.PaymentMethodCash,
	})
	require.NoError(t, err)

	p := ownerOf(f.org.ID)
	require.NoError(t, f.service.MarkEmailSent(ctx, p, res.ID))
	require.NoError(t, f.service.MarkEmailSent(ctx, p, res.ID))

	got, err := f.service.GetSale(ctx, p, res.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailSent)
	assert.False(t, got.WhatsappSent)
}
