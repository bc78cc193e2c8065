package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-service/internal/adapters/repository/memory"
	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/product"
	"retail-service/internal/domain/stock"
	"retail-service/internal/domain/tenant"
	"retail-service/pkg/errors"
)

type fixture struct {
	service *Service
	tenants *memory.TenantRepository
	stocks  *memory.StockRepository

	org    tenant.Tenant
	b1, b2 tenant.Tenant
}

func ownerOf(tenantID string) membership.Principal {
	return membership.Principal{UserID: "owner-1", TenantID: tenantID, RoleType: membership.RoleTypeOwner}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	tenants := memory.NewTenantRepository()
	stocks := memory.NewStockRepository()
	products := memory.NewProductRepository(stocks)

	org := tenant.Tenant{
		Subdomain: "mart", Name: "Mart", OwnerEmail: "o@mart.test",
		Currency: "KES", TaxRate: decimal.NewFromFloat(0.16), Timezone: "UTC",
		SubscriptionStatus: tenant.StatusActive, IsActive: true,
	}
	orgID, err := tenants.Add(ctx, org)
	require.NoError(t, err)
	org.ID = orgID

	addBranch := func(sub string) tenant.Tenant {
		b := org
		b.ID = ""
		b.Subdomain = sub
		b.ParentID = &orgID
		id, err := tenants.Add(ctx, b)
		require.NoError(t, err)
		b.ID = id
		return b
	}

	return &fixture{
		service: New(products, stocks, tenants),
		tenants: tenants,
		stocks:  stocks,
		org:     org,
		b1:      addBranch("mart-b1"),
		b2:      addBranch("mart-b2"),
	}
}

func request(sku, name, price string) product.Request {
	return product.Request{SKU: sku, Name: name, SellingPrice: price, BaseCost: "0"}
}

// Product creation seeds a zero-quantity stock row in the root and every
// branch: the product is immediately visible everywhere.
func TestCreateProduct_SeedsStockRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateProduct(ctx, ownerOf(f.org.ID), request("SKU-1", "Widget", "500"))
	require.NoError(t, err)

	for _, holder := range []string{f.org.ID, f.b1.ID, f.b2.ID} {
		qty, err := f.stocks.GetQuantity(ctx, holder, created.ID)
		require.NoError(t, err, holder)
		assert.Equal(t, 0, qty)
	}
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateProduct(ctx, ownerOf(f.org.ID), request("SKU-1", "Widget", "500"))
	require.NoError(t, err)

	_, err = f.service.CreateProduct(ctx, ownerOf(f.org.ID), request("SKU-1", "Copycat", "100"))
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

// Branch principals create against the parent catalog: the SKU conflict
// check runs against the organization, and the product lands there.
func TestCreateProduct_BranchCreatesIntoOrgCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateProduct(ctx, ownerOf(f.org.ID), request("SKU-1", "Widget", "500"))
	require.NoError(t, err)

	branchAdmin := membership.Principal{
		UserID: "admin-1", TenantID: f.b1.ID,
		RoleType: membership.RoleTypeBranchAdmin, PinnedBranchID: &f.b1.ID,
	}
	_, err = f.service.CreateProduct(ctx, branchAdmin, request("SKU-1", "Duplicate", "100"))
	assert.True(t, errors.Is(err, errors.ErrConflict), "branch SKUs collide with the org catalog")

	_, err = f.service.CreateProduct(ctx, branchAdmin, request("SKU-2", "Gadget", "200"))
	require.NoError(t, err)

	rows, err := f.service.ListProducts(ctx, ownerOf(f.org.ID), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "the branch-created product belongs to the org catalog")
}

// The effective catalog shows the viewing branch's own quantities.
func TestListProducts_EffectiveQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateProduct(ctx, ownerOf(f.org.ID), request("SKU-1", "Widget", "500"))
	require.NoError(t, err)

	_, err = f.stocks.ApplyMovement(ctx, stock.Movement{
		TenantID: f.b1.ID, ProductID: created.ID, Delta: 7,
		Reason: stock.ReasonReceive, ActorUserID: "seed",
	})
	require.NoError(t, err)

	b1View := membership.Principal{UserID: "u", TenantID: f.b1.ID, RoleType: membership.RoleTypeBranchAdmin, PinnedBranchID: &f.b1.ID}
	rows, err := f.service.ListProducts(ctx, b1View, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].Quantity)

	b2View := membership.Principal{UserID: "u", TenantID: f.b2.ID, RoleType: membership.RoleTypeBranchAdmin, PinnedBranchID: &f.b2.ID}
	rows, err = f.service.ListProducts(ctx, b2View, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].Quantity, "branch quantities are independent")
}

func TestListProducts_BranchViewOutsideOrgHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreignID, err := f.tenants.Add(ctx, tenant.Tenant{
		Subdomain: "rival", Name: "Rival", OwnerEmail: "o@rival.test",
		Currency: "KES", TaxRate: decimal.NewFromFloat(0.16), Timezone: "UTC",
		SubscriptionStatus: tenant.StatusActive, IsActive: true,
	})
	require.NoError(t, err)

	_, err = f.service.ListProducts(ctx, ownerOf(f.org.ID), &foreignID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeactivateProduct_SoftOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateProduct(ctx, ownerOf(f.org.ID), request("SKU-1", "Widget", "500"))
	require.NoError(t, err)

	require.NoError(t, f.service.DeactivateProduct(ctx, ownerOf(f.org.ID), created.ID))

	rows, err := f.service.ListProducts(ctx, ownerOf(f.org.ID), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1, "deactivated products remain in the catalog view")
	assert.False(t, rows[0].IsAvailable)
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	f := newFixture(t)

	bogus := "no-such-category"
	req := request("SKU-1", "Widget", "500")
	req.CategoryID = &bogus

	_, err := f.service.CreateProduct(context.Background(), ownerOf(f.org.ID), req)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestLowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := request("SKU-1", "Widget", "500")
	req.DefaultReorderLevel = 5
	created, err := f.service.CreateProduct(ctx, ownerOf(f.org.ID), req)
	require.NoError(t, err)

	p := ownerOf(f.org.ID)
	low, err := f.service.LowStock(ctx, p)
	require.NoError(t, err)
	require.Len(t, low, 1, "zero quantity is at reorder level")

	_, err = f.stocks.ApplyMovement(ctx, stock.Movement{
		TenantID: f.org.ID, ProductID: created.ID, Delta: 20,
		Reason: stock.ReasonReceive, ActorUserID: "seed",
	})
	require.NoError(t, err)

	low, err = f.service.LowStock(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, low)
}
