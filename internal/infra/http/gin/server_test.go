package ginserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdetail/internal/app/commands"
	"rentdetail/internal/app/dto"
	listingapp "rentdetail/internal/app/handlers/listings"
	"rentdetail/internal/app/middleware"
	"rentdetail/internal/app/queries"
	"rentdetail/internal/domain/listings"
	"rentdetail/internal/infra/cache"
	"rentdetail/internal/infra/obs"
	"rentdetail/internal/infra/storage/memory"
)

const testToken = "operator-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router *gin.Engine
	store  *cache.Store
	repo   *memory.ListingRepository
}

func newTestApp(t *testing.T, items ...listings.Listing) testApp {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewListingRepository()
	for _, item := range items {
		require.NoError(t, repo.Save(ctx, item))
	}
	store := cache.NewStore(repo, cache.Options{TTL: time.Minute})
	t.Cleanup(store.Close)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[listingapp.GetDetailQuery, dto.ListingDetail](queryBus, listingapp.GetDetailQuery{}.Key(),
		&listingapp.GetDetailHandler{Catalog: store})
	queries.RegisterHandler[listingapp.SearchCatalogQuery, dto.ListingCatalog](queryBus, listingapp.SearchCatalogQuery{}.Key(),
		&listingapp.SearchCatalogHandler{Catalog: store})
	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[listingapp.InvalidateCatalogCommand, listingapp.InvalidationResult](commandBus,
		listingapp.InvalidateCatalogCommand{}.Key(), &listingapp.InvalidateCatalogHandler{Catalog: store})

	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Listing:    ListingHandler{Queries: queryBus},
		DetailPage: DetailPage{Collection: store, Wait: time.Second},
		Admin: AdminHandler{Commands: middleware.ChainCommands(commandBus,
			middleware.Authorization(middleware.TokenAuthorizer{Token: testToken}))},
	})
	return testApp{router: router, store: store, repo: repo}
}

func (a testApp) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func loft() listings.Listing {
	return listings.Listing{
		ID: "1", Title: "Loft", Price: decimal.NewFromInt(900),
		Region: "North", City: "X", Address: "1 Main", Phone: "555", Email: "a@b.c",
	}
}

func TestDetailPageReady(t *testing.T) {
	app := newTestApp(t, loft())

	w := app.do(http.MethodGet, "/rents/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<h1>Loft</h1>")
	assert.Contains(t, body, "900 $ / month")
	assert.NotContains(t, body, "Commission:")
	assert.Contains(t, body, `href="tel:555"`)
	assert.Contains(t, body, `href="mailto:a@b.c"`)
	assert.NotContains(t, body, "image-overlay")
}

func TestDetailPageNotFound(t *testing.T) {
	app := newTestApp(t, loft())

	w := app.do(http.MethodGet, "/rents/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Property not found...")
	assert.NotContains(t, w.Body.String(), "Loft")
}

func TestDetailPageCommissionLine(t *testing.T) {
	withCommission := loft()
	withCommission.Commission = decimal.NewNullDecimal(decimal.NewFromInt(50))
	withoutCommission := loft()
	withoutCommission.ID = "2"
	app := newTestApp(t, withCommission, withoutCommission)

	w := app.do(http.MethodGet, "/rents/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<b>Commission:</b> 50 $")

	w = app.do(http.MethodGet, "/rents/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `class="commission"`)
}

func TestDetailPageImageOverlay(t *testing.T) {
	withImage := loft()
	withImage.Image = "https://cdn.example.com/loft.jpg"
	noImage := loft()
	noImage.ID = "2"
	app := newTestApp(t, withImage, noImage)

	w := app.do(http.MethodGet, "/rents/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `alt="House"`)
	assert.Contains(t, w.Body.String(), `href="/rents/1?image=open"`)
	assert.NotContains(t, w.Body.String(), "image-overlay")

	w = app.do(http.MethodGet, "/rents/1?image=open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="image-overlay"`)
	assert.Contains(t, w.Body.String(), `class="close" href="/rents/1"`)

	w = app.do(http.MethodGet, "/rents/2?image=open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "image-overlay")
	assert.NotContains(t, w.Body.String(), "<img")
}

type blockedCollection struct {
	release chan struct{}
}

func (b blockedCollection) FetchAll(ctx context.Context) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b blockedCollection) SelectAll() []listings.Listing { return []listings.Listing{loft()} }

func TestDetailPageLoading(t *testing.T) {
	collection := blockedCollection{release: make(chan struct{})}
	defer close(collection.release)
	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		DetailPage: DetailPage{Collection: collection, Wait: 20 * time.Millisecond},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rents/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http-equiv="refresh"`)
	assert.Contains(t, w.Body.String(), `role="progressbar"`)
	assert.NotContains(t, w.Body.String(), "Loft")
}

func TestListingAPI(t *testing.T) {
	second := loft()
	second.ID = "2"
	second.Title = "Cabin"
	second.City = "Y"
	app := newTestApp(t, loft(), second)

	w := app.do(http.MethodGet, "/api/v1/listings/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail dto.ListingDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "900 $ / month", detail.PriceLabel)
	assert.Nil(t, detail.Commission)

	w = app.do(http.MethodGet, "/api/v1/listings/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"property not found"}`, w.Body.String())

	w = app.do(http.MethodGet, "/api/v1/listings?city=y", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var catalog dto.ListingCatalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	require.Len(t, catalog.Items, 1)
	assert.Equal(t, "Cabin", catalog.Items[0].Title)
}

func TestAdminInvalidate(t *testing.T) {
	app := newTestApp(t, loft())
	w := app.do(http.MethodGet, "/api/v1/listings/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), app.store.SourceFetches())

	w = app.do(http.MethodPost, "/api/v1/admin/cache/invalidate", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodPost, "/api/v1/admin/cache/invalidate", http.Header{OperatorTokenHeader: {"wrong"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	renamed := loft()
	renamed.Title = "Renamed loft"
	require.NoError(t, app.repo.Save(context.Background(), renamed))

	w = app.do(http.MethodPost, "/api/v1/admin/cache/invalidate", http.Header{"Authorization": {"Bearer " + testToken}})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(http.MethodGet, "/rents/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Renamed loft"))
	assert.Equal(t, int64(2), app.store.SourceFetches())
}

func TestHealthRoutes(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/livez", nil).Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/readyz", nil).Code)
}
