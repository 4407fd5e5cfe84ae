package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/services"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/types"
)

type CatalogHandler struct {
	log      *logger.Logger
	products repos.ProductRepo
}

func NewCatalogHandler(log *logger.Logger, products repos.ProductRepo) *CatalogHandler {
	return &CatalogHandler{log: log.With("handler", "CatalogHandler"), products: products}
}

// productView is the storefront projection: resolved pricing instead of the
// raw persisted price columns.
type productView struct {
	ID              uint     `json:"id"`
	ExternalID      string   `json:"external_id"`
	Name            string   `json:"name"`
	Brand           string   `json:"brand,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	Permalink       string   `json:"permalink,omitempty"`
	AffiliateLink   string   `json:"affiliate_link,omitempty"`
	CategorySlug    string   `json:"category_slug"`
	FinalPrice      float64  `json:"final_price"`
	PixPrice        float64  `json:"pix_price,omitempty"`
	ListPrice       float64  `json:"list_price,omitempty"`
	DiscountPercent float64  `json:"discount_percent,omitempty"`
	FreeShipping    bool     `json:"free_shipping"`
	Elite           bool     `json:"elite,omitempty"`
	Badges          []string `json:"badges,omitempty"`
}

func toProductView(p *types.Product) productView {
	info := services.ResolveFinalPriceInfo(services.ResolveInputFromProduct(p), timeNow())
	return productView{
		ID:              p.ID,
		ExternalID:      p.ExternalID,
		Name:            p.Name,
		Brand:           p.Brand,
		ImageURL:        p.ImageURL,
		Permalink:       p.Permalink,
		AffiliateLink:   p.AffiliateLink,
		CategorySlug:    p.CategorySlug,
		FinalPrice:      info.FinalPrice,
		PixPrice:        info.PixPrice,
		ListPrice:       info.ListPrice,
		DiscountPercent: info.DiscountPercent,
		FreeShipping:    p.FreeShipping,
		Elite:           p.Elite,
	}
}

// ListProducts returns active healthy products, optionally filtered by
// category. GET /api/products?category=acessorios&after_id=0&limit=50
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	afterID, _ := strconv.ParseUint(c.DefaultQuery("after_id", "0"), 10, 64)

	page, err := h.products.ListPage(c.Request.Context(), nil, repos.ProductFilter{
		CategorySlug: c.Query("category"),
		Status:       types.StatusActive,
		Health:       types.HealthHealthy,
		AfterID:      uint(afterID),
		Limit:        limit,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "product_list_failed", err)
		return
	}

	views := make([]productView, 0, len(page))
	for _, p := range page {
		views = append(views, toProductView(p))
	}
	RespondOK(c, gin.H{"products": views})
}

// GetProduct returns one product by id, regardless of status; operators use
// it to inspect parked listings.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_product_id", err)
		return
	}
	p, err := h.products.GetByID(c.Request.Context(), nil, uint(id))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "product_get_failed", err)
		return
	}
	if p == nil {
		RespondError(c, http.StatusNotFound, "product_not_found", errors.New("product not found"))
		return
	}
	RespondOK(c, p)
}
