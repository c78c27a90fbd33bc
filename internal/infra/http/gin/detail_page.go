package ginserver

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentdetail/internal/app/detail"
	"rentdetail/internal/app/dto"
	listingapp "rentdetail/internal/app/handlers/listings"
)

const defaultLoadingWait = 2 * time.Second

// DetailPage renders /rents/:id through one detail.Controller per request.
type DetailPage struct {
	Collection detail.Collection
	Images     listingapp.ImageResolver
	// Wait bounds how long a request blocks on the fetch before showing the loading page.
	Wait   time.Duration
	Logger *slog.Logger
}

type detailView struct {
	Detail      dto.ListingDetail
	PhoneHref   template.URL
	EmailHref   template.URL
	OverlayOpen bool
	OpenHref    string
	CloseHref   string
}

func (p DetailPage) Show(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	ctrl := detail.NewController(p.Collection, id, p.Logger)
	ctrl.Mount(ctx)
	defer ctrl.Unmount()

	wait := p.Wait
	if wait <= 0 {
		wait = defaultLoadingWait
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctrl.Settled():
	case <-timer.C:
	case <-ctx.Done():
		c.Abort()
		return
	}

	if c.Query("image") == "open" {
		ctrl.ActivateImage()
	}
	state := ctrl.State()
	c.Header("Cache-Control", "no-store")

	switch state.Phase {
	case detail.PhaseLoading:
		c.HTML(http.StatusOK, "loading.html", gin.H{"Refresh": 1})
	case detail.PhaseNotFound:
		c.HTML(http.StatusNotFound, "not_found.html", nil)
	default:
		c.HTML(http.StatusOK, "detail.html", p.view(c, state))
	}
}

func (p DetailPage) view(c *gin.Context, state detail.State) detailView {
	var imageURL dto.ImageURLFunc
	if p.Images != nil {
		ctx := c.Request.Context()
		imageURL = func(ref string) string { return p.Images.ImageURL(ctx, ref) }
	}
	d := dto.MapListingDetail(state.Listing, imageURL)
	path := dto.DetailPath(state.Listing.ID)
	return detailView{
		Detail: d,
		// tel: is not on html/template's URL allowlist; both hrefs are built by dto.
		PhoneHref:   template.URL(d.Contact.PhoneHref),
		EmailHref:   template.URL(d.Contact.EmailHref),
		OverlayOpen: state.OverlayOpen,
		OpenHref:    path + "?image=open",
		CloseHref:   path,
	}
}

var _ DetailPageHTTP = DetailPage{}
