package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/seniorchoi/gigagig/internal/errors"
	"github.com/seniorchoi/gigagig/internal/gig"
)

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// handleSearchGigs handles GET /gigs?q=&category_id=&location=&radius=
func (s *APIServer) handleSearchGigs(c *gin.Context) {
	page, pageSize := pageParams(c)
	q := gig.SearchQuery{
		Keyword:  c.Query("q"),
		Location: c.Query("location"),
		Page:     page,
		PageSize: pageSize,
	}

	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(c, apierrors.NewInvalidRequestError("category_id must be an integer"))
			return
		}
		q.CategoryID = &id
	}
	if raw := c.Query("radius"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 {
			respondError(c, apierrors.NewInvalidRequestError("radius must be a non-negative number"))
			return
		}
		q.RadiusKm = radius
	}

	resp, err := s.gigs.Search(c.Request.Context(), q)
	if err != nil {
		handleError(c, "search_gigs", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *APIServer) handleGetGig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	g, err := s.gigs.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, "get_gig", err)
		return
	}

	c.JSON(http.StatusOK, g)
}

func (s *APIServer) handleListGigReviews(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if _, err := s.gigs.Get(c.Request.Context(), id); err != nil {
		handleError(c, "list_gig_reviews", err)
		return
	}
	reviews, err := s.bookings.ListReviewsForGig(c.Request.Context(), id)
	if err != nil {
		handleError(c, "list_gig_reviews", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (s *APIServer) handleListMyGigs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	gigs, err := s.gigs.ListBySeller(c.Request.Context(), userID)
	if err != nil {
		handleError(c, "list_my_gigs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gigs": gigs})
}

func (s *APIServer) handleCreateGig(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req gig.GigRequest
	if !bindJSON(c, &req) {
		return
	}

	g, err := s.gigs.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, "create_gig", err)
		return
	}

	c.JSON(http.StatusCreated, g)
}

func (s *APIServer) handleUpdateGig(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req gig.GigRequest
	if !bindJSON(c, &req) {
		return
	}

	g, err := s.gigs.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		handleError(c, "update_gig", err)
		return
	}

	c.JSON(http.StatusOK, g)
}

func (s *APIServer) handleDeleteGig(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.gigs.Delete(c.Request.Context(), userID, id); err != nil {
		handleError(c, "delete_gig", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *APIServer) handleListCategories(c *gin.Context) {
	categories, err := s.gigs.ListCategories(c.Request.Context())
	if err != nil {
		handleError(c, "list_categories", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *APIServer) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := s.gigs.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		handleError(c, "create_category", err)
		return
	}

	c.JSON(http.StatusCreated, category)
}
