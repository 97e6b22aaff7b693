package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service"
)

type createReviewReq struct {
	ProductID int64  `json:"product_id" binding:"required,gt=0"`
	Rating    int    `json:"rating" binding:"required,gte=1,lte=5"`
	Title     string `json:"title" binding:"required,min=1,max=200"`
	Comment   string `json:"comment" binding:"required,min=10"`
}

// @Summary Review a product
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body createReviewReq true "Review"
// @Success 201 {object} domain.Review
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /reviews [post]
func (s *Server) createReview(c *gin.Context) {
	var req createReviewReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := s.reviews.Create(c, currentUser(c), domain.Review{
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// @Summary List product reviews
// @Tags reviews
// @Produce json
// @Param product_id path int true "Product ID"
// @Success 200 {array} domain.Review
// @Failure 404 {object} map[string]string
// @Router /reviews/product/{product_id} [get]
func (s *Server) productReviews(c *gin.Context) {
	pid, err := parseID(c.Param("product_id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	list, err := s.reviews.ListForProduct(c, pid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Product rating summary
// @Tags reviews
// @Produce json
// @Param product_id path int true "Product ID"
// @Success 200 {object} domain.RatingStats
// @Failure 404 {object} map[string]string
// @Router /reviews/product/{product_id}/rating [get]
func (s *Server) productRating(c *gin.Context) {
	pid, err := parseID(c.Param("product_id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	stats, err := s.reviews.RatingStats(c, pid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary List own reviews
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Review
// @Router /reviews/my [get]
func (s *Server) myReviews(c *gin.Context) {
	list, err := s.reviews.ListForUser(c, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get review by id
// @Tags reviews
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} domain.Review
// @Failure 404 {object} map[string]string
// @Router /reviews/{id} [get]
func (s *Server) getReview(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := s.reviews.GetByID(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type updateReviewReq struct {
	Rating  *int    `json:"rating" binding:"omitempty,gte=1,lte=5"`
	Title   *string `json:"title" binding:"omitempty,min=1,max=200"`
	Comment *string `json:"comment" binding:"omitempty,min=10"`
}

// @Summary Update own review
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Param input body updateReviewReq true "Update"
// @Success 200 {object} domain.Review
// @Failure 404 {object} map[string]string "missing or not yours"
// @Router /reviews/{id} [put]
func (s *Server) updateReview(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var req updateReviewReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := s.reviews.Update(c, id, currentUser(c), service.ReviewPatch{Rating: req.Rating, Title: req.Title, Comment: req.Comment})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// @Summary Delete own review
// @Tags reviews
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 204
// @Failure 404 {object} map[string]string "missing or not yours"
// @Router /reviews/{id} [delete]
func (s *Server) deleteReview(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.reviews.Delete(c, id, currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
