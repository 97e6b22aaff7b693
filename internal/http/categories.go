package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service"
)

type createCategoryReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
}

// @Summary Create category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body createCategoryReq true "Category"
// @Success 201 {object} domain.Category
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /categories [post]
func (s *Server) createCategory(c *gin.Context) {
	var req createCategoryReq
	if !bindJSON(c, &req) {
		return
	}
	cat, err := s.categories.Create(c, domain.Category{Name: req.Name, Description: req.Description, ParentID: req.ParentID})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// @Summary List categories
// @Tags categories
// @Produce json
// @Param root_only query bool false "Only categories without a parent"
// @Success 200 {array} domain.Category
// @Router /categories [get]
func (s *Server) listCategories(c *gin.Context) {
	rootOnly, _ := strconv.ParseBool(c.Query("root_only"))
	var (
		list []domain.Category
		err  error
	)
	if rootOnly {
		list, err = s.categories.Roots(c)
	} else {
		list, err = s.categories.List(c)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get category by id
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} domain.Category
// @Failure 404 {object} map[string]string
// @Router /categories/{id} [get]
func (s *Server) getCategory(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	cat, err := s.categories.GetByID(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// @Summary List subcategories
// @Tags categories
// @Produce json
// @Param id path int true "Parent category ID"
// @Success 200 {array} domain.Category
// @Failure 404 {object} map[string]string
// @Router /categories/{id}/subcategories [get]
func (s *Server) listSubcategories(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	list, err := s.categories.Subcategories(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateCategoryReq struct {
	Name        *string `json:"name" binding:"omitempty,min=1"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id"`
}

// @Summary Update category
// @Description A parent_id equal to the category's own id is ignored.
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param input body updateCategoryReq true "Update"
// @Success 200 {object} domain.Category
// @Failure 404 {object} map[string]string
// @Router /categories/{id} [put]
func (s *Server) updateCategory(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var req updateCategoryReq
	if !bindJSON(c, &req) {
		return
	}
	cat, err := s.categories.Update(c, id, service.CategoryPatch{Name: req.Name, Description: req.Description, ParentID: req.ParentID})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// @Summary Delete category
// @Tags categories
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /categories/{id} [delete]
func (s *Server) deleteCategory(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.categories.Delete(c, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
