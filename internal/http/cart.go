package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// cartResp is the cart plus its total, priced at the carted unit prices.
type cartResp struct {
	domain.Cart
	Total decimal.Decimal `json:"total"`
}

func newCartResp(c *domain.Cart) cartResp {
	return cartResp{Cart: *c, Total: c.Total()}
}

// @Summary Get own cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} cartResp
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	cart, err := s.carts.Get(c, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResp(cart))
}

type addCartItemReq struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity" binding:"required,gt=0"`
}

// @Summary Add item to cart
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body addCartItemReq true "Item"
// @Success 200 {object} cartResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	var req addCartItemReq
	if !bindJSON(c, &req) {
		return
	}
	cart, err := s.carts.AddItem(c, currentUser(c), req.ProductID, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResp(cart))
}

type updateCartItemReq struct {
	Quantity int64 `json:"quantity"`
}

// @Summary Set cart item quantity
// @Description A quantity of zero or less removes the item.
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product_id path int true "Product ID"
// @Param input body updateCartItemReq true "Quantity"
// @Success 200 {object} cartResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items/{product_id} [put]
func (s *Server) updateCartItem(c *gin.Context) {
	pid, err := parseID(c.Param("product_id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var req updateCartItemReq
	if !bindJSON(c, &req) {
		return
	}
	cart, err := s.carts.UpdateItemQuantity(c, currentUser(c), pid, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResp(cart))
}

// @Summary Remove cart item
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param product_id path int true "Product ID"
// @Success 200 {object} cartResp
// @Failure 404 {object} map[string]string
// @Router /cart/items/{product_id} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	pid, err := parseID(c.Param("product_id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	cart, err := s.carts.RemoveItem(c, currentUser(c), pid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResp(cart))
}

// @Summary Clear cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} cartResp
// @Router /cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	cart, err := s.carts.Clear(c, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResp(cart))
}
