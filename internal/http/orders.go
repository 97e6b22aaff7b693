package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

// @Summary Place order from cart
// @Description Converts the caller's cart into a pending order. A repeated Idempotency-Key returns the order it created.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client retry key"
// @Success 201 {object} domain.Order
// @Success 200 {object} domain.Order "replayed"
// @Failure 400 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	uid := currentUser(c)
	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
	if key != "" {
		if id, ok, err := s.idempotency.Lookup(c, uid, key); err != nil {
			s.log.WarnContext(c, "idempotency lookup failed", "user_id", uid, "err", err)
		} else if ok {
			if o, err := s.orders.GetOrder(c, id); err == nil {
				c.JSON(http.StatusOK, o)
				return
			}
		}
	}

	o, err := s.orders.CreateFromCart(c, uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	if key != "" {
		if err := s.idempotency.Remember(c, uid, key, o.ID); err != nil {
			s.log.WarnContext(c, "idempotency remember failed", "user_id", uid, "order_id", o.ID, "err", err)
		}
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary List own orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	uid := currentUser(c)
	list, err := s.orders.ListOrders(c, &uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ownedOrder loads the order in the path and checks that the caller placed it.
func (s *Server) ownedOrder(c *gin.Context) (*domain.Order, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return nil, false
	}
	o, err := s.orders.GetOrder(c, id)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if o.UserID != currentUser(c) {
		s.fail(c, service.ErrPermissionDenied)
		return nil, false
	}
	return o, true
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, ok := s.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Export order as XML
// @Tags orders
// @Produce xml
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} domain.OrderDocument
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/xml [get]
func (s *Server) exportOrder(c *gin.Context) {
	o, ok := s.ownedOrder(c)
	if !ok {
		return
	}
	doc, err := s.orders.ExportOrder(c, o.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	b, err := doc.Encode()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", b)
}

type setStatusReq struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

// @Summary Set order status
// @Description Cancelled is not accepted here; use the cancel endpoint.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param input body setStatusReq true "Status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [put]
func (s *Server) setOrderStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var req setStatusReq
	if !bindJSON(c, &req) {
		return
	}
	o, err := s.orders.SetStatus(c, id, req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Cancel own order
// @Description Only pending and confirmed orders can be cancelled; their items return to stock.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	o, ok := s.ownedOrder(c)
	if !ok {
		return
	}
	o, err := s.orders.CancelOrder(c, o.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
