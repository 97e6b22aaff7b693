package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repository"
)

// OrderService implements the order workflow: checkout from a cart, status
// changes and cancellation with stock restore.
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	carts    repository.CartRepository
	tx       repository.TxManager

	publisher events.Publisher
	producer  string
	strict    bool
	log       *slog.Logger
}

// OrderOption configures an OrderService.
type OrderOption func(*OrderService)

// WithPublisher sends lifecycle events to p after each committed change.
func WithPublisher(p events.Publisher, producer string) OrderOption {
	return func(s *OrderService) {
		s.publisher = p
		s.producer = producer
	}
}

// WithStrictTransitions limits SetStatus to single forward lifecycle steps.
func WithStrictTransitions(strict bool) OrderOption {
	return func(s *OrderService) { s.strict = strict }
}

func WithOrderLogger(l *slog.Logger) OrderOption {
	return func(s *OrderService) { s.log = l }
}

func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, carts repository.CartRepository, tx repository.TxManager, opts ...OrderOption) *OrderService {
	s := &OrderService{
		products:  products,
		orders:    orders,
		carts:     carts,
		tx:        tx,
		publisher: events.Nop{},
		producer:  "storefront",
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var (
	ErrNotEnoughStock = errors.New("not enough stock")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidState   = errors.New("invalid state")
)

// CreateFromCart turns the user's cart into a pending order. Every line is
// checked against live stock before anything is written, so either the whole
// order is placed and the cart emptied, or nothing changes.
func (s *OrderService) CreateFromCart(ctx context.Context, userID int64) (*domain.Order, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.carts.Get(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && len(cart.Items) == 0) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}

		// validate every line first; a cart line is unique per product but the
		// need is summed anyway
		need := make(map[int64]int64, len(cart.Items))
		productCopies := make(map[int64]*domain.Product, len(cart.Items))
		for _, it := range cart.Items {
			need[it.ProductID] += it.Quantity
			p, ok := productCopies[it.ProductID]
			if !ok {
				p, err = s.products.GetByID(ctx, it.ProductID)
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("product %d is no longer available: %w", it.ProductID, ErrNotEnoughStock)
				}
				if err != nil {
					return err
				}
				productCopies[p.ID] = p
			}
			if p.Stock < need[it.ProductID] {
				return fmt.Errorf("product %d: want %d, have %d: %w", p.ID, need[p.ID], p.Stock, ErrNotEnoughStock)
			}
		}

		// snapshot live name and price, then commit
		items := make([]domain.OrderItem, 0, len(cart.Items))
		total := decimal.Zero
		for _, it := range cart.Items {
			p := productCopies[it.ProductID]
			line := p.Price.Mul(decimal.NewFromInt(it.Quantity))
			items = append(items, domain.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    it.Quantity,
				UnitPrice:   p.Price,
				TotalPrice:  line,
			})
			total = total.Add(line)
		}
		for id, p := range productCopies {
			p.Stock -= need[id]
			if err := s.products.Update(ctx, p); err != nil {
				return err
			}
		}

		o := domain.Order{
			UserID: userID,
			Items:  items,
			Total:  total,
			Status: domain.OrderStatusPending,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		cart.Items = nil
		if err := s.carts.Save(ctx, cart); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderCreated, *created, "")
	return created, nil
}

// GetOrder returns the order by id.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByID(ctx, id)
}

// ListOrders returns all orders, or only those of userID when it is set.
func (s *OrderService) ListOrders(ctx context.Context, userID *int64) ([]domain.Order, error) {
	return s.orders.List(ctx, repository.OrderFilter{UserID: userID})
}

// SetStatus moves an order to a new status. Cancellation goes through
// CancelOrder so stock is restored, and a cancelled order stays cancelled.
func (s *OrderService) SetStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 || !status.Valid() {
		return nil, ErrInvalidInput
	}
	if status == domain.OrderStatusCancelled {
		return nil, fmt.Errorf("use cancel to cancel an order: %w", ErrInvalidInput)
	}

	var (
		updated  *domain.Order
		previous domain.OrderStatus
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusCancelled {
			return fmt.Errorf("order %d is cancelled: %w", id, ErrInvalidState)
		}
		if s.strict && !domain.CanAdvance(o.Status, status) {
			return fmt.Errorf("order %d: %s -> %s: %w", id, o.Status, status, ErrInvalidState)
		}
		previous = o.Status
		o.Status = status
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderStatusChanged, *updated, previous)
	return updated, nil
}

// CancelOrder cancels a pending or confirmed order and returns its quantities
// to stock. Products deleted since the order was placed are skipped.
func (s *OrderService) CancelOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	var (
		updated  *domain.Order
		previous domain.OrderStatus
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.Cancellable() {
			return fmt.Errorf("order %d is %s: %w", id, o.Status, ErrInvalidState)
		}
		// return stock
		for _, it := range o.Items {
			p, err := s.products.GetByID(ctx, it.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				s.log.WarnContext(ctx, "skip stock restore for missing product",
					"order_id", o.ID, "product_id", it.ProductID, "quantity", it.Quantity)
				continue
			}
			if err != nil {
				return err
			}
			p.Stock += it.Quantity
			if err := s.products.Update(ctx, p); err != nil {
				return err
			}
		}
		previous = o.Status
		o.Status = domain.OrderStatusCancelled
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderCancelled, *updated, previous)
	return updated, nil
}

// ExportOrder returns the hierarchical document form of the order.
func (s *OrderService) ExportOrder(ctx context.Context, id int64) (domain.OrderDocument, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return domain.OrderDocument{}, err
	}
	return o.Document(), nil
}

// publish runs after commit; a transport failure is logged and never undoes the change.
func (s *OrderService) publish(ctx context.Context, typ events.Type, o domain.Order, previous domain.OrderStatus) {
	payload := events.NewOrderPayload(o)
	payload.Previous = previous
	env, err := events.NewEnvelope(s.producer, typ, o.ID, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, env)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "publish order event", "event", typ, "order_id", o.ID, "err", err)
	}
}
