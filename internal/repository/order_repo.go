package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vabboost/internal/domain"
	"vabboost/internal/pkg/ordernumber"
)

const (
	ChangedBySystem  = "system"
	ChangedByWebhook = "webhook"
)

// PaymentCreator is invoked inside the order transaction once the order row
// exists. Returning an error rolls the whole creation back.
type PaymentCreator func(ctx context.Context, o *domain.Order) (*domain.Payment, error)

type OrderFilter struct {
	Status   domain.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Sort     string
	Order    string
	Page     int
	PerPage  int
}

// likeEscaper makes user input match literally inside a LIKE ... ESCAPE '\' pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var orderSortColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"amount":     true,
	"status":     true,
}

// OrderStatusView is the public status projection.
type OrderStatusView struct {
	OrderID       int64                 `json:"-"`
	OrderNumber   string                `json:"order_number"`
	OrderStatus   domain.OrderStatus    `json:"order_status"`
	PaymentStatus *domain.PaymentStatus `json:"payment_status"`
}

type StatusCount struct {
	Status domain.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
}

type OrderStats struct {
	TotalOrders int64         `json:"total_orders"`
	TodayOrders int64         `json:"today_orders"`
	Revenue     float64       `json:"revenue"`
	ByStatus    []StatusCount `json:"by_status"`
}

type OrderRepository struct {
	db      *gorm.DB
	numbers *ordernumber.Generator
}

func NewOrderRepository(db *gorm.DB, numbers *ordernumber.Generator) *OrderRepository {
	return &OrderRepository{db: db, numbers: numbers}
}

// CreateWithPayment inserts the order as awaiting_payment, calls createPayment,
// stores the returned payment and back-links it, all in one transaction.
func (r *OrderRepository) CreateWithPayment(ctx context.Context, o *domain.Order, createPayment PaymentCreator) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.insertOrder(ctx, tx, o, domain.OrderAwaitingPayment); err != nil {
			return err
		}

		p, err := createPayment(ctx, o)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPaymentRequired
		}
		p.OrderID = o.ID
		if err := tx.Create(p).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateExternalID, p.ExternalID)
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := tx.Model(&domain.Order{}).Where("id = ?", o.ID).Update("payment_id", p.ID).Error; err != nil {
			return fmt.Errorf("link payment: %w", err)
		}
		o.PaymentID = &p.ID
		o.Payment = p

		return writeHistory(tx, o.ID, "", o.Status, ChangedBySystem, "order created")
	})
}

// CreateCancelled records an order whose payment could not be created. The
// row stays as an audit record; the customer resubmits to get a new order.
func (r *OrderRepository) CreateCancelled(ctx context.Context, o *domain.Order, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o.ID = 0
		o.PaymentID = nil
		o.Payment = nil
		if err := r.insertOrder(ctx, tx, o, domain.OrderCancelled); err != nil {
			return err
		}
		return writeHistory(tx, o.ID, "", domain.OrderCancelled, ChangedBySystem, reason)
	})
}

func (r *OrderRepository) insertOrder(ctx context.Context, tx *gorm.DB, o *domain.Order, status domain.OrderStatus) error {
	if o.OrderNumber == "" {
		number, err := r.numbers.Next(ctx, func(ctx context.Context, candidate string) (bool, error) {
			return orderNumberTaken(tx, candidate)
		})
		if err != nil {
			return err
		}
		o.OrderNumber = number
	}
	o.Status = status
	if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrOrderNumberConflict, o.OrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func orderNumberTaken(tx *gorm.DB, candidate string) (bool, error) {
	var n int64
	if err := tx.Model(&domain.Order{}).Where("order_number = ?", candidate).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByRef resolves a numeric id or an order number.
func (r *OrderRepository) GetByRef(ctx context.Context, ref string) (*domain.Order, error) {
	var o domain.Order
	q := r.db.WithContext(ctx).Preload("Payment")
	if err := refScope(q, "orders.", ref).First(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrderRepository) GetStatus(ctx context.Context, ref string) (*OrderStatusView, error) {
	var v OrderStatusView
	q := r.db.WithContext(ctx).
		Table("orders").
		Select("orders.id AS order_id, orders.order_number, orders.status AS order_status, payments.status AS payment_status").
		Joins("LEFT JOIN payments ON payments.id = orders.payment_id")
	res := refScope(q, "orders.", ref).Limit(1).Scan(&v)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &v, nil
}

// UpdateStatus applies a gateway-driven transition. Orders outside the
// pre-terminal set are left untouched and reported as unchanged.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus, changedBy string) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = updateOrderStatusTx(tx, id, status, changedBy, "")
		return err
	})
	return changed, err
}

func updateOrderStatusTx(tx *gorm.DB, id int64, status domain.OrderStatus, changedBy, comment string) (bool, error) {
	var current domain.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "status").First(&current, id).Error; err != nil {
		return false, notFound(err)
	}
	if !domain.CanAutoTransition(current.Status, status) {
		return false, nil
	}
	res := tx.Model(&domain.Order{}).
		Where("id = ? AND status IN ?", id, domain.PreTerminalOrderStatuses).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := writeHistory(tx, id, current.Status, status, changedBy, comment); err != nil {
		return false, err
	}
	return true, nil
}

// AdminSetStatus applies an operator transition under a row lock.
func (r *OrderRepository) AdminSetStatus(ctx context.Context, id int64, status domain.OrderStatus, changedBy, comment string) (*domain.Order, error) {
	var out domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, id).Error; err != nil {
			return notFound(err)
		}
		if !domain.CanAdminTransition(out.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, out.Status, status)
		}
		old := out.Status
		now := time.Now().UTC()
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", id, old).
			Updates(map[string]interface{}{"status": status, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, out.OrderNumber)
		}
		out.Status = status
		out.UpdatedAt = now
		return writeHistory(tx, id, old, status, changedBy, comment)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateNotes replaces the operator notes and leaves an entry in the status
// history with the status unchanged.
func (r *OrderRepository) UpdateNotes(ctx context.Context, id int64, notes, changedBy string) (*domain.Order, error) {
	var out domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, id).Error; err != nil {
			return notFound(err)
		}
		now := time.Now().UTC()
		if err := tx.Model(&domain.Order{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"notes": notes, "updated_at": now}).Error; err != nil {
			return err
		}
		out.Notes = notes
		out.UpdatedAt = now
		return writeHistory(tx, id, out.Status, out.Status, changedBy, "notes updated")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]domain.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at < ?", *f.DateTo)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + likeEscaper.Replace(s) + "%"
		q = q.Where(`order_number LIKE ? ESCAPE '\' OR contact LIKE ? ESCAPE '\'`, like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort := f.Sort
	if !orderSortColumns[sort] {
		sort = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	page, perPage := clampPage(f.Page, f.PerPage)

	var orders []domain.Order
	err := q.Preload("Payment").
		Order(sort + " " + dir).
		Order("id " + dir).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) History(ctx context.Context, orderID int64) ([]domain.OrderStatusHistory, error) {
	var rows []domain.OrderStatusHistory
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *OrderRepository) Stats(ctx context.Context, now time.Time) (*OrderStats, error) {
	db := r.db.WithContext(ctx)
	var st OrderStats

	if err := db.Model(&domain.Order{}).Count(&st.TotalOrders).Error; err != nil {
		return nil, err
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&domain.Order{}).Where("created_at >= ?", startOfDay).Count(&st.TodayOrders).Error; err != nil {
		return nil, err
	}
	paidOnward := []domain.OrderStatus{domain.OrderPaid, domain.OrderProcessing, domain.OrderCompleted}
	if err := db.Model(&domain.Order{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status IN ?", paidOnward).
		Scan(&st.Revenue).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&st.ByStatus).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func writeHistory(tx *gorm.DB, orderID int64, from, to domain.OrderStatus, changedBy, comment string) error {
	h := domain.OrderStatusHistory{
		OrderID:   orderID,
		OldStatus: from,
		NewStatus: to,
		ChangedBy: changedBy,
		Comment:   comment,
	}
	if err := tx.Create(&h).Error; err != nil {
		return fmt.Errorf("write status history: %w", err)
	}
	return nil
}

func refScope(q *gorm.DB, table, ref string) *gorm.DB {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return q.Where(table+"id = ?", id)
	}
	return q.Where(table+"order_number = ?", ref)
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 10 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

// IsOrderNumberConflict reports whether a creation failed on the order number unique index.
func IsOrderNumberConflict(err error) bool {
	return errors.Is(err, ErrOrderNumberConflict)
}
