package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/jackc/pgx/v5"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `
	o.id::text, o.order_number, o.created_at, o.updated_at, o.status, o.order_type,
	o.subtotal, o.total, o.tax, o.delivery_fee, o.discount, o.tip,
	o.user_id::text, p.full_name, p.phone,
	o.guest_name, o.guest_phone, o.guest_email, o.contact_phone,
	o.delivery_address, o.delivery_instructions, o.device_fingerprint,
	o.confirmed_at, o.preparing_at, o.ready_at, o.delivering_at, o.completed_at, o.cancelled_at
`

const orderFrom = `FROM orders o LEFT JOIN profiles p ON p.id = o.user_id`

func scanOrder(row Row) (*domain.Order, error) {
	var (
		o            domain.Order
		orderType    string
		profileName  *string
		profilePhone *string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.CreatedAt, &o.UpdatedAt, &o.Status, &orderType,
		&o.Subtotal, &o.Total, &o.Tax, &o.DeliveryFee, &o.Discount, &o.Tip,
		&o.UserID, &profileName, &profilePhone,
		&o.GuestName, &o.GuestPhone, &o.GuestEmail, &o.ContactPhone,
		&o.DeliveryAddress, &o.DeliveryInstructions, &o.DeviceFingerprint,
		&o.Lifecycle.ConfirmedAt, &o.Lifecycle.PreparingAt, &o.Lifecycle.ReadyAt,
		&o.Lifecycle.DeliveringAt, &o.Lifecycle.CompletedAt, &o.Lifecycle.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	o.Type = domain.OrderType(orderType)
	if o.UserID != nil && profileName != nil {
		o.Customer = &domain.CustomerContact{FullName: *profileName}
		if profilePhone != nil {
			o.Customer.Phone = *profilePhone
		}
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (id, order_number, user_id, status, order_type,
		                    subtotal, tax, delivery_fee, discount, tip, total,
		                    guest_name, guest_phone, guest_email, contact_phone,
		                    delivery_address, delivery_instructions, device_fingerprint,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = tx.Exec(ctx, query,
		order.ID, order.Number, order.UserID, order.Status, string(order.Type),
		order.Subtotal, order.Tax, order.DeliveryFee, order.Discount, order.Tip, order.Total,
		order.GuestName, order.GuestPhone, order.GuestEmail, order.ContactPhone,
		order.DeliveryAddress, order.DeliveryInstructions, order.DeviceFingerprint,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		_, err = tx.Exec(ctx, itemQuery,
			item.ID, order.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := logStatus(ctx, tx, order.ID, order.Status, "checkout", order.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE o.id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByScope(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error) {
	var (
		where string
		args  []any
	)
	switch {
	case scope.Admin:
		where = `WHERE NOT (o.status = ANY($1))`
		args = append(args, scope.TerminalIDs())
	case scope.UserID != "":
		where = `WHERE o.user_id = $1`
		args = append(args, scope.UserID)
	case scope.Fingerprint != "":
		where = `WHERE o.device_fingerprint = $1`
		args = append(args, scope.Fingerprint)
	default:
		return nil, fmt.Errorf("empty order scope")
	}

	query := `SELECT ` + orderColumns + orderFrom + ` ` + where + ` ORDER BY o.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	rows.Close()

	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, len(list))
	for i, o := range list {
		orders[i] = *o
	}
	return orders, nil
}

// loadItems fills the items of all orders with one query.
func (r *orderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		ids[i] = o.ID
		o.Items = []domain.OrderItem{}
	}

	query := `
		SELECT id::text, order_id::text, product_id, name, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

// UpdateStatus writes the status and lifecycle timestamps and logs the change.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, changedBy string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders
		SET status = $1, updated_at = $2,
		    confirmed_at = $3, preparing_at = $4, ready_at = $5,
		    delivering_at = $6, completed_at = $7, cancelled_at = $8
		WHERE id = $9
	`
	l := order.Lifecycle
	tag, err := tx.Exec(ctx, query,
		order.Status, order.UpdatedAt,
		l.ConfirmedAt, l.PreparingAt, l.ReadyAt, l.DeliveringAt, l.CompletedAt, l.CancelledAt,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	if err := logStatus(ctx, tx, order.ID, order.Status, changedBy, order.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	query := `
		SELECT id, order_id::text, status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.ID, &log.OrderID, &log.Status, &log.ChangedBy, &log.ChangedAt, &log.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func (r *orderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	prefix := fmt.Sprintf("ORD_%s_", now.Format("20060102"))

	query := `SELECT COUNT(*) FROM orders WHERE order_number LIKE $1`

	var count int
	err := r.db.QueryRow(ctx, query, prefix+"%").Scan(&count)
	if err != nil {
		return "", fmt.Errorf("failed to count orders: %w", err)
	}

	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

func logStatus(ctx context.Context, tx Tx, orderID, status, changedBy string, at time.Time) error {
	query := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, query, orderID, status, changedBy, at); err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}
