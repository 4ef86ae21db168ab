package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/port"
)

// MySQLStore is the durable backend. Line items are stored as JSON columns,
// stock and status moves use conditional UPDATEs so concurrent writers cannot
// lose each other's changes.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

var _ port.Store = (*MySQLStore)(nil)

// EnsureSchema creates the tables if they are missing.
func (m *MySQLStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         VARCHAR(36)  PRIMARY KEY,
			email      VARCHAR(255) NOT NULL UNIQUE,
			username   VARCHAR(255) NOT NULL,
			password   VARCHAR(255) NOT NULL,
			role       VARCHAR(16)  NOT NULL,
			created_at DATETIME(6)  NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id          VARCHAR(36)   PRIMARY KEY,
			name        VARCHAR(255)  NOT NULL,
			price       DECIMAL(12,2) NOT NULL,
			stock       INT           NOT NULL,
			description TEXT,
			category    VARCHAR(100),
			seller_id   VARCHAR(36)   NOT NULL,
			created_at  DATETIME(6)   NOT NULL,
			updated_at  DATETIME(6)   NOT NULL,
			INDEX idx_products_category (category),
			INDEX idx_products_seller (seller_id)
		)`,
		`CREATE TABLE IF NOT EXISTS carts (
			id           VARCHAR(36)   PRIMARY KEY,
			user_id      VARCHAR(36)   NOT NULL UNIQUE,
			items        JSON          NOT NULL,
			total_amount DECIMAL(12,2) NOT NULL,
			updated_at   DATETIME(6)   NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           VARCHAR(36)   PRIMARY KEY,
			user_id      VARCHAR(36)   NOT NULL,
			items        JSON          NOT NULL,
			total_amount DECIMAL(12,2) NOT NULL,
			status       VARCHAR(16)   NOT NULL,
			created_at   DATETIME(6)   NOT NULL,
			updated_at   DATETIME(6)   NOT NULL,
			INDEX idx_orders_user (user_id),
			INDEX idx_orders_status (status)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Username, user.Password, user.Role, user.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// isDuplicateKey matches MySQL error 1062 on the unique email index.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

func (m *MySQLStore) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (m *MySQLStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return m.scanUser(m.db.QueryRowContext(ctx, `
		SELECT id, email, username, password, role, created_at
		FROM users WHERE id = ?`, id))
}

func (m *MySQLStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.scanUser(m.db.QueryRowContext(ctx, `
		SELECT id, email, username, password, role, created_at
		FROM users WHERE email = ?`, email))
}

func (m *MySQLStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, stock, description, category, seller_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Price, p.Stock, p.Description, p.Category, p.SellerID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

const productColumns = `id, name, price, stock, description, category, seller_id, created_at, updated_at`

func scanProduct(scan func(dest ...any) error) (*domain.Product, error) {
	var p domain.Product
	var price string
	err := scan(&p.ID, &p.Name, &price, &p.Stock, &p.Description, &p.Category, &p.SellerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &p, nil
}

func (m *MySQLStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (m *MySQLStore) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	results := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		results = append(results, *p)
	}
	return results, rows.Err()
}

func (m *MySQLStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return m.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
}

func (m *MySQLStore) ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return m.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE category = ? ORDER BY name`, category)
}

func (m *MySQLStore) ListProductsBySeller(ctx context.Context, sellerID string) ([]domain.Product, error) {
	return m.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE seller_id = ? ORDER BY name`, sellerID)
}

func (m *MySQLStore) UpdateProduct(ctx context.Context, p *domain.Product) error {
	// stock is deliberately absent: it only moves through AdjustStock
	result, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, price = ?, description = ?, category = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Price, p.Description, p.Category, time.Now(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if existing, err := m.GetProduct(ctx, p.ID); err != nil || existing == nil {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (m *MySQLStore) DeleteProduct(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MySQLStore) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, updated_at = ?
		WHERE id = ? AND stock + ? >= 0`,
		delta, time.Now(), productID, delta,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		p, err := m.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrInsufficientStock
	}

	return m.GetProduct(ctx, productID)
}

func (m *MySQLStore) GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var c domain.Cart
	var itemsJSON []byte
	var total string
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, items, total_amount, updated_at
		FROM carts WHERE user_id = ?`, userID,
	).Scan(&c.ID, &c.UserID, &itemsJSON, &total, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	if c.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse cart total: %w", err)
	}
	return &c, nil
}

func (m *MySQLStore) SaveCart(ctx context.Context, cart *domain.Cart) error {
	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, items, total_amount, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE items = VALUES(items),
			total_amount = VALUES(total_amount), updated_at = VALUES(updated_at)`,
		cart.ID, cart.UserID, itemsJSON, cart.TotalAmount, cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (m *MySQLStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, items, total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, itemsJSON, order.TotalAmount, order.Status,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	var o domain.Order
	var itemsJSON []byte
	var total string
	if err := scan(&o.ID, &o.UserID, &itemsJSON, &total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	var err error
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse order total: %w", err)
	}
	return &o, nil
}

const orderColumns = `id, user_id, items, total_amount, status, created_at, updated_at`

func (m *MySQLStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

func (m *MySQLStore) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	results := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		results = append(results, *o)
	}
	return results, rows.Err()
}

func (m *MySQLStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return m.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (m *MySQLStore) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return m.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (m *MySQLStore) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return m.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY created_at DESC`, status)
}

func (m *MySQLStore) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, time.Now(), id, from,
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		o, err := m.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, domain.ErrNotFound
		}
		return nil, port.ErrConflict
	}

	return m.GetOrder(ctx, id)
}

func (m *MySQLStore) DeleteOrder(ctx context.Context, id string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}
