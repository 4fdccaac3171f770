// Package sqlite provides the SQLite-backed checkout store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository/sqlite/migrations"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Store persists products and orders in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ repository.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// withTx runs fn inside one transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, price, weight, image, in_stock, description
		   FROM products
		  ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int) (domain.Product, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, price, weight, image, in_stock, description
		   FROM products
		  WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, repository.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (domain.Product, error) {
	var (
		p      domain.Product
		price  string
		weight sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &weight, &p.Image, &p.InStock, &p.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan product: %w", err)
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return p, fmt.Errorf("parse price of product %d: %w", p.ID, err)
	}
	if weight.Valid {
		w := int(weight.Int64)
		p.Weight = &w
	}
	return p, nil
}

func nullWeight(w *int) sql.NullInt64 {
	if w == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*w), Valid: true}
}

func (s *Store) ReplaceProducts(ctx context.Context, products []domain.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
			return fmt.Errorf("drop products: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO products (id, name, price, weight, image, in_stock, description)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare product insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range products {
			if _, err := stmt.ExecContext(ctx,
				p.ID, p.Name, p.Price.String(), nullWeight(p.Weight), p.Image, p.InStock, p.Description,
			); err != nil {
				return fmt.Errorf("insert product %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	p := order.Item.Product
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO orders (
		   product_id, product_name, product_price, product_weight,
		   product_image, product_description, product_in_stock,
		   quantity, email, paid, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.ID, p.Name, p.Price.String(), nullWeight(p.Weight),
		p.Image, p.Description, p.InStock,
		order.Item.Quantity, nullString(order.Email),
		toMillis(order.CreatedAt), toMillis(order.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	order.ID = int(id)
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *Store) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT o.id, o.product_id, o.product_name, o.product_price, o.product_weight,
		        o.product_image, o.product_description, o.product_in_stock,
		        o.quantity, o.email, o.paid, o.created_at, o.updated_at,
		        si.country, si.address, si.postal_code, si.city, si.province,
		        cc.name, cc.number, cc.expiration_year, cc.expiration_month, cc.cvv,
		        t.id, t.success, t.amount_charged
		   FROM orders o
		   LEFT JOIN shipping_information si ON si.order_id = o.id
		   LEFT JOIN credit_cards cc ON cc.order_id = o.id
		   LEFT JOIN transactions t ON t.order_id = o.id AND t.id = o.transaction_id
		  WHERE o.id = ?`, id)

	var (
		o                                        domain.Order
		price                                    string
		weight                                   sql.NullInt64
		email                                    sql.NullString
		createdAt, updatedAt                     int64
		country, address, postalCode, city, prov sql.NullString
		ccName, ccNumber, ccCVV                  sql.NullString
		ccYear, ccMonth                          sql.NullInt64
		txID, txAmount                           sql.NullString
		txSuccess                                sql.NullBool
	)
	err := row.Scan(
		&o.ID, &o.Item.Product.ID, &o.Item.Product.Name, &price, &weight,
		&o.Item.Product.Image, &o.Item.Product.Description, &o.Item.Product.InStock,
		&o.Item.Quantity, &email, &o.Paid, &createdAt, &updatedAt,
		&country, &address, &postalCode, &city, &prov,
		&ccName, &ccNumber, &ccYear, &ccMonth, &ccCVV,
		&txID, &txSuccess, &txAmount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if o.Item.Product.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price of order %d: %w", o.ID, err)
	}
	if weight.Valid {
		w := int(weight.Int64)
		o.Item.Product.Weight = &w
	}
	if email.Valid {
		e := email.String
		o.Email = &e
	}
	o.CreatedAt = fromMillis(createdAt)
	o.UpdatedAt = fromMillis(updatedAt)

	if country.Valid {
		o.ShippingInformation = &domain.ShippingInformation{
			Country:    country.String,
			Address:    address.String,
			PostalCode: postalCode.String,
			City:       city.String,
			Province:   prov.String,
		}
	}
	if ccNumber.Valid {
		o.CreditCard = &domain.CreditCard{
			Name:            ccName.String,
			Number:          ccNumber.String,
			ExpirationYear:  int(ccYear.Int64),
			ExpirationMonth: int(ccMonth.Int64),
			CVV:             ccCVV.String,
		}
	}
	if txID.Valid {
		amount, err := decimal.NewFromString(txAmount.String)
		if err != nil {
			return nil, fmt.Errorf("parse amount of transaction %s: %w", txID.String, err)
		}
		o.Transaction = &domain.Transaction{ID: txID.String, Success: txSuccess.Bool, AmountCharged: amount}
	}
	return &o, nil
}

func (s *Store) SaveOrder(ctx context.Context, order *domain.Order) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var paid bool
		err := tx.QueryRowContext(ctx, `SELECT paid FROM orders WHERE id = ?`, order.ID).Scan(&paid)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrOrderNotFound
			}
			return fmt.Errorf("load order %d: %w", order.ID, err)
		}
		if paid {
			return repository.ErrOrderPaid
		}

		order.UpdatedAt = time.Now().UTC()

		if si := order.ShippingInformation; si != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO shipping_information (order_id, country, address, postal_code, city, province)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT(order_id) DO UPDATE SET
				   country = excluded.country,
				   address = excluded.address,
				   postal_code = excluded.postal_code,
				   city = excluded.city,
				   province = excluded.province`,
				order.ID, si.Country, si.Address, si.PostalCode, si.City, si.Province,
			); err != nil {
				return fmt.Errorf("upsert shipping information: %w", err)
			}
		}

		if cc := order.CreditCard; cc != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO credit_cards (order_id, name, number, expiration_year, expiration_month, cvv)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT(order_id) DO UPDATE SET
				   name = excluded.name,
				   number = excluded.number,
				   expiration_year = excluded.expiration_year,
				   expiration_month = excluded.expiration_month,
				   cvv = excluded.cvv`,
				order.ID, cc.Name, cc.Number, cc.ExpirationYear, cc.ExpirationMonth, cc.CVV,
			); err != nil {
				return fmt.Errorf("upsert credit card: %w", err)
			}
		}

		var txID sql.NullString
		if t := order.Transaction; t != nil {
			txID = sql.NullString{String: t.ID, Valid: true}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO transactions (id, order_id, success, amount_charged, created_at)
				 VALUES (?, ?, ?, ?, ?)`,
				t.ID, order.ID, t.Success, t.AmountCharged.String(), toMillis(order.UpdatedAt),
			); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders
			    SET email = ?, transaction_id = ?, paid = ?, updated_at = ?
			  WHERE id = ?`,
			nullString(order.Email), txID, order.Paid, toMillis(order.UpdatedAt), order.ID,
		); err != nil {
			return fmt.Errorf("update order %d: %w", order.ID, err)
		}
		return nil
	})
}

// DeleteOrder removes an order and its owned rows. Deleting a missing order
// is not an error.
func (s *Store) DeleteOrder(ctx context.Context, id int) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	return nil
}

// TransactionHistory lists every payment attempt recorded for an order,
// oldest first.
func (s *Store) TransactionHistory(ctx context.Context, orderID int) ([]domain.Transaction, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, success, amount_charged
		   FROM transactions
		  WHERE order_id = ?
		  ORDER BY created_at, rowid`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var history []domain.Transaction
	for rows.Next() {
		var (
			t      domain.Transaction
			amount string
		)
		if err := rows.Scan(&t.ID, &t.Success, &amount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.AmountCharged, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of transaction %s: %w", t.ID, err)
		}
		history = append(history, t)
	}
	return history, rows.Err()
}
