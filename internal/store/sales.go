package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

const saleColumns = "id, date, personnel_number, items, total, paid"

func scanSale(row rowScanner) (models.Sale, error) {
	var (
		sale  models.Sale
		date  int64
		items string
		total string
		paid  int
	)
	if err := row.Scan(&sale.ID, &date, &sale.PersonnelNumber, &items, &total, &paid); err != nil {
		return models.Sale{}, err
	}
	lines, err := unmarshalItems(items)
	if err != nil {
		return models.Sale{}, err
	}
	t, err := parseDecimal("total", total)
	if err != nil {
		return models.Sale{}, err
	}
	sale.Date = fromNanos(date)
	sale.Items = lines
	sale.Total = t
	sale.Paid = paid != 0
	return sale, nil
}

// putSale upserts a sale keyed by its id. A sale with a zero id is
// inserted as new and receives the next AUTOINCREMENT id.
func putSale(ctx context.Context, q querier, sale models.Sale) error {
	items, err := marshalItems(sale.Items)
	if err != nil {
		return err
	}
	if sale.ID == 0 {
		_, err = q.ExecContext(ctx, `
			INSERT INTO sales (date, personnel_number, items, total, paid)
			VALUES (?, ?, ?, ?, ?)
		`, toNanos(sale.Date), sale.PersonnelNumber, items, sale.Total.String(), boolToInt(sale.Paid))
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		return nil
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO sales (id, date, personnel_number, items, total, paid)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			personnel_number = excluded.personnel_number,
			items = excluded.items,
			total = excluded.total,
			paid = excluded.paid
	`, sale.ID, toNanos(sale.Date), sale.PersonnelNumber, items, sale.Total.String(), boolToInt(sale.Paid))
	if err != nil {
		return fmt.Errorf("put sale %d: %w", sale.ID, err)
	}
	return nil
}

func listSales(ctx context.Context, q querier) ([]models.Sale, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+saleColumns+" FROM sales ORDER BY date DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

// AddSale inserts a new sale and sets sale.ID to the store-assigned id.
// Ids are never reused, even after deletes.
func (s *Store) AddSale(ctx context.Context, sale *models.Sale) error {
	db, err := s.conn("add sale")
	if err != nil {
		return err
	}
	items, err := marshalItems(sale.Items)
	if err != nil {
		return apperr.Storage("add sale", err)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO sales (date, personnel_number, items, total, paid)
		VALUES (?, ?, ?, ?, ?)
	`, toNanos(sale.Date), sale.PersonnelNumber, items, sale.Total.String(), boolToInt(sale.Paid))
	if err != nil {
		return apperr.Storage("add sale", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Storage("add sale", fmt.Errorf("last insert id: %w", err))
	}
	sale.ID = id
	return nil
}

// GetSale returns the sale with id or a NotFound error.
func (s *Store) GetSale(ctx context.Context, id int64) (models.Sale, error) {
	db, err := s.conn("get sale")
	if err != nil {
		return models.Sale{}, err
	}
	sale, err := scanSale(db.QueryRowContext(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sale{}, apperr.NotFound("get sale", "no sale with id %d", id)
	}
	if err != nil {
		return models.Sale{}, apperr.Storage("get sale", err)
	}
	return sale, nil
}

// ListSales returns every sale, newest first.
func (s *Store) ListSales(ctx context.Context) ([]models.Sale, error) {
	db, err := s.conn("list sales")
	if err != nil {
		return nil, err
	}
	sales, err := listSales(ctx, db)
	if err != nil {
		return nil, apperr.Storage("list sales", err)
	}
	return sales, nil
}

// PutSale upserts a sale keyed by its id.
func (s *Store) PutSale(ctx context.Context, sale models.Sale) error {
	db, err := s.conn("put sale")
	if err != nil {
		return err
	}
	if err := putSale(ctx, db, sale); err != nil {
		return apperr.Storage("put sale", err)
	}
	return nil
}

// SetSalePaid updates the paid flag of a sale. Missing sales yield NotFound.
func (s *Store) SetSalePaid(ctx context.Context, id int64, paid bool) error {
	db, err := s.conn("set sale paid")
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "UPDATE sales SET paid = ? WHERE id = ?", boolToInt(paid), id)
	if err != nil {
		return apperr.Storage("set sale paid", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage("set sale paid", err)
	}
	if n == 0 {
		return apperr.NotFound("set sale paid", "no sale with id %d", id)
	}
	return nil
}

// DeleteSale removes the sale with id. Absent ids are a no-op.
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	db, err := s.conn("delete sale")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM sales WHERE id = ?", id); err != nil {
		return apperr.Storage("delete sale", err)
	}
	return nil
}

// ClearSales removes every sale.
func (s *Store) ClearSales(ctx context.Context) error {
	db, err := s.conn("clear sales")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM sales"); err != nil {
		return apperr.Storage("clear sales", err)
	}
	return nil
}

// CountSales returns the number of stored sales.
func (s *Store) CountSales(ctx context.Context) (int, error) {
	db, err := s.conn("count sales")
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales").Scan(&n); err != nil {
		return 0, apperr.Storage("count sales", err)
	}
	return n, nil
}

// ReplaceSales clears the sale key space and inserts sales with their
// existing ids, all in one transaction. Sales without an id are inserted
// after the others and get fresh ids, so they never collide with a kept id.
func (s *Store) ReplaceSales(ctx context.Context, sales []models.Sale) error {
	return s.withTx(ctx, "replace sales", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sales"); err != nil {
			return fmt.Errorf("clear sales: %w", err)
		}
		var fresh []models.Sale
		for _, sale := range sales {
			if sale.ID == 0 {
				fresh = append(fresh, sale)
				continue
			}
			if err := putSale(ctx, tx, sale); err != nil {
				return err
			}
		}
		for _, sale := range fresh {
			if err := putSale(ctx, tx, sale); err != nil {
				return err
			}
		}
		return nil
	})
}
