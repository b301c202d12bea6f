package postgres

import (
	"context"
	"database/sql"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

const productColumns = `id, name, description, price, sku, active, created_at, updated_at, created_by, updated_by`

var productSorts = map[string]bool{"name": true, "sku": true, "price": true, "created_at": true, "updated_at": true}

func scanProduct(r row) (*model.Product, error) {
	var (
		p                       model.Product
		desc, creator, modifier sql.NullString
	)
	err := r.Scan(&p.ID, &p.Name, &desc, &p.Price, &p.SKU, &p.Active,
		&p.CreatedAt, &p.UpdatedAt, &creator, &modifier)
	if err != nil {
		return nil, err
	}
	p.Description, p.CreatedBy, p.UpdatedBy = desc.String, creator.String, modifier.String
	return &p, nil
}

// CreateProduct inserts p. Price is read back so it carries the column's
// two-decimal scale.
func (q queries) CreateProduct(ctx context.Context, p *model.Product) error {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, price, sku, active, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING price, created_at, updated_at`,
		p.ID, p.Name, nullString(p.Description), p.Price, p.SKU, p.Active,
		nullString(p.CreatedBy), nullString(p.UpdatedBy),
	).Scan(&p.Price, &p.CreatedAt, &p.UpdatedAt)
	return conflictFrom(err)
}

func (q queries) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return scanProduct(q.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (q queries) GetProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	return scanProduct(q.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku))
}

func (q queries) ListProducts(ctx context.Context, pq model.ProductQuery) ([]*model.Product, int, error) {
	var w where
	w.search(pq.Search, "name", "sku", "description")
	if pq.Active != nil {
		w.add("active = " + w.arg(*pq.Active))
	}
	return list(ctx, q.db, productColumns, "products", &w, orderClause(pq.Page, productSorts), pq.Page, scanProduct)
}

func (q queries) UpdateProduct(ctx context.Context, p *model.Product) error {
	err := q.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, sku = $5, active = $6,
		    updated_by = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING price, updated_at`,
		p.ID, p.Name, nullString(p.Description), p.Price, p.SKU, p.Active, nullString(p.UpdatedBy),
	).Scan(&p.Price, &p.UpdatedAt)
	return conflictFrom(err)
}

func (q queries) DeleteProduct(ctx context.Context, id string) error {
	return q.execOne(ctx, `DELETE FROM products WHERE id = $1`, id)
}
