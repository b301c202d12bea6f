package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/backoffice/internal/events"
	"github.com/alfredjeanlab/backoffice/internal/form"
	"github.com/alfredjeanlab/backoffice/internal/idgen"
	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/store"
)

// createProduct validates the form, checks SKU uniqueness and inserts the
// product in one transaction. A missing "active" field means active.
func (s *BackofficeServer) createProduct(ctx context.Context, who principal, f *form.Form) (*model.Product, error) {
	product := &model.Product{
		Name:        f.Get("name"),
		Description: f.Get("description"),
		Price:       f.Get("price"),
		SKU:         f.Get("sku"),
		Active:      !f.Has("active") || f.Bool("active"),
		CreatedBy:   who.UserID,
		UpdatedBy:   who.UserID,
	}
	if err := model.ValidateProduct(product); err != nil {
		return nil, err
	}

	id, err := idgen.New("product")
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	product.ID = id

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := skuTaken(ctx, tx, product.SKU, "Product with this SKU already exists"); err != nil {
			return err
		}
		return tx.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicProductCreated, product.ID, who.actor(), events.ProductCreated{Product: product})
	return product, nil
}

// updateProduct merges the submitted fields onto the stored product,
// validates the merged record and writes it. Changing the SKU re-checks
// uniqueness.
func (s *BackofficeServer) updateProduct(ctx context.Context, who principal, id string, f *form.Form) (*model.Product, error) {
	var (
		product *model.Product
		changes = map[string]any{}
	)
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		existing, err := tx.GetProduct(ctx, id)
		if err != nil {
			return notFound(err, "Product")
		}
		product = existing
		oldSKU := product.SKU

		for name, dst := range map[string]*string{
			"name":        &product.Name,
			"description": &product.Description,
			"price":       &product.Price,
			"sku":         &product.SKU,
		} {
			if f.Has(name) {
				*dst = f.Get(name)
				changes[name] = *dst
			}
		}
		if f.Has("active") {
			product.Active = f.Bool("active")
			changes["active"] = product.Active
		}
		product.UpdatedBy = who.UserID

		if err := model.ValidateProduct(product); err != nil {
			return err
		}
		if product.SKU != oldSKU {
			if err := skuTaken(ctx, tx, product.SKU, "SKU already exists"); err != nil {
				return err
			}
		}
		return tx.UpdateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicProductUpdated, product.ID, who.actor(), events.ProductUpdated{Product: product, Changes: changes})
	return product, nil
}

// deleteProduct removes a product.
func (s *BackofficeServer) deleteProduct(ctx context.Context, who principal, id string) error {
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetProduct(ctx, id); err != nil {
			return notFound(err, "Product")
		}
		return notFound(tx.DeleteProduct(ctx, id), "Product")
	})
	if err != nil {
		return err
	}

	s.recordAndPublish(ctx, events.TopicProductDeleted, id, who.actor(), events.ProductDeleted{ProductID: id})
	return nil
}

// setProductActive sets the active flag.
func (s *BackofficeServer) setProductActive(ctx context.Context, who principal, id string, active bool) error {
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		product, err := tx.GetProduct(ctx, id)
		if err != nil {
			return notFound(err, "Product")
		}
		product.Active = active
		product.UpdatedBy = who.UserID
		return tx.UpdateProduct(ctx, product)
	})
	if err != nil {
		return err
	}

	s.recordAndPublish(ctx, events.TopicProductActivated, id, who.actor(), events.ProductActivated{ProductID: id, Active: active})
	return nil
}

// skuTaken returns a ConflictError carrying msg when sku belongs to a
// product already.
func skuTaken(ctx context.Context, tx store.Store, sku, msg string) error {
	_, err := tx.GetProductBySKU(ctx, sku)
	switch {
	case err == nil:
		return &model.ConflictError{Field: "sku", Message: msg}
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return fmt.Errorf("check sku: %w", err)
	}
}
