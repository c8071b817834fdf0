package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/mendelflow/mendelflowgo/internal/apperr"
	"github.com/mendelflow/mendelflowgo/internal/models"
)

// ListProducts returns catalog entries. q matches name, SKU or location.
func (s *Store) ListProducts(ctx context.Context, q string, activeOnly bool) ([]models.Product, error) {
	db := s.with(ctx).Model(&models.Product{})
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	if text := strings.TrimSpace(q); text != "" {
		p := like(text)
		db = db.Where("name ILIKE ? OR sku ILIKE ? OR location ILIKE ?", p, p, p)
	}

	var products []models.Product
	if err := db.Order("name ASC").Find(&products).Error; err != nil {
		return nil, wrap("list products", err)
	}
	return products, nil
}

// GetProduct fetches a product by id
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := s.with(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, wrap("get product", err)
	}
	return &product, nil
}

// GetProductBySKU fetches a product by SKU, case-insensitively
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.with(ctx).First(&product, "UPPER(sku) = ?", strings.ToUpper(strings.TrimSpace(sku))).Error
	if err != nil {
		return nil, wrap("get product by sku", err)
	}
	return &product, nil
}

// CreateProduct inserts a product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return wrap("create product", s.with(ctx).Create(product).Error)
}

// UpdateProduct applies field updates and returns the fresh product
func (s *Store) UpdateProduct(ctx context.Context, id string, updates map[string]interface{}) (*models.Product, error) {
	res := s.with(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, wrap("update product", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update product: %w", apperr.ErrNotFound)
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct soft-deletes a product
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res := s.with(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return wrap("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete product: %w", apperr.ErrNotFound)
	}
	return nil
}
