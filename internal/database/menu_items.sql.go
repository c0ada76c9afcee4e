package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, description, category, price, prep_minutes, is_available, image_url, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Category,
		&i.Price,
		&i.PrepMinutes,
		&i.IsAvailable,
		&i.ImageUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMenuItem = `
INSERT INTO menu_items (name, description, category, price, prep_minutes, is_available, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Category    string         `json:"category"`
	Price       pgtype.Numeric `json:"price"`
	PrepMinutes int32          `json:"prep_minutes"`
	IsAvailable bool           `json:"is_available"`
	ImageUrl    pgtype.Text    `json:"image_url"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Price,
		arg.PrepMinutes,
		arg.IsAvailable,
		arg.ImageUrl,
	)
	return scanMenuItem(row)
}

const getMenuItem = `
SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const getMenuItemForOrder = `
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE id = $1 AND is_available = true`

// GetMenuItemForOrder only returns items that can currently be ordered.
func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItemForOrder, id))
}

const listMenuItems = `
SELECT ` + menuItemColumns + ` FROM menu_items ORDER BY category, name`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMenuCategories = `
SELECT category, count(*) AS item_count FROM menu_items
WHERE is_available = true
GROUP BY category
ORDER BY category`

type ListMenuCategoriesRow struct {
	Category  string `json:"category"`
	ItemCount int64  `json:"item_count"`
}

func (q *Queries) ListMenuCategories(ctx context.Context) ([]ListMenuCategoriesRow, error) {
	rows, err := q.db.Query(ctx, listMenuCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListMenuCategoriesRow{}
	for rows.Next() {
		var i ListMenuCategoriesRow
		if err := rows.Scan(&i.Category, &i.ItemCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateMenuItem = `
UPDATE menu_items
SET name = $2, description = $3, category = $4, price = $5, prep_minutes = $6,
    is_available = $7, image_url = $8, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Category    string         `json:"category"`
	Price       pgtype.Numeric `json:"price"`
	PrepMinutes int32          `json:"prep_minutes"`
	IsAvailable bool           `json:"is_available"`
	ImageUrl    pgtype.Text    `json:"image_url"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Price,
		arg.PrepMinutes,
		arg.IsAvailable,
		arg.ImageUrl,
	)
	return scanMenuItem(row)
}

const deleteMenuItem = `
UPDATE menu_items SET is_available = false, updated_at = now()
WHERE id = $1
RETURNING id`

// DeleteMenuItem hides the item from the menu. Rows stay because past
// order lines reference them.
func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuItem, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
