package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// AdjustStock subtracts qty from the stock at (productID, list, colorName,
// size), clamped at zero, and returns the resulting stock. The subtraction
// is a single locked statement on the server so concurrent orders against
// the same coordinate cannot lose a decrement. A size label the variant has
// never stocked reads as zero and stays zero.
func (r *Repo) AdjustStock(ctx context.Context, productID string, list ListKind, colorName, size string, qty int) (newStock int, clamped bool, err error) {
	var variantID int64
	err = r.DB.QueryRow(ctx, `
		SELECT id FROM variants
		WHERE product_id=$1 AND list_kind=$2 AND color_name=$3`,
		productID, string(list), colorName).Scan(&variantID)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
			return 0, false, fmt.Errorf("catalog: lookup product %s: %w", productID, err)
		}
		if !exists {
			return 0, false, ErrProductNotFound
		}
		return 0, false, ErrVariantNotFound
	} else if err != nil {
		return 0, false, fmt.Errorf("catalog: lookup variant: %w", err)
	}

	// Lock the row, read the old value, write the clamped new one, all in
	// one statement. before/after come back NULL when the size row does
	// not exist yet.
	var before, after *int
	err = r.DB.QueryRow(ctx, `
		WITH cur AS (
			SELECT stock FROM variant_sizes
			WHERE variant_id=$1 AND size_label=$2
			FOR UPDATE
		), upd AS (
			UPDATE variant_sizes
			SET stock = GREATEST(stock - $3, 0)
			WHERE variant_id=$1 AND size_label=$2
			RETURNING stock
		)
		SELECT (SELECT stock FROM cur), (SELECT stock FROM upd)`,
		variantID, size, qty).Scan(&before, &after)
	if err != nil {
		return 0, false, fmt.Errorf("catalog: adjust stock: %w", err)
	}
	if before == nil || after == nil {
		// Untracked size: backfill the row at zero so the coordinate shows
		// up in catalog reads from now on.
		_, err = r.DB.Exec(ctx, `
			INSERT INTO variant_sizes(variant_id, size_label, stock)
			VALUES ($1, $2, 0)
			ON CONFLICT (variant_id, size_label) DO NOTHING`,
			variantID, size)
		if err != nil {
			return 0, false, fmt.Errorf("catalog: backfill size row: %w", err)
		}
		return 0, qty > 0, nil
	}
	return *after, *before < qty, nil
}

// GetProduct loads a product with all its variant lists and stock.
func (r *Repo) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, price_cents, is_couple_pack, created_at, updated_at
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.IsCouplePack, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	} else if err != nil {
		return nil, fmt.Errorf("catalog: get product: %w", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT v.id, v.list_kind, v.color_name, v.color_hex, v.front_image, v.back_image,
		       vs.size_label, vs.stock
		FROM variants v
		LEFT JOIN variant_sizes vs ON vs.variant_id = v.id
		WHERE v.product_id=$1
		ORDER BY v.id`, productID)
	if err != nil {
		return nil, fmt.Errorf("catalog: load variants: %w", err)
	}
	defer rows.Close()

	type slot struct {
		kind ListKind
		idx  int
	}
	seen := map[int64]slot{}
	for rows.Next() {
		var (
			vid   int64
			kind  string
			v     Variant
			size  *string
			stock *int
		)
		if err := rows.Scan(&vid, &kind, &v.ColorName, &v.ColorHex, &v.FrontImage, &v.BackImage, &size, &stock); err != nil {
			return nil, fmt.Errorf("catalog: scan variant: %w", err)
		}
		s, ok := seen[vid]
		if !ok {
			v.SizesStock = SizesStock{}
			switch ListKind(kind) {
			case ListCoupleA:
				p.CoupleA = append(p.CoupleA, v)
				s = slot{ListCoupleA, len(p.CoupleA) - 1}
			case ListCoupleB:
				p.CoupleB = append(p.CoupleB, v)
				s = slot{ListCoupleB, len(p.CoupleB) - 1}
			default:
				p.Variants = append(p.Variants, v)
				s = slot{ListVariants, len(p.Variants) - 1}
			}
			seen[vid] = s
		}
		if size != nil && stock != nil {
			var target *Variant
			switch s.kind {
			case ListCoupleA:
				target = &p.CoupleA[s.idx]
			case ListCoupleB:
				target = &p.CoupleB[s.idx]
			default:
				target = &p.Variants[s.idx]
			}
			target.SizesStock[*size] = *stock
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load variants: %w", err)
	}
	return &p, nil
}

func (r *Repo) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count products: %w", err)
	}
	return n, nil
}
