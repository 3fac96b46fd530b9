package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/perutnina/internal/model"
)

const fowlColumns = `id, owner_id, previous_owner_id, name, breed, gender, hatch_date,
	sire_id, dam_id, image_mime, transferred_at, created_at`

// CreateFowl registers a fowl. An empty ID is replaced with a new UUID.
func CreateFowl(ctx context.Context, db *sql.DB, f *model.Fowl) (*model.Fowl, error) {
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	gender := f.Gender
	if gender == "" {
		gender = model.GenderUnknown
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO fowls (id, owner_id, name, breed, gender, hatch_date, sire_id, dam_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.OwnerID, f.Name, nullString(f.Breed), gender, f.HatchDate,
		nullString(f.SireID), nullString(f.DamID),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fowl: %w", err)
	}

	return GetFowl(ctx, db, id)
}

// GetFowl returns a fowl by ID, or nil if it does not exist.
func GetFowl(ctx context.Context, q Querier, id string) (*model.Fowl, error) {
	f, err := scanFowl(q.QueryRowContext(ctx,
		`SELECT `+fowlColumns+` FROM fowls WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting fowl: %w", err)
	}
	return f, nil
}

// ListFowls returns the fowls owned by ownerID.
func ListFowls(ctx context.Context, db *sql.DB, ownerID string) ([]model.Fowl, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+fowlColumns+` FROM fowls WHERE owner_id = ? ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing fowls: %w", err)
	}
	defer rows.Close()

	return scanFowls(rows)
}

// ConditionalOwnerUpdate moves a fowl from expectedOwner to newOwner in a
// single statement. It returns ErrOwnerConflict when the current owner is not
// expectedOwner and ErrNotFound when the fowl does not exist. q may be a
// transaction, in which case the caller commits.
func ConditionalOwnerUpdate(ctx context.Context, q Querier, fowlID, expectedOwner, newOwner string, at time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE fowls SET owner_id = ?, previous_owner_id = ?, transferred_at = ?
		 WHERE id = ? AND owner_id = ?`,
		newOwner, expectedOwner, at.UnixMilli(), fowlID, expectedOwner,
	)
	if err != nil {
		return fmt.Errorf("updating fowl owner: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	f, err := GetFowl(ctx, q, fowlID)
	if err != nil {
		return err
	}
	if f == nil {
		return ErrNotFound
	}
	return ErrOwnerConflict
}

// SetFowlImage sets a fowl's photo.
func SetFowlImage(ctx context.Context, db *sql.DB, id string, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE fowls SET image = ?, image_mime = ? WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting fowl image: %w", err)
	}
	return nil
}

// GetFowlImage returns a fowl's photo and MIME type.
func GetFowlImage(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM fowls WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting fowl image: %w", err)
	}
	return image, mime.String, nil
}

// Lineage returns the fowl, its ancestors and its descendants up to depth
// generations away, together with every parent edge whose offspring was
// fetched. Parent edges may point at fowls outside the result.
func Lineage(ctx context.Context, db *sql.DB, fowlID string, depth int) ([]model.Fowl, []model.Parentage, error) {
	root, err := GetFowl(ctx, db, fowlID)
	if err != nil {
		return nil, nil, err
	}
	if root == nil {
		return nil, nil, ErrNotFound
	}

	seen := map[string]bool{root.ID: true}
	fowls := []model.Fowl{*root}

	// Ancestors.
	frontier := []model.Fowl{*root}
	for gen := 0; gen < depth && len(frontier) > 0; gen++ {
		var next []model.Fowl
		for _, f := range frontier {
			for _, pid := range []string{f.SireID, f.DamID} {
				if pid == "" || seen[pid] {
					continue
				}
				p, err := GetFowl(ctx, db, pid)
				if err != nil {
					return nil, nil, err
				}
				if p == nil {
					continue
				}
				seen[p.ID] = true
				fowls = append(fowls, *p)
				next = append(next, *p)
			}
		}
		frontier = next
	}

	// Descendants.
	frontier = []model.Fowl{*root}
	for gen := 0; gen < depth && len(frontier) > 0; gen++ {
		var next []model.Fowl
		for _, f := range frontier {
			children, err := listOffspring(ctx, db, f.ID)
			if err != nil {
				return nil, nil, err
			}
			for _, c := range children {
				if seen[c.ID] {
					continue
				}
				seen[c.ID] = true
				fowls = append(fowls, c)
				next = append(next, c)
			}
		}
		frontier = next
	}

	var edges []model.Parentage
	for _, f := range fowls {
		if f.SireID != "" {
			edges = append(edges, model.Parentage{ParentID: f.SireID, OffspringID: f.ID})
		}
		if f.DamID != "" {
			edges = append(edges, model.Parentage{ParentID: f.DamID, OffspringID: f.ID})
		}
	}

	return fowls, edges, nil
}

func listOffspring(ctx context.Context, db *sql.DB, parentID string) ([]model.Fowl, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+fowlColumns+` FROM fowls WHERE sire_id = ? OR dam_id = ? ORDER BY id`,
		parentID, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing offspring: %w", err)
	}
	defer rows.Close()

	return scanFowls(rows)
}

func scanFowls(rows *sql.Rows) ([]model.Fowl, error) {
	var fowls []model.Fowl
	for rows.Next() {
		f, err := scanFowl(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fowl: %w", err)
		}
		fowls = append(fowls, *f)
	}
	return fowls, rows.Err()
}

func scanFowl(row rowScanner) (*model.Fowl, error) {
	f := &model.Fowl{}
	var prev, breed, sire, dam, mime sql.NullString
	var transferredAt sql.NullInt64
	err := row.Scan(&f.ID, &f.OwnerID, &prev, &f.Name, &breed, &f.Gender, &f.HatchDate,
		&sire, &dam, &mime, &transferredAt, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.PreviousOwnerID = prev.String
	f.Breed = breed.String
	f.SireID = sire.String
	f.DamID = dam.String
	f.ImageMime = mime.String
	f.TransferredAt = transferredAt.Int64
	return f, nil
}
