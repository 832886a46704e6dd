package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
	"imagesvc/internal/sqlinline"
)

// ImageAssetRepositoryPG implements domain.ImageAssetRepository using PostgreSQL.
type ImageAssetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewImageAssetRepository constructs a new repository over the marker-aware runner.
func NewImageAssetRepository(sql infra.SQLExecutor) *ImageAssetRepositoryPG {
	return &ImageAssetRepositoryPG{sql: sql}
}

// Create inserts asset, assigning an id when it has none.
func (r *ImageAssetRepositoryPG) Create(ctx context.Context, asset *domain.ImageAsset) error {
	if asset == nil {
		return errors.New("asset is required")
	}
	if strings.TrimSpace(asset.Path) == "" {
		return errors.New("asset path is required")
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	extras, err := json.Marshal(nonNilExtras(asset.Extras))
	if err != nil {
		return err
	}
	return r.sql.QueryRow(ctx, sqlinline.QInsertImageAsset, asset.ID, asset.Path, asset.IsUploaded, extras).Scan(&asset.CreatedAt)
}

// List returns generated or uploaded assets, newest first.
func (r *ImageAssetRepositoryPG) List(ctx context.Context, uploaded bool) ([]domain.ImageAsset, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListImageAssets, uploaded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.ImageAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *ImageAssetRepositoryPG) GetByID(ctx context.Context, id string) (*domain.ImageAsset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.one(ctx, sqlinline.QSelectImageAssetByID, id)
}

// FindByFilename matches the asset whose stored path ends with filename.
func (r *ImageAssetRepositoryPG) FindByFilename(ctx context.Context, filename string) (*domain.ImageAsset, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, domain.ErrNotFound
	}
	return r.one(ctx, sqlinline.QSelectImageAssetByFilename, filename)
}

func (r *ImageAssetRepositoryPG) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteImageAsset, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ImageAssetRepositoryPG) one(ctx context.Context, query string, arg string) (*domain.ImageAsset, error) {
	asset, err := scanAsset(r.sql.QueryRow(ctx, query, arg))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

func scanAsset(row pgx.Row) (domain.ImageAsset, error) {
	var (
		asset domain.ImageAsset
		raw   []byte
	)
	if err := row.Scan(&asset.ID, &asset.Path, &asset.IsUploaded, &raw, &asset.CreatedAt); err != nil {
		return domain.ImageAsset{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &asset.Extras); err != nil {
			return domain.ImageAsset{}, err
		}
	}
	return asset, nil
}

func nonNilExtras(extras map[string]any) map[string]any {
	if extras == nil {
		return map[string]any{}
	}
	return extras
}

var _ domain.ImageAssetRepository = (*ImageAssetRepositoryPG)(nil)
