package domain

import "context"

// ImageAssetRepository persists image records produced by the HTTP layer.
type ImageAssetRepository interface {
	Create(ctx context.Context, asset *ImageAsset) error
	List(ctx context.Context, uploaded bool) ([]ImageAsset, error)
	GetByID(ctx context.Context, id string) (*ImageAsset, error)
	FindByFilename(ctx context.Context, filename string) (*ImageAsset, error)
	Delete(ctx context.Context, id string) error
}
