package handlers

import "imagesvc/internal/domain"

type adaptiveRequest struct {
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

type classifyRequest struct {
	Prompt string `json:"prompt"`
}

type imagesResponse struct {
	Images []domain.ImageCandidate `json:"images"`
}

type generateResponse struct {
	Path        string     `json:"path"`
	Placeholder bool       `json:"placeholder"`
	Asset       *assetView `json:"asset,omitempty"`
}

// assetView is an ImageAsset plus its public URLs.
type assetView struct {
	domain.ImageAsset
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type assetListResponse struct {
	Images []assetView `json:"images"`
}
