package gateway

import (
	"github.com/yi-nology/park_registry/biz/dal/model"
	"github.com/yi-nology/park_registry/biz/model/asset"
)

func toModel(a *asset.Asset) *model.Asset {
	row := &model.Asset{
		AssetID:     a.ID,
		AssetName:   a.Name,
		AssetType:   a.Category,
		Condition:   string(a.Condition),
		Description: a.Description,
		PhotoKey:    a.ImageRef,
		MapURL:      a.MapRef,
		RecordedAt:  a.RecordedAt,
		AcquiredAt:  a.AcquiredAt,
		RecordedBy:  a.RecordedBy,
	}
	if a.Location != nil {
		lat, lon := a.Location.Latitude, a.Location.Longitude
		row.Latitude, row.Longitude = &lat, &lon
	}
	return row
}

func fromModel(row *model.Asset) asset.Asset {
	out := asset.Asset{
		ID:          row.AssetID,
		Name:        row.AssetName,
		Category:    row.AssetType,
		Condition:   asset.Condition(row.Condition),
		Description: row.Description,
		ImageRef:    row.PhotoKey,
		MapRef:      row.MapURL,
		RecordedAt:  row.RecordedAt,
		AcquiredAt:  row.AcquiredAt,
		RecordedBy:  row.RecordedBy,
	}
	// A half-populated pair is treated as absent.
	if row.Latitude != nil && row.Longitude != nil {
		out.Location = &asset.Coordinates{Latitude: *row.Latitude, Longitude: *row.Longitude}
	}
	if !row.UpdatedAt.IsZero() && !row.UpdatedAt.Equal(row.CreatedAt) {
		updated := row.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}
