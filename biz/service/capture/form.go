package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"sync"

	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/pkg/validator"
)

// FormCamera serves a photo taken by the field client and uploaded as a
// multipart file. A nil header means the client sent no photo.
type FormCamera struct {
	Header  *multipart.FileHeader
	MaxSize int64
}

func (c FormCamera) Open(ctx context.Context) (Stream, error) {
	if c.Header == nil {
		return nil, errors.New("no photo attached")
	}
	f, err := c.Header.Open()
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	return &formStream{file: f, maxSize: c.MaxSize}, nil
}

type formStream struct {
	file    multipart.File
	maxSize int64
	once    sync.Once
}

func (s *formStream) Snapshot(ctx context.Context) (Frame, error) {
	r := io.Reader(s.file)
	if s.maxSize > 0 {
		r = io.LimitReader(s.file, s.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Frame{}, fmt.Errorf("read photo: %w", err)
	}
	return Frame{Data: data}, nil
}

func (s *formStream) Close() error {
	var err error
	s.once.Do(func() { err = s.file.Close() })
	return err
}

// FormLocator reads the position the client attached to its submission.
type FormLocator struct {
	Latitude  string
	Longitude string
}

func (l FormLocator) Locate(ctx context.Context, highAccuracy bool) (asset.Coordinates, error) {
	latRaw, lonRaw := strings.TrimSpace(l.Latitude), strings.TrimSpace(l.Longitude)
	switch {
	case latRaw == "" && lonRaw == "":
		return asset.Coordinates{}, errors.New("no position attached")
	case latRaw == "":
		return asset.Coordinates{}, asset.Validation(asset.FieldError{Field: "latitude", Err: asset.ErrRequired})
	case lonRaw == "":
		return asset.Coordinates{}, asset.Validation(asset.FieldError{Field: "longitude", Err: asset.ErrRequired})
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return asset.Coordinates{}, asset.Validation(asset.FieldError{Field: "latitude", Err: asset.ErrInvalid})
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return asset.Coordinates{}, asset.Validation(asset.FieldError{Field: "longitude", Err: asset.ErrInvalid})
	}
	if err := validator.ValidateCoordinates(lat, lon); err != nil {
		field := "latitude"
		if errors.Is(err, validator.ErrLongitudeRange) {
			field = "longitude"
		}
		return asset.Coordinates{}, asset.Validation(asset.FieldError{Field: field, Err: err})
	}
	return asset.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// PhotoEncoder sniffs and checks uploaded frames against the upload policy.
// Rejections are reported as a validation failure of the photo field.
func PhotoEncoder(policy *validator.UploadConfig) Encoder {
	return func(f Frame) (Frame, error) {
		mime, err := policy.Validate(f.Data)
		if err != nil {
			return Frame{}, asset.Validation(asset.FieldError{Field: "photo", Err: err})
		}
		return Frame{Data: f.Data, MimeType: mime}, nil
	}
}
