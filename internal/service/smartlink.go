package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mdmc/smartlinks/internal/model"
	"github.com/mdmc/smartlinks/internal/repository"
)

// GetSmartLink returns a smart link with its platforms for the public
// read endpoint.
func (s *TrackService) GetSmartLink(ctx context.Context, id string) (*model.SmartLink, error) {
	link, err := s.links.GetSmartLink(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("get smart link: %w", err)
	}
	return link, nil
}
