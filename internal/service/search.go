package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
	"github.com/simmerapp/simmer-server/internal/search"
	"github.com/simmerapp/simmer-server/internal/store"
)

// SearchService answers recipe search queries scoped to what the actor may
// see: their own personal recipes or one community they belong to.
type SearchService struct {
	store  store.Store
	index  *search.Index
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(store store.Store, index *search.Index, logger *slog.Logger) *SearchService {
	return &SearchService{
		store:  store,
		index:  index,
		logger: logger,
	}
}

// SearchPersonal searches the actor's personal recipes.
func (s *SearchService) SearchPersonal(ctx context.Context, actorID, query string, limit, offset int) (*search.Result, error) {
	if s.index == nil {
		return nil, domainerrors.Validation("search is disabled on this server")
	}

	params := search.DefaultParams()
	params.Query = query
	params.CreatorID = actorID
	applyPaging(&params, limit, offset)

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search personal recipes: %w", err)
	}
	return result, nil
}

// SearchCommunity searches one community's recipes. Members only.
func (s *SearchService) SearchCommunity(ctx context.Context, actorID, communityID, query string, limit, offset int) (*search.Result, error) {
	if s.index == nil {
		return nil, domainerrors.Validation("search is disabled on this server")
	}

	if _, err := s.store.GetMembership(ctx, communityID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	params := search.DefaultParams()
	params.Query = query
	params.CommunityID = communityID
	applyPaging(&params, limit, offset)

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search community recipes: %w", err)
	}
	return result, nil
}

// DocumentCount reports how many recipes the index currently holds.
func (s *SearchService) DocumentCount() (uint64, error) {
	if s.index == nil {
		return 0, nil
	}
	return s.index.DocumentCount()
}

func applyPaging(params *search.Params, limit, offset int) {
	if limit > 0 {
		params.Limit = limit
	}
	if offset > 0 {
		params.Offset = offset
	}
}
