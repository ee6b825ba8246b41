package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/smallbiznis/dealroster/internal/organization/domain"
	"gorm.io/gorm"
)

// orgLookup answers the validator's liveness question through the caller's unit of work.
type orgLookup struct {
	repo organizationdomain.Repository
	db   *gorm.DB
}

func (l orgLookup) LiveOrganizations(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]struct{}, error) {
	orgs, err := l.repo.FindLiveByIDs(ctx, l.db, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]struct{}, len(orgs))
	for id := range orgs {
		out[id] = struct{}{}
	}
	return out, nil
}
