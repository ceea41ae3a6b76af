package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/member/domain"
	"github.com/smallbiznis/planbilling/pkg/db/option"
	"github.com/smallbiznis/planbilling/pkg/db/pagination"
	"github.com/smallbiznis/planbilling/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	members repository.Repository[domain.Member]
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("member.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		members: repository.ProvideStore[domain.Member](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateMemberRequest) (*domain.Member, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	member := &domain.Member{
		ID:          s.genID.Generate().Int64(),
		DisplayName: name,
		Email:       email,
		Status:      domain.MemberStatusActive,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	if id == 0 {
		return nil, domain.ErrMemberNotFound
	}
	member, err := s.members.FindOne(ctx, &domain.Member{ID: id})
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	return member, nil
}

func (s *Service) List(ctx context.Context, req domain.ListMemberRequest) (domain.ListMemberResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	opts := []option.QueryOption{
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize}),
		option.WithSortBy(option.QuerySortBy{Field: "id", Direction: "desc"}),
	}
	if req.Status != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "status",
			Operator: option.EQ,
			Value:    req.Status,
		}))
	}

	items, err := s.members.Find(ctx, nil, opts...)
	if err != nil {
		return domain.ListMemberResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(m *domain.Member) pagination.Cursor {
		return pagination.Cursor{
			ID:        strconv.FormatInt(m.ID, 10),
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		}
	})

	members := make([]domain.Member, 0, len(items))
	for _, item := range items {
		members = append(members, *item)
	}
	return domain.ListMemberResponse{PageInfo: pageInfo, Members: members}, nil
}
