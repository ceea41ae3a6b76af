package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/planbilling/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateMemberRequest) (*Member, error)
	GetMember(ctx context.Context, id int64) (*Member, error)
	List(ctx context.Context, req ListMemberRequest) (ListMemberResponse, error)
}

type CreateMemberRequest struct {
	DisplayName string
	Email       string
}

type ListMemberRequest struct {
	PageToken string
	PageSize  int
	Status    MemberStatus
}

type ListMemberResponse struct {
	pagination.PageInfo
	Members []Member `json:"members"`
}

var (
	ErrMemberNotFound = errors.New("member_not_found")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidEmail   = errors.New("invalid_email")
)
