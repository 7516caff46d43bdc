package broker

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/pkg/db/option"
	"estateos-brokerledger/pkg/db/pagination"
	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/pkg/repository"
	"estateos-brokerledger/services/tenant"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	brokers repository.Repository[Broker]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		brokers: repository.ProvideStore[Broker](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, tc tenant.Context, brokerID string) (*Broker, error) {
	b, err := s.brokers.FindOne(ctx, &Broker{ID: brokerID, TenantID: tc.TenantID})
	if err != nil {
		zap.L().Error("failed to query broker", zap.String("broker_id", brokerID), zap.Error(err))
		return nil, err
	}

	if b == nil {
		return nil, errutil.NotFound("broker not found")
	}

	return b, nil
}

// FindByEmail resolves a broker by its email within the tenant. The bulk
// reconciliation importer uses this as the row identity.
func (s *Service) FindByEmail(ctx context.Context, tc tenant.Context, email string) (*Broker, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errutil.BadRequest("email must not be empty")
	}

	b, err := s.brokers.FindOne(ctx, &Broker{TenantID: tc.TenantID, Email: email})
	if err != nil {
		return nil, err
	}

	if b == nil {
		return nil, errutil.NotFound("no broker with email " + email)
	}

	return b, nil
}

type ListResult struct {
	Brokers  []*Broker            `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// List pages through the tenant's brokers with an opaque creation-time
// cursor. One extra row is fetched to detect whether more pages exist.
func (s *Service) List(ctx context.Context, tc tenant.Context, page pagination.Pagination) (*ListResult, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.ApplyPagination(pagination.Pagination{Limit: limit + 1}),
	}

	if page.Cursor != "" {
		cursor, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, errutil.BadRequest("invalid cursor")
		}
		after, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, errutil.BadRequest("invalid cursor")
		}
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.GT,
			Value:    after,
		}))
	}

	brokers, err := s.brokers.Find(ctx, &Broker{TenantID: tc.TenantID}, opts...)
	if err != nil {
		return nil, err
	}

	info := pagination.BuildCursorPageInfo(brokers, int32(limit), func(b *Broker) string {
		cur, _ := pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: b.CreatedAt.Format(time.RFC3339Nano),
			ID:        b.ID,
		})
		return cur
	})
	if len(brokers) > limit {
		brokers = brokers[:limit]
	}

	return &ListResult{Brokers: brokers, PageInfo: info}, nil
}

// Create registers a broker under the tenant. Email is normalised so the
// importer's case-insensitive match holds.
func (s *Service) Create(ctx context.Context, tc tenant.Context, name, email, phone string) (*Broker, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return nil, errutil.ValidationFailed("name and email are required")
	}

	exist, err := s.brokers.FindOne(ctx, &Broker{TenantID: tc.TenantID, Email: email})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("broker email already registered")
	}

	b := &Broker{
		ID:       s.node.Generate().String(),
		TenantID: tc.TenantID,
		Name:     name,
		Email:    email,
		Phone:    phone,
		Level:    LevelBronze,
		IsActive: true,
	}

	if err := s.brokers.Create(ctx, b); err != nil {
		zap.L().Error("failed to create broker", zap.Error(err))
		return nil, err
	}

	return b, nil
}
