package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	"github.com/smallbiznis/invoiceflow/pkg/db/pagination"
	"github.com/smallbiznis/invoiceflow/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Authz authorization.Service
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	authz authorization.Service
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		authz: p.Authz,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorType := string(auditdomain.ActorTypeSystem)
	var actorID *string
	if entry.Actor.UserID != 0 {
		actorType = entry.Actor.Type()
		id := entry.Actor.UserID.String()
		actorID = &id
	}

	var metadata datatypes.JSONMap
	if len(entry.Metadata) > 0 {
		metadata = datatypes.JSONMap{}
		for key, value := range entry.Metadata {
			if key == "" {
				continue
			}
			metadata[key] = value
		}
	}

	if cid := correlation.FromContext(ctx); cid != "" {
		if metadata == nil {
			metadata = datatypes.JSONMap{}
		}
		metadata["correlation_id"] = cid
	}

	log := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   normalize(entry.TargetID),
		Metadata:   metadata,
		CreatedAt:  s.clock.Now(),
	}

	if tx == nil {
		tx = s.db
	}
	if err := s.repo.Insert(ctx, tx, log); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, a actor.Actor, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectAuditLog, authorization.ActionAuditLogView); err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.AuditCursor
	cursorID, cursorAt, ok, err := pagination.ParseToken(req.PageToken)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
	}
	if ok {
		cursor = &auditdomain.AuditCursor{ID: cursorID, CreatedAt: cursorAt}
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *auditdomain.AuditLog) string {
		return pagination.Token(item.ID, item.CreatedAt)
	})

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	return auditdomain.ListAuditLogResponse{PageInfo: pageInfo, AuditLogs: logs}, nil
}

func normalize(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
