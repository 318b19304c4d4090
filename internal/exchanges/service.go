package exchanges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/shifts"
	pkgAuth "github.com/medok/medok-backend/pkg/auth"
	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/outbox"
	"github.com/medok/medok-backend/pkg/outbox/payloads"
	"github.com/medok/medok-backend/pkg/pagination"
)

const (
	requestNotFoundMessage = "exchange request not found"
	alreadyAnsweredMessage = "exchange request already answered"
	invalidLinkMessage     = "invalid or expired link"
)

// Service manages shift exchange requests.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateExchangeRequest) (*ExchangeDTO, error)
	Respond(ctx context.Context, userID, requestID uuid.UUID, accept bool) (*ExchangeDTO, error)
	RedeemLink(ctx context.Context, req RedeemLinkRequest) (*ExchangeDTO, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[ExchangeDTO], error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShiftExchangeRequest, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.ShiftExchangeRequest, error)
}

type shiftRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Shift, error)
}

type profileRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

// linkStore records consumed link ids so each emailed link works once.
type linkStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ExchangeLinkKey(tokenID string) string
}

// ServiceParams bundles the dependencies required to build the exchange service.
type ServiceParams struct {
	DB        txRunner
	Repo      repository
	Shifts    shiftRepository
	Profiles  profileRepository
	Outbox    outbox.Emitter
	Links     linkStore
	JWTConfig config.JWTConfig
	Now       func() time.Time
}

type service struct {
	db       txRunner
	repo     repository
	shifts   shiftRepository
	profiles profileRepository
	outbox   outbox.Emitter
	links    linkStore
	jwtCfg   config.JWTConfig
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("database client required")
	case params.Repo == nil:
		return nil, fmt.Errorf("exchange repository required")
	case params.Shifts == nil:
		return nil, fmt.Errorf("shift repository required")
	case params.Profiles == nil:
		return nil, fmt.Errorf("profile repository required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Links == nil:
		return nil, fmt.Errorf("link store required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		shifts:   params.Shifts,
		profiles: params.Profiles,
		outbox:   params.Outbox,
		links:    params.Links,
		jwtCfg:   params.JWTConfig,
		now:      now,
	}, nil
}

// Create opens a pending request. Repeated requests for the same pair are allowed.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateExchangeRequest) (*ExchangeDTO, error) {
	if req.RequestedUserID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot request an exchange with yourself")
	}
	shift, err := s.shifts.FindByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
	}
	if shift.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shift belongs to another user")
	}

	people, err := s.profiles.FindByIDs(ctx, []uuid.UUID{userID, req.RequestedUserID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profiles")
	}
	requester, ok := people[userID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "profile not found")
	}
	if requester.HospitalID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeHospitalUnassigned, "user not assigned to a hospital")
	}
	requested, ok := people[req.RequestedUserID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "requested user not found")
	}
	if requested.HospitalID == nil || *requested.HospitalID != *requester.HospitalID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "requested user is in another hospital")
	}

	now := s.now()
	row := &models.ShiftExchangeRequest{
		ID:          uuid.New(),
		RequesterID: userID,
		RequestedID: requested.ID,
		ShiftID:     shift.ID,
		Status:      enums.ExchangeStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	shiftDate := shift.Date.Format(time.DateOnly)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := NewRepository(tx).Create(ctx, row); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShiftExchangeRequested,
			AggregateType: enums.AggregateShiftExchange,
			AggregateID:   row.ID,
			Actor:         actorRef(requester),
			OccurredAt:    now,
			Data: payloads.ShiftExchangeRequestedEvent{
				RequestID:      row.ID,
				RequesterID:    requester.ID,
				RequesterName:  requester.Name,
				RequestedID:    requested.ID,
				RequestedName:  requested.Name,
				RequestedEmail: deref(requested.Email),
				ShiftID:        shift.ID,
				ShiftDate:      shiftDate,
				ShiftType:      shift.Type,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create exchange request")
	}
	return toDTO(*row, shift, people), nil
}

// Respond records the requested user's in-app decision.
func (s *service) Respond(ctx context.Context, userID, requestID uuid.UUID, accept bool) (*ExchangeDTO, error) {
	row, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if row.RequestedID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the requested user can respond")
	}
	next := enums.ExchangeStatusRejected
	if accept {
		next = enums.ExchangeStatusAccepted
	}
	return s.transition(ctx, row, next)
}

// RedeemLink answers a request from an emailed link without a session. The
// token must match the path and is consumed on first use.
func (s *service) RedeemLink(ctx context.Context, req RedeemLinkRequest) (*ExchangeDTO, error) {
	action, err := enums.ParseExchangeAction(req.Action)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be accept or reject")
	}
	claims, err := pkgAuth.ParseExchangeLinkToken(s.jwtCfg, req.Token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidLinkMessage)
	}
	if claims.RequesterID.String() != req.RequesterID || claims.ShiftDate != req.ShiftDate {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "link does not match this request")
	}
	if claims.Action != action {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "link was issued for a different action")
	}
	requestedID, err := claims.RequestedUserID()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidLinkMessage)
	}

	row, err := s.load(ctx, claims.RequestID)
	if err != nil {
		return nil, err
	}
	if row.RequestedID != requestedID || row.RequesterID != claims.RequesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "link does not match this request")
	}

	key := s.links.ExchangeLinkKey(claims.ID)
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLinkMessage)
	}
	first, err := s.links.SetNX(ctx, key, row.ID.String(), ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume link")
	}
	if !first {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "link already used")
	}

	dto, err := s.transition(ctx, row, action.Status())
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		// a failed write leaves the link usable
		_ = s.links.Del(ctx, key)
	}
	return dto, err
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[ExchangeDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[ExchangeDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return pagination.Page[ExchangeDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchange requests")
	}
	page := pagination.Paginate(rows, params.Limit, func(r models.ShiftExchangeRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})

	shiftIDs := make([]uuid.UUID, 0, len(page.Items))
	userIDs := make([]uuid.UUID, 0, len(page.Items)*2)
	for _, r := range page.Items {
		shiftIDs = append(shiftIDs, r.ShiftID)
		userIDs = append(userIDs, r.RequesterID, r.RequestedID)
	}
	shiftsByID, err := s.shifts.FindByIDs(ctx, shiftIDs)
	if err != nil {
		return pagination.Page[ExchangeDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shifts")
	}
	people, err := s.profiles.FindByIDs(ctx, userIDs)
	if err != nil {
		return pagination.Page[ExchangeDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profiles")
	}

	out := pagination.Page[ExchangeDTO]{Items: make([]ExchangeDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, r := range page.Items {
		var shift *models.Shift
		if sh, ok := shiftsByID[r.ShiftID]; ok {
			shift = &sh
		}
		out.Items = append(out.Items, *toDTO(r, shift, people))
	}
	return out, nil
}

// transition applies a terminal status once and emits the response event in the same transaction.
func (s *service) transition(ctx context.Context, row *models.ShiftExchangeRequest, next enums.ExchangeStatus) (*ExchangeDTO, error) {
	if !row.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, alreadyAnsweredMessage)
	}
	shift, err := s.shifts.FindByID(ctx, row.ShiftID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
	}
	people, err := s.profiles.FindByIDs(ctx, []uuid.UUID{row.RequesterID, row.RequestedID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profiles")
	}
	requester := people[row.RequesterID]
	responder := people[row.RequestedID]

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := NewRepository(tx).TransitionFromPending(ctx, row.ID, next, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update exchange request")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, alreadyAnsweredMessage)
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShiftExchangeResponded,
			AggregateType: enums.AggregateShiftExchange,
			AggregateID:   row.ID,
			Actor:         actorRef(responder),
			OccurredAt:    now,
			Data: payloads.ShiftExchangeRespondedEvent{
				RequestID:      row.ID,
				RequesterID:    row.RequesterID,
				RequesterName:  requester.Name,
				RequesterEmail: deref(requester.Email),
				ResponderID:    row.RequestedID,
				ResponderName:  responder.Name,
				ShiftDate:      shift.Date.Format(time.DateOnly),
				Status:         next,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit response event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	row.Status = next
	row.UpdatedAt = now
	return toDTO(*row, shift, people), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.ShiftExchangeRequest, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, requestNotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange request")
	}
	return row, nil
}

func toDTO(r models.ShiftExchangeRequest, shift *models.Shift, people map[uuid.UUID]models.Profile) *ExchangeDTO {
	dto := &ExchangeDTO{
		ID:            r.ID,
		RequesterID:   r.RequesterID,
		RequesterName: people[r.RequesterID].Name,
		RequestedID:   r.RequestedID,
		RequestedName: people[r.RequestedID].Name,
		ShiftID:       r.ShiftID,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if shift != nil {
		s := shifts.FromModel(*shift)
		dto.Shift = &s
	}
	return dto
}

func actorRef(p models.Profile) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: p.ID, HospitalID: p.HospitalID, Role: string(p.Role)}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
