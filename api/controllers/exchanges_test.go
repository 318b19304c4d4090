package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/medok/medok-backend/internal/exchanges"
	"github.com/medok/medok-backend/pkg/enums"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/pagination"
)

type stubExchangeService struct {
	respondUser    uuid.UUID
	respondRequest uuid.UUID
	respondAccept  bool
	redeemed       []exchanges.RedeemLinkRequest
	redeemErr      error
	listParams     pagination.Params
}

func (s *stubExchangeService) Create(ctx context.Context, userID uuid.UUID, req exchanges.CreateExchangeRequest) (*exchanges.ExchangeDTO, error) {
	return &exchanges.ExchangeDTO{ID: uuid.New(), RequesterID: userID, RequestedID: req.RequestedUserID, ShiftID: req.ShiftID, Status: enums.ExchangeStatusPending}, nil
}

func (s *stubExchangeService) Respond(ctx context.Context, userID, requestID uuid.UUID, accept bool) (*exchanges.ExchangeDTO, error) {
	s.respondUser, s.respondRequest, s.respondAccept = userID, requestID, accept
	status := enums.ExchangeStatusRejected
	if accept {
		status = enums.ExchangeStatusAccepted
	}
	return &exchanges.ExchangeDTO{ID: requestID, Status: status}, nil
}

func (s *stubExchangeService) RedeemLink(ctx context.Context, req exchanges.RedeemLinkRequest) (*exchanges.ExchangeDTO, error) {
	s.redeemed = append(s.redeemed, req)
	if s.redeemErr != nil {
		return nil, s.redeemErr
	}
	return &exchanges.ExchangeDTO{ID: uuid.New(), Status: enums.ExchangeStatusAccepted}, nil
}

func (s *stubExchangeService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[exchanges.ExchangeDTO], error) {
	s.listParams = params
	return pagination.Page[exchanges.ExchangeDTO]{Items: []exchanges.ExchangeDTO{}}, nil
}

func TestExchangeCreateReturnsPending(t *testing.T) {
	svc := &stubExchangeService{}
	userID := uuid.New()
	body := `{"shift_id":"` + uuid.NewString() + `","requested_user_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	ExchangeCreate(svc, nil).ServeHTTP(rec, withUser(req, userID))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dto exchanges.ExchangeDTO
	decodeData(t, rec, &dto)
	require.Equal(t, enums.ExchangeStatusPending, dto.Status)
	require.Equal(t, userID, dto.RequesterID)
}

func TestExchangeRespondRequiresDecision(t *testing.T) {
	svc := &stubExchangeService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges/x/respond", bytes.NewBufferString(`{}`))
	req = withURLParams(withUser(req, uuid.New()), map[string]string{"requestId": uuid.NewString()})
	rec := httptest.NewRecorder()

	ExchangeRespond(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, uuid.Nil, svc.respondRequest)
}

func TestExchangeRespondPassesDecision(t *testing.T) {
	svc := &stubExchangeService{}
	userID, requestID := uuid.New(), uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchanges/x/respond", bytes.NewBufferString(`{"accept":false}`))
	req = withURLParams(withUser(req, userID), map[string]string{"requestId": requestID.String()})
	rec := httptest.NewRecorder()

	ExchangeRespond(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, userID, svc.respondUser)
	require.Equal(t, requestID, svc.respondRequest)
	require.False(t, svc.respondAccept)
}

func TestExchangeLinkBuildsRedeemRequestFromPath(t *testing.T) {
	svc := &stubExchangeService{}
	requesterID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/shift-exchange/accept/"+requesterID+"/2025-03-14?token=abc", nil)
	req = withURLParams(req, map[string]string{"action": "accept", "requesterId": requesterID, "shiftDate": "2025-03-14"})
	rec := httptest.NewRecorder()

	ExchangeLink(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.redeemed, 1)
	require.Equal(t, exchanges.RedeemLinkRequest{Action: "accept", RequesterID: requesterID, ShiftDate: "2025-03-14", Token: "abc"}, svc.redeemed[0])
}

func TestExchangeLinkReusedIsStateConflict(t *testing.T) {
	svc := &stubExchangeService{redeemErr: pkgerrors.New(pkgerrors.CodeStateConflict, "link already used")}
	req := httptest.NewRequest(http.MethodPost, "/shift-exchange/reject/x/2025-03-14?token=abc", nil)
	req = withURLParams(req, map[string]string{"action": "reject", "requesterId": "x", "shiftDate": "2025-03-14"})
	rec := httptest.NewRecorder()

	ExchangeLink(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, string(pkgerrors.CodeStateConflict), decodeError(t, rec).Error.Code)
}

func TestExchangeListReadsPagination(t *testing.T) {
	svc := &stubExchangeService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exchanges?limit=10&cursor=abc", nil)
	rec := httptest.NewRecorder()

	ExchangeList(svc, nil).ServeHTTP(rec, withUser(req, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, svc.listParams)
}

func TestExchangeListRejectsOutOfRangeLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exchanges?limit=1000", nil)
	rec := httptest.NewRecorder()

	ExchangeList(&stubExchangeService{}, nil).ServeHTTP(rec, withUser(req, uuid.New()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
