package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/enrollment-backend/internal/applications"
	"github.com/angelmondragon/enrollment-backend/internal/provisioning"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

type stubApplications struct {
	screened applications.ScreenInput
	err      error
}

func (s *stubApplications) Submit(_ context.Context, _ auth.Principal, input applications.SubmitInput) (*applications.ApplicationDTO, error) {
	return &applications.ApplicationDTO{ID: uuid.New(), FirstName: input.FirstName}, s.err
}

func (s *stubApplications) Get(_ context.Context, _ auth.Principal, id uuid.UUID) (*applications.ApplicationDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &applications.ApplicationDTO{ID: id}, nil
}

func (s *stubApplications) Screen(_ context.Context, _ auth.Principal, id uuid.UUID, input applications.ScreenInput) (*applications.ApplicationDTO, error) {
	s.screened = input
	if s.err != nil {
		return nil, s.err
	}
	return &applications.ApplicationDTO{ID: id, QualificationStatus: input.Decision}, nil
}

func (s *stubApplications) Reject(_ context.Context, _ auth.Principal, id uuid.UUID, _ string) (*applications.ApplicationDTO, error) {
	return &applications.ApplicationDTO{ID: id}, s.err
}

func (s *stubApplications) Admit(_ context.Context, _ auth.Principal, id uuid.UUID) (*applications.ApplicationDTO, error) {
	return &applications.ApplicationDTO{ID: id}, s.err
}

type stubProvisioning struct {
	force bool
	err   error
}

func (s *stubProvisioning) Provision(_ context.Context, _ auth.Principal, applicationID uuid.UUID, force bool) (*provisioning.Result, error) {
	s.force = force
	if s.err != nil {
		return nil, s.err
	}
	return &provisioning.Result{ApplicationID: applicationID, Outcome: enums.ProvisioningOutcomeCreated}, nil
}

func (s *stubProvisioning) History(context.Context, auth.Principal, uuid.UUID) ([]models.ProvisioningRecord, error) {
	return nil, s.err
}

func registrar() auth.Principal {
	return auth.Principal{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.RoleRegistrar}
}

func TestSubmitApplicationCreated(t *testing.T) {
	body := `{"national_id":"GHA-123456","first_name":"Kofi","last_name":"Boateng"}`
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(body)), registrar())
	resp := httptest.NewRecorder()
	SubmitApplication(&stubApplications{}, testLogger())(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

func TestSubmitApplicationValidatesBody(t *testing.T) {
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(`{"first_name":"Kofi"}`)), registrar())
	resp := httptest.NewRecorder()
	SubmitApplication(&stubApplications{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestScreenApplicationMapsStateConflict(t *testing.T) {
	id := uuid.New()
	svc := &stubApplications{err: pkgerrors.New(pkgerrors.CodeStateConflict, "already screened").WithReason("already_screened")}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"decision":"provisionally_qualified","remarks":"  meets entry  "}`))
	req = addRouteParam(withPrincipal(req, registrar()), "applicationId", id.String())
	resp := httptest.NewRecorder()
	ScreenApplication(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Contains(t, resp.Body.String(), "already_screened")
	require.Equal(t, "meets entry", svc.screened.Remarks)
}

func TestProvisionAccountPassesForce(t *testing.T) {
	svc := &stubProvisioning{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"force":true}`))
	req = addRouteParam(withPrincipal(req, registrar()), "applicationId", uuid.NewString())
	resp := httptest.NewRecorder()
	ProvisionAccount(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.True(t, svc.force)
}

func TestGetApplicationNotFound(t *testing.T) {
	svc := &stubApplications{err: pkgerrors.New(pkgerrors.CodeNotFound, "application not found")}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = addRouteParam(withPrincipal(req, registrar()), "applicationId", uuid.NewString())
	resp := httptest.NewRecorder()
	GetApplication(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
