package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinic-appointment-service/internal/delivery/dto"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAppointmentUsecase struct {
	mock.Mock
}

func (m *mockAppointmentUsecase) result(args mock.Arguments) (*dto.AppointmentResponse, error) {
	appointment, _ := args.Get(0).(*dto.AppointmentResponse)
	return appointment, args.Error(1)
}

func (m *mockAppointmentUsecase) BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	return m.result(m.Called(ctx, req))
}

func (m *mockAppointmentUsecase) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	return m.result(m.Called(ctx, appointmentID))
}

func (m *mockAppointmentUsecase) GetDoctorAppointments(ctx context.Context, doctorID uuid.UUID, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error) {
	args := m.Called(ctx, doctorID, req)
	list, _ := args.Get(0).(*dto.AppointmentListResponse)
	return list, args.Error(1)
}

func (m *mockAppointmentUsecase) ConfirmAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	return m.result(m.Called(ctx, appointmentID))
}

func (m *mockAppointmentUsecase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error) {
	return m.result(m.Called(ctx, appointmentID, req))
}

func (m *mockAppointmentUsecase) CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	return m.result(m.Called(ctx, appointmentID))
}

func (m *mockAppointmentUsecase) MarkNoShow(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	return m.result(m.Called(ctx, appointmentID))
}

type mockAvailabilityUsecase struct {
	mock.Mock
}

func (m *mockAvailabilityUsecase) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailabilityResponse, error) {
	args := m.Called(ctx, doctorID, date)
	availability, _ := args.Get(0).(*dto.AvailabilityResponse)
	return availability, args.Error(1)
}

type mockDoctorUsecase struct {
	mock.Mock
}

func (m *mockDoctorUsecase) CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error) {
	args := m.Called(ctx, req)
	doctor, _ := args.Get(0).(*dto.DoctorResponse)
	return doctor, args.Error(1)
}

func (m *mockDoctorUsecase) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error) {
	args := m.Called(ctx, doctorID)
	doctor, _ := args.Get(0).(*dto.DoctorResponse)
	return doctor, args.Error(1)
}

func (m *mockDoctorUsecase) GetAllDoctors(ctx context.Context, req *dto.ListDoctorsRequest) (*dto.DoctorListResponse, error) {
	args := m.Called(ctx, req)
	list, _ := args.Get(0).(*dto.DoctorListResponse)
	return list, args.Error(1)
}

func (m *mockDoctorUsecase) UpdateDoctor(ctx context.Context, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	args := m.Called(ctx, doctorID, req)
	doctor, _ := args.Get(0).(*dto.DoctorResponse)
	return doctor, args.Error(1)
}

func (m *mockDoctorUsecase) DeleteDoctor(ctx context.Context, doctorID uuid.UUID) error {
	return m.Called(ctx, doctorID).Error(0)
}

// testResponse mirrors response.Response with a typed error detail.
type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Meta    *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func (r testResponse) code(t *testing.T) string {
	t.Helper()
	var detail struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(r.Error, &detail))
	return detail.Code
}

// serve runs h with gorilla/mux path vars and decodes the envelope.
func serve(t *testing.T, h http.HandlerFunc, method, target, body string, vars map[string]string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}

	rec := httptest.NewRecorder()
	h(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}
