package http

import (
	"net/http"

	"clinic-appointment-service/internal/delivery/http/handler"
	"clinic-appointment-service/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Router struct {
	router              *mux.Router
	log                 *logrus.Logger
	doctorHandler       *handler.DoctorHandler
	availabilityHandler *handler.AvailabilityHandler
	appointmentHandler  *handler.AppointmentHandler
	auditLogHandler     *handler.AuditLogHandler
	corsMiddleware      *middleware.CORSMiddleware
	bookingRateLimiter  func(http.Handler) http.Handler
}

func NewRouter(
	log *logrus.Logger,
	doctorHandler *handler.DoctorHandler,
	availabilityHandler *handler.AvailabilityHandler,
	appointmentHandler *handler.AppointmentHandler,
	auditLogHandler *handler.AuditLogHandler,
	corsMiddleware *middleware.CORSMiddleware,
	bookingRateLimiter func(http.Handler) http.Handler,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		log:                 log,
		doctorHandler:       doctorHandler,
		availabilityHandler: availabilityHandler,
		appointmentHandler:  appointmentHandler,
		auditLogHandler:     auditLogHandler,
		corsMiddleware:      corsMiddleware,
		bookingRateLimiter:  bookingRateLimiter,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.Use(r.corsMiddleware.Handle)
	r.router.Use(middleware.RequestLogger(r.log))

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Doctor management
	api.HandleFunc("/doctors", r.doctorHandler.CreateDoctor).Methods(http.MethodPost)
	api.HandleFunc("/doctors", r.doctorHandler.GetAllDoctors).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}", r.doctorHandler.UpdateDoctor).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/doctors/{id}", r.doctorHandler.DeleteDoctor).Methods(http.MethodDelete)

	// Availability and schedule
	api.HandleFunc("/doctors/{id}/availability", r.availabilityHandler.GetAvailableSlots).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}/appointments", r.appointmentHandler.GetDoctorAppointments).Methods(http.MethodGet)

	// Booking
	api.Handle("/appointments", r.bookingRateLimiter(http.HandlerFunc(r.appointmentHandler.BookAppointment))).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)

	// Appointment lifecycle
	api.HandleFunc("/appointments/{id}/confirm", r.appointmentHandler.ConfirmAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/complete", r.appointmentHandler.CompleteAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/no-show", r.appointmentHandler.MarkNoShow).Methods(http.MethodPost)

	// Audit trail
	api.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	api.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
