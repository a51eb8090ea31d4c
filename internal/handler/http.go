package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/geo"
	"github.com/mobihelp/sync-service/internal/service"
	"github.com/mobihelp/sync-service/pkg/utils"
)

// Syncer is the local sync engine surface the HTTP API exposes.
type Syncer interface {
	Apply(ctx context.Context, m service.Mutation) error
	MyOrders(ctx context.Context) ([]entities.Order, error)
	OpenOrders(ctx context.Context) ([]entities.Order, error)
	Executors(ctx context.Context, by service.ExecutorSort) ([]entities.UserProfile, error)
	Profile(ctx context.Context) (entities.UserProfile, error)
	Notifications(ctx context.Context) ([]entities.Notification, error)
}

// Session yields the current actor; a failure means the session is gone
// and the caller must be forced to a logged-out view.
type Session interface {
	Current(ctx context.Context) (entities.Actor, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (entities.GeoPoint, error)
}

type Router interface {
	Route(ctx context.Context, from, to entities.GeoPoint) (geo.Route, error)
}

type Recommender interface {
	Recommend(ctx context.Context, query string, executors []entities.UserProfile) (string, error)
}

type HTTPHandler struct {
	logger      *slog.Logger
	validate    *validator.Validate
	svc         Syncer
	session     Session
	geocoder    Geocoder
	router      Router
	recommender Recommender
}

func NewHTTPHandler(logger *slog.Logger, svc Syncer, session Session, geocoder Geocoder, router Router, recommender Recommender) *HTTPHandler {
	return &HTTPHandler{
		logger:      logger.With(slog.String("handler", "http")),
		validate:    validator.New(),
		svc:         svc,
		session:     session,
		geocoder:    geocoder,
		router:      router,
		recommender: recommender,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Get("/orders/my", h.MyOrders)
		r.Get("/orders/open", h.OpenOrders)
		r.Post("/orders", h.CreateOrder)
		r.Post("/orders/{order_id}/accept", h.AcceptOrder)
		r.Post("/orders/{order_id}/reject", h.RejectOrder)
		r.Post("/orders/{order_id}/claim", h.ClaimOrder)
		r.Post("/orders/{order_id}/respond", h.RespondToOrder)
		r.Post("/orders/{order_id}/select", h.SelectExecutor)
		r.Post("/orders/{order_id}/complete", h.CompleteOrder)
		r.Post("/orders/{order_id}/cancel", h.CancelOrder)
		r.Delete("/orders/{order_id}", h.DeleteOrder)

		r.Get("/executors", h.Executors)
		r.Get("/executors/recommend", h.RecommendExecutor)
		r.Get("/route", h.Route)

		r.Post("/subscription/request", h.RequestSubscription)
		r.Post("/subscription/confirm", h.ConfirmSubscription)
		r.Post("/subscription/reject", h.RejectSubscription)
		r.Post("/subscription/cancel", h.CancelSubscription)

		r.Get("/profile", h.Profile)
		r.Patch("/profile", h.UpdateProfile)
		r.Get("/notifications", h.Notifications)
		r.Delete("/notifications/{notification_id}", h.DismissNotification)
	})
}

func (h *HTTPHandler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.session.Current(r.Context()); err != nil {
			utils.WriteError(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *HTTPHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.MyOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, ordersToJSON(orders), http.StatusOK)
}

func (h *HTTPHandler) OpenOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.OpenOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, ordersToJSON(orders), http.StatusOK)
}

type createOrderRequest struct {
	ExecutorID         string    `json:"executor_id"`
	ServiceType        string    `json:"service_type" validate:"required,oneof=transfer accompany"`
	Date               string    `json:"date" validate:"required"`
	Time               string    `json:"time" validate:"required"`
	TotalPrice         float64   `json:"total_price" validate:"gte=0"`
	Details            string    `json:"details"`
	AllowOpenSelection bool      `json:"allow_open_selection"`
	VoiceMessageURL    string    `json:"voice_message_url"`
	LocationFrom       *GeoPoint `json:"location_from"`
	LocationTo         *GeoPoint `json:"location_to"`
	GeneralLocation    *GeoPoint `json:"general_location"`
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	m := service.CreateOrder{
		ExecutorID:         req.ExecutorID,
		ServiceType:        entities.ServiceType(req.ServiceType),
		Date:               req.Date,
		Time:               req.Time,
		TotalPrice:         req.TotalPrice,
		Details:            req.Details,
		AllowOpenSelection: req.AllowOpenSelection,
		VoiceMessageURL:    req.VoiceMessageURL,
		LocationFrom:       h.resolvePoint(r.Context(), req.LocationFrom),
		LocationTo:         h.resolvePoint(r.Context(), req.LocationTo),
		GeneralLocation:    h.resolvePoint(r.Context(), req.GeneralLocation),
	}
	if err := h.svc.Apply(r.Context(), m); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, map[string]string{"status": "accepted"}, http.StatusAccepted)
}

// resolvePoint fills missing coordinates from the address. Geocoding is
// best effort: on failure the order keeps the bare address.
func (h *HTTPHandler) resolvePoint(ctx context.Context, p *GeoPoint) *entities.GeoPoint {
	point := GeoPointToEntity(p)
	if point == nil || h.geocoder == nil {
		return point
	}
	if point.Latitude != 0 || point.Longitude != 0 || point.Address == "" {
		return point
	}
	resolved, err := h.geocoder.Geocode(ctx, point.Address)
	if err != nil {
		h.logger.Warn("geocoding failed", slog.String("address", point.Address), slog.Any("error", err))
		return point
	}
	return &resolved
}

func (h *HTTPHandler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, service.AcceptOrder{OrderID: chi.URLParam(r, "order_id")})
}

type rejectOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *HTTPHandler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	var req rejectOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	h.applyMutation(w, r, service.RejectOrder{OrderID: chi.URLParam(r, "order_id"), Reason: req.Reason})
}

func (h *HTTPHandler) ClaimOrder(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, service.ClaimOpenOrder{OrderID: chi.URLParam(r, "order_id")})
}

func (h *HTTPHandler) RespondToOrder(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, service.RespondToOpenOrder{OrderID: chi.URLParam(r, "order_id")})
}

type selectExecutorRequest struct {
	ExecutorID string `json:"executor_id" validate:"required"`
}

func (h *HTTPHandler) SelectExecutor(w http.ResponseWriter, r *http.Request) {
	var req selectExecutorRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	h.applyMutation(w, r, service.SelectExecutor{OrderID: chi.URLParam(r, "order_id"), ExecutorID: req.ExecutorID})
}

type completeOrderRequest struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Review string `json:"review"`
}

func (h *HTTPHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	var req completeOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	h.applyMutation(w, r, service.CompleteOrder{OrderID: chi.URLParam(r, "order_id"), Rating: req.Rating, Review: req.Review})
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, service.CancelOrder{OrderID: chi.URLParam(r, "order_id")})
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, service.DeleteOrder{OrderID: chi.URLParam(r, "order_id")})
}

func (h *HTTPHandler) Executors(w http.ResponseWriter, r *http.Request) {
	by := service.ExecutorSort(r.URL.Query().Get("sort"))
	executors, err := h.svc.Executors(r.Context(), by)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]Profile, 0, len(executors))
	for _, e := range executors {
		p := ProfileEntityToJSON(e)
		// Notifications are private to their owner.
		p.Notifications = nil
		out = append(out, p)
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

// Route возвращает дистанцию и длительность маршрута для отображения
// в карточке заказа.
func (h *HTTPHandler) Route(w http.ResponseWriter, r *http.Request) {
	if h.router == nil {
		utils.WriteError(w, "routing unavailable", http.StatusServiceUnavailable)
		return
	}

	from, err := pointFromQuery(r, "from_lat", "from_lon")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := pointFromQuery(r, "to_lat", "to_lon")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	route, err := h.router.Route(r.Context(), from, to)
	if err != nil {
		h.logger.Warn("routing failed", slog.Any("error", err))
		utils.WriteError(w, "failed to compute route", http.StatusBadGateway)
		return
	}
	utils.WriteJSON(w, map[string]float64{
		"distance_meters":  route.DistanceMeters,
		"duration_seconds": route.Duration.Seconds(),
	}, http.StatusOK)
}

func pointFromQuery(r *http.Request, latKey, lonKey string) (entities.GeoPoint, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	if err != nil {
		return entities.GeoPoint{}, fmt.Errorf("invalid %s", latKey)
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get(lonKey), 64)
	if err != nil {
		return entities.GeoPoint{}, fmt.Errorf("invalid %s", lonKey)
	}
	return entities.GeoPoint{Latitude: lat, Longitude: lon}, nil
}

// RecommendExecutor проксирует запрос "умного поиска"; любая ошибка
// деградирует до пустой рекомендации.
func (h *HTTPHandler) RecommendExecutor(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		utils.WriteError(w, "query is required", http.StatusBadRequest)
		return
	}

	recommendation := ""
	if h.recommender != nil {
		executors, err := h.svc.Executors(r.Context(), service.SortByRating)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		recommendation, err = h.recommender.Recommend(r.Context(), query, executors)
		if err != nil {
			h.logger.Debug("recommendation failed", slog.Any("error", err))
			recommendation = ""
		}
	}
	utils.WriteJSON(w, map[string]string{"recommendation": recommendation}, http.StatusOK)
}

type requestSubscriptionRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}

func (h *HTTPHandler) RequestSubscription(w http.ResponseWriter, r *http.Request) {
	var req requestSubscriptionRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	h.applyMutation(w, r, service.RequestSubscription{CustomerID: req.CustomerID})
}

type subscriptionAnswerRequest struct {
	ExecutorID string `json:"executor_id" validate:"required"`
}

func (h *HTTPHandler) ConfirmSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionAnswerRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	h.applyMutation(w, r, service.ConfirmSubscription{ExecutorID: req.ExecutorID})
}

func (h *HTTPHandler) RejectSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionAnswerRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	h.applyMutation(w, r, service.RejectSubscription{ExecutorID: req.ExecutorID})
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

func (h *HTTPHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	var req cancelSubscriptionRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.applyMutation(w, r, service.CancelSubscription{Reason: req.Reason})
}

func (h *HTTPHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, ProfileEntityToJSON(p), http.StatusOK)
}

type updateProfileRequest struct {
	Name             *string         `json:"name"`
	Phone            *string         `json:"phone"`
	AvatarURL        *string         `json:"avatar_url"`
	Description      *string         `json:"description"`
	Location         *GeoPoint       `json:"location"`
	CoverageRadiusKM *float64        `json:"coverage_radius_km" validate:"omitempty,gte=0"`
	CustomServices   []CustomService `json:"custom_services"`
	VehiclePhotoURL  *string         `json:"vehicle_photo_url"`
}

func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	patch := service.ProfilePatch{
		Name:             req.Name,
		Phone:            req.Phone,
		AvatarURL:        req.AvatarURL,
		Description:      req.Description,
		Location:         GeoPointToEntity(req.Location),
		CoverageRadiusKM: req.CoverageRadiusKM,
		VehiclePhotoURL:  req.VehiclePhotoURL,
	}
	if req.CustomServices != nil {
		services := make([]entities.CustomService, 0, len(req.CustomServices))
		for _, s := range req.CustomServices {
			services = append(services, entities.CustomService{ServiceID: s.ServiceID, Price: s.Price, Enabled: s.Enabled})
		}
		patch.CustomServices = services
	}
	h.applyMutation(w, r, service.UpdateProfile{Patch: patch})
}

func (h *HTTPHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.svc.Notifications(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]Notification, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, NotificationEntityToJSON(n))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

func (h *HTTPHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, service.DismissNotification{NotificationID: chi.URLParam(r, "notification_id")})
}

func (h *HTTPHandler) applyMutation(w http.ResponseWriter, r *http.Request, m service.Mutation) {
	if err := h.svc.Apply(r.Context(), m); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, map[string]string{"status": "accepted"}, http.StatusAccepted)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entities.ErrNotAuthenticated):
		utils.WriteError(w, "not authenticated", http.StatusUnauthorized)
	case errors.Is(err, entities.ErrNotAllowed):
		utils.WriteError(w, "not allowed", http.StatusForbidden)
	case errors.Is(err, entities.ErrOrderNotFound):
		utils.WriteError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrProfileNotFound):
		utils.WriteError(w, "profile not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrInvalidMutation):
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.ErrorContext(r.Context(), "request failed", slog.Any("error", err))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}

func ordersToJSON(orders []entities.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderEntityToJSON(o))
	}
	return out
}
