package handler

import (
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
)

// GeoPoint описывает точку на карте
type GeoPoint struct {
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Order представляет заказ
type Order struct {
	ID                 string    `json:"id" validate:"required"`
	CustomerID         string    `json:"customer_id" validate:"required"`
	ExecutorID         string    `json:"executor_id,omitempty"`
	ServiceType        string    `json:"service_type" validate:"required"`
	Date               string    `json:"date,omitempty"`
	Time               string    `json:"time,omitempty"`
	Status             string    `json:"status" validate:"required"`
	TotalPrice         float64   `json:"total_price,omitempty"`
	Details            string    `json:"details,omitempty"`
	RejectionReason    string    `json:"rejection_reason,omitempty"`
	AllowOpenSelection bool      `json:"allow_open_selection,omitempty"`
	Responses          []string  `json:"responses,omitempty"`
	VoiceMessageURL    string    `json:"voice_message_url,omitempty"`
	Rating             int       `json:"rating,omitempty"`
	Review             string    `json:"review,omitempty"`
	LocationFrom       *GeoPoint `json:"location_from,omitempty"`
	LocationTo         *GeoPoint `json:"location_to,omitempty"`
	GeneralLocation    *GeoPoint `json:"general_location,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CustomService услуга исполнителя с индивидуальной ценой
type CustomService struct {
	ServiceID string  `json:"service_id"`
	Price     float64 `json:"price"`
	Enabled   bool    `json:"enabled"`
}

// Review отзыв о выполненном заказе
type Review struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text,omitempty"`
	Date       time.Time `json:"date"`
}

// Notification уведомление пользователя
type Notification struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Read    bool      `json:"read"`
}

// Profile профиль пользователя
type Profile struct {
	ID               string          `json:"id"`
	Role             string          `json:"role"`
	Name             string          `json:"name,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	AvatarURL        string          `json:"avatar_url,omitempty"`
	Description      string          `json:"description,omitempty"`
	Location         *GeoPoint       `json:"location,omitempty"`
	CoverageRadiusKM float64         `json:"coverage_radius_km,omitempty"`
	CustomServices   []CustomService `json:"custom_services,omitempty"`
	VehiclePhotoURL  string          `json:"vehicle_photo_url,omitempty"`
	Rating           float64         `json:"rating,omitempty"`
	ReviewsCount     int             `json:"reviews_count,omitempty"`
	Reviews          []Review        `json:"reviews,omitempty"`

	SubscriptionStatus    string     `json:"subscription_status,omitempty"`
	SubscriptionStartDate *time.Time `json:"subscription_start_date,omitempty"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date,omitempty"`

	Notifications []Notification `json:"notifications,omitempty"`
}

func GeoPointToJSON(p *entities.GeoPoint) *GeoPoint {
	if p == nil {
		return nil
	}
	return &GeoPoint{Address: p.Address, Latitude: p.Latitude, Longitude: p.Longitude}
}

func GeoPointToEntity(p *GeoPoint) *entities.GeoPoint {
	if p == nil {
		return nil
	}
	return &entities.GeoPoint{Address: p.Address, Latitude: p.Latitude, Longitude: p.Longitude}
}

func OrderEntityToJSON(o entities.Order) Order {
	return Order{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		ExecutorID:         o.ExecutorID,
		ServiceType:        string(o.ServiceType),
		Date:               o.Date,
		Time:               o.Time,
		Status:             string(o.Status),
		TotalPrice:         o.TotalPrice,
		Details:            o.Details,
		RejectionReason:    o.RejectionReason,
		AllowOpenSelection: o.AllowOpenSelection,
		Responses:          o.Responses,
		VoiceMessageURL:    o.VoiceMessageURL,
		Rating:             o.Rating,
		Review:             o.Review,
		LocationFrom:       GeoPointToJSON(o.LocationFrom),
		LocationTo:         GeoPointToJSON(o.LocationTo),
		GeneralLocation:    GeoPointToJSON(o.GeneralLocation),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func OrderJSONToEntity(o Order) entities.Order {
	return entities.Order{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		ExecutorID:         o.ExecutorID,
		ServiceType:        entities.ServiceType(o.ServiceType),
		Date:               o.Date,
		Time:               o.Time,
		Status:             entities.OrderStatus(o.Status),
		TotalPrice:         o.TotalPrice,
		Details:            o.Details,
		RejectionReason:    o.RejectionReason,
		AllowOpenSelection: o.AllowOpenSelection,
		Responses:          o.Responses,
		VoiceMessageURL:    o.VoiceMessageURL,
		Rating:             o.Rating,
		Review:             o.Review,
		LocationFrom:       GeoPointToEntity(o.LocationFrom),
		LocationTo:         GeoPointToEntity(o.LocationTo),
		GeneralLocation:    GeoPointToEntity(o.GeneralLocation),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func ProfileEntityToJSON(p entities.UserProfile) Profile {
	services := make([]CustomService, 0, len(p.CustomServices))
	for _, s := range p.CustomServices {
		services = append(services, CustomService{ServiceID: s.ServiceID, Price: s.Price, Enabled: s.Enabled})
	}
	reviews := make([]Review, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		reviews = append(reviews, Review{
			ID: r.ID, AuthorID: r.AuthorID, AuthorName: r.AuthorName,
			Rating: r.Rating, Text: r.Text, Date: r.Date,
		})
	}
	notifications := make([]Notification, 0, len(p.Notifications))
	for _, n := range p.Notifications {
		notifications = append(notifications, NotificationEntityToJSON(n))
	}
	return Profile{
		ID:                    p.ID,
		Role:                  string(p.Role),
		Name:                  p.Name,
		Phone:                 p.Phone,
		AvatarURL:             p.AvatarURL,
		Description:           p.Description,
		Location:              GeoPointToJSON(p.Location),
		CoverageRadiusKM:      p.CoverageRadiusKM,
		CustomServices:        services,
		VehiclePhotoURL:       p.VehiclePhotoURL,
		Rating:                p.Rating,
		ReviewsCount:          p.ReviewsCount,
		Reviews:               reviews,
		SubscriptionStatus:    string(p.SubscriptionStatus),
		SubscriptionStartDate: p.SubscriptionStartDate,
		SubscriptionEndDate:   p.SubscriptionEndDate,
		Notifications:         notifications,
	}
}

func NotificationEntityToJSON(n entities.Notification) Notification {
	return Notification{
		ID:      n.ID,
		Type:    string(n.Type),
		Title:   n.Title,
		Message: n.Message,
		Date:    n.Date,
		Read:    n.Read,
	}
}
