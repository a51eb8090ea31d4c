package remote

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mobihelp/sync-service/internal/entities"
)

type orderRow struct {
	ID                 string          `db:"id"`
	CustomerID         string          `db:"customer_id"`
	ExecutorID         sql.NullString  `db:"executor_id"`
	ServiceType        string          `db:"service_type"`
	Date               string          `db:"date"`
	Time               string          `db:"time"`
	Status             string          `db:"status"`
	TotalPrice         float64         `db:"total_price"`
	Details            sql.NullString  `db:"details"`
	RejectionReason    sql.NullString  `db:"rejection_reason"`
	AllowOpenSelection bool            `db:"allow_open_selection"`
	Responses          pq.StringArray  `db:"responses"`
	VoiceMessageURL    sql.NullString  `db:"voice_message_url"`
	Rating             sql.NullInt32   `db:"rating"`
	Review             sql.NullString  `db:"review"`
	LocationFrom       geoPointColumn  `db:"location_from"`
	LocationTo         geoPointColumn  `db:"location_to"`
	GeneralLocation    geoPointColumn  `db:"general_location"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

type profileRow struct {
	ID                 string              `db:"id"`
	Role               string              `db:"role"`
	Name               string              `db:"name"`
	Phone              sql.NullString      `db:"phone"`
	AvatarURL          sql.NullString      `db:"avatar_url"`
	Description        sql.NullString      `db:"description"`
	Location           geoPointColumn      `db:"location"`
	CoverageRadiusKM   float64             `db:"coverage_radius_km"`
	CustomServices     servicesColumn      `db:"custom_services"`
	VehiclePhotoURL    sql.NullString      `db:"vehicle_photo_url"`
	Rating             float64             `db:"rating"`
	ReviewsCount       int                 `db:"reviews_count"`
	Reviews            reviewsColumn       `db:"reviews"`
	SubStatus          string              `db:"subscription_status"`
	SubStartDate       sql.NullTime        `db:"subscription_start_date"`
	SubEndDate         sql.NullTime        `db:"subscription_end_date"`
	SubscribedTo       sql.NullString      `db:"subscribed_to_customer_id"`
	SubRequestTo       sql.NullString      `db:"subscription_request_to_customer_id"`
	SubscribedExecutor sql.NullString      `db:"subscribed_executor_id"`
	Notifications      notificationsColumn `db:"notifications"`
}

// geoPointColumn maps a nullable jsonb point column.
type geoPointColumn struct {
	Point *entities.GeoPoint
}

type geoPointJSON struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c geoPointColumn) Value() (driver.Value, error) {
	if c.Point == nil {
		return nil, nil
	}
	return json.Marshal(geoPointJSON{
		Address:   c.Point.Address,
		Latitude:  c.Point.Latitude,
		Longitude: c.Point.Longitude,
	})
}

func (c *geoPointColumn) Scan(src any) error {
	data, err := jsonbBytes(src)
	if err != nil || data == nil {
		c.Point = nil
		return err
	}
	var p geoPointJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to scan geo point: %w", err)
	}
	c.Point = &entities.GeoPoint{Address: p.Address, Latitude: p.Latitude, Longitude: p.Longitude}
	return nil
}

type customServiceJSON struct {
	ServiceID string  `json:"service_id"`
	Price     float64 `json:"price"`
	Enabled   bool    `json:"enabled"`
}

type servicesColumn []entities.CustomService

func (c servicesColumn) Value() (driver.Value, error) {
	out := make([]customServiceJSON, 0, len(c))
	for _, s := range c {
		out = append(out, customServiceJSON{ServiceID: s.ServiceID, Price: s.Price, Enabled: s.Enabled})
	}
	return json.Marshal(out)
}

func (c *servicesColumn) Scan(src any) error {
	data, err := jsonbBytes(src)
	if err != nil || data == nil {
		*c = nil
		return err
	}
	var raw []customServiceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to scan custom services: %w", err)
	}
	*c = make([]entities.CustomService, 0, len(raw))
	for _, s := range raw {
		*c = append(*c, entities.CustomService{ServiceID: s.ServiceID, Price: s.Price, Enabled: s.Enabled})
	}
	return nil
}

type reviewJSON struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	Date       time.Time `json:"date"`
}

type reviewsColumn []entities.Review

func (c reviewsColumn) Value() (driver.Value, error) {
	out := make([]reviewJSON, 0, len(c))
	for _, r := range c {
		out = append(out, reviewJSON{
			ID: r.ID, AuthorID: r.AuthorID, AuthorName: r.AuthorName,
			Rating: r.Rating, Text: r.Text, Date: r.Date,
		})
	}
	return json.Marshal(out)
}

func (c *reviewsColumn) Scan(src any) error {
	data, err := jsonbBytes(src)
	if err != nil || data == nil {
		*c = nil
		return err
	}
	var raw []reviewJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to scan reviews: %w", err)
	}
	*c = make([]entities.Review, 0, len(raw))
	for _, r := range raw {
		*c = append(*c, entities.Review{
			ID: r.ID, AuthorID: r.AuthorID, AuthorName: r.AuthorName,
			Rating: r.Rating, Text: r.Text, Date: r.Date,
		})
	}
	return nil
}

type notificationJSON struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Read    bool      `json:"read"`
}

type notificationsColumn []entities.Notification

func (c notificationsColumn) Value() (driver.Value, error) {
	out := make([]notificationJSON, 0, len(c))
	for _, n := range c {
		out = append(out, notificationJSON{
			ID: n.ID, Type: string(n.Type), Title: n.Title,
			Message: n.Message, Date: n.Date, Read: n.Read,
		})
	}
	return json.Marshal(out)
}

func (c *notificationsColumn) Scan(src any) error {
	data, err := jsonbBytes(src)
	if err != nil || data == nil {
		*c = nil
		return err
	}
	var raw []notificationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to scan notifications: %w", err)
	}
	*c = make([]entities.Notification, 0, len(raw))
	for _, n := range raw {
		*c = append(*c, entities.Notification{
			ID: n.ID, Type: entities.NotificationType(n.Type), Title: n.Title,
			Message: n.Message, Date: n.Date, Read: n.Read,
		})
	}
	return nil
}

func jsonbBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

func orderToRow(o entities.Order) orderRow {
	return orderRow{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		ExecutorID:         nullString(o.ExecutorID),
		ServiceType:        string(o.ServiceType),
		Date:               o.Date,
		Time:               o.Time,
		Status:             string(o.Status),
		TotalPrice:         o.TotalPrice,
		Details:            nullString(o.Details),
		RejectionReason:    nullString(o.RejectionReason),
		AllowOpenSelection: o.AllowOpenSelection,
		Responses:          pq.StringArray(o.Responses),
		VoiceMessageURL:    nullString(o.VoiceMessageURL),
		Rating:             nullInt32(o.Rating),
		Review:             nullString(o.Review),
		LocationFrom:       geoPointColumn{o.LocationFrom},
		LocationTo:         geoPointColumn{o.LocationTo},
		GeneralLocation:    geoPointColumn{o.GeneralLocation},
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func orderToEntity(r orderRow) entities.Order {
	return entities.Order{
		ID:                 r.ID,
		CustomerID:         r.CustomerID,
		ExecutorID:         fromNullString(r.ExecutorID),
		ServiceType:        entities.ServiceType(r.ServiceType),
		Date:               r.Date,
		Time:               r.Time,
		Status:             entities.OrderStatus(r.Status),
		TotalPrice:         r.TotalPrice,
		Details:            fromNullString(r.Details),
		RejectionReason:    fromNullString(r.RejectionReason),
		AllowOpenSelection: r.AllowOpenSelection,
		Responses:          []string(r.Responses),
		VoiceMessageURL:    fromNullString(r.VoiceMessageURL),
		Rating:             fromNullInt32(r.Rating),
		Review:             fromNullString(r.Review),
		LocationFrom:       r.LocationFrom.Point,
		LocationTo:         r.LocationTo.Point,
		GeneralLocation:    r.GeneralLocation.Point,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func profileToRow(p entities.UserProfile) profileRow {
	return profileRow{
		ID:                 p.ID,
		Role:               string(p.Role),
		Name:               p.Name,
		Phone:              nullString(p.Phone),
		AvatarURL:          nullString(p.AvatarURL),
		Description:        nullString(p.Description),
		Location:           geoPointColumn{p.Location},
		CoverageRadiusKM:   p.CoverageRadiusKM,
		CustomServices:     servicesColumn(p.CustomServices),
		VehiclePhotoURL:    nullString(p.VehiclePhotoURL),
		Rating:             p.Rating,
		ReviewsCount:       p.ReviewsCount,
		Reviews:            reviewsColumn(p.Reviews),
		SubStatus:          string(p.SubscriptionStatus),
		SubStartDate:       nullTime(p.SubscriptionStartDate),
		SubEndDate:         nullTime(p.SubscriptionEndDate),
		SubscribedTo:       nullString(p.SubscribedToCustomerID),
		SubRequestTo:       nullString(p.SubscriptionRequestToCustomerID),
		SubscribedExecutor: nullString(p.SubscribedExecutorID),
		Notifications:      notificationsColumn(p.Notifications),
	}
}

func profileToEntity(r profileRow) entities.UserProfile {
	status := entities.SubscriptionStatus(r.SubStatus)
	if status == "" {
		status = entities.SubscriptionNone
	}
	return entities.UserProfile{
		ID:                              r.ID,
		Role:                            entities.Role(r.Role),
		Name:                            r.Name,
		Phone:                           fromNullString(r.Phone),
		AvatarURL:                       fromNullString(r.AvatarURL),
		Description:                     fromNullString(r.Description),
		Location:                        r.Location.Point,
		CoverageRadiusKM:                r.CoverageRadiusKM,
		CustomServices:                  []entities.CustomService(r.CustomServices),
		VehiclePhotoURL:                 fromNullString(r.VehiclePhotoURL),
		Rating:                          r.Rating,
		ReviewsCount:                    r.ReviewsCount,
		Reviews:                         []entities.Review(r.Reviews),
		SubscriptionStatus:              status,
		SubscriptionStartDate:           fromNullTime(r.SubStartDate),
		SubscriptionEndDate:             fromNullTime(r.SubEndDate),
		SubscribedToCustomerID:          fromNullString(r.SubscribedTo),
		SubscriptionRequestToCustomerID: fromNullString(r.SubRequestTo),
		SubscribedExecutorID:            fromNullString(r.SubscribedExecutor),
		Notifications:                   []entities.Notification(r.Notifications),
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullInt32(i int) sql.NullInt32 {
	if i == 0 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(i), Valid: true}
}

func fromNullInt32(ni sql.NullInt32) int {
	if ni.Valid {
		return int(ni.Int32)
	}
	return 0
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
