package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mobihelp/sync-service/internal/entities"
)

var orderColumns = []string{
	"id", "customer_id", "executor_id", "service_type", "date", "time",
	"status", "total_price", "details", "rejection_reason",
	"allow_open_selection", "responses", "voice_message_url", "rating",
	"review", "location_from", "location_to", "general_location",
	"created_at", "updated_at",
}

var profileColumns = []string{
	"role", "name", "phone", "avatar_url", "description", "location",
	"coverage_radius_km", "custom_services", "vehicle_photo_url", "rating",
	"reviews_count", "reviews", "subscription_status",
	"subscription_start_date", "subscription_end_date",
	"subscribed_to_customer_id", "subscription_request_to_customer_id",
	"subscribed_executor_id", "notifications",
}

type postgresStore struct {
	db     *sqlx.DB
	qb     sq.StatementBuilderType
	schema *SchemaAdapter
}

func NewPostgresStore(db *sqlx.DB, schema *SchemaAdapter) *postgresStore {
	return &postgresStore{
		db:     db,
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		schema: schema,
	}
}

func (s *postgresStore) OrdersForCustomer(ctx context.Context, customerID string) ([]entities.Order, error) {
	return s.selectOrders(ctx, sq.Eq{"customer_id": customerID})
}

// OrdersForExecutor returns orders assigned to the executor plus every
// open order, matching the executor relevance filter of the change feed.
func (s *postgresStore) OrdersForExecutor(ctx context.Context, executorID string) ([]entities.Order, error) {
	return s.selectOrders(ctx, sq.Or{
		sq.Eq{"executor_id": executorID},
		sq.Eq{"status": string(entities.OrderOpen)},
	})
}

func (s *postgresStore) AllOrders(ctx context.Context) ([]entities.Order, error) {
	return s.selectOrders(ctx, nil)
}

func (s *postgresStore) selectOrders(ctx context.Context, where any) ([]entities.Order, error) {
	q := s.qb.Select(orderColumns...).From("orders").OrderBy("created_at ASC")
	if where != nil {
		q = q.Where(where)
	}
	query, args := q.MustSql()

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}

	orders := make([]entities.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, orderToEntity(r))
	}
	return orders, nil
}

func (s *postgresStore) InsertOrder(ctx context.Context, o entities.Order) error {
	r := orderToRow(o)
	query, args := s.qb.Insert("orders").
		Columns(orderColumns...).
		Values(
			r.ID, r.CustomerID, r.ExecutorID, r.ServiceType, r.Date, r.Time,
			r.Status, r.TotalPrice, r.Details, r.RejectionReason,
			r.AllowOpenSelection, r.Responses, r.VoiceMessageURL, r.Rating,
			r.Review, r.LocationFrom, r.LocationTo, r.GeneralLocation,
			r.CreatedAt, r.UpdatedAt,
		).
		Suffix("ON CONFLICT (id) DO NOTHING").
		MustSql()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// UpdateOrder writes the full row; last writer wins.
func (s *postgresStore) UpdateOrder(ctx context.Context, o entities.Order) error {
	r := orderToRow(o)
	query, args := s.qb.Update("orders").
		Set("executor_id", r.ExecutorID).
		Set("service_type", r.ServiceType).
		Set("date", r.Date).
		Set("time", r.Time).
		Set("status", r.Status).
		Set("total_price", r.TotalPrice).
		Set("details", r.Details).
		Set("rejection_reason", r.RejectionReason).
		Set("allow_open_selection", r.AllowOpenSelection).
		Set("responses", r.Responses).
		Set("voice_message_url", r.VoiceMessageURL).
		Set("rating", r.Rating).
		Set("review", r.Review).
		Set("location_from", r.LocationFrom).
		Set("location_to", r.LocationTo).
		Set("general_location", r.GeneralLocation).
		Set("updated_at", r.UpdatedAt).
		Where(sq.Eq{"id": r.ID}).
		MustSql()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entities.ErrOrderNotFound
	}
	return nil
}

func (s *postgresStore) DeleteOrder(ctx context.Context, id string) error {
	query, args := s.qb.Delete("orders").Where(sq.Eq{"id": id}).MustSql()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

func (s *postgresStore) AllProfiles(ctx context.Context) ([]entities.UserProfile, error) {
	query, args := s.qb.Select(s.profileSelectColumns()...).
		From("profiles").
		OrderBy(s.schema.ProfileIDColumn + " ASC").
		MustSql()

	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select profiles: %w", err)
	}

	profiles := make([]entities.UserProfile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, profileToEntity(r))
	}
	return profiles, nil
}

func (s *postgresStore) ProfileByID(ctx context.Context, id string) (entities.UserProfile, error) {
	query, args := s.qb.Select(s.profileSelectColumns()...).
		From("profiles").
		Where(sq.Eq{s.schema.ProfileIDColumn: id}).
		MustSql()

	var row profileRow
	err := s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.UserProfile{}, entities.ErrProfileNotFound
	}
	if err != nil {
		return entities.UserProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return profileToEntity(row), nil
}

func (s *postgresStore) UpdateProfile(ctx context.Context, p entities.UserProfile) error {
	r := profileToRow(p)
	query, args := s.qb.Update("profiles").
		Set("name", r.Name).
		Set("phone", r.Phone).
		Set("avatar_url", r.AvatarURL).
		Set("description", r.Description).
		Set("location", r.Location).
		Set("coverage_radius_km", r.CoverageRadiusKM).
		Set("custom_services", r.CustomServices).
		Set("vehicle_photo_url", r.VehiclePhotoURL).
		Set("rating", r.Rating).
		Set("reviews_count", r.ReviewsCount).
		Set("reviews", r.Reviews).
		Set("subscription_status", r.SubStatus).
		Set("subscription_start_date", r.SubStartDate).
		Set("subscription_end_date", r.SubEndDate).
		Set("subscribed_to_customer_id", r.SubscribedTo).
		Set("subscription_request_to_customer_id", r.SubRequestTo).
		Set("subscribed_executor_id", r.SubscribedExecutor).
		Set("notifications", r.Notifications).
		Where(sq.Eq{s.schema.ProfileIDColumn: r.ID}).
		MustSql()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entities.ErrProfileNotFound
	}
	return nil
}

func (s *postgresStore) profileSelectColumns() []string {
	cols := make([]string, 0, len(profileColumns)+1)
	cols = append(cols, s.schema.ProfileIDColumn+" AS id")
	return append(cols, profileColumns...)
}
