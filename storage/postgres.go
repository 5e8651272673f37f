package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"place-discovery/models"
)

// Postgres persists recommendations, transport info and the transit dataset.
type Postgres struct {
	db   *sql.DB
	psql sq.StatementBuilderType
}

var _ Store = (*Postgres)(nil)

// NewPostgres opens a connection to PostgreSQL and waits for it to accept
// pings. When migrate is set the schema is created if missing.
func NewPostgres(dsn string, migrate bool) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	p := &Postgres{db: db, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
	if migrate {
		if err := p.migrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return p, nil
}

func (p *Postgres) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id        SERIAL PRIMARY KEY,
			name      TEXT NOT NULL,
			address   TEXT,
			city      TEXT,
			country   TEXT,
			latitude  DOUBLE PRECISION,
			longitude DOUBLE PRECISION
		);

		CREATE TABLE IF NOT EXISTS categories (
			id              SERIAL PRIMARY KEY,
			property_id     INTEGER REFERENCES properties(id),
			name            TEXT NOT NULL,
			icon            TEXT,
			type            TEXT,
			display_order   INTEGER DEFAULT 0,
			search_keywords TEXT
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_categories_property_type
			ON categories(property_id, type);

		CREATE TABLE IF NOT EXISTS recommendations (
			id                 SERIAL PRIMARY KEY,
			property_id        INTEGER NOT NULL REFERENCES properties(id),
			category_id        INTEGER REFERENCES categories(id),
			title              TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			formatted_address  TEXT NOT NULL DEFAULT '',
			google_maps_link   TEXT NOT NULL DEFAULT '',
			latitude           DOUBLE PRECISION,
			longitude          DOUBLE PRECISION,
			phone              TEXT NOT NULL DEFAULT '',
			website            TEXT NOT NULL DEFAULT '',
			price_range        INTEGER,
			rating             NUMERIC(3,2),
			user_ratings_total INTEGER NOT NULL DEFAULT 0,
			external_source    TEXT NOT NULL DEFAULT 'manual',
			external_id        TEXT NOT NULL DEFAULT '',
			is_auto_suggested  BOOLEAN NOT NULL DEFAULT FALSE,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_recommendations_property_title
			ON recommendations(property_id, title);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_recommendations_property_external
			ON recommendations(property_id, external_source, external_id)
			WHERE external_id <> '';
		CREATE INDEX IF NOT EXISTS idx_recommendations_auto
			ON recommendations(property_id, created_at) WHERE is_auto_suggested;

		CREATE TABLE IF NOT EXISTS transport_info (
			id            SERIAL PRIMARY KEY,
			property_id   INTEGER NOT NULL REFERENCES properties(id),
			type          TEXT NOT NULL,
			name          TEXT NOT NULL,
			description   TEXT,
			phone         TEXT,
			website       TEXT,
			schedule_info TEXT,
			price_info    TEXT
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_transport_property_name
			ON transport_info(property_id, name);

		CREATE TABLE IF NOT EXISTS bus_stops (
			id        SERIAL PRIMARY KEY,
			name      TEXT NOT NULL,
			latitude  DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			is_hub    BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS bus_lines (
			id               SERIAL PRIMARY KEY,
			line_number      TEXT NOT NULL UNIQUE,
			name             TEXT,
			color            TEXT NOT NULL DEFAULT '',
			main_attractions TEXT
		);

		CREATE TABLE IF NOT EXISTS bus_route_stops (
			line_id    INTEGER NOT NULL REFERENCES bus_lines(id),
			stop_id    INTEGER NOT NULL REFERENCES bus_stops(id),
			stop_order INTEGER NOT NULL,
			direction  TEXT NOT NULL DEFAULT 'outbound',
			PRIMARY KEY (line_id, stop_id, direction)
		);
		CREATE INDEX IF NOT EXISTS idx_route_stops_stop ON bus_route_stops(stop_id);
	`)
	return err
}

// GetProperty loads the location fields of one property.
func (p *Postgres) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	query, args, err := p.psql.
		Select("id", "name", "COALESCE(address, '')", "COALESCE(city, '')",
			"COALESCE(country, '')", "latitude", "longitude").
		From("properties").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build property query: %w", err)
	}

	var (
		prop     models.Property
		lat, lng sql.NullFloat64
	)
	err = p.db.QueryRowContext(ctx, query, args...).Scan(
		&prop.ID, &prop.Name, &prop.Address, &prop.City, &prop.Country, &lat, &lng,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get property %d: %w", id, err)
	}
	prop.Latitude, prop.Longitude = lat.Float64, lng.Float64
	return &prop, nil
}

// ListCategories returns the property's categories in display order.
func (p *Postgres) ListCategories(ctx context.Context, propertyID int64) ([]models.Category, error) {
	query, args, err := p.psql.
		Select("id", "property_id", "name", "COALESCE(type, '')", "COALESCE(icon, '')",
			"COALESCE(display_order, 0)", "COALESCE(search_keywords, '')").
		From("categories").
		Where(sq.Eq{"property_id": propertyID}).
		OrderBy("display_order", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build categories query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list categories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.PropertyID, &c.Name, &c.Type, &c.Icon,
			&c.DisplayOrder, &c.SearchKeywords); err != nil {
			return nil, fmt.Errorf("postgres: scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EnsureCategories inserts the missing categories in one transaction.
func (p *Postgres) EnsureCategories(ctx context.Context, propertyID int64, wanted []models.Category) ([]models.Category, error) {
	if len(wanted) > 0 {
		insert := p.psql.
			Insert("categories").
			Columns("property_id", "name", "icon", "type", "display_order", "search_keywords")
		for _, c := range wanted {
			insert = insert.Values(propertyID, c.Name, c.Icon, c.Type, c.DisplayOrder, c.SearchKeywords)
		}
		query, args, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return nil, fmt.Errorf("postgres: build category insert: %w", err)
		}
		if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("postgres: ensure categories: %w", err)
		}
	}
	return p.ListCategories(ctx, propertyID)
}

// LastAutoSuggestedAt returns MAX(created_at) of auto-suggested rows.
func (p *Postgres) LastAutoSuggestedAt(ctx context.Context, propertyID int64) (time.Time, bool, error) {
	query, args, err := p.psql.
		Select("MAX(created_at)").
		From("recommendations").
		Where(sq.Eq{"property_id": propertyID, "is_auto_suggested": true}).
		ToSql()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("postgres: build rate query: %w", err)
	}

	var last sql.NullTime
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return time.Time{}, false, fmt.Errorf("postgres: last auto suggestion: %w", err)
	}
	return last.Time, last.Valid, nil
}

// SaveRecommendations batch-inserts recs inside one transaction. Rows that
// collide with an existing title or external id are skipped by the unique
// indexes rather than by a prior read.
func (p *Postgres) SaveRecommendations(ctx context.Context, recs []models.Recommendation) ([]models.Recommendation, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const batchSize = 50
	var inserted []models.Recommendation
	for i := 0; i < len(recs); i += batchSize {
		end := i + batchSize
		if end > len(recs) {
			end = len(recs)
		}
		batch, err := p.insertRecommendationBatch(ctx, tx, recs[i:end])
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, batch...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres: commit recommendations: %w", err)
	}
	return inserted, nil
}

func (p *Postgres) insertRecommendationBatch(ctx context.Context, tx *sql.Tx, batch []models.Recommendation) ([]models.Recommendation, error) {
	insert := p.psql.
		Insert("recommendations").
		Columns("property_id", "category_id", "title", "description", "formatted_address",
			"google_maps_link", "latitude", "longitude", "phone", "website", "price_range",
			"rating", "user_ratings_total", "external_source", "external_id",
			"is_auto_suggested", "created_at")

	for _, r := range batch {
		var createdAt any = sq.Expr("NOW()")
		if !r.CreatedAt.IsZero() {
			createdAt = r.CreatedAt
		}
		var priceRange any
		if r.PriceRange > 0 {
			priceRange = r.PriceRange
		}
		insert = insert.Values(r.PropertyID, r.CategoryID, r.Title, r.Description,
			r.FormattedAddress, r.MapsLink, r.Latitude, r.Longitude, r.Phone, r.Website,
			priceRange, r.Rating, r.UserRatingsTotal, string(sourceOf(r)), r.ExternalID,
			r.IsAutoSuggested, createdAt)
	}

	query, args, err := insert.
		Suffix("ON CONFLICT DO NOTHING RETURNING id, property_id, title, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build recommendation insert: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert recommendations: %w", err)
	}
	defer rows.Close()

	type rowKey struct {
		propertyID int64
		title      string
	}
	byKey := make(map[rowKey]int, len(batch))
	for i, r := range batch {
		byKey[rowKey{r.PropertyID, r.Title}] = i
	}

	var inserted []models.Recommendation
	for rows.Next() {
		var (
			id        int64
			key       rowKey
			createdAt time.Time
		)
		if err := rows.Scan(&id, &key.propertyID, &key.title, &createdAt); err != nil {
			return nil, fmt.Errorf("postgres: scan inserted recommendation: %w", err)
		}
		i, ok := byKey[key]
		if !ok {
			continue
		}
		r := batch[i]
		r.ID, r.CreatedAt, r.ExternalSource = id, createdAt, sourceOf(r)
		inserted = append(inserted, r)
	}
	return inserted, rows.Err()
}

// ListRecommendations returns every stored recommendation of the property.
func (p *Postgres) ListRecommendations(ctx context.Context, propertyID int64) ([]models.Recommendation, error) {
	query, args, err := p.psql.
		Select("id", "property_id", "category_id", "title", "description", "formatted_address",
			"google_maps_link", "COALESCE(latitude, 0)", "COALESCE(longitude, 0)", "phone",
			"website", "COALESCE(price_range, 0)", "rating", "user_ratings_total",
			"external_source", "external_id", "is_auto_suggested", "created_at").
		From("recommendations").
		Where(sq.Eq{"property_id": propertyID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build recommendations query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recommendations: %w", err)
	}
	defer rows.Close()

	var out []models.Recommendation
	for rows.Next() {
		var (
			r        models.Recommendation
			category sql.NullInt64
			rating   sql.NullFloat64
			source   string
		)
		if err := rows.Scan(&r.ID, &r.PropertyID, &category, &r.Title, &r.Description,
			&r.FormattedAddress, &r.MapsLink, &r.Latitude, &r.Longitude, &r.Phone, &r.Website,
			&r.PriceRange, &rating, &r.UserRatingsTotal, &source, &r.ExternalID,
			&r.IsAutoSuggested, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan recommendation: %w", err)
		}
		if category.Valid {
			id := category.Int64
			r.CategoryID = &id
		}
		if rating.Valid {
			v := rating.Float64
			r.Rating = &v
		}
		r.ExternalSource = models.Source(source)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTransport returns the property's transport_info rows.
func (p *Postgres) ListTransport(ctx context.Context, propertyID int64) ([]models.TransportRecord, error) {
	query, args, err := p.psql.
		Select("id", "property_id", "type", "name", "COALESCE(description, '')",
			"COALESCE(phone, '')", "COALESCE(website, '')", "COALESCE(schedule_info, '')",
			"COALESCE(price_info, '')").
		From("transport_info").
		Where(sq.Eq{"property_id": propertyID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build transport query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transport: %w", err)
	}
	defer rows.Close()

	var out []models.TransportRecord
	for rows.Next() {
		var t models.TransportRecord
		if err := rows.Scan(&t.ID, &t.PropertyID, &t.Type, &t.Name, &t.Description,
			&t.Phone, &t.Website, &t.ScheduleInfo, &t.PriceInfo); err != nil {
			return nil, fmt.Errorf("postgres: scan transport: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertTransport writes rec and fills its ID when the name is new for the
// property.
func (p *Postgres) InsertTransport(ctx context.Context, rec *models.TransportRecord) (bool, error) {
	query, args, err := p.psql.
		Insert("transport_info").
		Columns("property_id", "type", "name", "description", "phone", "website",
			"schedule_info", "price_info").
		Values(rec.PropertyID, rec.Type, rec.Name, rec.Description, rec.Phone, rec.Website,
			rec.ScheduleInfo, rec.PriceInfo).
		Suffix("ON CONFLICT (property_id, name) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("postgres: build transport insert: %w", err)
	}

	err = p.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: insert transport: %w", err)
	}
	return true, nil
}

// ListStops returns every stored transit stop.
func (p *Postgres) ListStops(ctx context.Context) ([]models.TransitStop, error) {
	query, args, err := p.psql.
		Select("id", "name", "latitude", "longitude", "is_hub").
		From("bus_stops").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build stops query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stops: %w", err)
	}
	defer rows.Close()

	var out []models.TransitStop
	for rows.Next() {
		var s models.TransitStop
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.IsHub); err != nil {
			return nil, fmt.Errorf("postgres: scan stop: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LinesForStops resolves serving lines through the route-stop junction.
func (p *Postgres) LinesForStops(ctx context.Context, stopIDs []int64) (map[int64][]models.TransitLine, error) {
	out := make(map[int64][]models.TransitLine, len(stopIDs))
	if len(stopIDs) == 0 {
		return out, nil
	}

	query, args, err := p.psql.
		Select("rs.stop_id", "l.id", "l.line_number", "COALESCE(l.name, '')", "l.color",
			"COALESCE(l.main_attractions, '')").
		Distinct().
		From("bus_route_stops rs").
		Join("bus_lines l ON l.id = rs.line_id").
		Where("rs.stop_id = ANY(?)", pq.Array(stopIDs)).
		OrderBy("rs.stop_id", "l.line_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build lines query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: lines for stops: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stopID int64
			l      models.TransitLine
		)
		if err := rows.Scan(&stopID, &l.ID, &l.LineNumber, &l.Name, &l.Color, &l.MainAttractions); err != nil {
			return nil, fmt.Errorf("postgres: scan line: %w", err)
		}
		out[stopID] = append(out[stopID], l)
	}
	return out, rows.Err()
}

// ImportTransit upserts a full dataset in one transaction. Rows keep the ids
// from the dataset so route stops can reference them.
func (p *Postgres) ImportTransit(ctx context.Context, ds *models.TransitDataset) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range ds.Stops {
		if err := p.execTx(ctx, tx, p.psql.
			Insert("bus_stops").
			Columns("id", "name", "latitude", "longitude", "is_hub").
			Values(s.ID, s.Name, s.Latitude, s.Longitude, s.IsHub).
			Suffix(`ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
				latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
				is_hub = EXCLUDED.is_hub`)); err != nil {
			return fmt.Errorf("postgres: upsert stop %d: %w", s.ID, err)
		}
	}

	for _, l := range ds.Lines {
		if err := p.execTx(ctx, tx, p.psql.
			Insert("bus_lines").
			Columns("id", "line_number", "name", "color", "main_attractions").
			Values(l.ID, l.LineNumber, l.Name, l.Color, l.MainAttractions).
			Suffix(`ON CONFLICT (id) DO UPDATE SET line_number = EXCLUDED.line_number,
				name = EXCLUDED.name, color = EXCLUDED.color,
				main_attractions = EXCLUDED.main_attractions`)); err != nil {
			return fmt.Errorf("postgres: upsert line %s: %w", l.LineNumber, err)
		}
	}

	for _, rs := range ds.RouteStops {
		if err := p.execTx(ctx, tx, p.psql.
			Insert("bus_route_stops").
			Columns("line_id", "stop_id", "stop_order", "direction").
			Values(rs.LineID, rs.StopID, rs.Order, rs.Direction).
			Suffix(`ON CONFLICT (line_id, stop_id, direction) DO UPDATE
				SET stop_order = EXCLUDED.stop_order`)); err != nil {
			return fmt.Errorf("postgres: upsert route stop %d/%d: %w", rs.LineID, rs.StopID, err)
		}
	}

	for _, table := range []string{"bus_stops", "bus_lines"} {
		stmt := fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'),
			COALESCE((SELECT MAX(id) FROM %s), 1))`, table, table)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: reset %s sequence: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit transit import: %w", err)
	}
	return nil
}

func sourceOf(r models.Recommendation) models.Source {
	if r.ExternalSource == "" {
		return models.SourceManual
	}
	return r.ExternalSource
}

func (p *Postgres) execTx(ctx context.Context, tx *sql.Tx, b sq.InsertBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
