package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// Collection names.
const (
	CollectionProjects    = "projects"
	CollectionScreens     = "screens"
	CollectionAnnotations = "annotations"
)

// DefaultDatabase is used when MongoConfig.Database is empty.
const DefaultDatabase = "specsync"

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI      string        `toml:"uri"`
	Database string        `toml:"database"`
	Timeout  time.Duration `toml:"timeout"`
}

// MongoStore persists records in MongoDB.
type MongoStore struct {
	client      *mongo.Client
	projects    *mongo.Collection
	screens     *mongo.Collection
	annotations *mongo.Collection
	now         func() time.Time
}

// NewMongoStore connects to MongoDB, verifies the connection and ensures the
// lookup indexes exist.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "mongo uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, persistence(err, "connect to mongo")
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, persistence(err, "ping mongo")
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:      client,
		projects:    db.Collection(CollectionProjects),
		screens:     db.Collection(CollectionScreens),
		annotations: db.Collection(CollectionAnnotations),
		now:         time.Now,
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll *mongo.Collection
		key  string
	}{
		{s.projects, "owner"},
		{s.screens, "project_id"},
		{s.annotations, "screen_id"},
	}
	for _, ix := range indexes {
		model := mongo.IndexModel{Keys: bson.D{{Key: ix.key, Value: 1}}}
		if _, err := ix.coll.Indexes().CreateOne(ctx, model); err != nil {
			return persistence(err, "create index %s.%s", ix.coll.Name(), ix.key)
		}
	}
	return nil
}

// =============================================================================
// Projects
// =============================================================================

func (s *MongoStore) CreateProject(ctx context.Context, p *annotation.Project) error {
	if err := prepareProject(p, s.now().UTC()); err != nil {
		return err
	}
	if _, err := s.projects.InsertOne(ctx, p); err != nil {
		return persistence(err, "insert project")
	}
	return nil
}

func (s *MongoStore) GetProject(ctx context.Context, id string) (*annotation.Project, error) {
	var p annotation.Project
	if err := s.findOne(ctx, s.projects, id, &p, "project"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) ListProjects(ctx context.Context, owner string) ([]annotation.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.projects.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, persistence(err, "list projects")
	}
	out := []annotation.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, persistence(err, "decode projects")
	}
	return out, nil
}

// =============================================================================
// Screens
// =============================================================================

// AddScreen inserts the screen and then pushes its ID onto the project. If
// the push fails the inserted screen is removed again.
func (s *MongoStore) AddScreen(ctx context.Context, sc *annotation.Screen) error {
	if err := prepareScreen(sc, s.now().UTC()); err != nil {
		return err
	}
	if _, err := s.GetProject(ctx, sc.ProjectID); err != nil {
		return err
	}
	if _, err := s.screens.InsertOne(ctx, sc); err != nil {
		return persistence(err, "insert screen")
	}
	err := s.push(ctx, s.projects, sc.ProjectID, "screen_ids", sc.ID, sc.CreatedAt)
	if err != nil {
		_, _ = s.screens.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": sc.ID})
		return err
	}
	return nil
}

func (s *MongoStore) GetScreen(ctx context.Context, id string) (*annotation.Screen, error) {
	var sc annotation.Screen
	if err := s.findOne(ctx, s.screens, id, &sc, "screen"); err != nil {
		return nil, err
	}
	return &sc, nil
}

// =============================================================================
// Annotations
// =============================================================================

// AddAnnotation inserts the annotation and pushes its ID onto the screen,
// removing the annotation again if the push fails.
func (s *MongoStore) AddAnnotation(ctx context.Context, a *annotation.Annotation) error {
	if err := prepareAnnotation(a, s.now().UTC()); err != nil {
		return err
	}
	if _, err := s.GetScreen(ctx, a.ScreenID); err != nil {
		return err
	}
	if _, err := s.annotations.InsertOne(ctx, a); err != nil {
		return persistence(err, "insert annotation")
	}
	err := s.push(ctx, s.screens, a.ScreenID, "annotation_ids", a.ID, a.CreatedAt)
	if err != nil {
		_, _ = s.annotations.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": a.ID})
		return err
	}
	return nil
}

func (s *MongoStore) GetAnnotation(ctx context.Context, id string) (*annotation.Annotation, error) {
	var a annotation.Annotation
	if err := s.findOne(ctx, s.annotations, id, &a, "annotation"); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *MongoStore) UpdateAnnotation(ctx context.Context, id string, f annotation.Fields) (*annotation.Annotation, error) {
	if err := validateFields(f); err != nil {
		return nil, err
	}
	update := fieldsUpdate(f, s.now().UTC())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a annotation.Annotation
	err := s.annotations.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("annotation", id)
	}
	if err != nil {
		return nil, persistence(err, "update annotation %s", id)
	}
	return &a, nil
}

func (s *MongoStore) UpdatePosition(ctx context.Context, id string, x, y float64) error {
	if err := apperrors.ValidatePosition(x, y); err != nil {
		return err
	}
	res, err := s.annotations.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"x": x, "y": y, "updated_at": s.now().UTC()},
	})
	if err != nil {
		return persistence(err, "update position of annotation %s", id)
	}
	if res.MatchedCount == 0 {
		return notFound("annotation", id)
	}
	return nil
}

// ScreenAnnotations loads the screen's annotations and orders them by the
// screen's annotation ID list.
func (s *MongoStore) ScreenAnnotations(ctx context.Context, screenID string) ([]annotation.Annotation, error) {
	sc, err := s.GetScreen(ctx, screenID)
	if err != nil {
		return nil, err
	}
	out := make([]annotation.Annotation, 0, len(sc.AnnotationIDs))
	if len(sc.AnnotationIDs) == 0 {
		return out, nil
	}

	cur, err := s.annotations.Find(ctx, bson.M{"_id": bson.M{"$in": sc.AnnotationIDs}})
	if err != nil {
		return nil, persistence(err, "list annotations of screen %s", screenID)
	}
	var found []annotation.Annotation
	if err := cur.All(ctx, &found); err != nil {
		return nil, persistence(err, "decode annotations")
	}

	byID := make(map[string]annotation.Annotation, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	for _, id := range sc.AnnotationIDs {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *MongoStore) findOne(ctx context.Context, coll *mongo.Collection, id string, out any, kind string) error {
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(kind, id)
	}
	if err != nil {
		return persistence(err, "read %s %s", kind, id)
	}
	return nil
}

func (s *MongoStore) push(ctx context.Context, coll *mongo.Collection, id, field, value string, now time.Time) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{field: value},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return persistence(err, "append to %s.%s", coll.Name(), field)
	}
	if res.MatchedCount == 0 {
		return notFound(coll.Name(), id)
	}
	return nil
}

// fieldsUpdate translates a partial update into $set and $unset operators.
// Blank optional strings are unset so they read back as absent.
func fieldsUpdate(f annotation.Fields, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	unset := bson.M{}

	str := func(key string, v *string) {
		if v == nil {
			return
		}
		if strings.TrimSpace(*v) == "" {
			unset[key] = ""
			return
		}
		set[key] = *v
	}
	if f.Marker != nil {
		set["marker"] = *f.Marker
	}
	str("component_id", f.ComponentID)
	str("section", f.Section)
	str("source", f.Source)
	str("interactivity", f.Interactivity)
	if f.IsRequired != nil {
		set["is_required"] = *f.IsRequired
	}
	str("master_data", f.MasterData)
	str("api_name", f.APIName)
	if f.IsAPIAvailable != nil {
		set["is_api_available"] = *f.IsAPIAvailable
	}
	str("api_id", f.APIID)
	str("third_party_integration", f.ThirdPartyIntegration)
	str("authoring_field_name", f.AuthoringFieldName)
	str("field_context", f.FieldContext)
	str("validation", f.Validation)
	str("desktop_view_difference", f.DesktopViewDifference)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

var _ Store = (*MongoStore)(nil)
