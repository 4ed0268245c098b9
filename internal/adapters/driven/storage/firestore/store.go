package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	firestorev1 "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
)

// MaxBatchSize is the Firestore limit on writes per commit.
const MaxBatchSize = 500

// DefaultEndpoint is the Firestore REST base URL.
const DefaultEndpoint = "https://firestore.googleapis.com/"

const datastoreScope = "https://www.googleapis.com/auth/datastore"

var _ driven.DocumentStore = (*Store)(nil)

// Config configures the Firestore store.
type Config struct {
	// Project is the Google Cloud project ID. Required.
	Project string

	// Database is the database ID. Empty means "(default)".
	Database string

	// CredentialsFile is a service account JSON key. When empty and no
	// TokenSource is set, application default credentials are used.
	CredentialsFile string

	// TokenSource overrides CredentialsFile.
	TokenSource oauth2.TokenSource

	// HTTPClient overrides all authentication settings.
	HTTPClient *http.Client

	// Endpoint overrides DefaultEndpoint. It must end with a slash.
	Endpoint string
}

// Store is a Firestore-backed DocumentStore.
type Store struct {
	client   *http.Client
	service  *firestorev1.Service
	endpoint string
	database string
}

// New creates a Firestore store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("%w: firestore project is required", domain.ErrInvalidArgument)
	}
	if cfg.Database == "" {
		cfg.Database = "(default)"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(cfg.Endpoint, "/") {
		cfg.Endpoint += "/"
	}

	client, err := httpClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service, err := firestorev1.NewService(ctx,
		option.WithHTTPClient(client),
		option.WithEndpoint(cfg.Endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("creating firestore service: %w", err)
	}

	return &Store{
		client:   client,
		service:  service,
		endpoint: cfg.Endpoint,
		database: "projects/" + cfg.Project + "/databases/" + cfg.Database,
	}, nil
}

func httpClient(ctx context.Context, cfg Config) (*http.Client, error) {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient, nil
	}

	ts := cfg.TokenSource
	if ts == nil && cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading firestore credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, datastoreScope)
		if err != nil {
			return nil, fmt.Errorf("parsing firestore credentials: %w", err)
		}
		ts = creds.TokenSource
	}
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(ctx, datastoreScope)
		if err != nil {
			return nil, fmt.Errorf("finding default credentials: %w", err)
		}
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts)), nil
}

// MaxBatchSize returns the largest commit Firestore accepts.
func (s *Store) MaxBatchSize() int {
	return MaxBatchSize
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) documentsPath() string {
	return s.database + "/documents"
}

func (s *Store) documentName(collection, id string) string {
	return s.documentsPath() + "/" + collection + "/" + id
}

// GetByID retrieves a single document regardless of tenant.
func (s *Store) GetByID(ctx context.Context, collection, id string) (*domain.Record, error) {
	if collection == "" || id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("%w: invalid document %q in %q", domain.ErrInvalidArgument, id, collection)
	}

	var doc wireDocument
	if err := s.call(ctx, http.MethodGet, s.documentName(collection, id), nil, &doc); err != nil {
		return nil, mapError("get "+collection+"/"+id, err)
	}
	rec := toRecord(doc)
	return &rec, nil
}

// Query returns up to q.Limit records of one tenant ordered by document name.
// Null equality constraints cannot be expressed server side, so they are
// applied to the results and the query continues until the page is full.
func (s *Store) Query(ctx context.Context, q domain.Query) ([]domain.Record, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", domain.ErrInvalidArgument)
	}
	if q.Filter.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant filter is required", domain.ErrInvalidArgument)
	}

	var (
		out    []domain.Record
		cursor = q.StartAfter
	)
	for {
		limit := 0
		if q.Limit > 0 {
			limit = q.Limit - len(out)
		}
		docs, err := s.runQuery(ctx, s.structuredQuery(q.Collection, q.Filter, cursor, limit))
		if err != nil {
			return nil, mapError("query "+q.Collection, err)
		}
		for _, doc := range docs {
			rec := toRecord(doc)
			if q.Filter.Matches(rec) {
				out = append(out, rec)
			}
		}
		if limit == 0 || len(docs) < limit || len(out) >= q.Limit {
			return out, nil
		}
		cursor = documentID(docs[len(docs)-1].Name)
	}
}

// Count returns the number of documents matching filter.
func (s *Store) Count(ctx context.Context, collection string, filter domain.Filter) (int, error) {
	total := 0
	cursor := ""
	for {
		recs, err := s.Query(ctx, domain.Query{
			Collection: collection,
			Filter:     filter,
			Limit:      MaxBatchSize,
			StartAfter: cursor,
		})
		if err != nil {
			return 0, err
		}
		total += len(recs)
		if len(recs) < MaxBatchSize {
			return total, nil
		}
		cursor = recs[len(recs)-1].ID
	}
}

// BatchDelete removes the given documents in one commit. Missing IDs are ignored.
func (s *Store) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) > MaxBatchSize {
		return fmt.Errorf("%w: %d deletes, limit %d", domain.ErrBatchTooLarge, len(ids), MaxBatchSize)
	}
	if len(ids) == 0 {
		return nil
	}

	writes := make([]*firestorev1.Write, 0, len(ids))
	for _, id := range ids {
		writes = append(writes, &firestorev1.Write{Delete: s.documentName(collection, id)})
	}
	return s.commit(ctx, "delete from "+collection, writes)
}

// BatchUpdate patches fields on the given documents in one commit. Only
// the named fields are written; a nil value stores null. Every document
// must exist, otherwise nothing is written.
func (s *Store) BatchUpdate(ctx context.Context, collection string, updates []domain.FieldUpdate) error {
	if len(updates) > MaxBatchSize {
		return fmt.Errorf("%w: %d updates, limit %d", domain.ErrBatchTooLarge, len(updates), MaxBatchSize)
	}
	if len(updates) == 0 {
		return nil
	}

	writes := make([]*firestorev1.Write, 0, len(updates))
	for _, u := range updates {
		fields, err := apiFields(u.Fields)
		if err != nil {
			return err
		}
		writes = append(writes, &firestorev1.Write{
			Update: &firestorev1.Document{
				Name:   s.documentName(collection, u.ID),
				Fields: fields,
			},
			UpdateMask:      &firestorev1.DocumentMask{FieldPaths: fieldPaths(u.Fields)},
			CurrentDocument: &firestorev1.Precondition{Exists: true},
		})
	}
	return s.commit(ctx, "update "+collection, writes)
}

func (s *Store) commit(ctx context.Context, op string, writes []*firestorev1.Write) error {
	_, err := s.service.Projects.Databases.Documents.
		Commit(s.database, &firestorev1.CommitRequest{Writes: writes}).
		Context(ctx).
		Do()
	return mapError(op, err)
}

// structuredQuery is the REST encoding of a runQuery request.
type structuredQuery struct {
	From    []collectionSelector `json:"from"`
	Where   *queryFilter         `json:"where,omitempty"`
	OrderBy []queryOrder         `json:"orderBy"`
	StartAt *queryCursor         `json:"startAt,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
}

type collectionSelector struct {
	CollectionID string `json:"collectionId"`
}

type fieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type queryFilter struct {
	CompositeFilter *compositeFilter `json:"compositeFilter,omitempty"`
	FieldFilter     *fieldFilter     `json:"fieldFilter,omitempty"`
}

type compositeFilter struct {
	Op      string        `json:"op"`
	Filters []queryFilter `json:"filters"`
}

type fieldFilter struct {
	Field fieldReference `json:"field"`
	Op    string         `json:"op"`
	Value wireValue      `json:"value"`
}

type queryOrder struct {
	Field     fieldReference `json:"field"`
	Direction string         `json:"direction"`
}

type queryCursor struct {
	Values []wireValue `json:"values"`
	Before bool        `json:"before"`
}

func (s *Store) structuredQuery(collection string, filter domain.Filter, startAfter string, limit int) structuredQuery {
	filters := []queryFilter{equalTo(domain.FieldTenantID, filter.TenantID)}
	keys := make([]string, 0, len(filter.Equals))
	for k, want := range filter.Equals {
		if want != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		filters = append(filters, equalTo(quoteFieldPath(k), filter.Equals[k]))
	}

	q := structuredQuery{
		From:    []collectionSelector{{CollectionID: collection}},
		OrderBy: []queryOrder{{Field: fieldReference{FieldPath: "__name__"}, Direction: "ASCENDING"}},
		Limit:   limit,
	}
	if len(filters) == 1 {
		q.Where = &filters[0]
	} else {
		q.Where = &queryFilter{CompositeFilter: &compositeFilter{Op: "AND", Filters: filters}}
	}
	if startAfter != "" {
		ref := s.documentName(collection, startAfter)
		q.StartAt = &queryCursor{Values: []wireValue{{ReferenceValue: &ref}}, Before: false}
	}
	return q
}

func equalTo(path string, v any) queryFilter {
	return queryFilter{FieldFilter: &fieldFilter{
		Field: fieldReference{FieldPath: path},
		Op:    "EQUAL",
		Value: encodeValue(v),
	}}
}

// runQuery posts a structured query. The endpoint answers with a JSON
// array of results, some of which carry no document.
func (s *Store) runQuery(ctx context.Context, q structuredQuery) ([]wireDocument, error) {
	body := map[string]any{"structuredQuery": q}
	var results []struct {
		Document *wireDocument `json:"document"`
	}
	if err := s.call(ctx, http.MethodPost, s.documentsPath()+":runQuery", body, &results); err != nil {
		return nil, err
	}

	docs := make([]wireDocument, 0, len(results))
	for _, r := range results {
		if r.Document != nil {
			docs = append(docs, *r.Document)
		}
	}
	return docs, nil
}

// call performs a REST request against the v1 API and decodes the JSON reply.
func (s *Store) call(ctx context.Context, method, resource string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := s.endpoint + "v1/" + (&url.URL{Path: resource}).EscapedPath()
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer googleapi.CloseBody(res)

	if err := googleapi.CheckResponse(res); err != nil {
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
