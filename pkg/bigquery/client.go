package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/tokoflow-backend/pkg/config"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client wraps one dataset. The order events table must exist before start.
type Client struct {
	client      *bigquery.Client
	dataset     *bigquery.Dataset
	eventsTable string
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	datasetID := strings.TrimSpace(cfg.Dataset)
	table := strings.TrimSpace(cfg.OrderEventsTable)
	switch {
	case projectID == "":
		return nil, errProjectIDRequired
	case datasetID == "":
		return nil, errDatasetRequired
	case table == "":
		return nil, errTableNameRequired
	}

	bq, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: bq, dataset: bq.Dataset(datasetID), eventsTable: table}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "table": table}), "bigquery client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// OrderEventsTable is the table analytics rows are streamed into.
func (c *Client) OrderEventsTable() string {
	if c == nil {
		return ""
	}
	return c.eventsTable
}

// Ping checks the dataset and the order events table are reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.tableMetadata(ctx, c.OrderEventsTable())
	return err
}

// CheckSchema fails when the order events table lacks a column of want or
// stores it with a different type. Extra table columns are allowed.
func (c *Client) CheckSchema(ctx context.Context, want bigquery.Schema) error {
	meta, err := c.tableMetadata(ctx, c.OrderEventsTable())
	if err != nil {
		return err
	}
	if problems := schemaMismatches(meta.Schema, want); len(problems) > 0 {
		return fmt.Errorf("table %q schema mismatch: %s", c.eventsTable, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Client) tableMetadata(ctx context.Context, table string) (*bigquery.TableMetadata, error) {
	if c == nil || c.dataset == nil {
		return nil, errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return nil, fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	meta, err := c.dataset.Table(table).Metadata(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("table %q does not exist", table)
		}
		return nil, fmt.Errorf("checking table %q: %w", table, err)
	}
	return meta, nil
}

func schemaMismatches(have, want bigquery.Schema) []string {
	columns := make(map[string]bigquery.FieldType, len(have))
	for _, field := range have {
		columns[strings.ToLower(field.Name)] = field.Type
	}
	var problems []string
	for _, field := range want {
		got, ok := columns[strings.ToLower(field.Name)]
		switch {
		case !ok:
			problems = append(problems, "missing column "+field.Name)
		case got != field.Type:
			problems = append(problems, fmt.Sprintf("column %s is %s, want %s", field.Name, got, field.Type))
		}
	}
	sort.Strings(problems)
	return problems
}

// InsertRows streams rows into table. Rows may implement bigquery.ValueSaver
// to control insert IDs.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
