package roble

import (
	"context"
	"net/http"
	"net/url"
)

// Record is an opaque database row. The client imposes no schema beyond the
// service-assigned "_id" column.
type Record map[string]any

// idColumn is the service's primary-key column for update/delete targeting.
const idColumn = "_id"

// Read returns the rows of table, optionally narrowed by column/value
// filters.
func (c *Client) Read(ctx context.Context, table string, filters map[string]string) ([]Record, error) {
	query := url.Values{"tableName": {table}}
	for column, value := range filters {
		query.Set(column, value)
	}

	resp, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   c.databasePath("read"),
		Query:  query,
	})
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := resp.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// insertResponse reports which rows the service accepted.
type insertResponse struct {
	Inserted []Record `json:"inserted"`
	Skipped  []Record `json:"skipped"`
}

// Insert adds records to table and returns the rows the service accepted,
// including their assigned IDs. Older deployments confirm the insert with a
// body that carries no row list; Insert then returns nil, nil even though
// the records were stored.
func (c *Client) Insert(ctx context.Context, table string, records []Record) ([]Record, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   c.databasePath("insert"),
		Body: map[string]any{
			"tableName": table,
			"records":   records,
		},
	})
	if err != nil {
		return nil, err
	}

	var result insertResponse
	if err := resp.Decode(&result); err != nil {
		// Older deployments answer with a bare confirmation object; the
		// insert still succeeded.
		c.log.Debug("insert response without row list", "table", table, "err", err)
		return nil, nil
	}
	return result.Inserted, nil
}

// Update applies updates to the row of table whose _id equals id.
func (c *Client) Update(ctx context.Context, table, id string, updates Record) error {
	_, err := c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   c.databasePath("update"),
		Body: map[string]any{
			"tableName": table,
			"idColumn":  idColumn,
			"idValue":   id,
			"updates":   updates,
		},
	})
	return err
}

// Delete removes the row of table whose _id equals id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	_, err := c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   c.databasePath("delete"),
		Body: map[string]any{
			"tableName": table,
			"idColumn":  idColumn,
			"idValue":   id,
		},
	})
	return err
}
