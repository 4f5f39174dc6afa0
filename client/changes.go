package client

import (
	"context"
	"net/url"
	"strconv"
)

// ChangeService handles change log operations.
type ChangeService struct {
	c *Client
}

// changeListResponse wraps the paginated change log response.
type changeListResponse struct {
	Changes []ChangeLogEntry `json:"changes"`
	HasMore bool             `json:"has_more"`
}

// Record appends a field correction to a review's change log.
func (s *ChangeService) Record(ctx context.Context, reviewID string, req *ChangeLogRequest) (*ChangeLogEntry, error) {
	var entry ChangeLogEntry
	if err := s.c.post(ctx, "/api/v1/reviews/"+url.PathEscape(reviewID)+"/changes", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns a review's change log, newest first.
func (s *ChangeService) List(ctx context.Context, reviewID string, opts *ChangeListOptions) ([]ChangeLogEntry, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.FieldName != "" {
			params.Set("field_name", opts.FieldName)
		}
		if opts.AuthorID != "" {
			params.Set("author_id", opts.AuthorID)
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp changeListResponse
	if err := s.c.get(ctx, "/api/v1/reviews/"+url.PathEscape(reviewID)+"/changes", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Changes, resp.HasMore, nil
}

// Get returns a single change log entry by ID.
func (s *ChangeService) Get(ctx context.Context, id string) (*ChangeLogEntry, error) {
	var entry ChangeLogEntry
	if err := s.c.get(ctx, "/api/v1/changes/"+url.PathEscape(id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
