package client

import (
	"context"
	"net/url"
	"strconv"
)

// ReviewService handles review lifecycle operations.
type ReviewService struct {
	c *Client
}

// reviewListResponse wraps the paginated review list response.
type reviewListResponse struct {
	Reviews []Review `json:"reviews"`
	HasMore bool     `json:"has_more"`
}

// Create opens a PENDING review on a registered case.
func (s *ReviewService) Create(ctx context.Context, req *CreateReviewRequest) (*Review, error) {
	var review Review
	if err := s.c.post(ctx, "/api/v1/reviews", req, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// Get returns a single review by ID.
func (s *ReviewService) Get(ctx context.Context, id string) (*Review, error) {
	var review Review
	if err := s.c.get(ctx, "/api/v1/reviews/"+url.PathEscape(id), nil, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// List returns the reviews visible to the caller.
func (s *ReviewService) List(ctx context.Context, opts *ReviewListOptions) ([]Review, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.Status != "" {
			params.Set("status", opts.Status)
		}
		if opts.ReviewerID != "" {
			params.Set("reviewer_id", opts.ReviewerID)
		}
		if opts.CaseID != "" {
			params.Set("case_id", opts.CaseID)
		}
		if opts.Mine {
			params.Set("mine", "true")
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp reviewListResponse
	if err := s.c.get(ctx, "/api/v1/reviews", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Reviews, resp.HasMore, nil
}

// Transition requests a status change. A 409 means the review changed since
// it was read; a 422 carries the statuses the caller could have requested.
func (s *ReviewService) Transition(ctx context.Context, id string, req *TransitionRequest) (*Review, error) {
	var review Review
	if err := s.c.post(ctx, "/api/v1/reviews/"+url.PathEscape(id)+"/transitions", req, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// Audit returns the audit trail of one review, newest first.
func (s *ReviewService) Audit(ctx context.Context, id string, limit, offset int) ([]AuditEntry, bool, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	var resp auditQueryResponse
	if err := s.c.get(ctx, "/api/v1/reviews/"+url.PathEscape(id)+"/audit", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Data, resp.HasMore, nil
}
