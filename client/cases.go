package client

import (
	"context"
	"net/url"
)

// CaseService handles case registration and lookup. Supervisors only.
type CaseService struct {
	c *Client
}

// Register creates or updates the case with the given ID.
func (s *CaseService) Register(ctx context.Context, id string, req *RegisterCaseRequest) (*Case, error) {
	var c Case
	if err := s.c.put(ctx, "/api/v1/cases/"+url.PathEscape(id), req, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get returns a case, including its finalized output once approved.
func (s *CaseService) Get(ctx context.Context, id string) (*Case, error) {
	var c Case
	if err := s.c.get(ctx, "/api/v1/cases/"+url.PathEscape(id), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
