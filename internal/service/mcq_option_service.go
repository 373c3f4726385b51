package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stemsi/qbank-console/internal/model"
)

// MCQOptionService wraps the /api/mcq-options resource.
type MCQOptionService struct {
	res resource[model.MCQOption, model.CreateMCQOptionRequest, model.UpdateMCQOptionRequest]
}

// NewMCQOptionService creates a new MCQOptionService.
func NewMCQOptionService(api Backend) *MCQOptionService {
	return &MCQOptionService{res: resource[model.MCQOption, model.CreateMCQOptionRequest, model.UpdateMCQOptionRequest]{api: api, base: "/api/mcq-options"}}
}

func (s *MCQOptionService) Create(ctx context.Context, req model.CreateMCQOptionRequest) (*model.MCQOption, error) {
	return s.res.create(ctx, req)
}

func (s *MCQOptionService) Update(ctx context.Context, id int64, req model.UpdateMCQOptionRequest) (*model.MCQOption, error) {
	return s.res.update(ctx, id, req)
}

func (s *MCQOptionService) Delete(ctx context.Context, id int64) error {
	return s.res.delete(ctx, id)
}

func (s *MCQOptionService) GetByID(ctx context.Context, id int64) (*model.MCQOption, error) {
	return s.res.getByID(ctx, id)
}

// CreateMultiple creates a question's options in one call.
func (s *MCQOptionService) CreateMultiple(ctx context.Context, reqs []model.CreateMCQOptionRequest) ([]model.MCQOption, error) {
	var out []model.MCQOption
	if err := s.res.api.Post(ctx, s.res.base+"/multiple", reqs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OptionsByQuestionIDs fetches the options of many questions at once, keyed
// by question id. Questions without options are absent from the map.
func (s *MCQOptionService) OptionsByQuestionIDs(ctx context.Context, questionIDs []int64) (map[int64][]model.MCQOption, error) {
	if len(questionIDs) == 0 {
		return map[int64][]model.MCQOption{}, nil
	}

	// JSON object keys are strings on the wire.
	var raw map[string][]model.MCQOption
	if err := s.res.api.Post(ctx, s.res.base+"/options-by-ids", questionIDs, &raw); err != nil {
		return nil, err
	}

	out := make(map[int64][]model.MCQOption, len(raw))
	for k, opts := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("options-by-ids: bad question id %q: %w", k, err)
		}
		out[id] = opts
	}
	return out, nil
}

// OptionsByQuestion lists one question's options.
func (s *MCQOptionService) OptionsByQuestion(ctx context.Context, questionID int64) ([]model.MCQOption, error) {
	return s.res.list(ctx, fmt.Sprintf("/%d/options", questionID), nil)
}
