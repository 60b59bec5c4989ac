package payroll

import "context"

type Page struct {
	Records []PayrollRecord `json:"records"`
	Total   int64           `json:"total"`
	Page    int64           `json:"page"`
	Limit   int64           `json:"limit"`
}

type PayrollService interface {
	List(ctx context.Context, year, month int, page, limit int64) (*Page, error)
}

type PayrollServiceImpl struct {
	Repo PayrollRepository
}

func NewPayrollService(repo PayrollRepository) PayrollService {
	return &PayrollServiceImpl{Repo: repo}
}

func (s *PayrollServiceImpl) List(ctx context.Context, year, month int, page, limit int64) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	records, err := s.Repo.List(ctx, year, month, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := s.Repo.Count(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return &Page{Records: records, Total: total, Page: page, Limit: limit}, nil
}
