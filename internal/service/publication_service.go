package service

import (
	"net/url"
	"strings"

	"github.com/samber/lo"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/repository"
	pkgErrors "hpc-portal/pkg/errors"
)

type PublicationService interface {
	Create(actor *model.User, req *dto.CreatePublicationRequest) (*dto.PublicationResponse, error)
	List(actor *model.User, query *dto.PageQuery) ([]*dto.PublicationResponse, int64, error)
}

type publicationService struct {
	repo repository.FundingRepository
}

func NewPublicationService(repo repository.FundingRepository) PublicationService {
	return &publicationService{repo: repo}
}

func (s *publicationService) Create(actor *model.User, req *dto.CreatePublicationRequest) (*dto.PublicationResponse, error) {
	link := strings.TrimSpace(req.URL)
	if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, pkgErrors.Validation(map[string]string{"url": "Enter a valid URL."})
	}

	publication := &model.Publication{
		Title:       strings.TrimSpace(req.Title),
		URL:         link,
		CreatedByID: actor.ID,
	}
	if err := s.repo.CreatePublication(publication); err != nil {
		return nil, err
	}
	return toPublicationResponse(publication), nil
}

func (s *publicationService) List(actor *model.User, query *dto.PageQuery) ([]*dto.PublicationResponse, int64, error) {
	publications, total, err := s.repo.ListPublications(*query, &actor.ID)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(publications, func(p *model.Publication, _ int) *dto.PublicationResponse {
		return toPublicationResponse(p)
	}), total, nil
}
